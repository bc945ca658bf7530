package handler

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/domain"
	"github.com/lettercast/campaign-engine/internal/service"
	"github.com/lettercast/campaign-engine/internal/tracking"
)

// TrackingHandler serves the pixel and click-redirect endpoints embedded in
// campaign emails. These are hit by mail clients, not API consumers: the
// pixel always answers with the image and the redirect always lands the
// reader somewhere, whatever happens to the recording behind the scenes.
type TrackingHandler struct {
	tracker *service.TrackerService
	homeURL string
	logger  *zap.Logger
}

func NewTrackingHandler(tracker *service.TrackerService, homeURL string, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{tracker: tracker, homeURL: homeURL, logger: logger}
}

// Open handles GET /track/open/{campaignID}/{subscriberID}/pixel.png
func (h *TrackingHandler) Open(w http.ResponseWriter, r *http.Request) {
	campaignID, subscriberID, ok := h.parseIDs(r)
	if ok {
		event := &domain.TrackingEvent{
			CampaignID:   campaignID,
			SubscriberID: subscriberID,
			Action:       domain.ActionOpen,
			IPAddress:    clientIP(r),
			UserAgent:    r.UserAgent(),
		}
		if _, err := h.tracker.RecordEvent(r.Context(), event); err != nil {
			h.logger.Error("record open failed",
				zap.String("campaign_id", campaignID.String()),
				zap.Error(err))
		}
	}
	tracking.ServePixel(w)
}

// Click handles GET /track/click/{campaignID}/{subscriberID}?url=...
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if !validRedirectTarget(target) {
		// Tampered or truncated link: send the reader home, record nothing.
		http.Redirect(w, r, h.homeURL, http.StatusFound)
		return
	}

	campaignID, subscriberID, ok := h.parseIDs(r)
	if ok {
		event := &domain.TrackingEvent{
			CampaignID:   campaignID,
			SubscriberID: subscriberID,
			Action:       domain.ActionClick,
			TargetURL:    &target,
			IPAddress:    clientIP(r),
			UserAgent:    r.UserAgent(),
		}
		if _, err := h.tracker.RecordEvent(r.Context(), event); err != nil {
			h.logger.Error("record click failed",
				zap.String("campaign_id", campaignID.String()),
				zap.Error(err))
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *TrackingHandler) parseIDs(r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	subscriberID, err := uuid.Parse(chi.URLParam(r, "subscriberID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return campaignID, subscriberID, true
}

// validRedirectTarget accepts only absolute http(s) URLs, which shuts the
// door on javascript: and data: schemes smuggled into the url parameter.
func validRedirectTarget(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// clientIP extracts the originating address, preferring proxy headers over
// the socket peer. X-Forwarded-For entries are scanned left to right for the
// first public IP; private and loopback hops appended by intermediate proxies
// are skipped. The socket peer is the last resort either way.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for _, part := range strings.Split(fwd, ",") {
			candidate := strings.TrimSpace(part)
			if ip := net.ParseIP(candidate); ip != nil && isPublicIP(ip) {
				return candidate
			}
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		if ip := net.ParseIP(real); ip != nil && isPublicIP(ip) {
			return real
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isPublicIP rejects addresses that cannot identify a remote reader.
func isPublicIP(ip net.IP) bool {
	return !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() && !ip.IsLinkLocalMulticast()
}
