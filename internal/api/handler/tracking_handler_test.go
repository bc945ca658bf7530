package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/domain"
	"github.com/lettercast/campaign-engine/internal/repository"
	"github.com/lettercast/campaign-engine/internal/service"
)

const homeURL = "https://lettercast.example.com"

func newTrackingRig(t *testing.T) (http.Handler, *repository.MockTrackingEventRepository) {
	t.Helper()
	events := repository.NewMockTrackingEventRepository()
	tracker := service.NewTrackerService(events, service.TrackerHooks{}, zap.NewNop(), 5*time.Minute)
	th := NewTrackingHandler(tracker, homeURL, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/track/open/{campaignID}/{subscriberID}/pixel.png", th.Open)
	r.Get("/track/click/{campaignID}/{subscriberID}", th.Click)
	return r, events
}

func TestOpenServesPixelAndRecords(t *testing.T) {
	router, events := newTrackingRig(t)
	campaignID, subscriberID := uuid.New(), uuid.New()

	req := httptest.NewRequest(http.MethodGet,
		"/track/open/"+campaignID.String()+"/"+subscriberID.String()+"/pixel.png", nil)
	req.Header.Set("User-Agent", "Thunderbird/128.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("content type = %q, want image/gif", ct)
	}

	recorded := events.Events()
	if len(recorded) != 1 {
		t.Fatalf("recorded %d events, want 1", len(recorded))
	}
	e := recorded[0]
	if e.Action != domain.ActionOpen || e.CampaignID != campaignID || e.SubscriberID != subscriberID {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.IPAddress != "203.0.113.9" {
		t.Errorf("ip = %q, want first X-Forwarded-For entry", e.IPAddress)
	}
	if e.UserAgent != "Thunderbird/128.0" {
		t.Errorf("user agent = %q", e.UserAgent)
	}
	if e.TargetURL != nil {
		t.Error("open events must carry a NULL target URL")
	}
}

func TestClientIPSkipsPrivateHops(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		realIP    string
		want      string
	}{
		{"private hop before the reader", "10.0.0.1, 203.0.113.9", "", "203.0.113.9"},
		{"loopback and link-local skipped", "127.0.0.1, 169.254.1.1, 198.51.100.7", "", "198.51.100.7"},
		{"all private falls through to X-Real-IP", "192.168.1.5, 10.1.1.1", "203.0.113.20", "203.0.113.20"},
		{"private X-Real-IP falls through to peer", "", "10.0.0.8", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, events := newTrackingRig(t)
			campaignID, subscriberID := uuid.New(), uuid.New()

			req := httptest.NewRequest(http.MethodGet,
				"/track/open/"+campaignID.String()+"/"+subscriberID.String()+"/pixel.png", nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			recorded := events.Events()
			if len(recorded) != 1 {
				t.Fatalf("recorded %d events, want 1", len(recorded))
			}
			if got := recorded[0].IPAddress; got != tt.want {
				t.Errorf("ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenServesPixelOnGarbageIDs(t *testing.T) {
	router, events := newTrackingRig(t)

	req := httptest.NewRequest(http.MethodGet, "/track/open/not-a-uuid/also-not/pixel.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, pixel must always be served", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("content type = %q, want image/gif", ct)
	}
	if len(events.Events()) != 0 {
		t.Error("garbage IDs must not produce events")
	}
}

func TestOpenServesPixelWhenStoreFails(t *testing.T) {
	router, events := newTrackingRig(t)
	events.InsertErr = context.DeadlineExceeded

	req := httptest.NewRequest(http.MethodGet,
		"/track/open/"+uuid.NewString()+"/"+uuid.NewString()+"/pixel.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, pixel must be served despite storage failure", rec.Code)
	}
}

func TestClickRedirectsAndRecords(t *testing.T) {
	router, events := newTrackingRig(t)
	campaignID, subscriberID := uuid.New(), uuid.New()
	target := "https://example.com/offer?x=1"

	req := httptest.NewRequest(http.MethodGet,
		"/track/click/"+campaignID.String()+"/"+subscriberID.String()+"?url="+url.QueryEscape(target), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != target {
		t.Errorf("location = %q, want %q", loc, target)
	}

	recorded := events.Events()
	if len(recorded) != 1 {
		t.Fatalf("recorded %d events, want 1", len(recorded))
	}
	if recorded[0].Action != domain.ActionClick {
		t.Errorf("action = %s, want click", recorded[0].Action)
	}
	if recorded[0].TargetURL == nil || *recorded[0].TargetURL != target {
		t.Errorf("target = %v, want %q", recorded[0].TargetURL, target)
	}
}

func TestClickInvalidTargetsGoHome(t *testing.T) {
	router, events := newTrackingRig(t)
	base := "/track/click/" + uuid.NewString() + "/" + uuid.NewString()

	for _, target := range []string{
		"",
		"javascript:alert(1)",
		"data:text/html,hi",
		"/relative/path",
		"ftp://example.com/file",
	} {
		req := httptest.NewRequest(http.MethodGet, base+"?url="+url.QueryEscape(target), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Errorf("target %q: status = %d, want 302", target, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != homeURL {
			t.Errorf("target %q: location = %q, want home", target, loc)
		}
	}
	if len(events.Events()) != 0 {
		t.Error("invalid targets must not produce click events")
	}
}

func TestClickGarbageIDsStillRedirects(t *testing.T) {
	router, events := newTrackingRig(t)
	target := "https://example.com/"

	req := httptest.NewRequest(http.MethodGet, "/track/click/nope/nada?url="+url.QueryEscape(target), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != target {
		t.Errorf("location = %q, want %q", loc, target)
	}
	if len(events.Events()) != 0 {
		t.Error("garbage IDs must not produce events")
	}
}
