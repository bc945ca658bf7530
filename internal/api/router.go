package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/api/handler"
	apimw "github.com/lettercast/campaign-engine/internal/api/middleware"
	"github.com/lettercast/campaign-engine/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	dispatch *service.DispatchService,
	tracker *service.TrackerService,
	homeURL string,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	ch := handler.NewCampaignHandler(dispatch, tracker, logger)
	th := handler.NewTrackingHandler(tracker, homeURL, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Tracking endpoints live at the root: the URLs are baked into sent
	// emails and must stay short and version-free forever.
	r.Get("/track/open/{campaignID}/{subscriberID}/pixel.png", th.Open)
	r.Get("/track/click/{campaignID}/{subscriberID}", th.Click)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/campaigns", ch.Create)
		r.Get("/campaigns", ch.List)
		r.Get("/campaigns/{id}", ch.GetByID)
		r.Post("/campaigns/{id}/schedule", ch.Schedule)
		r.Delete("/campaigns/{id}/schedule", ch.Unschedule)
		r.Post("/campaigns/{id}/send-now", ch.Send)
		r.Post("/campaigns/{id}/send-test", ch.SendTest)
		r.Post("/campaigns/{id}/archive", ch.Archive)
		r.Get("/campaigns/{id}/stats", ch.Stats)
	})

	return r
}
