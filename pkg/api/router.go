package api

import (
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/pkg/api/handlers"
	"github.com/go-cometd/cometd/pkg/broker"
	"github.com/go-cometd/cometd/pkg/metrics"
)

// NewRouter wires the four Bayeux endpoints onto a chi router.
//
// Routes (all POST, JSON array bodies):
//   - {handshake base}/handshake
//   - {subscribe base}/
//   - {connect base}/connect
//   - {disconnect base}/disconnect
//
// Each base falls back to cfg.BasePath when its override is empty, so the
// endpoints can be spread over different path prefixes or share one.
func NewRouter(cfg Config, brk *broker.Context, m *metrics.BrokerMetrics) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h := handlers.New(brk, m)

	r.Post(endpoint(cfg.HandshakeBasePath, cfg.BasePath, "handshake"), h.Handshake)
	r.Post(endpoint(cfg.SubscribeBasePath, cfg.BasePath, ""), h.Subscribe)
	r.Post(endpoint(cfg.ConnectBasePath, cfg.BasePath, "connect"), h.Connect)
	r.Post(endpoint(cfg.DisconnectBasePath, cfg.BasePath, "disconnect"), h.Disconnect)

	r.Get("/health", h.Health)

	return r
}

// endpoint joins an endpoint suffix onto its base path, preferring the
// per-endpoint override over the shared fallback.
func endpoint(base, fallback, suffix string) string {
	if base == "" {
		base = fallback
	}
	if base == "" {
		base = "/"
	}
	p := path.Join("/", base, suffix)
	if p == "" {
		p = "/"
	}
	return p
}

// requestLogger logs request start at DEBUG and completion at INFO with
// the status and timing chi captured.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("request started",
			logger.RequestID(requestID),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("request completed",
			logger.RequestID(requestID),
			"method", r.Method,
			"path", r.URL.Path,
			logger.Status(ww.Status()),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(logger.Duration(start)),
		)
	})
}
