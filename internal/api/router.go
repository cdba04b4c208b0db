package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/driverops/pkg/logger"
)

// Router builds the HTTP surface of the service
type Router struct {
	handler   *Handler
	ws        http.HandlerFunc
	staticDir string
	logger    *logger.Logger
}

// NewRouter creates a router. ws may be nil to disable /ws; an empty
// staticDir disables static file serving.
func NewRouter(handler *Handler, ws http.HandlerFunc, staticDir string, log *logger.Logger) *Router {
	return &Router{
		handler:   handler,
		ws:        ws,
		staticDir: staticDir,
		logger:    log.Named("router"),
	}
}

// Routes returns the configured chi router
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)

	h := rt.handler
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Get("/dashboard", h.GetDashboard)
		r.Post("/dashboard/refresh", h.RefreshDashboard)

		r.Get("/weather", h.GetWeather)
		r.Post("/weather/refresh", h.RefreshWeather)

		r.Get("/flights", h.GetFlights)
		r.Post("/flights/refresh", h.RefreshFlights)

		r.Get("/recommendations", h.GetRecommendations)
		r.Get("/earnings", h.GetEarnings)

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", h.ListZones)
			r.Post("/", h.CreateZone)
			r.Get("/active/list", h.ListActiveZones)
			r.Get("/{id}", h.GetZone)
			r.Put("/{id}", h.UpdateZone)
			r.Delete("/{id}", h.DeleteZone)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, http.StatusNotFound, "Not found")
		})
	})

	if rt.ws != nil {
		r.Get("/ws", rt.ws)
	}

	if rt.staticDir != "" {
		r.Handle("/*", NewStaticFileHandler(rt.staticDir, rt.logger))
	}

	return r
}

// requestLogger logs each request through the service logger
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		rt.logger.Debug("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())))
	})
}
