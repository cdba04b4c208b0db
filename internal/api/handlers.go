package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/driverops/internal/dashboard"
	"github.com/yegors/driverops/internal/zones"
	"github.com/yegors/driverops/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	dashboard *dashboard.Dashboard
	weather   dashboard.WeatherSource
	flights   dashboard.FlightSource
	zones     zones.Store
	logger    *logger.Logger
	started   time.Time
}

// NewHandler creates a new API handler
func NewHandler(dash *dashboard.Dashboard, ws dashboard.WeatherSource, fs dashboard.FlightSource, zoneService zones.Store, log *logger.Logger) *Handler {
	return &Handler{
		dashboard: dash,
		weather:   ws,
		flights:   fs,
		zones:     zoneService,
		logger:    log.Named("api-handler"),
		started:   time.Now(),
	}
}

// errorEnvelope is the body of every error response
type errorEnvelope struct {
	Message string `json:"message"`
}

// WriteJSON writes data as a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError writes the error envelope
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorEnvelope{Message: message})
}

// writeZoneError maps zone errors onto the error envelope
func (h *Handler) writeZoneError(w http.ResponseWriter, err error) {
	var apiErr *zones.APIError
	switch {
	case errors.Is(err, zones.ErrNameRequired):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		if apiErr.HTTPStatus() >= http.StatusInternalServerError {
			h.logger.Error("Zone request failed",
				logger.Int("status", apiErr.HTTPStatus()),
				logger.Error(err))
		}
		WriteError(w, apiErr.HTTPStatus(), apiErr.Message)
	default:
		h.logger.Error("Unexpected zone error", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// Health reports liveness and how long the process has been up
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// GetDashboard returns the full dashboard view
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.dashboard.Snapshot(r.Context()))
}

// RefreshDashboard refreshes both pollers and returns the new view.
// Poller errors are reported in their snapshots, so the response is always 200.
func (h *Handler) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.RefreshAll(r.Context()); err != nil {
		h.logger.Warn("Dashboard refresh finished with errors", logger.Error(err))
	}
	WriteJSON(w, http.StatusOK, h.dashboard.Snapshot(r.Context()))
}

// GetWeather returns the current weather snapshot
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.weather.Snapshot())
}

// RefreshWeather forces a weather fetch
func (h *Handler) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	snap, err := h.weather.Refresh(r.Context())
	if err != nil {
		h.logger.Warn("Weather refresh failed", logger.Error(err))
	}
	WriteJSON(w, http.StatusOK, snap)
}

// GetFlights returns the current flight snapshot
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.flights.Snapshot())
}

// RefreshFlights forces a flight fetch
func (h *Handler) RefreshFlights(w http.ResponseWriter, r *http.Request) {
	snap, err := h.flights.Refresh(r.Context())
	if err != nil {
		h.logger.Warn("Flight refresh failed", logger.Error(err))
	}
	WriteJSON(w, http.StatusOK, snap)
}

// GetRecommendations returns the ranked zones for the current hour
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.dashboard.Recommendations())
}

// GetEarnings returns the shift summary
func (h *Handler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.dashboard.Earnings())
}

// ListZones returns every zone
func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	env, err := h.zones.List(r.Context())
	if err != nil {
		h.writeZoneError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, env)
}

// ListActiveZones returns the active zones
func (h *Handler) ListActiveZones(w http.ResponseWriter, r *http.Request) {
	env, err := h.zones.ListActive(r.Context())
	if err != nil {
		h.writeZoneError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, env)
}

// GetZone returns one zone
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	env, err := h.zones.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeZoneError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, env)
}

// CreateZone creates a zone
func (h *Handler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var in zones.ZoneInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	env, err := h.zones.Create(r.Context(), in)
	if err != nil {
		h.writeZoneError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, env)
}

// UpdateZone applies a partial update
func (h *Handler) UpdateZone(w http.ResponseWriter, r *http.Request) {
	var patch zones.ZonePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	env, err := h.zones.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeZoneError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, env)
}

// DeleteZone deletes a zone
func (h *Handler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	env, err := h.zones.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeZoneError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, env)
}
