// Package web serves the read API over the stored sensor history:
// health, Prometheus metrics, the sensor catalog and per-sensor
// statistics queries.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kaizen-energy/kaizend/internal/database"
	"github.com/kaizen-energy/kaizend/internal/models"
	"github.com/kaizen-energy/kaizend/internal/sensors"
	middleware "github.com/kaizen-energy/kaizend/internal/web/middlewares"
)

// ServerConfig holds configuration options for the HTTP server
type ServerConfig struct {
	CacheSize      int     // Size of the LRU cache
	RateLimit      float64 // Requests per second
	RateLimitBurst int     // Maximum burst size for rate limiting
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		CacheSize:      1000,
		RateLimit:      5.0, // 5 requests per second
		RateLimitBurst: 10,  // Burst of 10 requests
	}
}

type server struct {
	store   database.StatisticsStore
	sensors []sensors.Sensor
	logger  *logrus.Logger
}

// SetupServer builds the router with the full middleware chain.
func SetupServer(store database.StatisticsStore, sensorList []sensors.Sensor, config ServerConfig, logger *logrus.Logger) (http.Handler, error) {
	// Initialize the cache
	if err := middleware.InitializeCache(config.CacheSize); err != nil {
		return nil, err
	}

	// Register Prometheus metrics
	for _, collector := range []prometheus.Collector{middleware.Requests, middleware.Latency} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	s := &server{
		store:   store,
		sensors: sensorList,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.ContextMiddleware)                                            // Add request ID first
	r.Use(middleware.RateLimitingMiddleware(config.RateLimit, config.RateLimitBurst)) // Rate limit early
	r.Use(middleware.LoggingMiddleware(logger))                                    // Log all requests (with request ID)
	r.Use(middleware.MetricsMiddleware)                                            // Collect metrics

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/sensors", func(r chi.Router) {
		r.Get("/", s.handleListSensors)
		// Cache last so errors never get pinned
		r.With(middleware.CachingMiddleware).Get("/{name}/statistics", s.handleStatistics)
	})

	return r, nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sensors)
}

func (s *server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var sensor *sensors.Sensor
	for i := range s.sensors {
		if s.sensors[i].Name == name {
			sensor = &s.sensors[i]
			break
		}
	}
	if sensor == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown sensor: " + name})
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -30)
	var err error
	if raw := r.URL.Query().Get("start"); raw != "" {
		if start, err = parseTimeParam(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start: " + raw})
			return
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if end, err = parseTimeParam(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end: " + raw})
			return
		}
	}
	if start.After(end) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be before end"})
		return
	}

	rows, err := s.store.Query(r.Context(), sensor.StatisticID, start, end)
	if err != nil {
		s.logger.WithError(err).Error("Statistics query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if rows == nil {
		rows = []models.Statistic{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensor":     sensor,
		"statistics": rows,
	})
}

// parseTimeParam accepts RFC 3339 timestamps or plain dates.
func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
