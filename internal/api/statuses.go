package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sc222rb/beehive-core/internal/status"
)

// statusRequest is the request body for submitting a status reading.
type statusRequest struct {
	Humidity    *float64   `json:"humidity"`
	Weight      *float64   `json:"weight"`
	Temperature *float64   `json:"temperature"`
	HiveFlow    *float64   `json:"hiveFlow"`
	Timestamp   *time.Time `json:"timestamp"`
}

// handleCreateStatus stores a sensor status reading for a hive.
func (s *Server) handleCreateStatus(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	reading := &status.Status{
		HiveID:      h.ID,
		Humidity:    req.Humidity,
		Weight:      req.Weight,
		Temperature: req.Temperature,
		HiveFlow:    req.HiveFlow,
	}
	if req.Timestamp != nil {
		reading.Timestamp = req.Timestamp.UTC()
	}

	if err := s.statuses.Create(r.Context(), reading); err != nil {
		if errors.Is(err, status.ErrEmptyReading) {
			writeBadRequest(w, "reading must include at least one sensor value")
			return
		}
		s.logger.Error("failed to store status", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to store status", err))
		return
	}

	if s.mirror != nil {
		s.mirror.WriteStatusReading(reading)
	}

	writeJSON(w, http.StatusCreated, reading)
}

// handleListStatuses returns all status readings for a hive.
func (s *Server) handleListStatuses(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	statuses, err := s.statuses.ListByHive(r.Context(), h.ID)
	if err != nil {
		s.logger.Error("failed to list statuses", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to list statuses", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses, "count": len(statuses)})
}

// handleGetStatus returns a single status reading by ID.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "statusID")

	reading, err := s.statuses.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, status.ErrStatusNotFound) {
			writeNotFound(w, "status not found")
			return
		}
		s.logger.Error("failed to get status", "status_id", id, "error", err)
		writeInternalError(w, s.errorMessage("failed to get status", err))
		return
	}

	if reading.HiveID != hiveFrom(r.Context()).ID {
		writeNotFound(w, "status not found")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// handleLatestStatus returns the most recent sample of every sensor
// series for a hive. Series the hive has never reported are omitted;
// a hive with no readings at all is a 404.
func (s *Server) handleLatestStatus(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	snapshot := map[string]any{"hive_id": h.ID}
	found := false
	for _, metric := range []status.Metric{
		status.MetricHumidity,
		status.MetricWeight,
		status.MetricTemperature,
		status.MetricHiveFlow,
	} {
		point, err := s.statuses.LatestMetric(r.Context(), h.ID, metric)
		if err != nil {
			if errors.Is(err, status.ErrStatusNotFound) {
				continue
			}
			s.logger.Error("failed to query latest reading",
				"hive_id", h.ID, "metric", metric, "error", err)
			writeInternalError(w, s.errorMessage("failed to query latest reading", err))
			return
		}
		snapshot[string(metric)] = point
		found = true
	}

	if !found {
		writeNotFound(w, "no readings for this hive")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Per-metric series handlers.

func (s *Server) handleHumiditySeries(w http.ResponseWriter, r *http.Request) {
	s.handleMetricSeries(w, r, status.MetricHumidity)
}

func (s *Server) handleWeightSeries(w http.ResponseWriter, r *http.Request) {
	s.handleMetricSeries(w, r, status.MetricWeight)
}

func (s *Server) handleTemperatureSeries(w http.ResponseWriter, r *http.Request) {
	s.handleMetricSeries(w, r, status.MetricTemperature)
}

func (s *Server) handleHiveFlowSeries(w http.ResponseWriter, r *http.Request) {
	s.handleMetricSeries(w, r, status.MetricHiveFlow)
}

// handleMetricSeries returns one sensor series for a hive, optionally
// bounded by from/to query parameters (RFC 3339). An empty series is a
// 404, matching the behaviour sensor dashboards rely on to distinguish
// "no data yet" from an empty window.
func (s *Server) handleMetricSeries(w http.ResponseWriter, r *http.Request, metric status.Metric) {
	h := hiveFrom(r.Context())

	from, ok := parseTimeParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to")
	if !ok {
		return
	}

	points, err := s.statuses.ListMetric(r.Context(), h.ID, metric, from, to)
	if err != nil {
		s.logger.Error("failed to query series",
			"hive_id", h.ID, "metric", metric, "error", err)
		writeInternalError(w, s.errorMessage("failed to query series", err))
		return
	}

	if len(points) == 0 {
		writeNotFound(w, "no readings for this range")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metric": metric,
		"points": points,
		"count":  len(points),
	})
}

// parseTimeParam parses an optional RFC 3339 query parameter. A bad
// value writes a 400 and reports failure.
func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeBadRequest(w, name+" must be an RFC 3339 timestamp")
		return nil, false
	}
	return &t, true
}
