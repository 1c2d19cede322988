package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sc222rb/beehive-core/internal/harvest"
)

// harvestRequest is the request body for recording a harvest.
type harvestRequest struct {
	Amount float64 `json:"harvest"`
}

// handleCreateHarvest records a harvest for a hive and notifies
// webhook subscribers.
//
// The response commits as soon as the harvest is stored; notification
// runs in a detached goroutine so a slow or failing subscriber can
// never affect the 201.
func (s *Server) handleCreateHarvest(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	var req harvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	record := &harvest.Harvest{
		HiveID: h.ID,
		Amount: req.Amount,
	}
	if err := s.harvests.Create(r.Context(), record); err != nil {
		if errors.Is(err, harvest.ErrInvalidAmount) {
			writeBadRequest(w, "harvest amount must be a positive number")
			return
		}
		s.logger.Error("failed to record harvest", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to record harvest", err))
		return
	}

	s.logger.Info("harvest recorded",
		"hive_id", h.ID,
		"harvest_id", record.ID,
		"username", actingUsername(r.Context()),
	)

	// The request context dies with the response; the dispatch
	// goroutine gets its own.
	go s.dispatcher.Notify(context.Background(), h.ID, record)

	writeJSON(w, http.StatusCreated, record)
}

// handleListHarvests returns all harvests for a hive.
func (s *Server) handleListHarvests(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	harvests, err := s.harvests.ListByHive(r.Context(), h.ID)
	if err != nil {
		s.logger.Error("failed to list harvests", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to list harvests", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"harvests": harvests, "count": len(harvests)})
}

// handleGetHarvest returns a single harvest by ID.
func (s *Server) handleGetHarvest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "harvestID")

	record, err := s.harvests.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, harvest.ErrHarvestNotFound) {
			writeNotFound(w, "harvest not found")
			return
		}
		s.logger.Error("failed to get harvest", "harvest_id", id, "error", err)
		writeInternalError(w, s.errorMessage("failed to get harvest", err))
		return
	}

	if record.HiveID != hiveFrom(r.Context()).ID {
		writeNotFound(w, "harvest not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}
