package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sc222rb/beehive-core/internal/hive"
)

// ctxKeyHive is the context key for the hive loaded by hiveCtxMiddleware.
const ctxKeyHive contextKey = "hive"

// hiveRequest is the request body for creating and updating hives.
type hiveRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// hiveCtxMiddleware loads the hive named in the URL and stores it in
// the request context. Unknown hives 404 here, so nested status,
// harvest and webhook handlers never run against a missing hive.
func (s *Server) hiveCtxMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "hiveID")

		h, err := s.hives.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, hive.ErrHiveNotFound) {
				writeNotFound(w, "hive not found")
				return
			}
			s.logger.Error("failed to load hive", "hive_id", id, "error", err)
			writeInternalError(w, s.errorMessage("failed to load hive", err))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyHive, h)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// hiveFrom returns the hive loaded by hiveCtxMiddleware.
func hiveFrom(ctx context.Context) *hive.Hive {
	h, _ := ctx.Value(ctxKeyHive).(*hive.Hive)
	return h
}

// handleListHives returns all registered hives.
func (s *Server) handleListHives(w http.ResponseWriter, r *http.Request) {
	hives, err := s.hives.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list hives", "error", err)
		writeInternalError(w, s.errorMessage("failed to list hives", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hives": hives, "count": len(hives)})
}

// handleCreateHive registers a new hive.
func (s *Server) handleCreateHive(w http.ResponseWriter, r *http.Request) {
	var req hiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	h := &hive.Hive{
		Name:     req.Name,
		Location: req.Location,
	}
	if err := s.hives.Create(r.Context(), h); err != nil {
		if errors.Is(err, hive.ErrInvalidName) {
			writeBadRequest(w, "hive name is required")
			return
		}
		s.logger.Error("failed to create hive", "error", err)
		writeInternalError(w, s.errorMessage("failed to create hive", err))
		return
	}

	writeJSON(w, http.StatusCreated, h)
}

// handleGetHive returns a single hive by ID.
func (s *Server) handleGetHive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hiveFrom(r.Context()))
}

// handleUpdateHive replaces a hive's name and location.
func (s *Server) handleUpdateHive(w http.ResponseWriter, r *http.Request) {
	var req hiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	h := hiveFrom(r.Context())
	h.Name = req.Name
	h.Location = req.Location

	if err := s.hives.Update(r.Context(), h); err != nil {
		if errors.Is(err, hive.ErrInvalidName) {
			writeBadRequest(w, "hive name is required")
			return
		}
		if errors.Is(err, hive.ErrHiveNotFound) {
			writeNotFound(w, "hive not found")
			return
		}
		s.logger.Error("failed to update hive", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to update hive", err))
		return
	}

	writeJSON(w, http.StatusOK, h)
}

// handleDeleteHive removes a hive and its readings and harvests.
// Webhook subscriptions are left in place; they reference the hive
// without owning it.
func (s *Server) handleDeleteHive(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	if err := s.hives.Delete(r.Context(), h.ID); err != nil {
		if errors.Is(err, hive.ErrHiveNotFound) {
			writeNotFound(w, "hive not found")
			return
		}
		s.logger.Error("failed to delete hive", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to delete hive", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
