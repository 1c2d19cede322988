package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sc222rb/beehive-core/internal/webhook"
)

// subscribeRequest is the request body for registering a webhook.
type subscribeRequest struct {
	PostURL string `json:"postUrl"`
}

// handleSubscribe registers a webhook subscription for new harvests
// on a hive.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sub := &webhook.Subscription{
		HiveID:  h.ID,
		PostURL: req.PostURL,
	}
	if err := s.subscriptions.Create(r.Context(), sub); err != nil {
		if errors.Is(err, webhook.ErrMissingPostURL) {
			writeBadRequest(w, "postUrl is required")
			return
		}
		s.logger.Error("failed to create subscription", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to create subscription", err))
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// handleListSubscriptions returns all webhook subscriptions for a hive.
func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	subs, err := s.subscriptions.ListByHive(r.Context(), h.ID)
	if err != nil {
		s.logger.Error("failed to list subscriptions", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to list subscriptions", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": subs, "count": len(subs)})
}

// handleUnsubscribe removes every webhook subscription for a hive.
// Unsubscribing a hive with no subscriptions succeeds.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	h := hiveFrom(r.Context())

	count, err := s.subscriptions.DeleteByHive(r.Context(), h.ID)
	if err != nil {
		s.logger.Error("failed to delete subscriptions", "hive_id", h.ID, "error", err)
		writeInternalError(w, s.errorMessage("failed to delete subscriptions", err))
		return
	}

	s.logger.Info("webhook subscriptions removed",
		"hive_id", h.ID,
		"count", count,
		"username", actingUsername(r.Context()),
	)
	w.WriteHeader(http.StatusNoContent)
}
