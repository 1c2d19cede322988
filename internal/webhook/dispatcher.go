package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sc222rb/beehive-core/internal/infrastructure/logging"
)

// Dispatcher delivers harvest events to subscriber URLs.
//
// Delivery is best effort: each subscriber gets exactly one POST
// attempt, failures are logged and skipped, and nothing is retried
// or queued. A slow or broken subscriber never affects the others
// or the request that triggered the notification.
type Dispatcher struct {
	repo    Repository
	client  *http.Client
	timeout time.Duration
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher with a per-delivery timeout.
func NewDispatcher(repo Repository, timeout time.Duration, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

// Notify sends a new-harvest event to every subscriber of the hive,
// one at a time. Listing failures abort the whole notification;
// individual delivery failures are logged and do not stop the rest.
func (d *Dispatcher) Notify(ctx context.Context, hiveID string, data any) {
	subs, err := d.repo.ListByHive(ctx, hiveID)
	if err != nil {
		d.logger.Error("failed to list webhook subscriptions",
			"hive_id", hiveID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(Event{EventType: EventNewHarvest, Data: data})
	if err != nil {
		d.logger.Error("failed to encode webhook event",
			"hive_id", hiveID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := d.deliver(ctx, sub, payload); err != nil {
			d.logger.Warn("webhook delivery failed",
				"hive_id", hiveID,
				"subscription_id", sub.ID,
				"url", sub.PostURL,
				"error", err)
			continue
		}
		d.logger.Debug("webhook delivered",
			"hive_id", hiveID,
			"subscription_id", sub.ID,
			"url", sub.PostURL)
	}
}

// deliver performs a single POST attempt to one subscriber.
func (d *Dispatcher) deliver(ctx context.Context, sub Subscription, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.PostURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best effort

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("subscriber returned status %d", resp.StatusCode)
	}

	return nil
}
