package webhook

import (
	"errors"
	"time"
)

// Subscription registers an external URL to be notified when a new
// harvest is recorded for a hive. A subscription references the hive
// by ID only; it does not own it and is not removed when the hive is.
type Subscription struct {
	ID        string    `json:"id"`
	HiveID    string    `json:"hive_id"`
	PostURL   string    `json:"postUrl"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is the JSON payload delivered to subscriber URLs.
type Event struct {
	EventType string `json:"eventType"`
	Data      any    `json:"data"`
}

// EventNewHarvest identifies a harvest notification event.
const EventNewHarvest = "new_harvest"

// Sentinel errors for subscription operations.
var (
	ErrMissingPostURL = errors.New("subscription post URL is required")
)
