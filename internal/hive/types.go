package hive

import (
	"errors"
	"time"
)

// Hive represents a registered beehive.
type Hive struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sentinel errors for hive operations.
var (
	ErrHiveNotFound = errors.New("hive not found")
	ErrInvalidName  = errors.New("hive name is required")
)

// Validate checks that a hive has the required fields.
func (h *Hive) Validate() error {
	if h.Name == "" {
		return ErrInvalidName
	}
	return nil
}
