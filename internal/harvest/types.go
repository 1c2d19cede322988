package harvest

import (
	"errors"
	"time"
)

// Harvest records the honey amount taken from a hive at a point in time.
type Harvest struct {
	ID        string    `json:"id"`
	HiveID    string    `json:"hive_id"`
	Amount    float64   `json:"harvest"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel errors for harvest operations.
var (
	ErrHarvestNotFound = errors.New("harvest not found")
	ErrInvalidAmount   = errors.New("harvest amount must be positive")
)

// Validate checks that the harvest record is well formed.
func (h *Harvest) Validate() error {
	if h.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
