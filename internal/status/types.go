package status

import (
	"errors"
	"time"
)

// Status represents a single sensor status reading for a hive.
// All sensor fields are optional; a reading may carry any subset.
type Status struct {
	ID          string    `json:"id"`
	HiveID      string    `json:"hive_id"`
	Humidity    *float64  `json:"humidity,omitempty"`
	Weight      *float64  `json:"weight,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	HiveFlow    *float64  `json:"hiveFlow,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

// Metric identifies one sensor series within status readings.
type Metric string

// The sensor series a hive reports.
const (
	MetricHumidity    Metric = "humidity"
	MetricWeight      Metric = "weight"
	MetricTemperature Metric = "temperature"
	MetricHiveFlow    Metric = "hiveFlow"
)

// column maps a metric to its statuses table column.
func (m Metric) column() (string, bool) {
	switch m {
	case MetricHumidity:
		return "humidity", true
	case MetricWeight:
		return "weight", true
	case MetricTemperature:
		return "temperature", true
	case MetricHiveFlow:
		return "hive_flow", true
	default:
		return "", false
	}
}

// Value returns the reading's value for the given metric, if present.
func (s *Status) Value(m Metric) (float64, bool) {
	var v *float64
	switch m {
	case MetricHumidity:
		v = s.Humidity
	case MetricWeight:
		v = s.Weight
	case MetricTemperature:
		v = s.Temperature
	case MetricHiveFlow:
		v = s.HiveFlow
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Sentinel errors for status operations.
var (
	ErrStatusNotFound = errors.New("status not found")
	ErrInvalidMetric  = errors.New("invalid metric")
	ErrEmptyReading   = errors.New("status reading has no sensor values")
)
