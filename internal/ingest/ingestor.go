package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sc222rb/beehive-core/internal/hive"
	"github.com/sc222rb/beehive-core/internal/infrastructure/influxdb"
	"github.com/sc222rb/beehive-core/internal/infrastructure/logging"
	"github.com/sc222rb/beehive-core/internal/infrastructure/mqtt"
	"github.com/sc222rb/beehive-core/internal/status"
)

// storeTimeout bounds the database work for a single reading so a
// stalled store cannot back up the paho handler pool.
const storeTimeout = 10 * time.Second

// reading is the JSON payload sensor units publish to
// beehive/hives/{hive_id}/status.
type reading struct {
	Humidity    *float64   `json:"humidity"`
	Weight      *float64   `json:"weight"`
	Temperature *float64   `json:"temperature"`
	HiveFlow    *float64   `json:"hiveFlow"`
	Timestamp   *time.Time `json:"timestamp"`
}

// Ingestor stores hive status readings arriving over MQTT.
//
// Malformed payloads and readings for unknown hives are logged and
// dropped; a bad sensor unit must not wedge ingestion for the rest.
type Ingestor struct {
	client   *mqtt.Client
	hives    hive.Repository
	statuses status.Repository
	mirror   *influxdb.Client
	qos      byte
	logger   *logging.Logger
}

// New creates an ingestor. The mirror may be nil when InfluxDB is
// disabled.
func New(client *mqtt.Client, hives hive.Repository, statuses status.Repository, mirror *influxdb.Client, qos byte, logger *logging.Logger) *Ingestor {
	return &Ingestor{
		client:   client,
		hives:    hives,
		statuses: statuses,
		mirror:   mirror,
		qos:      qos,
		logger:   logger,
	}
}

// Start subscribes to status readings from every hive.
func (i *Ingestor) Start() error {
	topic := mqtt.Topics{}.AllHiveStatuses()
	if err := i.client.Subscribe(topic, i.qos, i.handleStatus); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	i.logger.Info("sensor ingestion started", "topic", topic)
	return nil
}

// Stop unsubscribes from the status topic.
func (i *Ingestor) Stop() error {
	return i.client.Unsubscribe(mqtt.Topics{}.AllHiveStatuses())
}

// handleStatus processes one published reading.
func (i *Ingestor) handleStatus(topic string, payload []byte) error {
	hiveID, ok := mqtt.HiveIDFromStatusTopic(topic)
	if !ok {
		i.logger.Warn("ignoring reading on unexpected topic", "topic", topic)
		return nil
	}

	var r reading
	if err := json.Unmarshal(payload, &r); err != nil {
		i.logger.Warn("dropping malformed reading",
			"hive_id", hiveID, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if _, err := i.hives.GetByID(ctx, hiveID); err != nil {
		if errors.Is(err, hive.ErrHiveNotFound) {
			i.logger.Warn("dropping reading for unknown hive", "hive_id", hiveID)
			return nil
		}
		return fmt.Errorf("looking up hive %s: %w", hiveID, err)
	}

	s := &status.Status{
		HiveID:      hiveID,
		Humidity:    r.Humidity,
		Weight:      r.Weight,
		Temperature: r.Temperature,
		HiveFlow:    r.HiveFlow,
	}
	if r.Timestamp != nil {
		s.Timestamp = r.Timestamp.UTC()
	}

	if err := i.statuses.Create(ctx, s); err != nil {
		if errors.Is(err, status.ErrEmptyReading) {
			i.logger.Warn("dropping reading with no sensor values", "hive_id", hiveID)
			return nil
		}
		return fmt.Errorf("storing reading for hive %s: %w", hiveID, err)
	}

	if i.mirror != nil {
		i.mirror.WriteStatusReading(s)
	}

	i.logger.Debug("stored sensor reading",
		"hive_id", hiveID, "status_id", s.ID)
	return nil
}
