package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sc222rb/beehive-core/internal/status"
)

// statusMeasurement is the measurement name for mirrored hive readings.
const statusMeasurement = "hive_status"

// WriteStatusReading mirrors a hive status reading to InfluxDB.
//
// Only the sensor values present on the reading become fields; the hive
// ID is the sole tag, keeping series cardinality bounded by the number
// of hives. The write is non-blocking; data is batched and sent
// asynchronously.
func (c *Client) WriteStatusReading(s *status.Status) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	for _, m := range []status.Metric{
		status.MetricHumidity,
		status.MetricWeight,
		status.MetricTemperature,
		status.MetricHiveFlow,
	} {
		if v, ok := s.Value(m); ok {
			fields[string(m)] = v
		}
	}
	if len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		statusMeasurement,
		map[string]string{
			"hive_id": s.HiveID,
		},
		fields,
		s.Timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
