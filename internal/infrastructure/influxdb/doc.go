// Package influxdb mirrors hive status readings into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes, and health monitoring.
//
// # Purpose
//
// SQLite remains the source of truth for the REST API; the mirror
// exists for long-range dashboarding (Grafana and similar) over seasons
// of sensor data, which a relational store serves poorly.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteStatusReading(reading)
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// the SetOnError callback. Connection and health check errors are
// returned directly. A mirror write failure never fails the reading's
// primary persistence.
package influxdb
