// Package ingest consumes sensor status readings published over MQTT
// and persists them alongside readings submitted through the REST API.
package ingest
