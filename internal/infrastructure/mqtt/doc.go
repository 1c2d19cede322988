// Package mqtt provides MQTT client connectivity for sensor ingestion.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Topic subscriptions with wildcard support
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Hive sensor units publish readings over MQTT rather than calling the
// REST API directly; the broker decouples battery-powered field gateways
// from the service's availability.
//
//	Sensor Units → MQTT Broker → Ingestor → SQLite (+ InfluxDB mirror)
//
// Readings arrive on per-hive topics:
//
//	beehive/hives/{hive_id}/status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllHiveStatuses(), 1,
//	    func(topic string, payload []byte) error {
//	        hiveID, _ := mqtt.HiveIDFromStatusTopic(topic)
//	        return store(hiveID, payload)
//	    })
package mqtt
