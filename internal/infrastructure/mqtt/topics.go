package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the beehive MQTT namespace.
//
// Sensor units publish readings to per-hive topics:
//
//	beehive/hives/{hive_id}/status
const (
	// TopicPrefixHives is the base for per-hive sensor topics.
	TopicPrefixHives = "beehive/hives"

	// TopicPrefixSystem is the base for service status topics.
	TopicPrefixSystem = "beehive/system"
)

// Topics provides builders for beehive MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// HiveStatus returns the topic a hive's sensor unit publishes readings to.
//
// Example: beehive/hives/hive-a1b2c3d4/status
func (Topics) HiveStatus(hiveID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixHives, hiveID)
}

// AllHiveStatuses returns a pattern matching status readings from every hive.
//
// Pattern: beehive/hives/+/status
func (Topics) AllHiveStatuses() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixHives)
}

// SystemStatus returns the service status topic.
//
// Example: beehive/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// HiveIDFromStatusTopic extracts the hive ID from an expanded status topic.
// Returns false when the topic does not match beehive/hives/{id}/status.
func HiveIDFromStatusTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixHives+"/")
	if !ok {
		return "", false
	}

	hiveID, ok := strings.CutSuffix(rest, "/status")
	if !ok || hiveID == "" || strings.Contains(hiveID, "/") {
		return "", false
	}

	return hiveID, true
}
