// Package status stores and queries sensor status readings for hives.
//
// A reading is a timestamped bundle of optional sensor values
// (humidity, weight, temperature, hive flow). Each sensor is also
// queryable as a standalone series with optional time bounds.
package status
