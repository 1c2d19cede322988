// Package config loads and validates Beehive Core configuration.
//
// Configuration is layered: hardcoded defaults, then a YAML file, then
// BEEHIVE_* environment variable overrides. The resulting Config struct
// is constructed once at process start and passed by reference to the
// components that need it; there is no global configuration state.
package config
