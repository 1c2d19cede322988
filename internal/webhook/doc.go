// Package webhook manages per-hive harvest notification subscriptions
// and delivers new-harvest events to subscriber URLs on a best-effort
// basis.
package webhook
