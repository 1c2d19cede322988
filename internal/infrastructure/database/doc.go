// Package database provides SQLite persistence for Beehive Core.
//
// It wraps database/sql with connection configuration tuned for SQLite
// (WAL mode, busy timeout, single writer) and applies embedded SQL
// migrations at startup, each in its own transaction.
package database
