// Package hive provides the hive registry: the set of beehives known
// to the system, persisted in SQLite.
package hive
