// Package harvest records honey harvests per hive.
package harvest
