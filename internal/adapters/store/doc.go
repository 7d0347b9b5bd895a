// Package store implements core.MessageStore: a GORM/SQLite log for durable
// history and a bounded in-memory log used when no database is available.
package store
