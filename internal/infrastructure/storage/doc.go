// Package storage persists session logs, usage records, prompt templates and
// saved session configs in a single SQLite file.
//
// The database runs in WAL mode behind one connection, and a Store mutex
// keeps each statement group (a count and its page, an upsert) together.
// Schema changes are applied once each, in order, and remembered in the
// _migrations table.
//
// AppendLog and RecordUsage are the hot path: every session flush calls
// them. Both run through a circuit breaker so that a database that keeps
// failing makes flushes fail fast with ErrUnavailable instead of queueing
// behind it. Read paths bypass the breaker.
//
// Example Usage:
//
//	store, err := storage.Open(cfg.Storage.Path, logger, storage.Options{})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//	mgr := terminal.NewManager(store, store)
package storage
