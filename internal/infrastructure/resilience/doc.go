/*
Package resilience provides a circuit breaker for dependencies that fail in
long stretches rather than one call at a time.

# Overview

The storage layer runs every session-log and usage write through a Breaker.
When the database keeps failing (disk full, file locked by another process)
the breaker opens and later flushes fail immediately with ErrCircuitOpen
instead of each one waiting on the database. After Timeout a single trial
write is let through; if it succeeds the breaker closes again.

# Usage

	breaker := resilience.New("storage", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: resilience.ConsecutiveFailures(5),
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	err := breaker.Execute(func() error {
		_, err := db.ExecContext(ctx, query, args...)
		return err
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
