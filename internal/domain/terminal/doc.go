// Package terminal runs child processes behind pseudo-terminals and streams
// their output.
//
// Each Session owns one pty master. Spawning a session starts exactly one
// worker goroutine that reads the master until end of stream or error. The
// worker:
//   - emits every chunk it reads to the session's Sink as a data Event, in
//     read order, before doing anything else with it
//   - accumulates the same bytes in a log batch and flushes the batch when it
//     reaches 32 KiB or when 5 seconds have passed since the last flush (the
//     clock is checked on each read, not by a timer)
//   - on flush, runs usage extraction over the batch, records any usage and
//     appends the raw bytes to the log store; persistence errors are logged
//     and swallowed
//   - finishes with exactly one terminal Event, exited or error
//
// The Manager is the registry of live sessions, keyed by caller-supplied id.
// Creating a session under an id that is already registered replaces the map
// entry without closing the previous session; its worker keeps running until
// its process ends. Removing a session closes the master from this side and
// returns immediately: the child is not killed and the worker is not awaited.
//
// Example Usage:
//
//	mgr := terminal.NewManager(store, store, terminal.WithLogger(logger))
//	id, err := mgr.Create(terminal.Config{
//		ID:      "build-1",
//		Command: "claude",
//		Cols:    120,
//		Rows:    30,
//	}, terminal.SinkFunc(func(e terminal.Event) { forward(e) }))
//	mgr.Write(id, []byte("hello\r"))
//	mgr.Resize(id, 160, 40)
//	mgr.Remove(id)
package terminal
