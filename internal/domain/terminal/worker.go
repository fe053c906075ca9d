package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/usage"
)

const persistTimeout = 10 * time.Second

// worker drains one session's output. It runs exactly once and is never
// joined; end of stream and read errors are its only exits.
type worker struct {
	sessionID string
	reader    io.Reader
	sink      Sink
	logs      LogStore
	usage     UsageStore
	batch     *logBatch
	logger    *zap.Logger
	metrics   Recorder
	// done, if set, runs before the terminal event is delivered.
	done func()
}

func (w *worker) run() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := w.reader.Read(buf)
		if n > 0 {
			w.handleChunk(buf[:n])
		}

		switch {
		case err == nil && n > 0:
			continue
		case err == nil || isEndOfStream(err):
			w.finish()
			w.flush(triggerClose)
			w.sink.Send(Event{Type: EventExited, SessionID: w.sessionID})
			w.metrics.SessionEnded(string(EventExited))
			w.logger.Debug("Session output closed", zap.String("session_id", w.sessionID))
			return
		default:
			w.finish()
			w.flush(triggerClose)
			w.sink.Send(Event{
				Type:      EventError,
				SessionID: w.sessionID,
				Message:   fmt.Sprintf("read error: %v", err),
			})
			w.metrics.SessionEnded(string(EventError))
			w.logger.Warn("Session output failed", zap.String("session_id", w.sessionID), zap.Error(err))
			return
		}
	}
}

func (w *worker) handleChunk(chunk []byte) {
	data := make([]byte, len(chunk))
	copy(data, chunk)

	w.sink.Send(Event{Type: EventData, SessionID: w.sessionID, Data: data})
	w.metrics.OutputRead(len(data))

	w.batch.append(data)
	if trigger, ok := w.batch.due(); ok {
		w.flush(trigger)
	}
}

// flush persists the pending batch. Extraction only sees this batch, so a
// usage summary split across two flushes is not detected.
func (w *worker) flush(trigger string) {
	if w.batch.len() == 0 {
		return
	}
	content := w.batch.take()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	text := decodeLossy(content)
	for _, rec := range usage.Extract(text, w.sessionID) {
		if err := w.usage.RecordUsage(ctx, rec); err != nil {
			w.metrics.PersistFailed("usage")
			w.logger.Warn("Failed to record usage",
				zap.String("session_id", w.sessionID),
				zap.String("model", rec.Model),
				zap.Error(err),
			)
			continue
		}
		w.metrics.UsageRecorded(rec.Model)
	}

	if err := w.logs.AppendLog(ctx, w.sessionID, content); err != nil {
		w.metrics.PersistFailed("log")
		w.logger.Warn("Failed to append session log",
			zap.String("session_id", w.sessionID),
			zap.Int("bytes", len(content)),
			zap.Error(err),
		)
	}
	w.metrics.LogFlushed(trigger, len(content))
}

func (w *worker) finish() {
	if w.done != nil {
		w.done()
	}
}

// isEndOfStream reports whether err means the pty has no more output. A pty
// master returns EIO once the child side is gone, and os.ErrClosed once we
// closed it ourselves.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, os.ErrClosed)
}
