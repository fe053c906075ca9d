package terminal

import "time"

const (
	readChunkSize = 4096
	flushSize     = 32 * 1024
	flushInterval = 5 * time.Second
)

// Flush triggers, also used as metric labels.
const (
	triggerSize     = "size"
	triggerInterval = "interval"
	triggerClose    = "close"
)

// logBatch accumulates output between log flushes. It is owned by a single
// worker and is not safe for concurrent use.
type logBatch struct {
	buf       []byte
	lastFlush time.Time
	now       func() time.Time
}

func newLogBatch(now func() time.Time) *logBatch {
	return &logBatch{
		lastFlush: now(),
		now:       now,
	}
}

func (b *logBatch) append(p []byte) {
	b.buf = append(b.buf, p...)
}

// due reports whether the batch should be flushed and why. Size wins over
// time when both apply.
func (b *logBatch) due() (string, bool) {
	if len(b.buf) >= flushSize {
		return triggerSize, true
	}
	if b.now().Sub(b.lastFlush) >= flushInterval {
		return triggerInterval, true
	}
	return "", false
}

// take hands the buffered bytes to the caller, empties the batch and
// restarts the interval.
func (b *logBatch) take() []byte {
	out := b.buf
	b.buf = nil
	b.lastFlush = b.now()
	return out
}

func (b *logBatch) len() int {
	return len(b.buf)
}
