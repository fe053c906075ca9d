package terminal

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/usage"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidConfig   = errors.New("invalid session config")
	ErrSpawn           = errors.New("failed to spawn session")
	ErrIO              = errors.New("terminal i/o failed")
)

// EventType tags an output Event.
type EventType string

const (
	EventData   EventType = "data"
	EventExited EventType = "exited"
	EventError  EventType = "error"
)

// Event is one item of a session's output stream. Data is base64 encoded on
// the JSON wire.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Data      []byte    `json:"data,omitempty"`
	ExitCode  *int      `json:"exitCode,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Terminal reports whether e ends its session's stream.
func (e Event) Terminal() bool {
	return e.Type == EventExited || e.Type == EventError
}

// Sink receives a session's events in order. Send is called from the
// session's worker goroutine.
type Sink interface {
	Send(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Send calls f(e).
func (f SinkFunc) Send(e Event) { f(e) }

// LogStore persists raw output. Implementations must not retain content.
type LogStore interface {
	AppendLog(ctx context.Context, sessionID string, content []byte) error
}

// UsageStore persists extracted usage records.
type UsageStore interface {
	RecordUsage(ctx context.Context, rec usage.Record) error
}

// Config describes the process to run. ID is chosen by the caller.
type Config struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Tool       string            `json:"tool,omitempty"`
	Command    string            `json:"command"`
	Args       []string          `json:"args"`
	WorkingDir string            `json:"workingDir"`
	Env        map[string]string `json:"envVars"`
	Cols       uint16            `json:"cols"`
	Rows       uint16            `json:"rows"`
}

// Info is the public view of a live session.
type Info struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	Command    string    `json:"command"`
	WorkingDir string    `json:"workingDir"`
	Cols       uint16    `json:"cols"`
	Rows       uint16    `json:"rows"`
	Pid        int       `json:"pid"`
	StartedAt  time.Time `json:"startedAt"`
	Active     bool      `json:"active"`
}

// Recorder receives session telemetry. monitoring.Metrics implements it.
type Recorder interface {
	SessionStarted()
	SessionEnded(reason string)
	OutputRead(n int)
	LogFlushed(trigger string, size int)
	UsageRecorded(model string)
	PersistFailed(store string)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted() {}
func (nopRecorder) SessionEnded(string) {}
func (nopRecorder) OutputRead(int) {}
func (nopRecorder) LogFlushed(string, int) {}
func (nopRecorder) UsageRecorded(string) {}
func (nopRecorder) PersistFailed(string) {}
