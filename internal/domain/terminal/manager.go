package terminal

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultCols = 120
	DefaultRows = 30
	DefaultTerm = "xterm-256color"
)

// Manager is the registry of live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logs    LogStore
	usage   UsageStore
	logger  *zap.Logger
	metrics Recorder
	cols    uint16
	rows    uint16
	termEnv string
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the telemetry recorder.
func WithMetrics(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithDefaults sets the geometry used when a Config leaves it zero and the
// TERM value exported to children. An empty term leaves TERM inherited.
func WithDefaults(cols, rows uint16, term string) Option {
	return func(m *Manager) {
		if cols > 0 {
			m.cols = cols
		}
		if rows > 0 {
			m.rows = rows
		}
		m.termEnv = term
	}
}

// WithClock replaces time.Now for flush scheduling and start times.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates an empty registry that persists through logs and usage.
func NewManager(logs LogStore, usage UsageStore, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		logs:     logs,
		usage:    usage,
		logger:   zap.NewNop(),
		metrics:  nopRecorder{},
		cols:     DefaultCols,
		rows:     DefaultRows,
		termEnv:  DefaultTerm,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create spawns cfg and registers it under cfg.ID. Events go to sink in
// read order, ending with one exited or error event.
//
// An existing session under the same id is replaced in the registry but not
// closed; it keeps running unreachable until its process ends.
func (m *Manager) Create(cfg Config, sink Sink) (string, error) {
	if cfg.ID == "" {
		return "", fmt.Errorf("%w: id is required", ErrInvalidConfig)
	}
	if cfg.Command == "" {
		return "", fmt.Errorf("%w: command is required", ErrInvalidConfig)
	}
	if sink == nil {
		return "", fmt.Errorf("%w: sink is required", ErrInvalidConfig)
	}
	if cfg.Cols == 0 {
		cfg.Cols = m.cols
	}
	if cfg.Rows == 0 {
		cfg.Rows = m.rows
	}

	s, err := spawn(cfg, sink, spawnDeps{
		logs:    m.logs,
		usage:   m.usage,
		logger:  m.logger,
		metrics: m.metrics,
		termEnv: m.termEnv,
		now:     m.now,
	})
	if err != nil {
		m.logger.Warn("Failed to spawn session",
			zap.String("session_id", cfg.ID),
			zap.String("command", cfg.Command),
			zap.Error(err),
		)
		return "", err
	}

	m.mu.Lock()
	if _, exists := m.sessions[cfg.ID]; exists {
		m.logger.Warn("Replacing registered session without closing it",
			zap.String("session_id", cfg.ID),
		)
	}
	m.sessions[cfg.ID] = s
	m.mu.Unlock()

	m.metrics.SessionStarted()
	m.logger.Info("Session started",
		zap.String("session_id", cfg.ID),
		zap.String("command", cfg.Command),
		zap.Uint16("cols", cfg.Cols),
		zap.Uint16("rows", cfg.Rows),
	)
	return cfg.ID, nil
}

// Write sends p to the session's input.
func (m *Manager) Write(id string, p []byte) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.Write(p)
}

// Resize changes a session's terminal geometry.
func (m *Manager) Resize(id string, cols, rows uint16) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.Resize(cols, rows)
}

// Remove unregisters id and closes its pty master. It does not kill the
// child or wait for the worker. Removing an unknown id is a no-op.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	m.logger.Info("Session removed", zap.String("session_id", id))
	return s.Close()
}

// List returns the registered ids in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Get returns a snapshot of one session.
func (m *Manager) Get(id string) (Info, error) {
	s, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	return s.Info(), nil
}

// Sessions returns snapshots of all registered sessions, sorted by id.
func (m *Manager) Sessions() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll removes every session. Used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for id, s := range sessions {
		if err := s.Close(); err != nil {
			m.logger.Warn("Failed to close session", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}
