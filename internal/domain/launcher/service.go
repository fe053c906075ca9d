package launcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/preset"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

const statusTimeout = 5 * time.Second

// Terminals is the session registry the service drives.
type Terminals interface {
	Create(cfg terminal.Config, sink terminal.Sink) (string, error)
	Write(id string, p []byte) error
	Resize(id string, cols, rows uint16) error
	Remove(id string) error
	List() []string
	Get(id string) (terminal.Info, error)
	Sessions() []terminal.Info
	CloseAll()
}

// SessionStore keeps launched configs across restarts.
type SessionStore interface {
	SaveSession(ctx context.Context, s storage.SavedSession) error
	UpdateSessionStatus(ctx context.Context, id, status string) error
	GetSavedSession(ctx context.Context, id string) (storage.SavedSession, error)
	ListRestorableSessions(ctx context.Context) ([]storage.SavedSession, error)
	MarkAllStopped(ctx context.Context) (int64, error)
}

// Presets resolves tool names.
type Presets interface {
	Lookup(tool string) (preset.Preset, bool)
}

// Metrics counts saved and restored sessions.
type Metrics interface {
	IncSessionsSaved()
	IncSessionsRestored()
}

// Service launches and controls sessions.
type Service struct {
	terminals Terminals
	store     SessionStore
	presets   Presets
	metrics   Metrics
	logger    *zap.Logger
	cols      uint16
	rows      uint16
	closing   atomic.Bool

	// launches maps an id to the latest launch under it, so a replaced
	// session ending cannot mark its successor stopped.
	mu       sync.Mutex
	launches map[string]uint64
	nextGen  uint64
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics counts saved and restored sessions.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultSize sets the geometry for requests that leave it zero.
func WithDefaultSize(cols, rows uint16) Option {
	return func(s *Service) {
		if cols > 0 {
			s.cols = cols
		}
		if rows > 0 {
			s.rows = rows
		}
	}
}

// New creates a Service.
func New(terminals Terminals, store SessionStore, presets Presets, opts ...Option) *Service {
	s := &Service{
		terminals: terminals,
		store:     store,
		presets:   presets,
		metrics:   nopMetrics{},
		logger:    zap.NewNop(),
		cols:      terminal.DefaultCols,
		rows:      terminal.DefaultRows,
		launches:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve fills in what a request left out. An empty Command is taken from
// the Tool's preset; preset env vars apply unless the request sets the same
// key. A missing ID gets a fresh uuid.
func (s *Service) Resolve(cfg terminal.Config) (terminal.Config, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	if cfg.Command == "" {
		if cfg.Tool == "" {
			return terminal.Config{}, fmt.Errorf("%w: command or tool is required", terminal.ErrInvalidConfig)
		}
		p, ok := s.presets.Lookup(cfg.Tool)
		if !ok {
			return terminal.Config{}, fmt.Errorf("%w: %q", preset.ErrUnknownTool, cfg.Tool)
		}
		if p.Command == "" {
			return terminal.Config{}, fmt.Errorf("%w: tool %q needs an explicit command", terminal.ErrInvalidConfig, p.Tool)
		}
		cfg.Command = p.Command
		if len(cfg.Args) == 0 {
			cfg.Args = p.Args
		}
		if len(p.Env) > 0 {
			env := make(map[string]string, len(p.Env)+len(cfg.Env))
			for k, v := range p.Env {
				env[k] = v
			}
			for k, v := range cfg.Env {
				env[k] = v
			}
			cfg.Env = env
		}
	}

	if cfg.Name == "" {
		cfg.Name = cfg.Command
	}
	if cfg.Cols == 0 {
		cfg.Cols = s.cols
	}
	if cfg.Rows == 0 {
		cfg.Rows = s.rows
	}
	if cfg.Args == nil {
		cfg.Args = []string{}
	}
	return cfg, nil
}

// Launch resolves cfg, saves it as running and spawns it. Saving is best
// effort: a session is not refused because the database is unavailable.
// The config is saved before the spawn so that a process exiting at once
// cannot have its stopped status overwritten.
func (s *Service) Launch(ctx context.Context, cfg terminal.Config, sink terminal.Sink) (terminal.Info, error) {
	cfg, err := s.Resolve(cfg)
	if err != nil {
		return terminal.Info{}, err
	}
	if sink == nil {
		sink = LogSink(s.logger)
	}

	saved := storage.SavedSession{
		ID:         cfg.ID,
		Name:       cfg.Name,
		Tool:       cfg.Tool,
		Command:    cfg.Command,
		Args:       cfg.Args,
		WorkingDir: cfg.WorkingDir,
		EnvVars:    cfg.Env,
		Cols:       cfg.Cols,
		Rows:       cfg.Rows,
		Status:     storage.StatusRunning,
	}
	if err := s.store.SaveSession(ctx, saved); err != nil {
		s.logger.Warn("Failed to save session config", zap.String("session_id", cfg.ID), zap.Error(err))
	} else {
		s.metrics.IncSessionsSaved()
	}

	gen := s.claim(cfg.ID)
	id, err := s.terminals.Create(cfg, s.trackStatus(cfg.ID, gen, sink))
	if err != nil {
		s.release(cfg.ID, gen)
		s.markStopped(cfg.ID)
		return terminal.Info{}, err
	}

	info, err := s.terminals.Get(id)
	if err != nil {
		// Removed between Create and Get.
		info = terminal.Info{ID: id, Name: cfg.Name, Tool: cfg.Tool, Command: cfg.Command, Cols: cfg.Cols, Rows: cfg.Rows}
	}
	return info, nil
}

// MarkAllStopped marks every saved session stopped, for starts that do not
// restore.
func (s *Service) MarkAllStopped(ctx context.Context) (int64, error) {
	return s.store.MarkAllStopped(ctx)
}

// Restore relaunches a saved session under its original id.
func (s *Service) Restore(ctx context.Context, id string, sink terminal.Sink) (terminal.Info, error) {
	saved, err := s.store.GetSavedSession(ctx, id)
	if err != nil {
		return terminal.Info{}, err
	}

	info, err := s.Launch(ctx, configFromSaved(saved), sink)
	if err != nil {
		return terminal.Info{}, err
	}
	s.metrics.IncSessionsRestored()
	s.logger.Info("Session restored", zap.String("session_id", id))
	return info, nil
}

// RestoreAll relaunches every session that was running at the last
// shutdown. Sessions that fail to start are marked stopped.
func (s *Service) RestoreAll(ctx context.Context, sinkFor func(id string) terminal.Sink) ([]terminal.Info, error) {
	saved, err := s.store.ListRestorableSessions(ctx)
	if err != nil {
		return nil, err
	}

	restored := make([]terminal.Info, 0, len(saved))
	for _, ss := range saved {
		var sink terminal.Sink
		if sinkFor != nil {
			sink = sinkFor(ss.ID)
		}
		info, err := s.Launch(ctx, configFromSaved(ss), sink)
		if err != nil {
			s.logger.Warn("Failed to restore session", zap.String("session_id", ss.ID), zap.Error(err))
			s.markStopped(ss.ID)
			continue
		}
		s.metrics.IncSessionsRestored()
		restored = append(restored, info)
	}
	return restored, nil
}

// Stop removes a live session and marks its saved config stopped.
func (s *Service) Stop(ctx context.Context, id string) error {
	if err := s.terminals.Remove(id); err != nil {
		return err
	}
	err := s.store.UpdateSessionStatus(ctx, id, storage.StatusStopped)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Failed to mark session stopped", zap.String("session_id", id), zap.Error(err))
	}
	return nil
}

// Write forwards input to a session.
func (s *Service) Write(id string, p []byte) error {
	return s.terminals.Write(id, p)
}

// Resize changes a session's geometry.
func (s *Service) Resize(id string, cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return fmt.Errorf("%w: size must be positive, got %dx%d", terminal.ErrInvalidConfig, cols, rows)
	}
	return s.terminals.Resize(id, cols, rows)
}

// List returns live session ids.
func (s *Service) List() []string {
	return s.terminals.List()
}

// Sessions returns live session snapshots.
func (s *Service) Sessions() []terminal.Info {
	return s.terminals.Sessions()
}

// Get returns one live session.
func (s *Service) Get(id string) (terminal.Info, error) {
	return s.terminals.Get(id)
}

// Shutdown closes every session without touching saved statuses.
func (s *Service) Shutdown() {
	s.closing.Store(true)
	s.terminals.CloseAll()
}

// trackStatus forwards events to sink and marks the saved config stopped
// when the stream ends, unless a later launch has taken over the id.
func (s *Service) trackStatus(id string, gen uint64, sink terminal.Sink) terminal.Sink {
	return terminal.SinkFunc(func(e terminal.Event) {
		sink.Send(e)
		if !e.Terminal() || s.closing.Load() {
			return
		}
		if !s.release(id, gen) {
			s.logger.Debug("Replaced session ended", zap.String("session_id", id))
			return
		}
		s.markStopped(id)
	})
}

func (s *Service) claim(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGen++
	s.launches[id] = s.nextGen
	return s.nextGen
}

// release forgets the launch and reports whether it was still current.
func (s *Service) release(id string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.launches[id] != gen {
		return false
	}
	delete(s.launches, id)
	return true
}

func (s *Service) markStopped(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	err := s.store.UpdateSessionStatus(ctx, id, storage.StatusStopped)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Failed to mark session stopped", zap.String("session_id", id), zap.Error(err))
	}
}

func configFromSaved(ss storage.SavedSession) terminal.Config {
	return terminal.Config{
		ID:         ss.ID,
		Name:       ss.Name,
		Tool:       ss.Tool,
		Command:    ss.Command,
		Args:       ss.Args,
		WorkingDir: ss.WorkingDir,
		Env:        ss.EnvVars,
		Cols:       ss.Cols,
		Rows:       ss.Rows,
	}
}

// LogSink drops output and logs how each session ended. Used for sessions
// nobody is streaming.
func LogSink(logger *zap.Logger) terminal.Sink {
	return terminal.SinkFunc(func(e terminal.Event) {
		switch e.Type {
		case terminal.EventExited:
			logger.Info("Session exited", zap.String("session_id", e.SessionID))
		case terminal.EventError:
			logger.Warn("Session failed", zap.String("session_id", e.SessionID), zap.String("message", e.Message))
		}
	})
}

type nopMetrics struct{}

func (nopMetrics) IncSessionsSaved()    {}
func (nopMetrics) IncSessionsRestored() {}
