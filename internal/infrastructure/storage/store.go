package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/resilience"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid input")
	ErrUnavailable = errors.New("storage unavailable")
)

// Options tunes the write breaker. Zero values take the defaults.
type Options struct {
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	// OnBreakerChange is told about breaker transitions, e.g. for metrics.
	OnBreakerChange func(from, to resilience.State)
	Now             func() time.Time
}

// Store is the application's SQLite database.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	breaker *resilience.Breaker
	logger  *zap.Logger
	now     func() time.Time
	path    string
}

// Open opens (creating if needed) the database at path and brings its
// schema up to date. ":memory:" is accepted for tests.
func Open(path string, logger *zap.Logger, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrInvalid)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: sqlite serializes writers anyway, and ":memory:"
	// databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		now:    opts.Now,
		path:   path,
	}
	s.breaker = resilience.New("storage", resilience.Settings{
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: resilience.ConsecutiveFailures(opts.BreakerFailures),
		IsFailure:   isStorageFailure,
		Now:         opts.Now,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Storage breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
			if opts.OnBreakerChange != nil {
				opts.OnBreakerChange(from, to)
			}
		},
	})

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Storage opened", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BreakerState reports the write breaker's state.
func (s *Store) BreakerState() resilience.State {
	return s.breaker.State()
}

// guardedExec runs a write through the breaker.
func (s *Store) guardedExec(ctx context.Context, query string, args ...any) error {
	err := s.breaker.Execute(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// isStorageFailure keeps caller cancellation from tripping the breaker.
func isStorageFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		// Rows written by sqlite's datetime('now').
		t, _ = time.Parse("2006-01-02 15:04:05", v)
	}
	return t
}
