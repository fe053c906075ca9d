package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/resilience"
)

// tickClock advances one millisecond per reading so rows sort by write order.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *tickClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts Options) (*Store, *tickClock) {
	t.Helper()
	clock := &tickClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	store, err := Open(filepath.Join(t.TempDir(), "nested", "agentdesk.db"), zap.NewNop(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, clock
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentdesk.db")
	ctx := context.Background()

	store, err := Open(path, nil, Options{})
	require.NoError(t, err)
	require.NoError(t, store.Ping(ctx))

	names, err := store.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_initial_schema", "002_add_templates", "003_add_monitoring"}, names)

	require.NoError(t, store.AppendLog(ctx, "s1", []byte("kept")))
	require.NoError(t, store.Close())

	reopened, err := Open(path, nil, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	names, err = reopened.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, names, len(migrations))

	log, err := reopened.SessionLog(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "kept", log)
	assert.Equal(t, path, reopened.Path())
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", nil, Options{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestOpenInMemory(t *testing.T) {
	store, err := Open(":memory:", nil, Options{})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.AppendLog(ctx, "s1", []byte("x")))
	log, err := store.SessionLog(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "x", log)
}

func TestWriteBreakerOpensAndRecovers(t *testing.T) {
	var transitions []string
	store, clock := newTestStore(t, Options{
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
		OnBreakerChange: func(from, to resilience.State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	// Break the write path underneath the store.
	_, err := store.db.Exec("ALTER TABLE session_logs RENAME TO session_logs_moved")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		err := store.AppendLog(ctx, "s1", []byte("x"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, resilience.StateOpen, store.BreakerState())

	err = store.AppendLog(ctx, "s1", []byte("x"))
	assert.ErrorIs(t, err, ErrUnavailable, "open breaker fails fast")

	_, err = store.db.Exec("ALTER TABLE session_logs_moved RENAME TO session_logs")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	require.NoError(t, store.AppendLog(ctx, "s1", []byte("back")))
	assert.Equal(t, resilience.StateClosed, store.BreakerState())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCanceledContextDoesNotTripBreaker(t *testing.T) {
	store, _ := newTestStore(t, Options{BreakerFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.AppendLog(ctx, "s1", []byte("x")))
	assert.Equal(t, resilience.StateClosed, store.BreakerState())
}

func TestParseTime(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 123, time.UTC)
	assert.True(t, ts.Equal(parseTime(ts.Format(timeLayout))))
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), parseTime("2024-05-06 07:08:09"))
	assert.True(t, parseTime("garbage").IsZero())
}
