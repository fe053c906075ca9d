package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"
)

// Session is a child process attached to a pty. The worker goroutine owns
// the read side; Write and Resize go through their own locks so neither
// contends with reads.
type Session struct {
	cfg       Config
	startedAt time.Time
	cmd       *exec.Cmd
	ptmx      *os.File

	writeMu sync.Mutex
	ctrlMu  sync.Mutex
	closed  atomic.Bool
	ended   atomic.Bool
}

// spawnDeps carries what a session's worker needs beyond its config.
type spawnDeps struct {
	logs    LogStore
	usage   UsageStore
	logger  *zap.Logger
	metrics Recorder
	termEnv string
	now     func() time.Time
}

// spawn starts cfg.Command on a new pty and launches the session's worker.
func spawn(cfg Config, sink Sink, deps spawnDeps) (*Session, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	if dirExists(cfg.WorkingDir) {
		cmd.Dir = cfg.WorkingDir
	}
	cmd.Env = buildEnv(os.Environ(), deps.termEnv, cfg.Env)

	// StartWithSize closes the tty in this process once the child holds it.
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cfg.Cols, Rows: cfg.Rows})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, cfg.Command, err)
	}
	if ptmx, err = pollable(ptmx); err != nil {
		_ = cmd.Process.Kill()
		go func() { _ = cmd.Wait() }()
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, cfg.Command, err)
	}

	s := &Session{
		cfg:       cfg,
		startedAt: deps.now(),
		cmd:       cmd,
		ptmx:      ptmx,
	}

	w := &worker{
		sessionID: cfg.ID,
		reader:    ptmx,
		sink:      sink,
		logs:      deps.logs,
		usage:     deps.usage,
		batch:     newLogBatch(deps.now),
		logger:    deps.logger,
		metrics:   deps.metrics,
		done:      func() { s.ended.Store(true) },
	}
	go w.run()
	go s.reap(deps.logger)

	return s, nil
}

// pollable swaps the blocking master pty.Start returns for a non-blocking
// duplicate registered with the runtime poller. Closing a blocking *os.File
// waits for the in-flight Read, which never returns while the child is idle,
// so Remove would not hang up the child.
func pollable(ptmx *os.File) (*os.File, error) {
	syscall.ForkLock.RLock()
	fd, err := syscall.Dup(int(ptmx.Fd()))
	if err == nil {
		syscall.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	closeErr := ptmx.Close()
	if err != nil {
		return nil, fmt.Errorf("dup pty master: %w", err)
	}
	if closeErr != nil {
		_ = syscall.Close(fd)
		return nil, fmt.Errorf("close pty master: %w", closeErr)
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = syscall.Close(fd)
		return nil, fmt.Errorf("set pty master non-blocking: %w", err)
	}
	return os.NewFile(uintptr(fd), "/dev/ptmx"), nil
}

// ID returns the caller-supplied session id.
func (s *Session) ID() string {
	return s.cfg.ID
}

// Write forwards p to the child's input unchanged.
func (s *Session) Write(p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.ptmx.Write(p); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, s.cfg.ID, err)
	}
	return nil
}

// Resize changes the terminal geometry. The child sees it on its next
// terminal-aware operation.
func (s *Session) Resize(cols, rows uint16) error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	if err := pty.Setsize(s.ptmx, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		return fmt.Errorf("%w: resize %s: %v", ErrIO, s.cfg.ID, err)
	}
	s.cfg.Cols = cols
	s.cfg.Rows = rows
	return nil
}

// Close releases the pty master. A pending Read returns at once and the
// worker ends the stream with Exited. The child is not signalled beyond the
// hangup the kernel delivers when the master goes away.
func (s *Session) Close() error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.ptmx.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, s.cfg.ID, err)
	}
	return nil
}

// Info snapshots the session.
func (s *Session) Info() Info {
	s.ctrlMu.Lock()
	cols, rows := s.cfg.Cols, s.cfg.Rows
	s.ctrlMu.Unlock()

	pid := 0
	if s.cmd.Process != nil {
		pid = s.cmd.Process.Pid
	}

	return Info{
		ID:         s.cfg.ID,
		Name:       s.cfg.Name,
		Tool:       s.cfg.Tool,
		Command:    s.cfg.Command,
		WorkingDir: s.cmd.Dir,
		Cols:       cols,
		Rows:       rows,
		Pid:        pid,
		StartedAt:  s.startedAt,
		Active:     !s.closed.Load() && !s.ended.Load(),
	}
}

// reap waits for the child so it does not linger as a zombie. The exit
// status is only logged; the event stream ends on the pty, not here.
func (s *Session) reap(logger *zap.Logger) {
	err := s.cmd.Wait()
	code := -1
	if s.cmd.ProcessState != nil {
		code = s.cmd.ProcessState.ExitCode()
	}
	logger.Debug("Session process exited",
		zap.String("session_id", s.cfg.ID),
		zap.Int("exit_code", code),
		zap.Error(err),
	)
}

// dirExists reports whether path names an existing directory. Sessions whose
// directory is missing silently inherit ours.
func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// buildEnv overlays vars onto base. exec.Cmd keeps the last value of a
// duplicated key, so later entries win.
func buildEnv(base []string, termEnv string, vars map[string]string) []string {
	env := make([]string, 0, len(base)+len(vars)+1)
	env = append(env, base...)
	if termEnv != "" {
		env = append(env, "TERM="+termEnv)
	}
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return env
}

// decodeLossy converts output to text, replacing invalid UTF-8.
func decodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
