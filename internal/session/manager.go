package session

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Start while a previous run has not
	// reached a terminal state.
	ErrAlreadyRunning = errors.New("a stress run is already active")

	// ErrBinaryNotFound is returned when the y-cruncher executable cannot
	// be located.
	ErrBinaryNotFound = errors.New("y-cruncher binary not found")

	// ErrNoSelection is returned when the run config selects no components.
	ErrNoSelection = errors.New("no stress components selected")

	// ErrSpawnFailed wraps OS-level process creation failures.
	ErrSpawnFailed = errors.New("failed to spawn y-cruncher")
)

// State is the lifecycle state of the managed child process. Within one run
// it only moves forward: Idle -> Running -> Finished/Failed, optionally
// through Stopping.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Terminal reports whether the state is an end state for a run.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed
}

// Status is a snapshot of the current run. ExitCode is only meaningful in
// StateFinished; a forced kill shows up as Forced with the signal exit code.
type Status struct {
	State     State
	ExitCode  int
	Reason    string
	Forced    bool
	StartedAt time.Time
}

// EventKind discriminates stream events.
type EventKind int

const (
	// EventLine carries one console line, in child emit order.
	EventLine EventKind = iota
	// EventDone is the final event of a stream and carries the terminal
	// status. The channel is closed right after it.
	EventDone
)

// Event is a single message from the background drain context to the UI.
type Event struct {
	Kind   EventKind
	Line   string
	Status Status
}

// Manager owns the lifecycle of at most one running y-cruncher process. The
// presentation layer only ever sees Status snapshots and Events; it never
// touches the process handle.
type Manager struct {
	mu     sync.Mutex
	status Status
	cmd    *exec.Cmd
	done   chan struct{}

	binary string
	grace  time.Duration
	logger *slog.Logger

	// buildCommand is a test seam; when nil the real y-cruncher command
	// line is built from the run config.
	buildCommand func(RunConfig) *exec.Cmd
}

// NewManager creates a manager. binary may be empty, in which case the
// executable is located in the working directory or PATH at Start time.
func NewManager(binary string, grace time.Duration, logger *slog.Logger) *Manager {
	if grace <= 0 {
		grace = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		status: Status{State: StateIdle, ExitCode: -1},
		binary: binary,
		grace:  grace,
		logger: logger,
	}
}

// Status returns a non-blocking snapshot of the current run.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start spawns the stress process and begins draining its output. It returns
// the event stream for this run; the stream ends with an EventDone once the
// process has truly exited and every line has been delivered.
func (m *Manager) Start(cfg RunConfig) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.State == StateRunning || m.status.State == StateStopping {
		return nil, ErrAlreadyRunning
	}
	if len(cfg.Selection) == 0 {
		return nil, ErrNoSelection
	}

	var cmd *exec.Cmd
	if m.buildCommand != nil {
		cmd = m.buildCommand(cfg)
	} else {
		bin, err := LocateBinary(m.binary)
		if err != nil {
			return nil, err
		}
		cmd = exec.Command(bin, BuildArgs(cfg)...)
	}

	// The child gets its own process group so that termination reaches any
	// descendants it spawns.
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true

	// stdout and stderr share one pipe: a single reader preserves the exact
	// order the child emitted, across both streams.
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	// The child holds the write end now; closing ours makes the reader see
	// EOF when the last writer in the process group exits.
	w.Close()

	events := make(chan Event, 64)
	drained := make(chan struct{})
	m.cmd = cmd
	m.done = make(chan struct{})
	m.status = Status{State: StateRunning, ExitCode: -1, StartedAt: time.Now()}
	m.logger.Info("stress run started", "pid", cmd.Process.Pid, "args", cmd.Args)

	go m.drain(r, events, drained)
	go m.wait(cmd, events, drained)

	return events, nil
}

// drain reads console lines until the pipe closes. It is the only line
// sender, so delivery order is emit order.
func (m *Manager) drain(r *os.File, events chan<- Event, drained chan<- struct{}) {
	defer close(drained)
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		events <- Event{Kind: EventLine, Line: sc.Text()}
	}
}

// wait blocks on the child's exit and makes the terminal state transition
// exactly once. It waits for the drain to finish first so the stream never
// reports done with lines still in flight.
func (m *Manager) wait(cmd *exec.Cmd, events chan<- Event, drained <-chan struct{}) {
	<-drained
	err := cmd.Wait()

	m.mu.Lock()
	switch {
	case err == nil:
		m.status.State = StateFinished
		m.status.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exit belongs to the test binary, it is not a
			// manager failure.
			m.status.State = StateFinished
			m.status.ExitCode = exitErr.ExitCode()
		} else {
			m.status.State = StateFailed
			m.status.Reason = err.Error()
		}
	}
	final := m.status
	m.cmd = nil
	close(m.done)
	m.mu.Unlock()

	m.logger.Info("stress run ended",
		"state", final.State.String(),
		"exit_code", final.ExitCode,
		"forced", final.Forced)

	events <- Event{Kind: EventDone, Status: final}
	close(events)
}

// Stop requests graceful termination of the running child and escalates to
// SIGKILL after the grace period. It never blocks the caller and is a no-op
// when nothing is running. The y-cruncher binary does not always honor
// SIGTERM, so the escalation path is not optional.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.status.State != StateRunning {
		m.mu.Unlock()
		return
	}
	cmd := m.cmd
	done := m.done
	m.status.State = StateStopping
	m.mu.Unlock()

	pid := cmd.Process.Pid
	m.logger.Info("stopping stress run", "pid", pid, "grace", m.grace)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		// Group signal can fail if the leader already exited; fall back to
		// the process itself.
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}

	go func() {
		select {
		case <-done:
		case <-time.After(m.grace):
			m.mu.Lock()
			if m.status.State == StateStopping {
				m.status.Forced = true
				m.status.Reason = "graceful stop timed out, process group killed"
			}
			m.mu.Unlock()
			m.logger.Warn("graceful stop timed out, escalating to SIGKILL", "pid", pid)
			if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
				if kerr := cmd.Process.Kill(); kerr != nil {
					m.logger.Error("forced kill failed, manual termination may be required",
						"pid", pid, "error", kerr)
				}
			}
		}
	}()
}
