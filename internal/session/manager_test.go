package session

import (
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellManager returns a manager whose child process is a shell script
// standing in for y-cruncher.
func shellManager(t *testing.T, grace time.Duration, script string) *Manager {
	t.Helper()
	m := NewManager("", grace, nil)
	m.buildCommand = func(RunConfig) *exec.Cmd {
		return exec.Command("/bin/sh", "-c", script)
	}
	return m
}

// collect drains the event stream until EventDone, failing the test if the
// terminal event does not arrive in time.
func collect(t *testing.T, events <-chan Event, timeout time.Duration) ([]string, Status) {
	t.Helper()
	var lines []string
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event stream closed without EventDone")
			}
			if ev.Kind == EventDone {
				// Stream must be closed right after the final event.
				_, open := <-events
				assert.False(t, open)
				return lines, ev.Status
			}
			lines = append(lines, ev.Line)
		case <-deadline:
			t.Fatal("timed out waiting for terminal event")
		}
	}
}

func TestStartStreamsLinesInEmitOrder(t *testing.T) {
	m := shellManager(t, time.Second,
		"echo out1; echo err1 1>&2; echo out2; echo err2 1>&2; echo out3; echo err3 1>&2")

	events, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	require.NoError(t, err)

	lines, st := collect(t, events, 5*time.Second)
	assert.Equal(t, []string{"out1", "err1", "out2", "err2", "out3", "err3"}, lines)
	assert.Equal(t, StateFinished, st.State)
	assert.Equal(t, 0, st.ExitCode)
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	m := shellManager(t, time.Second, "echo ready; sleep 5")

	events, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	require.NoError(t, err)

	_, err = m.Start(RunConfig{Selection: []string{"VT3"}})
	assert.True(t, errors.Is(err, ErrAlreadyRunning))
	assert.Equal(t, StateRunning, m.Status().State)

	m.Stop()
	lines, st := collect(t, events, 5*time.Second)
	// The original session kept streaming, untouched by the rejected Start.
	assert.Contains(t, lines, "ready")
	assert.True(t, st.State.Terminal())
}

func TestNonZeroExitIsFinishedNotFailed(t *testing.T) {
	m := shellManager(t, time.Second, "echo failing; exit 3")

	events, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	require.NoError(t, err)

	_, st := collect(t, events, 5*time.Second)
	assert.Equal(t, StateFinished, st.State)
	assert.Equal(t, 3, st.ExitCode)
	assert.False(t, st.Forced)
}

func TestStopGraceful(t *testing.T) {
	m := shellManager(t, 5*time.Second,
		"trap 'echo terminated; exit 0' TERM; echo running; while :; do sleep 0.05; done")

	events, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	require.NoError(t, err)

	// Let the script install its trap before signaling.
	time.Sleep(300 * time.Millisecond)
	m.Stop()

	lines, st := collect(t, events, 5*time.Second)
	assert.Equal(t, StateFinished, st.State)
	assert.False(t, st.Forced)
	// Output emitted between the terminate signal and exit is still delivered.
	assert.Contains(t, lines, "terminated")
}

func TestStopEscalatesWhenTermIgnored(t *testing.T) {
	m := shellManager(t, 300*time.Millisecond,
		"trap '' TERM; echo stubborn; while :; do sleep 0.05; done")

	events, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	start := time.Now()
	m.Stop()

	_, st := collect(t, events, 10*time.Second)
	assert.True(t, st.State.Terminal(), "session must not remain running")
	assert.True(t, st.Forced, "escalation to SIGKILL must be recorded")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	m := NewManager("", time.Second, nil)
	m.Stop()
	assert.Equal(t, StateIdle, m.Status().State)
}

func TestStartRejectsEmptySelection(t *testing.T) {
	m := shellManager(t, time.Second, "echo never")
	_, err := m.Start(RunConfig{})
	assert.True(t, errors.Is(err, ErrNoSelection))
}

func TestStartBinaryNotFound(t *testing.T) {
	m := NewManager("/definitely/not/here/y-cruncher", time.Second, nil)
	_, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	assert.True(t, errors.Is(err, ErrBinaryNotFound))
	assert.Equal(t, StateIdle, m.Status().State)
}

func TestStartSpawnFailure(t *testing.T) {
	m := NewManager("", time.Second, nil)
	m.buildCommand = func(RunConfig) *exec.Cmd {
		// Directory is stat-able but not executable.
		return exec.Command(t.TempDir())
	}
	_, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	assert.True(t, errors.Is(err, ErrSpawnFailed))
	assert.Equal(t, StateIdle, m.Status().State)
}

func TestRestartAfterTerminalState(t *testing.T) {
	m := shellManager(t, time.Second, "echo once")

	events, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	require.NoError(t, err)
	_, st := collect(t, events, 5*time.Second)
	require.Equal(t, StateFinished, st.State)

	// A new run creates a new stream.
	events2, err := m.Start(RunConfig{Selection: []string{"VT3"}})
	require.NoError(t, err)
	lines, st2 := collect(t, events2, 5*time.Second)
	assert.Equal(t, []string{"once"}, lines)
	assert.Equal(t, StateFinished, st2.State)
}

func TestStatusSnapshotDuringRun(t *testing.T) {
	m := shellManager(t, time.Second, "sleep 2")

	events, err := m.Start(RunConfig{Selection: []string{"BKT"}})
	require.NoError(t, err)

	st := m.Status()
	assert.Equal(t, StateRunning, st.State)
	assert.False(t, st.StartedAt.IsZero())

	m.Stop()
	collect(t, events, 5*time.Second)
}
