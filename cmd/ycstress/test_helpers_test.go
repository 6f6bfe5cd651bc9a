package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ycstress/internal/db"
)

// mockStore is an in-memory Store for command tests.
type mockStore struct {
	runs     []db.RunRecord
	started  [][]string
	finished []string
	failList bool
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) RecordStart(selection []string, timeLimit int) (int64, error) {
	m.started = append(m.started, selection)
	return int64(len(m.started)), nil
}

func (m *mockStore) RecordFinish(id int64, status string, exitCode int) error {
	m.finished = append(m.finished, status)
	return nil
}

func (m *mockStore) RecentRuns(limit int) ([]db.RunRecord, error) {
	if m.failList {
		return nil, fmt.Errorf("failed to list runs")
	}
	if limit > 0 && len(m.runs) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

// executeCommand executes a cobra command and returns its output.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	resetFlags(root)
	// Mock exit
	oldExit := exit
	exit = func(code int) {
		if code != 0 {
			panic(fmt.Sprintf("exit-%d", code))
		}
	}
	defer func() { exit = oldExit }()
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(string); ok && strings.HasPrefix(s, "exit-") {
				// This is an expected exit, don't re-panic
				return
			}
			panic(r) // Re-panic actual panics
		}
	}()
	root.SetArgs(args)
	b := new(bytes.Buffer)
	root.SetOut(b)
	root.SetErr(b)
	// Mock Stdin to avoid hanging on interactive prompts
	root.SetIn(bytes.NewBufferString(""))
	err := root.Execute()
	return b.String(), err
}

// resetFlags resets all flags to their default values.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
