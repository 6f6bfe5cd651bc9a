package session

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
)

const (
	// autoTimeLimitPerTest is the per-component share of an "auto" total
	// time limit, in seconds.
	autoTimeLimitPerTest = 1800

	// defaultPerTestDuration is the -D value used when the per-test
	// duration is left on auto.
	defaultPerTestDuration = 120
)

// RunConfig describes one stress run. TimeLimit, DurationPerTest and Memory
// accept the literal "auto" (or empty), matching the settings file.
type RunConfig struct {
	Selection       []string
	TimeLimit       string
	DurationPerTest string
	Memory          string
}

func isAuto(v string) bool {
	return v == "" || v == "auto" || v == "Auto" || v == "AUTO"
}

// EffectiveTimeLimit resolves the total -TL value in seconds: the manual
// value when one was set, otherwise 1800 seconds per selected component.
func (c RunConfig) EffectiveTimeLimit() int {
	if !isAuto(c.TimeLimit) {
		if v, err := strconv.Atoi(c.TimeLimit); err == nil && v > 0 {
			return v
		}
	}
	return autoTimeLimitPerTest * len(c.Selection)
}

// BuildArgs translates a run config into the y-cruncher stress-tester
// argument form.
func BuildArgs(c RunConfig) []string {
	args := []string{"colors:1", "console:linux-vterm", "stress"}

	if !isAuto(c.Memory) {
		args = append(args, "-M:"+c.Memory)
	}

	if !isAuto(c.DurationPerTest) {
		args = append(args, "-D:"+c.DurationPerTest)
	} else {
		args = append(args, fmt.Sprintf("-D:%d", defaultPerTestDuration))
	}

	args = append(args, fmt.Sprintf("-TL:%d", c.EffectiveTimeLimit()))
	args = append(args, c.Selection...)
	return args
}

// BinaryName returns the y-cruncher executable name for this platform.
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "y-cruncher.exe"
	}
	return "y-cruncher"
}

// LocateBinary finds the y-cruncher executable. An explicit path wins;
// otherwise the working directory is checked before PATH, matching how the
// binary is usually dropped next to the tool after a download.
func LocateBinary(explicit string) (string, error) {
	if explicit != "" {
		if st, err := os.Stat(explicit); err == nil && !st.IsDir() {
			return explicit, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, explicit)
	}

	local := filepath.Join(".", BinaryName())
	if st, err := os.Stat(local); err == nil && !st.IsDir() {
		return local, nil
	}

	if path, err := exec.LookPath(BinaryName()); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: %s not in working directory or PATH", ErrBinaryNotFound, BinaryName())
}
