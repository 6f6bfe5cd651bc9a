package catalog

import "strings"

// LoadLevel classifies how hard a component drives CPU or memory.
type LoadLevel int

const (
	LoadNone LoadLevel = iota
	LoadLow
	LoadMedium
	LoadHigh
)

func (l LoadLevel) String() string {
	switch l {
	case LoadLow:
		return "low"
	case LoadMedium:
		return "medium"
	case LoadHigh:
		return "high"
	default:
		return "none"
	}
}

// TestDefinition describes one selectable y-cruncher stress component.
// RAMIntensity is an empirical weighting on a single CPU<->MEM axis; the
// values come from community measurements and have no derivation, so they
// are kept as data rather than computed.
type TestDefinition struct {
	ID           string
	DisplayName  string
	RAMIntensity float64
}

// CPULoad derives the CPU-side load level from the component's position on
// the CPU<->MEM axis.
func (d TestDefinition) CPULoad() LoadLevel {
	switch d.RAMLoad() {
	case LoadLow:
		return LoadHigh
	case LoadMedium:
		return LoadMedium
	default:
		return LoadLow
	}
}

// RAMLoad derives the memory-side load level.
func (d TestDefinition) RAMLoad() LoadLevel {
	switch {
	case d.RAMIntensity <= cpuPresetMax:
		return LoadLow
	case d.RAMIntensity < ramPresetMin:
		return LoadMedium
	default:
		return LoadHigh
	}
}

// LoadVisual renders the CPU<->MEM balance as a one-line gauge for the
// checkbox list, e.g. "CPU [──●───────] MEM".
func (d TestDefinition) LoadVisual() string {
	const width = 10
	pos := int(d.RAMIntensity * width)
	if pos > width-1 {
		pos = width - 1
	}
	cells := make([]string, width)
	for i := range cells {
		cells[i] = "─"
	}
	cells[pos] = "●"
	return "CPU [" + strings.Join(cells, "") + "] MEM"
}

// Preset intensity bands.
const (
	cpuPresetMax   = 0.3
	mixedPresetMin = 0.4
	mixedPresetMax = 0.7
	ramPresetMin   = 0.8
)

// tests is the fixed component table. Order matches the upstream y-cruncher
// stress menu and is what the UI renders.
var tests = []TestDefinition{
	{ID: "BKT", DisplayName: "Scalar Integer", RAMIntensity: 0.2},
	{ID: "BBP", DisplayName: "AVX2 Float", RAMIntensity: 0.1},
	{ID: "SFTv4", DisplayName: "AVX2 Float", RAMIntensity: 0.2},
	{ID: "SNT", DisplayName: "AVX2 Integer", RAMIntensity: 0.3},
	{ID: "SVT", DisplayName: "AVX2 Float", RAMIntensity: 0.3},
	{ID: "FFTv4", DisplayName: "AVX2 Float", RAMIntensity: 0.9},
	{ID: "N63", DisplayName: "AVX2 Integer", RAMIntensity: 0.4},
	{ID: "VT3", DisplayName: "AVX2 Float", RAMIntensity: 0.5},
}

// Tests returns the catalog in stable display order.
func Tests() []TestDefinition {
	out := make([]TestDefinition, len(tests))
	copy(out, tests)
	return out
}

// ByID looks up a single component.
func ByID(id string) (TestDefinition, bool) {
	for _, d := range tests {
		if d.ID == id {
			return d, true
		}
	}
	return TestDefinition{}, false
}

// IsValidID reports whether id names a catalog component.
func IsValidID(id string) bool {
	_, ok := ByID(id)
	return ok
}

// FilterValid drops ids that are not in the catalog, preserving order and
// removing duplicates. Selections loaded from disk pass through here so a
// stale settings file can never produce an invalid run.
func FilterValid(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if IsValidID(id) && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Preset is a named predefined selection.
type Preset int

const (
	PresetCPU Preset = iota
	PresetCPURAM
	PresetRAM
)

func (p Preset) String() string {
	switch p {
	case PresetCPU:
		return "CPU"
	case PresetCPURAM:
		return "CPU+RAM"
	case PresetRAM:
		return "RAM"
	default:
		return "unknown"
	}
}

// Description returns the short label shown next to the preset button.
func (p Preset) Description() string {
	switch p {
	case PresetCPU:
		return "CPU-focused tests"
	case PresetCPURAM:
		return "IMC/SA/FCLK/signaling-focused tests"
	case PresetRAM:
		return "RAM-focused tests"
	default:
		return ""
	}
}

// ComputePreset returns the ids selected by a preset, in catalog order.
func ComputePreset(p Preset) []string {
	var out []string
	for _, d := range tests {
		var match bool
		switch p {
		case PresetCPU:
			match = d.RAMIntensity <= cpuPresetMax
		case PresetCPURAM:
			match = d.RAMIntensity >= mixedPresetMin && d.RAMIntensity <= mixedPresetMax
		case PresetRAM:
			match = d.RAMIntensity >= ramPresetMin
		}
		if match {
			out = append(out, d.ID)
		}
	}
	return out
}
