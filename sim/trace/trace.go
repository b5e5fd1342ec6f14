package trace

// TraceLevel controls the verbosity of telemetry collection.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTransmissions captures channel and delivery outcomes only.
	TraceLevelTransmissions TraceLevel = "transmissions"
	// TraceLevelFull additionally captures every mobility position snapshot.
	TraceLevelFull TraceLevel = "full"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:          true,
	TraceLevelTransmissions: true,
	TraceLevelFull:          true,
	"":                      true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	RunID string // stamped on exports so timelines can be matched to runs
}

// SimulationTrace collects telemetry records during a simulation.
// A nil *SimulationTrace records nothing.
type SimulationTrace struct {
	Config        TraceConfig
	Positions     []PositionRecord
	Transmissions []TransmissionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:        config,
		Positions:     make([]PositionRecord, 0),
		Transmissions: make([]TransmissionRecord, 0),
	}
}

// RecordPosition appends a position snapshot when the level is full.
func (st *SimulationTrace) RecordPosition(record PositionRecord) {
	if st == nil || st.Config.Level != TraceLevelFull {
		return
	}
	st.Positions = append(st.Positions, record)
}

// RecordTransmission appends a transmission record unless tracing is disabled.
func (st *SimulationTrace) RecordTransmission(record TransmissionRecord) {
	if st == nil {
		return
	}
	switch st.Config.Level {
	case TraceLevelTransmissions, TraceLevelFull:
		st.Transmissions = append(st.Transmissions, record)
	}
}
