package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSimulationTrace_RecordTransmission_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for transmissions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelTransmissions})

	// WHEN a transmission record is recorded
	st.RecordTransmission(TransmissionRecord{Clock: 1000, Sender: 1, Receiver: 0, Seq: 7, Outcome: OutcomeGranted})

	// THEN the trace contains it
	if len(st.Transmissions) != 1 {
		t.Fatalf("expected 1 transmission, got %d", len(st.Transmissions))
	}
	if st.Transmissions[0].Seq != 7 {
		t.Errorf("expected seq 7, got %d", st.Transmissions[0].Seq)
	}
}

func TestSimulationTrace_RecordPosition_OnlyAtFullLevel(t *testing.T) {
	partial := NewSimulationTrace(TraceConfig{Level: TraceLevelTransmissions})
	partial.RecordPosition(PositionRecord{Clock: 1, NodeID: 0, X: 1, Y: 2})
	if len(partial.Positions) != 0 {
		t.Errorf("transmissions level recorded %d positions, want 0", len(partial.Positions))
	}

	full := NewSimulationTrace(TraceConfig{Level: TraceLevelFull})
	full.RecordPosition(PositionRecord{Clock: 1, NodeID: 0, X: 1, Y: 2})
	if len(full.Positions) != 1 {
		t.Errorf("full level recorded %d positions, want 1", len(full.Positions))
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})
	st.RecordTransmission(TransmissionRecord{Outcome: OutcomeDropped})
	st.RecordPosition(PositionRecord{})
	if len(st.Transmissions) != 0 || len(st.Positions) != 0 {
		t.Error("none level must not record")
	}
}

func TestSimulationTrace_NilIsSafe(t *testing.T) {
	var st *SimulationTrace
	st.RecordTransmission(TransmissionRecord{})
	st.RecordPosition(PositionRecord{})
	if err := st.WriteJSON(&bytes.Buffer{}); err == nil {
		t.Error("expected error writing nil trace")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, lvl := range []string{"", "none", "transmissions", "full"} {
		if !IsValidTraceLevel(lvl) {
			t.Errorf("IsValidTraceLevel(%q) = false, want true", lvl)
		}
	}
	if IsValidTraceLevel("verbose") {
		t.Error("IsValidTraceLevel(verbose) = true, want false")
	}
}

func TestWriteJSON_IncludesSummaryAndRunID(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelFull, RunID: "run-1"})
	st.RecordPosition(PositionRecord{Clock: 0, NodeID: 3, X: 10, Y: 20})
	st.RecordTransmission(TransmissionRecord{Clock: 5, Sender: 1, Receiver: 0, Outcome: OutcomeDropped, Reason: "signal"})

	var buf bytes.Buffer
	if err := st.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded struct {
		RunID   string `json:"run_id"`
		Summary struct {
			DroppedCount int `json:"DroppedCount"`
		} `json:"summary"`
		Positions []PositionRecord `json:"positions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if decoded.RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", decoded.RunID)
	}
	if decoded.Summary.DroppedCount != 1 {
		t.Errorf("summary dropped = %d, want 1", decoded.Summary.DroppedCount)
	}
	if len(decoded.Positions) != 1 || decoded.Positions[0].NodeID != 3 {
		t.Errorf("positions = %+v, want one record for node 3", decoded.Positions)
	}
}

func TestWriteAnimXML_NodesUpdatesPacketsDrops(t *testing.T) {
	// GIVEN two snapshots for node 0, one for node 1, a granted and a dropped transmission
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelFull})
	st.RecordPosition(PositionRecord{Clock: 0, NodeID: 1, X: 5, Y: 6})
	st.RecordPosition(PositionRecord{Clock: 0, NodeID: 0, X: 1, Y: 2})
	st.RecordPosition(PositionRecord{Clock: 100_000_000, NodeID: 0, X: 3, Y: 4})
	st.RecordTransmission(TransmissionRecord{Clock: 2_000_000_000, Sender: 1, Receiver: 0, Seq: 0, Outcome: OutcomeGranted, DeliverAt: 2_000_020_000})
	st.RecordTransmission(TransmissionRecord{Clock: 2_500_000_000, Sender: 1, Receiver: 0, Seq: 1, Outcome: OutcomeDropped, Reason: "signal"})

	// WHEN exported
	var buf bytes.Buffer
	if err := st.WriteAnimXML(&buf); err != nil {
		t.Fatalf("WriteAnimXML: %v", err)
	}
	out := buf.String()

	// THEN the timeline has both nodes, one update, one packet and one drop
	for _, want := range []string{
		`<anim ver="netanim-3.108">`,
		`<node id="0" locX="1" locY="2"></node>`,
		`<node id="1" locX="5" locY="6"></node>`,
		`<nu p="p" t="0.1" id="0" x="3" y="4"></nu>`,
		`fbTx="2"`,
		`fbRx="2.00002"`,
		`reason="signal"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("animation missing %q\n%s", want, out)
		}
	}
	if strings.Index(out, `id="0"`) > strings.Index(out, `<node id="1"`) {
		t.Error("nodes must be sorted by id")
	}
}
