package trace

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

// jsonTrace is the on-disk JSON layout.
type jsonTrace struct {
	RunID         string               `json:"run_id,omitempty"`
	Level         TraceLevel           `json:"level"`
	Positions     []PositionRecord     `json:"positions"`
	Transmissions []TransmissionRecord `json:"transmissions"`
	Summary       *TraceSummary        `json:"summary"`
}

// WriteJSON writes the trace and its summary as indented JSON.
func (st *SimulationTrace) WriteJSON(w io.Writer) error {
	if st == nil {
		return fmt.Errorf("nil trace")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonTrace{
		RunID:         st.Config.RunID,
		Level:         st.Config.Level,
		Positions:     st.Positions,
		Transmissions: st.Transmissions,
		Summary:       Summarize(st),
	}); err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	return nil
}

// Animation timeline, modelled on the NetAnim XML layout: one <node> per
// vehicle with its first position, <nu> position updates, <p> packets with
// first-bit tx/rx times in seconds, and <drop> for refused transmissions.
type animXML struct {
	XMLName xml.Name     `xml:"anim"`
	Version string       `xml:"ver,attr"`
	RunID   string       `xml:"runId,attr,omitempty"`
	Nodes   []animNode   `xml:"node"`
	Updates []animUpdate `xml:"nu"`
	Packets []animPacket `xml:"p"`
	Drops   []animDrop   `xml:"drop"`
}

type animNode struct {
	ID   int     `xml:"id,attr"`
	LocX float64 `xml:"locX,attr"`
	LocY float64 `xml:"locY,attr"`
}

type animUpdate struct {
	Property string  `xml:"p,attr"`
	Time     float64 `xml:"t,attr"`
	ID       int     `xml:"id,attr"`
	X        float64 `xml:"x,attr"`
	Y        float64 `xml:"y,attr"`
}

type animPacket struct {
	FromID  int     `xml:"fId,attr"`
	FirstTx float64 `xml:"fbTx,attr"`
	ToID    int     `xml:"tId,attr"`
	FirstRx float64 `xml:"fbRx,attr"`
	Seq     uint64  `xml:"seq,attr"`
}

type animDrop struct {
	Time   float64 `xml:"t,attr"`
	FromID int     `xml:"fId,attr"`
	ToID   int     `xml:"tId,attr"`
	Seq    uint64  `xml:"seq,attr"`
	Reason string  `xml:"reason,attr"`
}

const animVersion = "netanim-3.108"

func nsToSeconds(ns int64) float64 { return float64(ns) / 1e9 }

// WriteAnimXML writes the trace as an XML animation timeline.
func (st *SimulationTrace) WriteAnimXML(w io.Writer) error {
	if st == nil {
		return fmt.Errorf("nil trace")
	}
	doc := animXML{Version: animVersion, RunID: st.Config.RunID}

	first := make(map[int]PositionRecord)
	for _, p := range st.Positions {
		if _, seen := first[p.NodeID]; !seen {
			first[p.NodeID] = p
			continue
		}
		doc.Updates = append(doc.Updates, animUpdate{Property: "p", Time: nsToSeconds(p.Clock), ID: p.NodeID, X: p.X, Y: p.Y})
	}
	ids := make([]int, 0, len(first))
	for id := range first {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		p := first[id]
		doc.Nodes = append(doc.Nodes, animNode{ID: id, LocX: p.X, LocY: p.Y})
	}

	for _, r := range st.Transmissions {
		switch r.Outcome {
		case OutcomeGranted:
			doc.Packets = append(doc.Packets, animPacket{
				FromID: r.Sender, FirstTx: nsToSeconds(r.Clock), ToID: r.Receiver,
				FirstRx: nsToSeconds(r.DeliverAt), Seq: r.Seq,
			})
		case OutcomeDropped:
			doc.Drops = append(doc.Drops, animDrop{
				Time: nsToSeconds(r.Clock), FromID: r.Sender, ToID: r.Receiver, Seq: r.Seq, Reason: r.Reason,
			})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding animation: %w", err)
	}
	return enc.Flush()
}
