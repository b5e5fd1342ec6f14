// Package trace provides position and transmission telemetry for an external
// visualization collaborator.
// This package has no dependencies on sim/ or its components; it stores pure data types.
package trace

// Outcome classifies what happened to a transmission attempt.
type Outcome string

const (
	// OutcomeGranted: the channel accepted the packet and scheduled its delivery.
	OutcomeGranted Outcome = "granted"
	// OutcomeDropped: the channel refused the packet (signal loss or horizon).
	OutcomeDropped Outcome = "dropped"
	// OutcomeDelivered: the receiving endpoint accepted the packet.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeDiscarded: the packet arrived but the endpoint was closed or absent.
	OutcomeDiscarded Outcome = "discarded"
)

// PositionRecord is one (time, node, x, y) snapshot.
type PositionRecord struct {
	Clock  int64   `json:"t_ns"`
	NodeID int     `json:"node"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// TransmissionRecord is one (time, sender, receiver, outcome) event.
type TransmissionRecord struct {
	Clock     int64   `json:"t_ns"`
	Sender    int     `json:"sender"`
	Receiver  int     `json:"receiver"`
	Seq       uint64  `json:"seq"`
	Kind      string  `json:"kind"`
	SizeBytes int     `json:"size_bytes"`
	SendClock int64   `json:"send_t_ns"`
	Outcome   Outcome `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`       // drop or discard reason
	DeliverAt int64   `json:"deliver_t_ns,omitempty"` // granted only
	Prob      float64 `json:"success_prob,omitempty"` // granted/dropped only
}
