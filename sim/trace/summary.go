package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAttempts      int
	GrantedCount       int
	DroppedCount       int
	DeliveredCount     int
	DiscardedCount     int
	DropRate           float64        // dropped / attempts
	MeanLatencySeconds float64        // over delivered records
	MaxLatencySeconds  float64        // over delivered records
	PositionSnapshots  int
	UniqueNodes        int
	DropReasons        map[string]int // reason → count of dropped attempts
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		DropReasons: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	totalLatency := 0.0
	for _, r := range st.Transmissions {
		switch r.Outcome {
		case OutcomeGranted:
			summary.GrantedCount++
		case OutcomeDropped:
			summary.DroppedCount++
			summary.DropReasons[r.Reason]++
		case OutcomeDelivered:
			summary.DeliveredCount++
			lat := float64(r.Clock-r.SendClock) / 1e9
			totalLatency += lat
			if lat > summary.MaxLatencySeconds {
				summary.MaxLatencySeconds = lat
			}
		case OutcomeDiscarded:
			summary.DiscardedCount++
		}
	}
	summary.TotalAttempts = summary.GrantedCount + summary.DroppedCount
	if summary.TotalAttempts > 0 {
		summary.DropRate = float64(summary.DroppedCount) / float64(summary.TotalAttempts)
	}
	if summary.DeliveredCount > 0 {
		summary.MeanLatencySeconds = totalLatency / float64(summary.DeliveredCount)
	}

	nodes := make(map[int]bool)
	for _, p := range st.Positions {
		nodes[p.NodeID] = true
	}
	summary.PositionSnapshots = len(st.Positions)
	summary.UniqueNodes = len(nodes)

	return summary
}
