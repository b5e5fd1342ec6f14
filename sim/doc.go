// Package sim provides the core discrete-event simulation engine for the
// vehicular network simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - time.go: SimTime, the nanosecond logical clock
//   - event.go: Event, Action and the Scheduler interface components depend on
//   - simulator.go: the event loop (Schedule, Cancel, Run, Destroy)
//   - node.go: Node and Packet, the data shared between components
//
// # Architecture
//
// The sim package defines the kernel, shared data types and config groups;
// components live in sub-packages:
//   - sim/topology/: node identities and address assignment
//   - sim/mobility/: bounded random walk with boundary reflection
//   - sim/channel/: distance + contention resource allocator
//   - sim/transport/: UDP-style client and server endpoints
//   - sim/trace/: position and transmission telemetry, export
//   - sim/scenario/: SimulationContext wiring everything behind the setup API
//
// Components never run events themselves. They hold a Scheduler, enqueue
// closures, and mutate their own state only from inside those closures, so
// the whole simulation runs on one goroutine without locks.
//
// # Determinism
//
// Randomness flows from a single PartitionedRNG. Each component draws from its
// own named subsystem, and equal-time events run in insertion order, so a
// fixed seed replays the same event sequence.
package sim
