package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. The concrete error types below
// carry the details and unwrap to these.
var (
	ErrInvalidSchedule     = errors.New("invalid schedule")
	ErrTransmissionDropped = errors.New("transmission dropped")
	ErrUnknownAddress      = errors.New("unknown address")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// InvalidScheduleError reports an attempt to schedule an event in the past.
type InvalidScheduleError struct {
	At    SimTime
	Now   SimTime
	Owner ComponentID
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("cannot schedule %s event at %s: clock is at %s", e.Owner, e.At, e.Now)
}

func (e *InvalidScheduleError) Unwrap() error { return ErrInvalidSchedule }

// DropReason classifies why the channel refused a transmission.
type DropReason string

const (
	// DropSignal is a probabilistic loss from path loss and contention.
	DropSignal DropReason = "signal"
	// DropHorizon means the grant could not start before the simulation stop time.
	DropHorizon DropReason = "horizon"
	// DropUnreachable means an endpoint disappeared mid-run.
	DropUnreachable DropReason = "unreachable"
)

// TransmissionDroppedError is an expected, non-fatal loss of a packet.
type TransmissionDroppedError struct {
	Sender      NodeID
	Receiver    NodeID
	Seq         uint64
	Reason      DropReason
	SuccessProb float64
}

func (e *TransmissionDroppedError) Error() string {
	return fmt.Sprintf("transmission %d->%d seq=%d dropped (%s, p=%.3f)",
		e.Sender, e.Receiver, e.Seq, e.Reason, e.SuccessProb)
}

func (e *TransmissionDroppedError) Unwrap() error { return ErrTransmissionDropped }

// UnknownAddressError reports a lookup of an address or node that was never registered.
type UnknownAddressError struct {
	Key string
}

func (e *UnknownAddressError) Error() string {
	return fmt.Sprintf("unknown address %s", e.Key)
}

func (e *UnknownAddressError) Unwrap() error { return ErrUnknownAddress }

// InvalidConfigf builds a setup error wrapping ErrInvalidConfig.
func InvalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
