package sim

import (
	"fmt"
	"math"
)

// SimTime is a simulated timestamp in nanoseconds since epoch 0.
// It is unrelated to wall-clock time.
type SimTime int64

// Common SimTime units.
const (
	Nanosecond  SimTime = 1
	Microsecond         = 1000 * Nanosecond
	Millisecond         = 1000 * Microsecond
	Second              = 1000 * Millisecond
)

// Seconds converts a duration in seconds into SimTime, rounded to the nearest nanosecond.
func Seconds(s float64) SimTime {
	return SimTime(math.Round(s * float64(Second)))
}

// Seconds returns t as a floating-point number of seconds.
func (t SimTime) Seconds() float64 {
	return float64(t) / float64(Second)
}

// String renders t as seconds with nanosecond precision, e.g. "2.500000000s".
func (t SimTime) String() string {
	return fmt.Sprintf("%.9fs", t.Seconds())
}
