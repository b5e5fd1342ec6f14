package sim

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustSchedule fails the test if Schedule returns an error.
func mustSchedule(t *testing.T, s *Simulator, at SimTime, owner ComponentID, action Action) EventID {
	t.Helper()
	id, err := s.Schedule(at, owner, action)
	require.NoError(t, err)
	return id
}

func TestSimulator_Run_TimestampOrdering(t *testing.T) {
	// GIVEN events scheduled out of order
	s := NewSimulator(nil)
	var got []SimTime
	record := func(now SimTime) { got = append(got, now) }
	mustSchedule(t, s, 100, "test", record)
	mustSchedule(t, s, 50, "test", record)
	mustSchedule(t, s, 150, "test", record)

	// WHEN the simulator runs to completion
	require.NoError(t, s.Run(1000))

	// THEN events executed in timestamp order
	assert.Equal(t, []SimTime{50, 100, 150}, got)
	assert.Equal(t, SimTime(150), s.Now())
	assert.Equal(t, 0, s.Pending())
}

func TestSimulator_Run_EqualTimesFIFO(t *testing.T) {
	// GIVEN several events at the same time
	s := NewSimulator(nil)
	var order []string
	for _, name := range []string{"a", "b", "c", "d"} {
		name := name
		mustSchedule(t, s, 10, ComponentID(name), func(SimTime) { order = append(order, name) })
	}

	// WHEN run
	require.NoError(t, s.Run(10))

	// THEN they execute in insertion order
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestSimulator_Run_RandomScheduleIsNonDecreasingAndStable(t *testing.T) {
	// Property: for any schedule, execution is ordered by (time, insertion).
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed))
		s := NewSimulator(nil)
		type stamp struct {
			at  SimTime
			ins int
		}
		var got []stamp
		for i := 0; i < 200; i++ {
			at := SimTime(rng.IntN(50))
			ins := i
			mustSchedule(t, s, at, "prop", func(now SimTime) { got = append(got, stamp{now, ins}) })
		}
		require.NoError(t, s.Run(1000))
		require.Len(t, got, 200)
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			if cur.at < prev.at || (cur.at == prev.at && cur.ins < prev.ins) {
				t.Fatalf("seed %d: event %d (t=%d ins=%d) ran after (t=%d ins=%d)", seed, i, cur.at, cur.ins, prev.at, prev.ins)
			}
		}
	}
}

func TestSimulator_Run_CausalChain(t *testing.T) {
	// GIVEN a send action that schedules its own receive
	s := NewSimulator(nil)
	var receivedAt SimTime = -1
	mustSchedule(t, s, Seconds(1), "send", func(now SimTime) {
		_, err := s.ScheduleAfter(Seconds(0.25), "recv", func(now SimTime) { receivedAt = now })
		require.NoError(t, err)
	})

	// WHEN run
	require.NoError(t, s.Run(Seconds(10)))

	// THEN the receive ran at send time plus delay
	assert.Equal(t, Seconds(1.25), receivedAt)
}

func TestSimulator_Run_StopsBeyondStopTime(t *testing.T) {
	// GIVEN events before, at, and after the stop time
	s := NewSimulator(nil)
	var ran []SimTime
	record := func(now SimTime) { ran = append(ran, now) }
	mustSchedule(t, s, 10, "t", record)
	mustSchedule(t, s, 20, "t", record)
	mustSchedule(t, s, 21, "t", record)
	mustSchedule(t, s, 30, "t", record)

	// WHEN run with stop=20
	require.NoError(t, s.Run(20))

	// THEN the event at the stop time runs, the first one beyond it is discarded,
	// and later events stay pending
	assert.Equal(t, []SimTime{10, 20}, ran)
	assert.Equal(t, SimTime(20), s.Now())
	assert.Equal(t, 1, s.Pending())
}

func TestSimulator_Schedule_PastAfterRunBegan_FailsWithoutMutation(t *testing.T) {
	// GIVEN a running simulation at t=100 with one future event pending
	s := NewSimulator(nil)
	var schedErr error
	var pendingBefore, pendingAfter int
	mustSchedule(t, s, 500, "later", func(SimTime) {})
	mustSchedule(t, s, 100, "checker", func(now SimTime) {
		pendingBefore = s.Pending()
		_, schedErr = s.Schedule(now-1, "checker", func(SimTime) {})
		pendingAfter = s.Pending()
	})

	// WHEN the checker tries to schedule into the past
	require.NoError(t, s.Run(1000))

	// THEN it fails with a scheduling violation and the queue is untouched
	require.Error(t, schedErr)
	assert.True(t, errors.Is(schedErr, ErrInvalidSchedule))
	var ise *InvalidScheduleError
	require.True(t, errors.As(schedErr, &ise))
	assert.Equal(t, SimTime(99), ise.At)
	assert.Equal(t, SimTime(100), ise.Now)
	assert.Equal(t, pendingBefore, pendingAfter)
}

func TestSimulator_Schedule_AtTimeZeroDuringSetup(t *testing.T) {
	s := NewSimulator(nil)
	_, err := s.Schedule(0, "setup", func(SimTime) {})
	assert.NoError(t, err)

	_, err = s.Schedule(-1, "setup", func(SimTime) {})
	assert.ErrorIs(t, err, ErrInvalidSchedule)
	assert.Equal(t, 1, s.Pending())
}

func TestSimulator_Schedule_NilActionRejected(t *testing.T) {
	s := NewSimulator(nil)
	_, err := s.Schedule(1, "setup", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, s.Pending())
}

func TestSimulator_Cancel_WithdrawsPendingEvent(t *testing.T) {
	// GIVEN two events, one of which is cancelled before it fires
	s := NewSimulator(MustNewMetrics())
	var ran []string
	keep := mustSchedule(t, s, 10, "keep", func(SimTime) { ran = append(ran, "keep") })
	drop := mustSchedule(t, s, 5, "drop", func(SimTime) { ran = append(ran, "drop") })

	// WHEN cancelled
	assert.True(t, s.Cancel(drop))
	assert.False(t, s.Cancel(drop), "second cancel must report not pending")

	require.NoError(t, s.Run(100))

	// THEN only the kept event ran, and a fired event cannot be cancelled
	assert.Equal(t, []string{"keep"}, ran)
	assert.False(t, s.Cancel(keep))
	assert.Equal(t, 1.0, s.Metrics.Total(MetricEventsCancelled))
	assert.Equal(t, 1.0, s.Metrics.Total(MetricEventsExecuted))
}

func TestSimulator_Cancel_FromInsideAction(t *testing.T) {
	s := NewSimulator(nil)
	fired := false
	victim := mustSchedule(t, s, 20, "victim", func(SimTime) { fired = true })
	mustSchedule(t, s, 10, "killer", func(SimTime) { s.Cancel(victim) })

	require.NoError(t, s.Run(100))
	assert.False(t, fired)
}

func TestSimulator_Cancel_UnknownID(t *testing.T) {
	s := NewSimulator(nil)
	assert.False(t, s.Cancel(EventID(42)))
}

func TestSimulator_Destroy_ReleasesWithoutExecuting(t *testing.T) {
	s := NewSimulator(nil)
	fired := 0
	for i := 0; i < 5; i++ {
		mustSchedule(t, s, SimTime(i), "x", func(SimTime) { fired++ })
	}

	s.Destroy()

	assert.Equal(t, 0, s.Pending())
	assert.Error(t, s.Run(100))
	assert.Equal(t, 0, fired)
	_, err := s.Schedule(1, "x", func(SimTime) {})
	assert.Error(t, err)
}

func TestSimulator_Run_ReentrantCallFails(t *testing.T) {
	s := NewSimulator(nil)
	var inner error
	mustSchedule(t, s, 1, "x", func(SimTime) { inner = s.Run(10) })
	require.NoError(t, s.Run(10))
	assert.Error(t, inner)
}

func TestSimulator_NextTime(t *testing.T) {
	s := NewSimulator(nil)
	_, ok := s.NextTime()
	assert.False(t, ok)

	mustSchedule(t, s, 7, "x", func(SimTime) {})
	mustSchedule(t, s, 3, "x", func(SimTime) {})
	next, ok := s.NextTime()
	assert.True(t, ok)
	assert.Equal(t, SimTime(3), next)
}

func TestSimTime_SecondsRoundTrip(t *testing.T) {
	assert.Equal(t, 2*Second+500*Millisecond, Seconds(2.5))
	assert.InDelta(t, 2.5, Seconds(2.5).Seconds(), 1e-12)
	assert.Equal(t, "0.500000000s", Seconds(0.5).String())
}
