package game

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSystem записывает порядок вызовов и полученные дельты
type stubSystem struct {
	name     string
	priority int
	calls    *[]string
	deltas   []time.Duration
	err      error
	panicMsg string
}

func (s *stubSystem) Update(deltaTime time.Duration) error {
	*s.calls = append(*s.calls, s.name)
	s.deltas = append(s.deltas, deltaTime)
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.err
}

func (s *stubSystem) GetName() string  { return s.name }
func (s *stubSystem) GetPriority() int { return s.priority }

func TestTickerRunsSystemsByPriority(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	var calls []string
	gt.RegisterSystem(&stubSystem{name: "settle", priority: 60, calls: &calls})
	gt.RegisterSystem(&stubSystem{name: "spawn", priority: 10, calls: &calls})
	gt.RegisterSystem(&stubSystem{name: "physics", priority: 30, calls: &calls})

	require.NoError(t, gt.Tick(frame))
	assert.Equal(t, []string{"spawn", "physics", "settle"}, calls)
	assert.Equal(t, uint64(1), gt.GetTickCount())
}

func TestTickerClampsDelta(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	var calls []string
	s := &stubSystem{name: "s", calls: &calls}
	gt.RegisterSystem(s)

	require.NoError(t, gt.Tick(time.Second))
	require.NoError(t, gt.Tick(-time.Second))
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 0}, s.deltas)
}

func TestTickerRunsQueuedCommandsBeforeSystems(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	var calls []string
	gt.RegisterSystem(&stubSystem{name: "system", calls: &calls})

	require.True(t, gt.Enqueue(func() { calls = append(calls, "command") }))
	require.NoError(t, gt.Tick(frame))
	assert.Equal(t, []string{"command", "system"}, calls)
}

func TestTickerNonFatalErrorKeepsRunning(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	var calls []string
	gt.RegisterSystem(&stubSystem{name: "flaky", calls: &calls, err: errors.New("transient")})
	gt.RegisterSystem(&stubSystem{name: "next", priority: 1, calls: &calls})

	require.NoError(t, gt.Tick(frame))
	require.NoError(t, gt.Tick(frame))
	assert.Equal(t, []string{"flaky", "next", "flaky", "next"}, calls)

	m, ok := gt.Monitor().Metrics("flaky")
	require.True(t, ok)
	assert.Equal(t, uint64(2), m.Errors)
	assert.Equal(t, uint64(2), m.TotalExecutions)
}

func TestTickerFatalErrorStopsLoop(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	var calls []string
	gt.RegisterSystem(&stubSystem{name: "physics", calls: &calls, err: fmt.Errorf("%w: boom", ErrFatal)})
	gt.RegisterSystem(&stubSystem{name: "after", priority: 1, calls: &calls})

	var reported error
	gt.OnFatal(func(err error) { reported = err })

	err := gt.Tick(frame)
	require.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, reported, ErrFatal)
	assert.ErrorIs(t, gt.Err(), ErrFatal)
	assert.Equal(t, []string{"physics"}, calls, "systems after a fatal error do not run")

	assert.ErrorIs(t, gt.Tick(frame), ErrFatal)
	assert.Len(t, calls, 1)
	assert.False(t, gt.Enqueue(func() {}))
}

func TestTickerPanicBecomesFatal(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	var calls []string
	gt.RegisterSystem(&stubSystem{name: "bad", calls: &calls, panicMsg: "nil body"})

	err := gt.Tick(frame)
	require.ErrorIs(t, err, ErrFatal)
	assert.Contains(t, err.Error(), "nil body")
}

func TestTickerCommandPanicIsContained(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	gt.Enqueue(func() { panic("bad command") })
	assert.NoError(t, gt.Tick(frame))
}

func TestTickerStartStop(t *testing.T) {
	gt := NewGameTicker(200, 50*time.Millisecond, quietLogger())
	var frames atomic.Int64
	gt.OnFrame(func(time.Duration) { frames.Add(1) })

	require.NoError(t, gt.Start())
	ran := make(chan struct{})
	require.True(t, gt.Enqueue(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("command was not executed")
	}
	assert.Eventually(t, func() bool { return frames.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	gt.Stop()
	gt.Stop()
	select {
	case <-gt.Done():
	default:
		t.Fatal("loop did not exit")
	}
	assert.Error(t, gt.Start())
}

func TestTickerQueueOverflow(t *testing.T) {
	gt := NewGameTicker(60, 50*time.Millisecond, quietLogger())
	for i := 0; i < commandQueueSize; i++ {
		require.True(t, gt.Enqueue(func() {}))
	}
	assert.False(t, gt.Enqueue(func() {}))
	assert.Equal(t, uint64(1), gt.GetStats()["dropped_commands"])
}
