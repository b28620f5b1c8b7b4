package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkProfiles(t *testing.T) {
	sim, ok := NetworkProfile("")
	require.True(t, ok)
	assert.False(t, sim.Enabled)

	sim, ok = NetworkProfile(" Mobile_3G ")
	require.True(t, ok)
	assert.True(t, sim.Enabled)
	assert.Equal(t, 100*time.Millisecond, sim.BaseLatency)

	_, ok = NetworkProfile("dialup")
	assert.False(t, ok)
}

func TestNetSimDisabledIsNil(t *testing.T) {
	n := newNetSim(NetworkSimulation{}, 1)
	assert.Nil(t, n)
	assert.False(t, n.lose(&UpdateMessage{}))
	assert.Zero(t, n.delay())
}

func TestNetSimLosesOnlyUpdates(t *testing.T) {
	n := newNetSim(NetworkSimulation{Enabled: true, PacketLoss: 1}, 7)

	assert.True(t, n.lose(&UpdateMessage{}))
	assert.False(t, n.lose(NewInfoMessage("s", "hello")))
	assert.False(t, n.lose(&RemoveMessage{}))
}

func TestNetSimDelayWithinJitter(t *testing.T) {
	n := newNetSim(NetworkSimulation{Enabled: true, BaseLatency: 20 * time.Millisecond, LatencyVariance: 50 * time.Millisecond}, 3)

	for i := 0; i < 200; i++ {
		d := n.delay()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 70*time.Millisecond)
	}
}

func TestNetSimOverlapsDelaysAndKeepsOrder(t *testing.T) {
	n := newNetSim(NetworkSimulation{Enabled: true, BaseLatency: 100 * time.Millisecond, LatencyVariance: 50 * time.Millisecond}, 5)
	start := time.Unix(1000, 0)

	// 200 сообщений за 200 мс: при последовательных задержках ушло бы 20 секунд
	for i := 0; i < 200; i++ {
		require.True(t, n.admit(i, start.Add(time.Duration(i)*time.Millisecond)))
	}

	at, ok := n.next()
	require.True(t, ok)
	assert.False(t, at.Before(start.Add(50*time.Millisecond)))

	var got []int
	collect := func(msg interface{}) bool {
		got = append(got, msg.(int))
		return true
	}
	require.True(t, n.release(start.Add(40*time.Millisecond), collect))
	assert.Empty(t, got, "nothing is due before the minimum latency")

	require.True(t, n.release(start.Add(350*time.Millisecond), collect))
	require.Len(t, got, 200)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	_, ok = n.next()
	assert.False(t, ok)
}

func TestNetSimReleaseStopsOnWriteFailure(t *testing.T) {
	n := newNetSim(NetworkSimulation{Enabled: true, BaseLatency: time.Millisecond}, 9)
	now := time.Unix(2000, 0)
	for i := 0; i < 3; i++ {
		require.True(t, n.admit(i, now))
	}

	calls := 0
	ok := n.release(now.Add(time.Second), func(interface{}) bool {
		calls++
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, 1, calls)

	at, pending := n.next()
	require.True(t, pending, "unsent messages stay scheduled")
	assert.Equal(t, now.Add(time.Millisecond), at)
}

func TestDeliverClosesSessionOnFullQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &Session{send: make(chan interface{}, 1), ctx: ctx, cancel: cancel, log: quietLogger()}

	assert.True(t, s.offer(&UpdateMessage{}))
	assert.False(t, s.offer(&UpdateMessage{}), "updates are dropped, never awaited")
	assert.Equal(t, uint64(1), s.droppedUpdates.Load())

	done := make(chan bool, 1)
	go func() { done <- s.deliver(NewRemoveMessage("p1")) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("deliver blocked on a full queue")
	}
	assert.Error(t, ctx.Err(), "overflow closes the session")
}
