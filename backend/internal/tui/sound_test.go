package tui

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
)

// drain читает поток кусками до конца или до limit кусков
func drain(s beep.Streamer, limit int) (samples int, peak float64) {
	buf := make([][2]float64, 512)
	for i := 0; i < limit; i++ {
		n, ok := s.Stream(buf)
		for _, v := range buf[:n] {
			peak = math.Max(peak, math.Max(math.Abs(v[0]), math.Abs(v[1])))
		}
		samples += n
		if !ok {
			break
		}
	}
	return samples, peak
}

func TestToneLengthAndRange(t *testing.T) {
	rate := beep.SampleRate(48000)
	s := newTone(1000, 10*time.Millisecond, time.Millisecond, 0, rate)

	buf := make([][2]float64, 1000)
	n, ok := s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 480, n)
	assert.Zero(t, buf[0][0], "attack starts from silence")
	for _, v := range buf[:n] {
		assert.LessOrEqual(t, math.Abs(v[0]), 1.0)
		assert.Equal(t, v[0], v[1])
	}

	n, ok = s.Stream(buf)
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.NoError(t, s.Err())
}

func TestToneDecays(t *testing.T) {
	rate := beep.SampleRate(48000)
	s := newTone(440, 200*time.Millisecond, 0, 30, rate)

	buf := make([][2]float64, rate.N(200*time.Millisecond))
	n, _ := s.Stream(buf)

	var early, late float64
	for i := 0; i < n/4; i++ {
		early = math.Max(early, math.Abs(buf[i][0]))
	}
	for i := 3 * n / 4; i < n; i++ {
		late = math.Max(late, math.Abs(buf[i][0]))
	}
	assert.Less(t, late, early/4)
}

func TestCueSounds(t *testing.T) {
	samples, peak := drain(NewClink(sampleRate), 100)
	assert.GreaterOrEqual(t, samples, sampleRate.N(clinkDuration))
	assert.Greater(t, peak, 0.0)
	assert.LessOrEqual(t, peak, masterVolume+1e-9)

	samples, peak = drain(NewChime(sampleRate), 100)
	assert.GreaterOrEqual(t, samples, sampleRate.N(3*chimeNote))
	assert.Greater(t, peak, 0.0)
	assert.LessOrEqual(t, peak, masterVolume+1e-9)
}

func TestSoundManagerWithoutDevice(t *testing.T) {
	sm := NewSoundManager(nil)
	assert.NotPanics(t, func() {
		sm.Clink()
		sm.Chime()
		sm.Close()
	})
}
