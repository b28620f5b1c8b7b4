package tui

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/sirupsen/logrus"
)

const sampleRate = beep.SampleRate(48000)

// Параметры звуков
const (
	clinkDuration = 90 * time.Millisecond
	clinkAttack   = 2 * time.Millisecond
	chimeNote     = 110 * time.Millisecond
	chimeAttack   = 4 * time.Millisecond
	masterVolume  = 0.35
)

// Sound - звуковые подсказки терминала
type Sound interface {
	Clink()
	Chime()
}

// tone - синусоида с экспоненциальным затуханием, как у удара металла
type tone struct {
	freq     float64
	decay    float64 // 1/с
	phase    float64
	position int
	attack   int
	total    int
	rate     beep.SampleRate
}

func newTone(freq float64, duration, attack time.Duration, decay float64, rate beep.SampleRate) beep.Streamer {
	return &tone{
		freq:   freq,
		decay:  decay,
		attack: rate.N(attack),
		total:  rate.N(duration),
		rate:   rate,
	}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if t.position >= t.total {
			return i, i > 0
		}

		gain := math.Exp(-t.decay * float64(t.position) / float64(t.rate))
		if t.position < t.attack {
			gain *= float64(t.position) / float64(t.attack)
		}
		val := gain * math.Sin(2*math.Pi*t.phase)
		samples[i][0] = val
		samples[i][1] = val

		t.phase += t.freq / float64(t.rate)
		t.phase -= math.Floor(t.phase)
		t.position++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

func volume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// NewClink - короткий звон монеты о лоток: основной тон и негармонический обертон
func NewClink(rate beep.SampleRate) beep.Streamer {
	body := newTone(2637, clinkDuration, clinkAttack, 38, rate)
	ring := newTone(4186*1.07, clinkDuration, clinkAttack, 55, rate)
	return volume(beep.Mix(volume(body, 0.65), volume(ring, 0.35)), masterVolume)
}

// NewChime - две восходящие ноты при оплате
func NewChime(rate beep.SampleRate) beep.Streamer {
	first := newTone(987.77, chimeNote, chimeAttack, 14, rate)
	second := newTone(1318.51, 2*chimeNote, chimeAttack, 10, rate)
	return volume(beep.Seq(first, second), masterVolume)
}

// SoundManager проигрывает подсказки через общий микшер динамика.
// Без инициализированного устройства вызовы ничего не делают.
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	log         logrus.FieldLogger
}

// NewSoundManager создает менеджер; устройство открывается в Initialize
func NewSoundManager(log logrus.FieldLogger) *SoundManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SoundManager{mixer: &beep.Mixer{}, log: log}
}

// Initialize открывает устройство вывода
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	sm.log.Debug("[Sound] Аудио инициализировано")
	return nil
}

// Clink - фигура попала в лоток или покинула его
func (sm *SoundManager) Clink() {
	sm.play(NewClink(sampleRate))
}

// Chime - оплата
func (sm *SoundManager) Chime() {
	sm.play(NewChime(sampleRate))
}

func (sm *SoundManager) play(s beep.Streamer) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Add(s)
	speaker.Unlock()
}

// Close останавливает звуки и закрывает устройство
func (sm *SoundManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	sm.initialized = false
}
