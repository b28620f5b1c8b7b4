package ws

import (
	"math/rand/v2"
	"strings"
	"time"
)

// NetworkSimulation - имитация сетевых условий на стороне записи сессии.
// Теряться могут только пакеты трансформов, остальные сообщения лишь задерживаются.
type NetworkSimulation struct {
	Enabled         bool          // Включена ли имитация
	BaseLatency     time.Duration // Базовая задержка
	LatencyVariance time.Duration // Вариация задержки (jitter)
	PacketLoss      float64       // Доля потерянных пакетов трансформов (0.0 - 1.0)
}

// NetworkProfile возвращает предустановленный профиль по имени.
// Пустое имя и "off" выключают имитацию.
func NetworkProfile(name string) (NetworkSimulation, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "off", "none":
		return NetworkSimulation{}, true
	case "mobile_3g":
		return NetworkSimulation{Enabled: true, BaseLatency: 100 * time.Millisecond, LatencyVariance: 50 * time.Millisecond, PacketLoss: 0.02}, true
	case "mobile_4g":
		return NetworkSimulation{Enabled: true, BaseLatency: 50 * time.Millisecond, LatencyVariance: 20 * time.Millisecond, PacketLoss: 0.01}, true
	case "wifi_poor":
		return NetworkSimulation{Enabled: true, BaseLatency: 80 * time.Millisecond, LatencyVariance: 40 * time.Millisecond, PacketLoss: 0.03}, true
	case "wifi_good":
		return NetworkSimulation{Enabled: true, BaseLatency: 20 * time.Millisecond, LatencyVariance: 10 * time.Millisecond, PacketLoss: 0.005}, true
	case "high_latency":
		return NetworkSimulation{Enabled: true, BaseLatency: 200 * time.Millisecond, LatencyVariance: 100 * time.Millisecond, PacketLoss: 0.05}, true
	case "unstable":
		return NetworkSimulation{Enabled: true, BaseLatency: 60 * time.Millisecond, LatencyVariance: 80 * time.Millisecond, PacketLoss: 0.04}, true
	}
	return NetworkSimulation{}, false
}

// netSim - состояние имитации одной сессии, используется только writeLoop.
// Каждое сообщение получает момент доставки при поступлении: задержки сообщений
// перекрываются, а не складываются, и порядок сохраняется.
type netSim struct {
	cfg     NetworkSimulation
	rng     *rand.Rand
	last    time.Time
	pending []delivery
}

// delivery - сообщение и момент, раньше которого его нельзя записать
type delivery struct {
	msg interface{}
	at  time.Time
}

func newNetSim(cfg NetworkSimulation, seed uint64) *netSim {
	if !cfg.Enabled {
		return nil
	}
	if cfg.PacketLoss < 0 {
		cfg.PacketLoss = 0
	}
	return &netSim{cfg: cfg, rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// lose решает, теряется ли сообщение
func (n *netSim) lose(msg interface{}) bool {
	if n == nil || n.cfg.PacketLoss <= 0 {
		return false
	}
	if _, ok := msg.(*UpdateMessage); !ok {
		return false
	}
	return n.rng.Float64() < n.cfg.PacketLoss
}

// admit планирует сообщение, поступившее в now; false - сообщение потеряно
func (n *netSim) admit(msg interface{}, now time.Time) bool {
	if n.lose(msg) {
		return false
	}
	at := now.Add(n.delay())
	if at.Before(n.last) {
		at = n.last
	}
	n.last = at
	n.pending = append(n.pending, delivery{msg: msg, at: at})
	return true
}

// next - момент ближайшей доставки
func (n *netSim) next() (time.Time, bool) {
	if n == nil || len(n.pending) == 0 {
		return time.Time{}, false
	}
	return n.pending[0].at, true
}

// release передает send созревшие к now сообщения по порядку.
// false от send прерывает выдачу и возвращается наружу.
func (n *netSim) release(now time.Time, send func(msg interface{}) bool) bool {
	if n == nil {
		return true
	}
	k := 0
	ok := true
	for ; k < len(n.pending) && !n.pending[k].at.After(now); k++ {
		if ok = send(n.pending[k].msg); !ok {
			k++
			break
		}
	}
	rest := copy(n.pending, n.pending[k:])
	clear(n.pending[rest:])
	n.pending = n.pending[:rest]
	return ok
}

// delay - задержка перед записью, не отрицательная
func (n *netSim) delay() time.Duration {
	if n == nil {
		return 0
	}
	d := n.cfg.BaseLatency
	if n.cfg.LatencyVariance > 0 {
		jitter := time.Duration(n.rng.Float64() * float64(n.cfg.LatencyVariance))
		if n.rng.IntN(2) == 0 {
			jitter = -jitter
		}
		d += jitter
	}
	return max(d, 0)
}
