package game

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"cashpile/backend/internal/money"
)

// SpawnProfile - параметры сброса фигур на стол
type SpawnProfile struct {
	Interval   float64 // секунды между фигурами
	DropHeight float64
	HeightJit  float64
	DropRadius float64
	RadiusBias float64 // r = U^bias · DropRadius
	EdgeMargin float64

	BillDrift float64
	CoinDrift float64

	BillTiltX, BillTiltZ float64
	CoinTiltX, CoinTiltZ float64

	BillLateral, CoinLateral float64
	FallBase, FallJitter     float64

	BillSpin mgl64.Vec3
	CoinSpin mgl64.Vec3
}

// DefaultSpawnProfile - параметры по умолчанию
func DefaultSpawnProfile() SpawnProfile {
	return SpawnProfile{
		Interval:    0.04,
		DropHeight:  4.25,
		HeightJit:   1.1,
		DropRadius:  1.45,
		RadiusBias:  1.7,
		EdgeMargin:  0.04,
		BillDrift:   0.55,
		CoinDrift:   0.38,
		BillTiltX:   0.22,
		BillTiltZ:   0.2,
		CoinTiltX:   0.5,
		CoinTiltZ:   0.5,
		BillLateral: 0.55,
		CoinLateral: 0.35,
		FallBase:    0.2,
		FallJitter:  0.3,
		BillSpin:    mgl64.Vec3{1.1, 0.9, 1.1},
		CoinSpin:    mgl64.Vec3{2.6, 2.2, 2.6},
	}
}

// SpawnScheduler держит очередь сброса и аккумулятор интервала
type SpawnScheduler struct {
	interval float64
	acc      float64
	queue    []money.QueueEntry
}

// NewSpawnScheduler создает планировщик с интервалом между фигурами
func NewSpawnScheduler(interval float64) *SpawnScheduler {
	return &SpawnScheduler{interval: interval}
}

// Load заменяет очередь и сбрасывает аккумулятор
func (s *SpawnScheduler) Load(queue []money.QueueEntry) {
	s.queue = append(s.queue[:0], queue...)
	s.acc = 0
}

// Clear опустошает очередь
func (s *SpawnScheduler) Clear() {
	s.queue = s.queue[:0]
	s.acc = 0
}

// Len - оставшиеся записи
func (s *SpawnScheduler) Len() int {
	return len(s.queue)
}

// Value - представленная стоимость оставшихся записей
func (s *SpawnScheduler) Value() int64 {
	var sum int64
	for _, e := range s.queue {
		sum += e.RepresentedValue
	}
	return sum
}

// Next вызывается раз в кадр: если интервал накоплен, выдает одну запись,
// иначе добавляет дельту кадра к аккумулятору
func (s *SpawnScheduler) Next(dt float64) (money.QueueEntry, bool) {
	if len(s.queue) == 0 {
		return money.QueueEntry{}, false
	}
	if s.acc >= s.interval {
		entry := s.queue[0]
		s.queue = s.queue[1:]
		s.acc = 0
		return entry, true
	}
	s.acc += dt
	return money.QueueEntry{}, false
}

// spawnState - начальное состояние тела новой фигуры
type spawnState struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// dropTarget выбирает точку сброса со смещением к центру
func (p SpawnProfile) dropTarget(rng *rand.Rand, kind money.Kind) (float64, float64) {
	r := math.Pow(rng.Float64(), p.RadiusBias) * p.DropRadius
	theta := rng.Float64() * 2 * math.Pi
	drift := p.CoinDrift
	if kind == money.KindBill {
		drift = p.BillDrift
	}
	x := r*math.Cos(theta) + (rng.Float64()-0.5)*drift
	z := r*math.Sin(theta) + (rng.Float64()-0.5)*drift
	return x, z
}

// sample строит состояние сброса; clamp ограничивает точку ареной
func (p SpawnProfile) sample(rng *rand.Rand, kind money.Kind, clamp func(x, z, margin float64) (float64, float64)) spawnState {
	x, z := p.dropTarget(rng, kind)
	x, z = clamp(x, z, p.EdgeMargin)
	y := p.DropHeight + rng.Float64()*p.HeightJit

	lateral := p.CoinLateral
	if kind == money.KindBill {
		lateral = p.BillLateral
	}
	rot := p.tilt(rng, kind)

	return spawnState{
		Position: mgl64.Vec3{x, y, z},
		Rotation: rot,
		Velocity: mgl64.Vec3{
			(rng.Float64() - 0.5) * lateral,
			-(p.FallBase + rng.Float64()*p.FallJitter),
			(rng.Float64() - 0.5) * lateral,
		},
		AngularVelocity: p.spin(rng, kind),
	}
}

// tilt - случайный поворот по рысканью с небольшим наклоном
func (p SpawnProfile) tilt(rng *rand.Rand, kind money.Kind) mgl64.Quat {
	tiltX, tiltZ := p.CoinTiltX, p.CoinTiltZ
	if kind == money.KindBill {
		tiltX, tiltZ = p.BillTiltX, p.BillTiltZ
	}
	return mgl64.AnglesToQuat(
		(rng.Float64()-0.5)*tiltX,
		rng.Float64()*2*math.Pi,
		(rng.Float64()-0.5)*tiltZ,
		mgl64.XYZ,
	)
}

// spin - случайная угловая скорость в пределах профиля
func (p SpawnProfile) spin(rng *rand.Rand, kind money.Kind) mgl64.Vec3 {
	spin := p.CoinSpin
	if kind == money.KindBill {
		spin = p.BillSpin
	}
	return mgl64.Vec3{
		(rng.Float64() - 0.5) * spin[0],
		(rng.Float64() - 0.5) * spin[1],
		(rng.Float64() - 0.5) * spin[2],
	}
}
