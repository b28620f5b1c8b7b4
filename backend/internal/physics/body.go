package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType определяет, как тело участвует в симуляции
type BodyType int

const (
	// Dynamic - тело под действием сил и контактов
	Dynamic BodyType = iota
	// Kinematic - тело движется только заданной скоростью, бесконечная масса
	Kinematic
	// Static - неподвижное тело
	Static
)

// SleepState - состояние сна тела
type SleepState int

const (
	Awake SleepState = iota
	Sleepy
	Sleeping
)

func (s SleepState) String() string {
	switch s {
	case Awake:
		return "awake"
	case Sleepy:
		return "sleepy"
	case Sleeping:
		return "sleeping"
	}
	return "unknown"
}

// BodyOptions - параметры создания тела
type BodyOptions struct {
	Type            BodyType
	Mass            float64
	Shape           Shape
	Material        *Material
	Position        mgl64.Vec3
	Quaternion      mgl64.Quat
	LinearDamping   float64
	AngularDamping  float64
	AllowSleep      bool
	SleepSpeedLimit float64
	SleepTimeLimit  float64
}

// Body - твердое тело
type Body struct {
	ID       uint64
	Type     BodyType
	Shape    Shape
	Material *Material
	Mass     float64

	Position        mgl64.Vec3
	Quaternion      mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	LinearDamping  float64
	AngularDamping float64

	AllowSleep      bool
	SleepSpeedLimit float64
	SleepTimeLimit  float64

	invMass         float64
	invInertiaLocal mgl64.Vec3
	invInertiaWorld mgl64.Mat3
	rot             mgl64.Mat3

	// псевдоскорости коррекции проникновения, живут один шаг
	pushVelocity mgl64.Vec3
	turnVelocity mgl64.Vec3

	sleepState     SleepState
	timeLastSleepy float64
	wakeAfterPhase bool

	aabbMin, aabbMax mgl64.Vec3
	margin           float64
	world            *World
}

// NewBody создает тело и рассчитывает массовые свойства
func NewBody(opts BodyOptions) *Body {
	q := opts.Quaternion
	if q.W == 0 && q.V == (mgl64.Vec3{}) {
		q = mgl64.QuatIdent()
	}
	b := &Body{
		Type:            opts.Type,
		Shape:           opts.Shape,
		Material:        opts.Material,
		Mass:            opts.Mass,
		Position:        opts.Position,
		Quaternion:      q.Normalize(),
		LinearDamping:   opts.LinearDamping,
		AngularDamping:  opts.AngularDamping,
		AllowSleep:      opts.AllowSleep,
		SleepSpeedLimit: opts.SleepSpeedLimit,
		SleepTimeLimit:  opts.SleepTimeLimit,
	}
	b.UpdateMassProperties()
	b.updateAABB()
	return b
}

// UpdateMassProperties пересчитывает обратную массу и инерцию после смены типа или массы
func (b *Body) UpdateMassProperties() {
	if b.Type != Dynamic || b.Mass <= 0 {
		b.invMass = 0
		b.invInertiaLocal = mgl64.Vec3{}
	} else {
		b.invMass = 1 / b.Mass
		inertia := b.Shape.inertia(b.Mass)
		for i := 0; i < 3; i++ {
			if inertia[i] > 0 {
				b.invInertiaLocal[i] = 1 / inertia[i]
			} else {
				b.invInertiaLocal[i] = 0
			}
		}
	}
	b.updateInertiaWorld()
}

// InvMass возвращает обратную массу
func (b *Body) InvMass() float64 {
	return b.invMass
}

// SleepState возвращает текущее состояние сна
func (b *Body) SleepState() SleepState {
	return b.sleepState
}

// IsSleeping возвращает true для спящего тела
func (b *Body) IsSleeping() bool {
	return b.sleepState == Sleeping
}

// WakeUp будит тело
func (b *Body) WakeUp() {
	b.sleepState = Awake
	b.wakeAfterPhase = false
}

// Sleep усыпляет тело и обнуляет скорости
func (b *Body) Sleep() {
	b.sleepState = Sleeping
	b.Velocity = mgl64.Vec3{}
	b.AngularVelocity = mgl64.Vec3{}
	b.wakeAfterPhase = false
}

// Teleport переносит тело без интегрирования и обновляет AABB.
// Тела, лежавшие на нем, просыпаются.
func (b *Body) Teleport(pos mgl64.Vec3, q mgl64.Quat) {
	if b.world != nil {
		b.world.wakeTouching(b)
	}
	b.Position = pos
	b.Quaternion = q.Normalize()
	b.updateInertiaWorld()
	b.updateAABB()
}

// AABB возвращает ограничивающий параллелепипед, расширенный на путь тела за шаг
func (b *Body) AABB() (min, max mgl64.Vec3) {
	return b.aabbMin, b.aabbMax
}

// SpeedSq - квадрат линейной плюс квадрат угловой скорости
func (b *Body) SpeedSq() float64 {
	return b.Velocity.Dot(b.Velocity) + b.AngularVelocity.Dot(b.AngularVelocity)
}

// Corners возвращает вершины бокса в мировых координатах
func (b *Body) Corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	he := b.Shape.HalfExtents
	i := 0
	for _, sx := range [2]float64{-1, 1} {
		for _, sy := range [2]float64{-1, 1} {
			for _, sz := range [2]float64{-1, 1} {
				local := mgl64.Vec3{sx * he[0], sy * he[1], sz * he[2]}
				out[i] = b.Position.Add(b.rot.Mul3x1(local))
				i++
			}
		}
	}
	return out
}

// ToLocal переводит мировую точку в систему тела
func (b *Body) ToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return b.Quaternion.Conjugate().Rotate(p.Sub(b.Position))
}

// effectiveInvMass учитывает сон: спящее тело в решателе неподвижно
func (b *Body) effectiveInvMass() float64 {
	if b.sleepState == Sleeping {
		return 0
	}
	return b.invMass
}

func (b *Body) effectiveInvInertia() mgl64.Mat3 {
	if b.sleepState == Sleeping || b.invMass == 0 {
		return mgl64.Mat3{}
	}
	return b.invInertiaWorld
}

// axis - i-я ось бокса в мировых координатах
func (b *Body) axis(i int) mgl64.Vec3 {
	return b.rot.Col(i)
}

func (b *Body) updateInertiaWorld() {
	r := b.Quaternion.Mat4().Mat3()
	b.rot = r
	b.invInertiaWorld = r.Mul3(mgl64.Diag3(b.invInertiaLocal)).Mul3(r.Transpose())
}

// updateMargin оценивает путь любой точки тела за шаг dt: на него расширяется AABB,
// и в его пределах контакты заводятся заранее
func (b *Body) updateMargin(dt, base float64) {
	b.margin = base
	if b.Type == Static || b.sleepState == Sleeping {
		return
	}
	speed := b.Velocity.Len() + b.AngularVelocity.Len()*b.Shape.HalfExtents.Len()
	b.margin += speed * dt
}

func (b *Body) updateAABB() {
	if b.Shape.Kind == ShapePlane {
		inf := math.Inf(1)
		b.aabbMin = mgl64.Vec3{-inf, -inf, -inf}
		b.aabbMax = mgl64.Vec3{inf, inf, inf}
		return
	}
	r := b.rot
	he := b.Shape.HalfExtents
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		ext[i] = math.Abs(r.At(i, 0))*he[0] + math.Abs(r.At(i, 1))*he[1] + math.Abs(r.At(i, 2))*he[2] + b.margin
	}
	b.aabbMin = b.Position.Sub(ext)
	b.aabbMax = b.Position.Add(ext)
}

// pointVelocity - скорость точки тела со смещением r от центра
func (b *Body) pointVelocity(r mgl64.Vec3) mgl64.Vec3 {
	if b.sleepState == Sleeping {
		return mgl64.Vec3{}
	}
	return b.Velocity.Add(b.AngularVelocity.Cross(r))
}

// sleepTick продвигает автомат сна
func (b *Body) sleepTick(now float64) {
	if !b.AllowSleep || b.Type != Dynamic {
		return
	}
	speedSq := b.SpeedSq()
	limitSq := b.SleepSpeedLimit * b.SleepSpeedLimit
	switch {
	case b.sleepState == Awake && speedSq < limitSq:
		b.sleepState = Sleepy
		b.timeLastSleepy = now
	case b.sleepState == Sleepy && speedSq > limitSq:
		b.WakeUp()
	case b.sleepState == Sleepy && now-b.timeLastSleepy > b.SleepTimeLimit:
		b.Sleep()
	}
}

// integrate двигает тело скоростью плюс псевдоскоростью коррекции;
// псевдоскорость в Velocity не попадает и сбрасывается
func (b *Body) integrate(dt float64) {
	push, turn := b.pushVelocity, b.turnVelocity
	b.pushVelocity, b.turnVelocity = mgl64.Vec3{}, mgl64.Vec3{}
	if b.Type == Static || b.sleepState == Sleeping {
		return
	}
	b.Position = b.Position.Add(b.Velocity.Add(push).Mul(dt))

	w := b.AngularVelocity.Add(turn)
	if w.Dot(w) > 0 {
		spin := mgl64.Quat{W: 0, V: w}.Mul(b.Quaternion).Scale(0.5 * dt)
		b.Quaternion = b.Quaternion.Add(spin).Normalize()
	}
	b.updateInertiaWorld()
}

func (b *Body) applyDamping(dt float64) {
	if b.Type != Dynamic || b.sleepState == Sleeping {
		return
	}
	b.Velocity = b.Velocity.Mul(math.Pow(1-b.LinearDamping, dt))
	b.AngularVelocity = b.AngularVelocity.Mul(math.Pow(1-b.AngularDamping, dt))
}
