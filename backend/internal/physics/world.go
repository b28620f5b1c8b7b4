package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// World - физический мир стола
type World struct {
	Gravity    mgl64.Vec3
	AllowSleep bool
	Solver     SolverConfig

	cfg        *Config
	bodies     []*Body
	planes     []*Body
	broadphase SAPBroadphase
	materials  contactMaterials

	accumulator float64
	time        float64
	steps       uint64
	nextID      uint64

	preStep  []func(dt float64)
	contacts []contact
	cache    contactCache

	lastIterations int
}

// NewWorld создает мир по конфигурации (nil - глобальная конфигурация)
func NewWorld(cfg *Config) *World {
	if cfg == nil {
		cfg = GetConfig()
	}
	return &World{
		Gravity:    mgl64.Vec3{0, cfg.Gravity, 0},
		AllowSleep: cfg.AllowSleep,
		Solver: SolverConfig{
			Iterations:         cfg.SolverIterations,
			PositionIterations: cfg.PositionIterations,
			Tolerance:          cfg.SolverTolerance,
		},
		cfg:       cfg,
		materials: make(contactMaterials),
		cache:     contactCache{index: make(map[pairKey][2]int)},
	}
}

// AddBody добавляет тело и присваивает ему ID
func (w *World) AddBody(b *Body) {
	if b.world == w {
		return
	}
	w.nextID++
	b.ID = w.nextID
	b.world = w
	b.updateMargin(w.cfg.FixedTimeStep, w.cfg.ContactMargin)
	b.updateAABB()
	if b.Shape.Kind == ShapePlane {
		w.planes = append(w.planes, b)
		return
	}
	w.bodies = append(w.bodies, b)
	w.broadphase.add(b)
}

// RemoveBody удаляет тело и будит лежавших на нем; повторный вызов ничего не делает
func (w *World) RemoveBody(b *Body) {
	if b == nil || b.world != w {
		return
	}
	w.wakeTouching(b)
	b.world = nil
	if b.Shape.Kind == ShapePlane {
		w.planes = removeBody(w.planes, b)
		return
	}
	w.bodies = removeBody(w.bodies, b)
	w.broadphase.remove(b)
}

// wakeTouching будит спящие тела, чьи AABB пересекают AABB b:
// без опоры они иначе так и висели бы в воздухе
func (w *World) wakeTouching(b *Body) {
	if b.Shape.Kind == ShapePlane {
		return
	}
	bMin, bMax := b.AABB()
	for _, other := range w.bodies {
		if other == b || other.sleepState != Sleeping {
			continue
		}
		oMin, oMax := other.AABB()
		if oMin[0] > bMax[0] || bMin[0] > oMax[0] || oMin[1] > bMax[1] || bMin[1] > oMax[1] || oMin[2] > bMax[2] || bMin[2] > oMax[2] {
			continue
		}
		other.WakeUp()
	}
}

func removeBody(list []*Body, b *Body) []*Body {
	for i, other := range list {
		if other == b {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Contains возвращает true, если тело в этом мире
func (w *World) Contains(b *Body) bool {
	return b != nil && b.world == w
}

// Bodies возвращает копию списка тел (без плоскостей)
func (w *World) Bodies() []*Body {
	out := make([]*Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

// AddContactMaterial регистрирует материал контакта
func (w *World) AddContactMaterial(cm ContactMaterial) {
	w.materials.add(cm)
}

// OnPreStep добавляет хук перед каждым внутренним шагом
func (w *World) OnPreStep(fn func(dt float64)) {
	w.preStep = append(w.preStep, fn)
}

// Time - симулированное время, секунды
func (w *World) Time() float64 {
	return w.time
}

// StepCount - количество выполненных внутренних шагов
func (w *World) StepCount() uint64 {
	return w.steps
}

// LastIterations - итерации решателя на последнем шаге
func (w *World) LastIterations() int {
	return w.lastIterations
}

// Step продвигает мир на timeSinceLast секунд фиксированными шагами fixedDt,
// не более maxSubSteps за вызов. Остаток копится до следующего вызова.
func (w *World) Step(fixedDt, timeSinceLast float64, maxSubSteps int) int {
	if fixedDt <= 0 || maxSubSteps <= 0 {
		return 0
	}
	if timeSinceLast > 0 && !math.IsInf(timeSinceLast, 0) {
		w.accumulator += timeSinceLast
	}

	n := 0
	for w.accumulator >= fixedDt && n < maxSubSteps {
		w.internalStep(fixedDt)
		w.accumulator -= fixedDt
		n++
	}
	// отставание больше предела отбрасываем, иначе оно будет расти каждый кадр
	if n == maxSubSteps && w.accumulator >= fixedDt {
		w.accumulator = math.Mod(w.accumulator, fixedDt)
	}
	return n
}

func (w *World) internalStep(dt float64) {
	for _, fn := range w.preStep {
		fn(dt)
	}

	for _, b := range w.bodies {
		if b.sleepState == Sleeping {
			b.Velocity = mgl64.Vec3{}
			b.AngularVelocity = mgl64.Vec3{}
			continue
		}
		if b.Type == Static {
			continue
		}
		if b.Type == Dynamic {
			b.Velocity = b.Velocity.Add(w.Gravity.Mul(dt))
		}
		b.updateMargin(dt, w.cfg.ContactMargin)
		b.updateAABB()
	}

	w.contacts = w.narrowphase(w.contacts[:0])
	w.cache.load(w.contacts)

	for i := range w.contacts {
		c := &w.contacts[i]
		if !c.reached(dt) {
			continue
		}
		markWake(c.a, c.b)
		markWake(c.b, c.a)
	}
	for _, b := range w.bodies {
		if b.wakeAfterPhase {
			b.WakeUp()
		}
	}

	w.lastIterations = w.solve(w.contacts, dt)
	w.cache.store(w.contacts)

	for _, b := range w.bodies {
		b.applyDamping(dt)
		b.integrate(dt)
		b.updateAABB()
	}

	w.time += dt
	w.steps++

	if w.AllowSleep {
		for _, b := range w.bodies {
			b.sleepTick(w.time)
		}
	}
}

// narrowphase собирает контакты бодрствующих тел с плоскостями и пар из broadphase.
// Зазор пары - сумма путей обоих тел за шаг.
func (w *World) narrowphase(out []contact) []contact {
	for _, b := range w.bodies {
		if b.Type != Dynamic || b.sleepState == Sleeping {
			continue
		}
		for _, p := range w.planes {
			out = boxPlane(b, p, b.margin, out)
		}
	}
	w.broadphase.pairs(func(a, b *Body) {
		out = boxBox(a, b, a.margin+b.margin, out)
	})
	return out
}

// reached - контакт касается или сомкнется за этот шаг при текущих скоростях
func (c *contact) reached(dt float64) bool {
	if c.penetration >= 0 {
		return true
	}
	vn := c.a.pointVelocity(c.point.Sub(c.a.Position)).Sub(c.b.pointVelocity(c.point.Sub(c.b.Position))).Dot(c.normal)
	return c.penetration-vn*dt > 0
}

// markWake будит спящее тело, если его задело достаточно быстрое тело
func markWake(sleeping, other *Body) {
	if sleeping.sleepState != Sleeping || other.sleepState == Sleeping || other.Type == Static {
		return
	}
	limitSq := other.SleepSpeedLimit * other.SleepSpeedLimit
	if other.SpeedSq() >= 2*limitSq {
		sleeping.wakeAfterPhase = true
	}
}
