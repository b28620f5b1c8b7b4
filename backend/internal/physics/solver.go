package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SolverConfig - параметры решателя
type SolverConfig struct {
	Iterations         int
	PositionIterations int
	Tolerance          float64
}

// row - строка якобиана контакта вдоль dir: плечи r×dir и их образы под обратной инерцией
type row struct {
	dir          mgl64.Vec3
	armA, armB   mgl64.Vec3
	turnA, turnB mgl64.Vec3
	mass         float64
}

func (r *row) prepare(c *contact, dir mgl64.Vec3) {
	r.dir = dir
	r.armA = c.rA.Cross(dir)
	r.armB = c.rB.Cross(dir)
	r.turnA = c.invIA.Mul3x1(r.armA)
	r.turnB = c.invIB.Mul3x1(r.armB)
	r.mass = 0
	if k := c.invMassA + c.invMassB + r.armA.Dot(r.turnA) + r.armB.Dot(r.turnB); k > 0 {
		r.mass = 1 / k
	}
}

// velocity - относительная скорость точки контакта вдоль строки
func (r *row) velocity(c *contact) float64 {
	return c.a.Velocity.Dot(r.dir) + c.a.AngularVelocity.Dot(r.armA) -
		c.b.Velocity.Dot(r.dir) - c.b.AngularVelocity.Dot(r.armB)
}

func (r *row) apply(c *contact, lambda float64) {
	if lambda == 0 {
		return
	}
	if c.invMassA > 0 {
		c.a.Velocity = c.a.Velocity.Add(r.dir.Mul(lambda * c.invMassA))
		c.a.AngularVelocity = c.a.AngularVelocity.Add(r.turnA.Mul(lambda))
	}
	if c.invMassB > 0 {
		c.b.Velocity = c.b.Velocity.Sub(r.dir.Mul(lambda * c.invMassB))
		c.b.AngularVelocity = c.b.AngularVelocity.Sub(r.turnB.Mul(lambda))
	}
}

// pushVelocity и applyPush - то же для псевдоскоростей коррекции
func (r *row) pushVelocity(c *contact) float64 {
	return c.a.pushVelocity.Dot(r.dir) + c.a.turnVelocity.Dot(r.armA) -
		c.b.pushVelocity.Dot(r.dir) - c.b.turnVelocity.Dot(r.armB)
}

func (r *row) applyPush(c *contact, lambda float64) {
	if c.invMassA > 0 {
		c.a.pushVelocity = c.a.pushVelocity.Add(r.dir.Mul(lambda * c.invMassA))
		c.a.turnVelocity = c.a.turnVelocity.Add(r.turnA.Mul(lambda))
	}
	if c.invMassB > 0 {
		c.b.pushVelocity = c.b.pushVelocity.Sub(r.dir.Mul(lambda * c.invMassB))
		c.b.turnVelocity = c.b.turnVelocity.Sub(r.turnB.Mul(lambda))
	}
}

// prepare вычисляет строки якобиана, целевую скорость и псевдоскорость выталкивания.
// Накопленные импульсы не трогает: они пришли из прошлого шага.
func (w *World) prepare(c *contact, dt float64) {
	cfg := w.cfg
	c.rA = c.point.Sub(c.a.Position)
	c.rB = c.point.Sub(c.b.Position)
	c.invMassA = c.a.effectiveInvMass()
	c.invMassB = c.b.effectiveInvMass()
	c.invIA = c.a.effectiveInvInertia()
	c.invIB = c.b.effectiveInvInertia()
	t1, t2 := tangents(c.normal)
	c.n.prepare(c, c.normal)
	c.t1.prepare(c, t1)
	c.t2.prepare(c, t2)

	surface := w.materials.lookup(c.a.Material, c.b.Material, cfg.Default)
	c.friction = surface.Friction

	c.target = 0
	if c.penetration < 0 {
		// разрешаем сблизиться ровно на зазор
		c.target = c.penetration / dt
	} else if vn := c.n.velocity(c); vn < -cfg.RestitutionThreshold && surface.Restitution > 0 {
		c.target = -surface.Restitution * vn
	}

	c.push = 0
	c.accP = 0
	if c.penetration > cfg.PenetrationSlop {
		c.push = math.Min(cfg.Baumgarte/dt*(c.penetration-cfg.PenetrationSlop), cfg.MaxCorrectionSpeed)
	}
}

// solve - последовательные импульсы с накоплением и ограничением, прогретые импульсами
// прошлого шага. Выход досрочно, когда квадрат суммарного изменения импульса за итерацию
// меньше квадрата допуска. Проникновение убирается отдельно псевдоскоростями и энергии не добавляет.
func (w *World) solve(contacts []contact, dt float64) int {
	for i := range contacts {
		c := &contacts[i]
		w.prepare(c, dt)
		c.n.apply(c, c.accN)
		c.t1.apply(c, c.accT1)
		c.t2.apply(c, c.accT2)
	}

	tolSq := w.Solver.Tolerance * w.Solver.Tolerance
	iterations := 0
	for iter := 0; iter < w.Solver.Iterations; iter++ {
		iterations++
		var delta float64
		for i := range contacts {
			c := &contacts[i]
			if c.n.mass == 0 {
				continue
			}

			lambda := (c.target - c.n.velocity(c)) * c.n.mass
			old := c.accN
			c.accN = math.Max(old+lambda, 0)
			lambda = c.accN - old
			c.n.apply(c, lambda)
			delta += math.Abs(lambda)

			maxF := c.friction * c.accN

			lt1 := -c.t1.velocity(c) * c.t1.mass
			old = c.accT1
			c.accT1 = mgl64.Clamp(old+lt1, -maxF, maxF)
			lt1 = c.accT1 - old
			c.t1.apply(c, lt1)

			lt2 := -c.t2.velocity(c) * c.t2.mass
			old = c.accT2
			c.accT2 = mgl64.Clamp(old+lt2, -maxF, maxF)
			lt2 = c.accT2 - old
			c.t2.apply(c, lt2)

			delta += math.Abs(lt1) + math.Abs(lt2)
		}
		if delta*delta < tolSq {
			break
		}
	}

	for iter := 0; iter < w.Solver.PositionIterations; iter++ {
		var delta float64
		for i := range contacts {
			c := &contacts[i]
			if c.push == 0 || c.n.mass == 0 {
				continue
			}
			lambda := (c.push - c.n.pushVelocity(c)) * c.n.mass
			old := c.accP
			c.accP = math.Max(old+lambda, 0)
			lambda = c.accP - old
			c.n.applyPush(c, lambda)
			delta += math.Abs(lambda)
		}
		if delta*delta < tolSq {
			break
		}
	}
	return iterations
}
