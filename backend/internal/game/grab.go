package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"cashpile/backend/internal/physics"
	"cashpile/backend/internal/world"
)

// GrabController удерживает перетаскиваемую фигуру кинематической.
// Begin и Release образуют пару: исходные масса и затухание всегда восстанавливаются.
type GrabController struct {
	rate    float64
	piece   *world.Piece
	height  float64
	targetX float64
	targetZ float64
}

// NewGrabController создает контроллер с темпом следования rate
func NewGrabController(rate float64) *GrabController {
	return &GrabController{rate: rate}
}

// Active сообщает, удерживается ли фигура
func (g *GrabController) Active() bool {
	return g.piece != nil
}

// Piece возвращает удерживаемую фигуру
func (g *GrabController) Piece() *world.Piece {
	return g.piece
}

// Height - высота удержания
func (g *GrabController) Height() float64 {
	return g.height
}

// Target - текущая цель по x/z
func (g *GrabController) Target() (float64, float64) {
	return g.targetX, g.targetZ
}

// Begin захватывает фигуру на высоте height
func (g *GrabController) Begin(p *world.Piece, height float64) {
	if g.piece != nil {
		g.Release()
	}
	b := p.Body
	p.OriginalMass = b.Mass
	p.OriginalLinearDamping = b.LinearDamping
	p.OriginalAngularDamping = b.AngularDamping

	b.Type = physics.Kinematic
	b.Mass = 0
	b.UpdateMassProperties()
	b.Velocity = mgl64.Vec3{}
	b.AngularVelocity = mgl64.Vec3{}
	b.WakeUp()

	g.piece = p
	g.height = height
	g.targetX, g.targetZ = b.Position[0], b.Position[2]
}

// SetTarget задает цель по x/z
func (g *GrabController) SetTarget(x, z float64) {
	g.targetX, g.targetZ = x, z
}

// Step - хук перед шагом физики: сглаженно ведет тело к цели.
// Скорость выставляется так, чтобы интегрирование привело тело в следующую точку.
func (g *GrabController) Step(dt float64) {
	if g.piece == nil || dt <= 0 {
		return
	}
	b := g.piece.Body
	alpha := 1 - math.Exp(-g.rate*dt)
	cx, cz := b.Position[0], b.Position[2]
	nx := cx + (g.targetX-cx)*alpha
	nz := cz + (g.targetZ-cz)*alpha

	b.Position[1] = g.height
	b.Velocity = mgl64.Vec3{(nx - cx) / dt, 0, (nz - cz) / dt}
	b.AngularVelocity = mgl64.Vec3{}
	b.WakeUp()
}

// Release возвращает фигуру в динамику; без захвата ничего не делает
func (g *GrabController) Release() {
	p := g.piece
	if p == nil {
		return
	}
	g.piece = nil

	b := p.Body
	b.Type = physics.Dynamic
	b.Mass = p.OriginalMass
	b.LinearDamping = p.OriginalLinearDamping
	b.AngularDamping = p.OriginalAngularDamping
	b.UpdateMassProperties()
	b.AngularVelocity = mgl64.Vec3{}
	b.Velocity = mgl64.Vec3{0, -0.04, 0}
	b.WakeUp()
}
