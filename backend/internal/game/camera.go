package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"cashpile/backend/internal/physics"
)

// Projection - режим камеры
type Projection int

const (
	// Perspective - наклонная камера браузерного клиента
	Perspective Projection = iota
	// TopDown - ортографический вид сверху для терминала
	TopDown
)

// Camera описывает вид на стол и переводит пиксели вьюпорта в лучи.
// Смещение панорамирования добавляется к позиции и к цели камеры.
type Camera struct {
	Mode Projection

	BaseEye    mgl64.Vec3
	BaseTarget mgl64.Vec3
	FovY       float64 // градусы
	Near, Far  float64

	Width, Height int

	// Смещение по x/z: текущее и целевое
	Offset       mgl64.Vec2
	OffsetTarget mgl64.Vec2
	LimitX       float64
	LimitZ       float64
	FollowRate   float64

	// Для TopDown: мировых единиц на пиксель
	Scale float64
}

// NewCamera возвращает перспективную камеру с параметрами клиента
func NewCamera(width, height int) *Camera {
	c := &Camera{
		Mode:       Perspective,
		BaseEye:    mgl64.Vec3{0, 5.8, 4.9},
		BaseTarget: mgl64.Vec3{0, 0.28, 0},
		FovY:       42,
		Near:       0.1,
		Far:        100,
		LimitX:     1.6,
		LimitZ:     1.25,
		FollowRate: 18,
	}
	c.SetViewport(width, height)
	return c
}

// NewTopDownCamera возвращает вид сверху, вписывающий арену halfExtent во вьюпорт
func NewTopDownCamera(width, height int, halfExtent float64) *Camera {
	c := NewCamera(width, height)
	c.Mode = TopDown
	c.BaseEye = mgl64.Vec3{0, 20, 0}
	c.BaseTarget = mgl64.Vec3{}
	c.FitTopDown(halfExtent)
	return c
}

// SetViewport задает размер вьюпорта в пикселях
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	c.Width, c.Height = width, height
}

// FitTopDown пересчитывает масштаб вида сверху после смены вьюпорта
func (c *Camera) FitTopDown(halfExtent float64) {
	side := float64(c.Width)
	if float64(c.Height) < side {
		side = float64(c.Height)
	}
	c.Scale = 2 * (halfExtent + 0.2) / side
}

// Aspect - отношение сторон вьюпорта
func (c *Camera) Aspect() float64 {
	return float64(c.Width) / float64(c.Height)
}

// Eye - позиция камеры с учетом смещения
func (c *Camera) Eye() mgl64.Vec3 {
	return c.BaseEye.Add(mgl64.Vec3{c.Offset[0], 0, c.Offset[1]})
}

// Target - точка взгляда с учетом смещения
func (c *Camera) Target() mgl64.Vec3 {
	return c.BaseTarget.Add(mgl64.Vec3{c.Offset[0], 0, c.Offset[1]})
}

// ViewMatrix - матрица вида
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye(), c.Target(), mgl64.Vec3{0, 1, 0})
}

// ProjectionMatrix - матрица перспективной проекции
func (c *Camera) ProjectionMatrix() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Aspect(), c.Near, c.Far)
}

// SetOffsetTarget задает целевое смещение с ограничением пределами
func (c *Camera) SetOffsetTarget(x, z float64) {
	c.OffsetTarget = mgl64.Vec2{
		mgl64.Clamp(x, -c.LimitX, c.LimitX),
		mgl64.Clamp(z, -c.LimitZ, c.LimitZ),
	}
}

// Follow сглаженно подводит смещение к цели: α = 1 - exp(-rate·dt)
func (c *Camera) Follow(dt float64) {
	if dt <= 0 {
		return
	}
	alpha := 1 - math.Exp(-c.FollowRate*dt)
	c.Offset = c.Offset.Add(c.OffsetTarget.Sub(c.Offset).Mul(alpha))
}

// Snapshot возвращает копию камеры для расчетов панорамирования
func (c *Camera) Snapshot() Camera {
	return *c
}

// Ray строит луч через пиксель (px, py), начало координат - левый верхний угол
func (c *Camera) Ray(px, py float64) (physics.Ray, bool) {
	if c.Mode == TopDown {
		x := c.Offset[0] + (px-float64(c.Width)/2)*c.Scale
		z := c.Offset[1] + (py-float64(c.Height)/2)*c.Scale
		return physics.Ray{
			Origin:    mgl64.Vec3{x, c.BaseEye[1], z},
			Direction: mgl64.Vec3{0, -1, 0},
		}, true
	}

	view, proj := c.ViewMatrix(), c.ProjectionMatrix()
	wy := float64(c.Height) - py
	near, err := mgl64.UnProject(mgl64.Vec3{px, wy, 0}, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return physics.Ray{}, false
	}
	far, err := mgl64.UnProject(mgl64.Vec3{px, wy, 1}, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return physics.Ray{}, false
	}
	dir := far.Sub(near)
	if dir.Len() < 1e-12 {
		return physics.Ray{}, false
	}
	return physics.Ray{Origin: near, Direction: dir.Normalize()}, true
}

// TablePoint пересекает луч пикселя с плоскостью y
func (c *Camera) TablePoint(px, py, y float64) (mgl64.Vec3, bool) {
	ray, ok := c.Ray(px, py)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return ray.IntersectPlaneY(y)
}

// WorldToScreen проецирует мировую точку в пиксели вьюпорта
func (c *Camera) WorldToScreen(p mgl64.Vec3) (float64, float64, bool) {
	if c.Mode == TopDown {
		x := (p[0]-c.Offset[0])/c.Scale + float64(c.Width)/2
		y := (p[2]-c.Offset[1])/c.Scale + float64(c.Height)/2
		return x, y, true
	}
	clip := c.ProjectionMatrix().Mul4(c.ViewMatrix()).Mul4x1(p.Vec4(1))
	if clip[3] <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	x := (ndc[0] + 1) / 2 * float64(c.Width)
	y := (1 - ndc[1]) / 2 * float64(c.Height)
	return x, y, true
}

// CameraState - состояние камеры для клиента
type CameraState struct {
	Eye     [3]float64 `json:"eye"`
	Target  [3]float64 `json:"target"`
	FovY    float64    `json:"fov"`
	Offset  [2]float64 `json:"offset"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	TopDown bool       `json:"top_down,omitempty"`
}

// State возвращает сериализуемое состояние камеры
func (c *Camera) State() CameraState {
	eye, target := c.Eye(), c.Target()
	return CameraState{
		Eye:     [3]float64{eye[0], eye[1], eye[2]},
		Target:  [3]float64{target[0], target[1], target[2]},
		FovY:    c.FovY,
		Offset:  [2]float64{c.Offset[0], c.Offset[1]},
		Width:   c.Width,
		Height:  c.Height,
		TopDown: c.Mode == TopDown,
	}
}
