package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ray - луч с нормированным направлением
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// At возвращает точку луча на расстоянии t
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectPlaneY пересекает луч с горизонтальной плоскостью y
func (r Ray) IntersectPlaneY(y float64) (mgl64.Vec3, bool) {
	dy := r.Direction[1]
	if math.Abs(dy) < 1e-9 {
		return mgl64.Vec3{}, false
	}
	t := (y - r.Origin[1]) / dy
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.At(t), true
}

// IntersectBody возвращает расстояние до бокса тела (slab-тест в системе тела)
func (r Ray) IntersectBody(b *Body) (float64, bool) {
	if b.Shape.Kind != ShapeBox {
		return 0, false
	}
	inv := b.Quaternion.Conjugate()
	o := inv.Rotate(r.Origin.Sub(b.Position))
	d := inv.Rotate(r.Direction)
	he := b.Shape.HalfExtents

	tMin, tMax := math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if o[i] < -he[i] || o[i] > he[i] {
				return 0, false
			}
			continue
		}
		t1 := (-he[i] - o[i]) / d[i]
		t2 := (he[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	if tMax < 0 {
		return 0, false
	}
	if tMin < 0 {
		return 0, true
	}
	return tMin, true
}
