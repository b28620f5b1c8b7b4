package physics

import "github.com/go-gl/mathgl/mgl64"

// ShapeKind - вид формы
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	// ShapePlane - бесконечная плоскость с нормалью +Y в системе тела
	ShapePlane
)

// Shape - коллизионная форма тела
type Shape struct {
	Kind        ShapeKind
	HalfExtents mgl64.Vec3
}

// NewBox создает бокс с полуразмерами
func NewBox(halfExtents mgl64.Vec3) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: halfExtents}
}

// NewPlane создает плоскость
func NewPlane() Shape {
	return Shape{Kind: ShapePlane}
}

// inertia - главные моменты инерции сплошного бокса
func (s Shape) inertia(mass float64) mgl64.Vec3 {
	if s.Kind != ShapeBox {
		return mgl64.Vec3{}
	}
	x2 := s.HalfExtents[0] * s.HalfExtents[0]
	y2 := s.HalfExtents[1] * s.HalfExtents[1]
	z2 := s.HalfExtents[2] * s.HalfExtents[2]
	return mgl64.Vec3{
		mass / 3 * (y2 + z2),
		mass / 3 * (x2 + z2),
		mass / 3 * (x2 + y2),
	}
}
