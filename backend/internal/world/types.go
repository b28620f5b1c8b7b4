package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"cashpile/backend/internal/money"
	"cashpile/backend/internal/physics"
)

// Vector3 - позиция для передачи клиенту
type Vector3 struct {
	X, Y, Z float32
}

// Quaternion - поворот для передачи клиенту
type Quaternion struct {
	X, Y, Z, W float32
}

// ToVector3 переводит вектор движка в формат передачи
func ToVector3(v mgl64.Vec3) Vector3 {
	return Vector3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
}

// ToQuaternion переводит кватернион движка в формат передачи
func ToQuaternion(q mgl64.Quat) Quaternion {
	return Quaternion{X: float32(q.V[0]), Y: float32(q.V[1]), Z: float32(q.V[2]), W: float32(q.W)}
}

// ShapeType - вид визуальной формы
type ShapeType int

const (
	BILL ShapeType = iota
	COIN
	BOX
	PLANE
)

func (t ShapeType) String() string {
	switch t {
	case BILL:
		return "bill"
	case COIN:
		return "coin"
	case BOX:
		return "box"
	case PLANE:
		return "plane"
	}
	return "unknown"
}

// ShapeDescriptor описывает геометрию для рендера. Дескрипторы кэшируются фабрикой
// по ключу и разделяются между фигурами.
type ShapeDescriptor struct {
	Key  string
	Type ShapeType
	Bill *BillData
	Coin *CoinData
	Box  *BoxData
}

// BillData - прямоугольник банкноты с двумя текстурами и цветом торца
type BillData struct {
	Width     float32
	Depth     float32
	Thickness float32
	Front     string
	Back      string
	EdgeColor uint32
}

// CoinData - цилиндр монеты
type CoinData struct {
	Radius    float32
	Thickness float32
	Front     string
	Back      string
	RimColor  uint32
}

// BoxData - статический бокс арены
type BoxData struct {
	Width   float32
	Height  float32
	Depth   float32
	Color   uint32
	Visible bool
}

// Piece - живая фигура: визуальный дескриптор плюс тело в физическом мире.
// Исходные масса и затухание сохраняются для восстановления после захвата.
type Piece struct {
	RenderID         uint64
	Denomination     money.Denomination
	RepresentedValue int64
	Kind             money.Kind
	Shape            *ShapeDescriptor
	Body             *physics.Body

	OriginalMass           float64
	OriginalLinearDamping  float64
	OriginalAngularDamping float64

	// Последнее синхронизированное состояние для рендера
	Position Vector3
	Rotation Quaternion
}

// Sync копирует трансформ тела в состояние рендера
func (p *Piece) Sync() {
	p.Position = ToVector3(p.Body.Position)
	p.Rotation = ToQuaternion(p.Body.Quaternion)
}

// StaticObject - неподвижный элемент арены
type StaticObject struct {
	Name     string
	Shape    *ShapeDescriptor
	Body     *physics.Body
	Position Vector3
	Rotation Quaternion
}
