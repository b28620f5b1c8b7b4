package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/money"
	"cashpile/backend/internal/physics"
)

// Factory создает тела и визуальные дескрипторы. Дескрипторы кэшируются по ключу
// геометрии и никогда не освобождаются в течение сессии.
type Factory struct {
	world  *physics.World
	cash   *physics.Material
	table  *physics.Material
	shapes map[string]*ShapeDescriptor
	log    logrus.FieldLogger
}

// NewFactory создает фабрику и регистрирует материалы контактов в мире
func NewFactory(w *physics.World, cfg *physics.Config, log logrus.FieldLogger) *Factory {
	if cfg == nil {
		cfg = physics.GetConfig()
	}
	f := &Factory{
		world:  w,
		cash:   physics.NewMaterial("cash"),
		table:  physics.NewMaterial("table"),
		shapes: make(map[string]*ShapeDescriptor),
		log:    log,
	}
	w.AddContactMaterial(physics.ContactMaterial{A: f.cash, B: f.cash, Surface: cfg.CashCash})
	w.AddContactMaterial(physics.ContactMaterial{A: f.cash, B: f.table, Surface: cfg.CashTable})
	return f
}

// World возвращает физический мир фабрики
func (f *Factory) World() *physics.World {
	return f.world
}

// CashMaterial - общий материал денег
func (f *Factory) CashMaterial() *physics.Material {
	return f.cash
}

// TableMaterial - общий материал стола и арены
func (f *Factory) TableMaterial() *physics.Material {
	return f.table
}

// CachedShapes - количество закэшированных дескрипторов
func (f *Factory) CachedShapes() int {
	return len(f.shapes)
}

// Shape возвращает дескриптор геометрии номинала из кэша
func (f *Factory) Shape(d money.Denomination) *ShapeDescriptor {
	key := d.GeometryKey()
	if s, ok := f.shapes[key]; ok {
		return s
	}

	s := &ShapeDescriptor{Key: key}
	if d.IsBill() {
		s.Type = BILL
		s.Bill = &BillData{
			Width:     float32(money.NoteWidth),
			Depth:     float32(d.BillDepth()),
			Thickness: float32(money.NoteThickness),
			Front:     d.Front,
			Back:      d.Back,
			EdgeColor: d.EdgeColor,
		}
	} else {
		s.Type = COIN
		s.Coin = &CoinData{
			Radius:    float32(d.Radius),
			Thickness: float32(d.Thickness),
			Front:     d.Front,
			Back:      d.Back,
			RimColor:  d.EdgeColor,
		}
	}
	f.shapes[key] = s

	if f.log != nil {
		f.log.WithField("key", key).Debug("[World] new geometry cached")
	}
	return s
}

// NewPiece создает фигуру с телом в начале координат. В мир тело добавляет реестр.
func (f *Factory) NewPiece(d money.Denomination, represented int64) *Piece {
	profile := GetPieceProfile(d.Kind)

	var half mgl64.Vec3
	if d.IsBill() {
		half = mgl64.Vec3{money.NoteWidth / 2, money.NoteThickness / 2, d.BillDepth() / 2}
	} else {
		factor := profile.CoinBoxFactor
		if factor <= 0 {
			factor = 0.86
		}
		half = mgl64.Vec3{d.Radius * factor, d.Thickness / 2, d.Radius * factor}
	}

	body := physics.NewBody(physics.BodyOptions{
		Type:            physics.Dynamic,
		Mass:            profile.Mass,
		Shape:           physics.NewBox(half),
		Material:        f.cash,
		LinearDamping:   profile.LinearDamping,
		AngularDamping:  profile.AngularDamping,
		AllowSleep:      true,
		SleepSpeedLimit: profile.SleepSpeedLimit,
		SleepTimeLimit:  profile.SleepTimeLimit,
	})

	if represented <= 0 {
		represented = d.Value
	}

	return &Piece{
		Denomination:           d,
		RepresentedValue:       represented,
		Kind:                   d.Kind,
		Shape:                  f.Shape(d),
		Body:                   body,
		OriginalMass:           profile.Mass,
		OriginalLinearDamping:  profile.LinearDamping,
		OriginalAngularDamping: profile.AngularDamping,
	}
}

// NewStaticBox создает неподвижный бокс арены и добавляет его в мир
func (f *Factory) NewStaticBox(name string, center, half mgl64.Vec3, color uint32, visible bool) *StaticObject {
	body := physics.NewBody(physics.BodyOptions{
		Type:     physics.Static,
		Shape:    physics.NewBox(half),
		Material: f.table,
		Position: center,
	})
	f.world.AddBody(body)

	return &StaticObject{
		Name: name,
		Shape: &ShapeDescriptor{
			Key:  name,
			Type: BOX,
			Box: &BoxData{
				Width:   float32(half[0] * 2),
				Height:  float32(half[1] * 2),
				Depth:   float32(half[2] * 2),
				Color:   color,
				Visible: visible,
			},
		},
		Body:     body,
		Position: ToVector3(center),
		Rotation: ToQuaternion(body.Quaternion),
	}
}

// NewGround создает плоскость стола
func (f *Factory) NewGround() *StaticObject {
	body := physics.NewBody(physics.BodyOptions{
		Type:     physics.Static,
		Shape:    physics.NewPlane(),
		Material: f.table,
	})
	f.world.AddBody(body)
	return &StaticObject{
		Name:     "ground",
		Shape:    &ShapeDescriptor{Key: "ground", Type: PLANE},
		Body:     body,
		Rotation: ToQuaternion(body.Quaternion),
	}
}
