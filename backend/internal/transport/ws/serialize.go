package ws

import (
	"fmt"

	"cashpile/backend/internal/assets"
	"cashpile/backend/internal/game"
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/world"
)

// AssetSource - состояние текстур для клиента
type AssetSource interface {
	game.AssetGate
	State() assets.State
	Err() error
	Textures() []assets.Texture
}

// PieceID - идентификатор фигуры на клиенте
func PieceID(renderID uint64) string {
	return fmt.Sprintf("piece_%d", renderID)
}

func colorHex(c uint32) string {
	return fmt.Sprintf("#%06x", c&0xffffff)
}

func transformOf(pos world.Vector3, rot world.Quaternion) Transform {
	return Transform{
		X:  safeFloat32(pos.X, 0.0),
		Y:  safeFloat32(pos.Y, 0.0),
		Z:  safeFloat32(pos.Z, 0.0),
		QX: safeFloat32(rot.X, 0.0),
		QY: safeFloat32(rot.Y, 0.0),
		QZ: safeFloat32(rot.Z, 0.0),
		QW: safeFloat32(rot.W, 1.0), // 1.0 как значение по умолчанию для w
	}
}

func (m *ObjectMessage) setTransform(tr Transform) {
	m.X, m.Y, m.Z = tr.X, tr.Y, tr.Z
	m.QX, m.QY, m.QZ, m.QW = tr.QX, tr.QY, tr.QZ, tr.QW
}

// NewPieceCreateMessage описывает фигуру: геометрию по ключу кэша, текстуры и трансформ
func NewPieceCreateMessage(p *world.Piece) *ObjectMessage {
	msg := &ObjectMessage{
		Type:       MessageTypeCreate,
		ID:         PieceID(p.RenderID),
		ObjectType: p.Shape.Type.String(),
		Value:      p.Denomination.Value,
		Represents: p.RepresentedValue,
		Geometry:   p.Shape.Key,
		Visible:    true,
		ServerTime: GetCurrentServerTime(),
	}
	msg.setTransform(transformOf(world.ToVector3(p.Body.Position), world.ToQuaternion(p.Body.Quaternion)))

	switch p.Shape.Type {
	case world.BILL:
		b := p.Shape.Bill
		msg.Width = safeFloat32(b.Width, 1.0)
		msg.Depth = safeFloat32(b.Depth, 1.0)
		msg.Thickness = safeFloat32(b.Thickness, 0.01)
		msg.Front, msg.Back = b.Front, b.Back
		msg.Color = colorHex(b.EdgeColor)
	case world.COIN:
		c := p.Shape.Coin
		msg.Radius = safeFloat32(c.Radius, 0.1)
		msg.Thickness = safeFloat32(c.Thickness, 0.01)
		msg.Front, msg.Back = c.Front, c.Back
		msg.Color = colorHex(c.RimColor)
	}
	return msg
}

// NewStaticCreateMessage описывает элемент арены
func NewStaticCreateMessage(s *world.StaticObject) *ObjectMessage {
	msg := &ObjectMessage{
		Type:       MessageTypeCreate,
		ID:         s.Name,
		ObjectType: s.Shape.Type.String(),
		Static:     true,
		Geometry:   s.Shape.Key,
		ServerTime: GetCurrentServerTime(),
	}
	msg.setTransform(transformOf(s.Position, s.Rotation))
	if box := s.Shape.Box; box != nil {
		msg.Width = safeFloat32(box.Width, 1.0)
		msg.Height = safeFloat32(box.Height, 1.0)
		msg.Depth = safeFloat32(box.Depth, 1.0)
		msg.Color = colorHex(box.Color)
		msg.Visible = box.Visible
	} else {
		msg.Visible = true
	}
	return msg
}

// NewDenominationsMessage - таблица номиналов с целями размена
func NewDenominationsMessage(c *money.Catalog) *DenominationsMessage {
	msg := &DenominationsMessage{Type: MessageTypeDenominations}
	for _, d := range c.All() {
		info := DenominationInfo{
			Value:     d.Value,
			Label:     d.Label,
			Kind:      string(d.Kind),
			Front:     d.Front,
			Back:      d.Back,
			EdgeColor: colorHex(d.EdgeColor),
		}
		if d.IsBill() {
			info.Aspect = d.Aspect
		} else {
			info.Radius = d.Radius
			info.Thickness = d.Thickness
		}
		if target, ok := c.ExchangeTarget(d.Value); ok {
			info.Exchange = target.Value
		}
		msg.Items = append(msg.Items, info)
	}
	return msg
}

// NewPlanReport - отчет о разложении; nil для пустого плана
func NewPlanReport(plan money.Plan) *PlanReport {
	if plan.Original == 0 && plan.Empty() {
		return nil
	}
	report := &PlanReport{
		Original:          plan.Original,
		BundleSize:        plan.BundleSize,
		RepresentedAmount: plan.RepresentedAmount,
		Pieces:            len(plan.Queue),
		Counts:            make([]PlanCount, 0, len(plan.Counts)),
	}
	for _, c := range plan.Counts {
		report.Counts = append(report.Counts, PlanCount{
			Value: c.Denomination.Value,
			Label: c.Denomination.Label,
			Count: c.Count,
		})
	}
	return report
}

// NewStatusMessage снимает состояние стола
func NewStatusMessage(t *game.Table) *StatusMessage {
	return &StatusMessage{
		Type:        MessageTypeStatus,
		Running:     t.Running(),
		Amount:      t.Amount(),
		TrayTotal:   t.TrayTotal(),
		PaidTotal:   t.PaidTotal(),
		Pieces:      t.Registry().Size(),
		AssetsReady: t.AssetsReady(),
		Plan:        NewPlanReport(t.Plan()),
	}
}

// NewCameraMessage - состояние камеры
func NewCameraMessage(c *game.Camera) *CameraMessage {
	return &CameraMessage{Type: MessageTypeCamera, Camera: c.State()}
}

// NewAssetsMessage - состояние загрузки текстур. Без источника текстуры считаются готовыми.
func NewAssetsMessage(src AssetSource) *AssetsMessage {
	if src == nil {
		return &AssetsMessage{Type: MessageTypeAssets, State: assets.StateReady.String()}
	}
	msg := &AssetsMessage{
		Type:  MessageTypeAssets,
		State: src.State().String(),
	}
	if err := src.Err(); err != nil {
		msg.Error = err.Error()
	}
	if src.Ready() {
		msg.Textures = src.Textures()
	}
	return msg
}
