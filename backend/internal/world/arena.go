package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"cashpile/backend/internal/physics"
)

// Цвета элементов арены
const (
	trayBaseColor = 0x3f5a4b
	trayRimColor  = 0x6d8a74
)

// Arena - стол, невидимые стенки и лоток оплаты
type Arena struct {
	Config  ArenaConfig
	Statics []*StaticObject
}

// BuildArena регистрирует все статические тела арены в мире фабрики
func BuildArena(f *Factory, cfg ArenaConfig) *Arena {
	a := &Arena{Config: cfg}
	a.Statics = append(a.Statics, f.NewGround())

	h := cfg.HalfExtent
	t := cfg.WallThickness
	y := cfg.WallHeight / 2
	walls := []struct {
		name   string
		center mgl64.Vec3
		half   mgl64.Vec3
	}{
		{"wall_north", mgl64.Vec3{0, y, h + t/2}, mgl64.Vec3{h + t/2, y, t / 2}},
		{"wall_south", mgl64.Vec3{0, y, -h - t/2}, mgl64.Vec3{h + t/2, y, t / 2}},
		{"wall_east", mgl64.Vec3{h + t/2, y, 0}, mgl64.Vec3{t / 2, y, h + t/2}},
		{"wall_west", mgl64.Vec3{-h - t/2, y, 0}, mgl64.Vec3{t / 2, y, h + t/2}},
	}
	for _, w := range walls {
		a.Statics = append(a.Statics, f.NewStaticBox(w.name, w.center, w.half, 0, false))
	}

	tray := cfg.Tray
	hw, hd := tray.Width/2, tray.Depth/2
	base := f.NewStaticBox("tray_base",
		mgl64.Vec3{tray.CenterX, tray.BaseHeight / 2, tray.CenterZ},
		mgl64.Vec3{hw, tray.BaseHeight / 2, hd},
		trayBaseColor, true)
	a.Statics = append(a.Statics, base)

	rt := tray.RimThickness / 2
	ry := tray.BaseHeight + tray.RimHeight/2
	rh := tray.RimHeight / 2
	rims := []struct {
		name   string
		center mgl64.Vec3
		half   mgl64.Vec3
	}{
		{"tray_rim_north", mgl64.Vec3{tray.CenterX, ry, tray.CenterZ + hd - rt}, mgl64.Vec3{hw, rh, rt}},
		{"tray_rim_south", mgl64.Vec3{tray.CenterX, ry, tray.CenterZ - hd + rt}, mgl64.Vec3{hw, rh, rt}},
		{"tray_rim_east", mgl64.Vec3{tray.CenterX + hw - rt, ry, tray.CenterZ}, mgl64.Vec3{rt, rh, hd}},
		{"tray_rim_west", mgl64.Vec3{tray.CenterX - hw + rt, ry, tray.CenterZ}, mgl64.Vec3{rt, rh, hd}},
	}
	for _, r := range rims {
		a.Statics = append(a.Statics, f.NewStaticBox(r.name, r.center, r.half, trayRimColor, true))
	}
	return a
}

// Clamp ограничивает (x, z) квадратом арены с отступом margin
func (a *Arena) Clamp(x, z, margin float64) (float64, float64) {
	lim := a.Config.HalfExtent - margin
	return mgl64.Clamp(x, -lim, lim), mgl64.Clamp(z, -lim, lim)
}

// InTray - предикат лотка по позиции тела (без учета перетаскивания)
func (a *Arena) InTray(pos mgl64.Vec3) bool {
	t := a.Config.Tray
	hw := t.Width/2 - t.Inset
	hd := t.Depth/2 - t.Inset
	return pos[0] >= t.CenterX-hw && pos[0] <= t.CenterX+hw &&
		pos[2] >= t.CenterZ-hd && pos[2] <= t.CenterZ+hd &&
		pos[1] <= t.MaxY
}

// TrayDropPoint - точка над центром лотка
func (a *Arena) TrayDropPoint() mgl64.Vec3 {
	t := a.Config.Tray
	return mgl64.Vec3{t.CenterX, t.DropY, t.CenterZ}
}

// Escaped возвращает true, если тело вылетело за стенки или провалилось под стол
func (a *Arena) Escaped(b *physics.Body, margin float64) bool {
	lim := a.Config.HalfExtent + margin
	p := b.Position
	return p[0] < -lim || p[0] > lim || p[2] < -lim || p[2] > lim || p[1] < -margin
}
