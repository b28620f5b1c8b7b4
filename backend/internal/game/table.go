package game

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/gesture"
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/physics"
	"cashpile/backend/internal/world"
)

const (
	dragLift      = 0.12
	dragMinHeight = 0.06
	dragMargin    = 0.12
	dragRate      = 26
	trayFallSpeed = 0.2
	escapeMargin  = 0.2
)

// AssetGate - готовность текстур; аспекты купюр берутся из их непрозрачных границ
type AssetGate interface {
	Ready() bool
	BillAspects(c *money.Catalog) map[int64]float64
}

// Options - параметры стола
type Options struct {
	Catalog  *money.Catalog
	Assets   AssetGate // nil - текстуры не нужны (терминал, тесты)
	Physics  *physics.Config
	Arena    *world.ArenaConfig
	Spawn    *SpawnProfile
	Gesture  *gesture.Config
	Camera   *Camera
	Rand     *rand.Rand
	Logger   logrus.FieldLogger
	Recorder Recorder
}

// Table - владеющий контекст сессии: физический мир, реестр фигур, арена,
// камера, очередь сброса и автомат жестов. Методы вызываются только из цикла сессии.
type Table struct {
	log      logrus.FieldLogger
	rng      *rand.Rand
	recorder Recorder

	baseCatalog *money.Catalog
	catalog     *money.Catalog
	assets      AssetGate
	physCfg     *physics.Config
	spawnCfg    SpawnProfile

	world    *physics.World
	factory  *world.Factory
	registry *world.Registry
	arena    *world.Arena
	camera   *Camera
	gesture  *gesture.FSM

	spawner *SpawnScheduler
	settle  *SettleDetector
	grab    *GrabController

	running   bool
	amount    int64
	plan      money.Plan
	paidTotal int64
	trayTotal int64
	trayKnown bool
	now       time.Duration

	dragHeight  float64
	grabOffsetX float64
	grabOffsetZ float64

	panActive      bool
	panCamera      Camera
	panStart       mgl64.Vec3
	panStartOffset mgl64.Vec2

	events []Event
}

// NewTable собирает стол: мир, арену и подсистемы
func NewTable(opts Options) (*Table, error) {
	if opts.Catalog == nil {
		opts.Catalog = money.Yen()
	}
	if opts.Physics == nil {
		opts.Physics = physics.GetConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	arenaCfg := world.GetArenaConfig()
	if opts.Arena != nil {
		arenaCfg = *opts.Arena
	}
	spawnCfg := DefaultSpawnProfile()
	if opts.Spawn != nil {
		spawnCfg = *opts.Spawn
	}
	gestureCfg := gesture.DefaultConfig()
	if opts.Gesture != nil {
		gestureCfg = *opts.Gesture
	}
	if opts.Camera == nil {
		opts.Camera = NewCamera(0, 0)
	}

	w := physics.NewWorld(opts.Physics)
	factory := world.NewFactory(w, opts.Physics, opts.Logger)
	arena := world.BuildArena(factory, arenaCfg)
	if arena == nil {
		return nil, fmt.Errorf("%w: arena build failed", ErrFatal)
	}

	t := &Table{
		log:         opts.Logger,
		rng:         opts.Rand,
		recorder:    opts.Recorder,
		baseCatalog: opts.Catalog,
		catalog:     opts.Catalog,
		assets:      opts.Assets,
		physCfg:     opts.Physics,
		spawnCfg:    spawnCfg,
		world:       w,
		factory:     factory,
		registry:    world.NewRegistry(w, opts.Logger),
		arena:       arena,
		camera:      opts.Camera,
		spawner:     NewSpawnScheduler(spawnCfg.Interval),
		settle:      NewSettleDetector(),
		grab:        NewGrabController(dragRate),
	}
	t.gesture = gesture.New(t, gestureCfg)
	t.registry.SetObserver(t)
	w.OnPreStep(t.grab.Step)

	t.log.Debugf("[Table] Стол создан: статиков %d, тел в мире %d", len(arena.Statics), len(w.Bodies()))
	return t, nil
}

// Accessors

func (t *Table) World() *physics.World { return t.world }
func (t *Table) Registry() *world.Registry { return t.registry }
func (t *Table) Arena() *world.Arena { return t.arena }
func (t *Table) Camera() *Camera { return t.camera }
func (t *Table) Catalog() *money.Catalog { return t.catalog }
func (t *Table) Factory() *world.Factory { return t.factory }
func (t *Table) Gesture() *gesture.FSM { return t.gesture }
func (t *Table) Grab() *GrabController { return t.grab }
func (t *Table) Settle() *SettleDetector { return t.settle }
func (t *Table) Spawner() *SpawnScheduler { return t.spawner }
func (t *Table) Running() bool { return t.running }
func (t *Table) Amount() int64 { return t.amount }
func (t *Table) Plan() money.Plan { return t.plan }
func (t *Table) PaidTotal() int64 { return t.paidTotal }
func (t *Table) TrayTotal() int64 { return t.trayTotal }
func (t *Table) Now() time.Duration { return t.now }
func (t *Table) AssetsReady() bool { return t.assets == nil || t.assets.Ready() }
func (t *Table) SetRecorder(r Recorder) { t.recorder = r }
func (t *Table) PhysicsConfig() *physics.Config { return t.physCfg }

// SetViewport меняет размер вьюпорта камеры
func (t *Table) SetViewport(width, height int) {
	t.camera.SetViewport(width, height)
	if t.camera.Mode == TopDown {
		t.camera.FitTopDown(t.arena.Config.HalfExtent)
	}
	t.emit(Event{Kind: EventCamera})
}

// HandlePointer передает событие указателя автомату жестов
func (t *Table) HandlePointer(ev gesture.PointerEvent) {
	if !t.AssetsReady() {
		return
	}
	t.gesture.Handle(ev, t.now)
}

// DrainEvents забирает накопленные события
func (t *Table) DrainEvents() []Event {
	out := t.events
	t.events = nil
	return out
}

func (t *Table) emit(ev Event) {
	t.events = append(t.events, ev)
}

// PieceAdded - наблюдатель реестра
func (t *Table) PieceAdded(p *world.Piece) {
	t.emit(Event{Kind: EventPieceAdded, Piece: p, PieceID: p.RenderID})
}

// PieceRemoved - наблюдатель реестра
func (t *Table) PieceRemoved(p *world.Piece) {
	t.emit(Event{Kind: EventPieceRemoved, Piece: p, PieceID: p.RenderID})
}

// Drop разбирает сумму, очищает стол и ставит план в очередь сброса.
// Некорректная сумма возвращает money.ErrInvalidAmount без побочных эффектов.
func (t *Table) Drop(raw float64) (money.Plan, error) {
	amount, err := money.ParseAmount(raw)
	if err != nil {
		return money.Plan{}, err
	}
	return t.DropAmount(amount)
}

// DropAmount - Drop для уже проверенной целой суммы
func (t *Table) DropAmount(amount int64) (money.Plan, error) {
	if amount <= 0 {
		return money.Plan{}, money.ErrInvalidAmount
	}
	if !t.AssetsReady() {
		return money.Plan{}, ErrAssetsNotReady
	}
	if t.assets != nil {
		t.catalog = t.baseCatalog.WithBillAspects(t.assets.BillAspects(t.baseCatalog))
	}

	t.ClearAll()

	plan := money.NewPlanner(t.catalog).Plan(amount, t.rng)
	t.plan = plan
	t.amount = amount
	t.spawner.Load(plan.Queue)
	t.running = len(plan.Queue) > 0

	t.emit(Event{Kind: EventPlan, Plan: &plan})
	t.emit(Event{Kind: EventAmount, Value: t.amount})
	t.emit(Event{Kind: EventRunning, Running: t.running})

	t.log.Infof("[Table] Сброс %d иен: фигур %d, пачка %d, представлено %d",
		amount, len(plan.Queue), plan.BundleSize, plan.RepresentedAmount)
	t.recorder.Record("drop", map[string]interface{}{
		"amount":      amount,
		"pieces":      len(plan.Queue),
		"bundle_size": plan.BundleSize,
		"represented": plan.RepresentedAmount,
	})
	return plan, nil
}

// ClearAll удаляет все фигуры, очередь и жесты; сумма на экране сохраняется
func (t *Table) ClearAll() {
	t.gesture.Reset()
	t.grab.Release()
	t.panActive = false
	t.spawner.Clear()
	removed := t.registry.Clear()
	t.settle.Reset()
	if t.running {
		t.running = false
		t.emit(Event{Kind: EventRunning, Running: false})
	}
	t.trayKnown = false
	if removed > 0 {
		t.log.Debugf("[Table] Стол очищен: удалено фигур %d", removed)
	}
}

// Pay удаляет фигуры из лотка и уменьшает сумму на их стоимость (не ниже 0).
// Возвращает снятую стоимость.
func (t *Table) Pay() int64 {
	var paid int64
	var pieces []*world.Piece
	t.registry.ForEach(func(p *world.Piece) {
		if t.InTray(p) {
			pieces = append(pieces, p)
			paid += p.RepresentedValue
		}
	})
	if len(pieces) == 0 {
		return 0
	}

	for _, p := range pieces {
		t.gesture.Forget(p)
		t.registry.Remove(p)
	}

	t.amount -= paid
	if t.amount < 0 {
		t.amount = 0
	}
	t.paidTotal += paid
	t.trayKnown = false

	t.emit(Event{Kind: EventPaid, Value: paid, Count: len(pieces)})
	t.emit(Event{Kind: EventAmount, Value: t.amount})

	t.log.Infof("[Table] Оплата %d иен (%d фигур), остаток %d", paid, len(pieces), t.amount)
	t.recorder.Record("pay", map[string]interface{}{
		"paid":      paid,
		"pieces":    len(pieces),
		"remaining": t.amount,
	})
	return paid
}

// InTray - фигура в лотке и не перетаскивается
func (t *Table) InTray(p *world.Piece) bool {
	if p == nil || p == t.grab.Piece() {
		return false
	}
	return t.arena.InTray(p.Body.Position)
}

// ComputeTrayTotal суммирует представленную стоимость фигур в лотке
func (t *Table) ComputeTrayTotal() int64 {
	var total int64
	t.registry.ForEach(func(p *world.Piece) {
		if t.InTray(p) {
			total += p.RepresentedValue
		}
	})
	return total
}

// updateTray пересчитывает сумму лотка; событие только при изменении
func (t *Table) updateTray() {
	total := t.ComputeTrayTotal()
	if t.trayKnown && total == t.trayTotal {
		return
	}
	t.trayKnown = true
	t.trayTotal = total
	t.emit(Event{Kind: EventTrayTotal, Value: total})
}

// spawn создает фигуру из записи очереди в состоянии st
func (t *Table) spawn(entry money.QueueEntry, st spawnState) *world.Piece {
	p := t.factory.NewPiece(entry.Denomination, entry.RepresentedValue)
	b := p.Body
	b.Teleport(st.Position, st.Rotation)
	b.Velocity = st.Velocity
	b.AngularVelocity = st.AngularVelocity
	t.registry.Add(p)
	return p
}

// spawnNext сбрасывает запись очереди по профилю сброса
func (t *Table) spawnNext(entry money.QueueEntry) *world.Piece {
	st := t.spawnCfg.sample(t.rng, entry.Denomination.Kind, t.arena.Clamp)
	p := t.spawn(entry, st)
	t.recorder.Record("spawn", map[string]interface{}{
		"piece": p.RenderID,
		"value": p.Denomination.Value,
		"repr":  p.RepresentedValue,
	})
	return p
}

// Exchange разменивает фигуру на фигуры следующего номинала с сохранением стоимости
func (t *Table) Exchange(p *world.Piece) error {
	if p == nil || !t.registry.Contains(p) || t.grab.Active() {
		return ErrExchangeInapplicable
	}
	target, ok := t.catalog.ExchangeTarget(p.Denomination.Value)
	if !ok {
		return ErrExchangeInapplicable
	}
	count := p.Denomination.Value / target.Value
	if count < 2 || p.RepresentedValue%count != 0 {
		return ErrExchangeInapplicable
	}
	per := p.RepresentedValue / count
	origin := p.Body.Position
	sourceID := p.RenderID

	t.gesture.Forget(p)
	t.registry.Remove(p)

	for i := int64(0); i < count; i++ {
		theta := 2*math.Pi*float64(i)/float64(count) + t.rng.Float64()*0.4
		r := 0.08 + t.rng.Float64()*0.06
		x, z := t.arena.Clamp(origin[0]+r*math.Cos(theta), origin[2]+r*math.Sin(theta), t.spawnCfg.EdgeMargin)
		speed := 0.25 + t.rng.Float64()*0.12
		st := spawnState{
			Position: mgl64.Vec3{x, origin[1] + 0.08 + 0.008*float64(i), z},
			Rotation: t.spawnCfg.tilt(t.rng, target.Kind),
			Velocity: mgl64.Vec3{
				math.Cos(theta) * speed,
				0.95 + t.rng.Float64()*0.45,
				math.Sin(theta) * speed,
			},
			AngularVelocity: t.spawnCfg.spin(t.rng, target.Kind),
		}
		t.spawn(money.QueueEntry{Denomination: target, RepresentedValue: per}, st)
	}

	t.emit(Event{Kind: EventExchanged, PieceID: sourceID, Value: p.RepresentedValue, Count: int(count)})
	t.log.Debugf("[Table] Размен %d (%d) -> %d x %d", p.Denomination.Value, p.RepresentedValue, count, per)
	t.recorder.Record("exchange", map[string]interface{}{
		"piece": sourceID,
		"from":  p.Denomination.Value,
		"to":    target.Value,
		"count": count,
		"repr":  p.RepresentedValue,
	})
	return nil
}

// ToggleTray переносит фигуру в лоток или обратно в кучу
func (t *Table) ToggleTray(p *world.Piece) {
	if p == nil || !t.registry.Contains(p) || p == t.grab.Piece() {
		return
	}
	b := p.Body
	toTray := !t.InTray(p)

	if toTray {
		b.Teleport(t.arena.TrayDropPoint(), b.Quaternion)
		b.Velocity = mgl64.Vec3{0, -trayFallSpeed, 0}
		b.AngularVelocity = mgl64.Vec3{}
	} else {
		st := t.spawnCfg.sample(t.rng, p.Kind, t.arena.Clamp)
		b.Teleport(st.Position, st.Rotation)
		b.Velocity = st.Velocity
		b.AngularVelocity = st.AngularVelocity
	}
	b.WakeUp()
	p.Sync()

	t.recorder.Record("tray_toggle", map[string]interface{}{
		"piece":   p.RenderID,
		"to_tray": toTray,
	})
}

// PickPiece возвращает ближайшую фигуру под пикселем
func (t *Table) PickPiece(x, y float64) (*world.Piece, bool) {
	ray, ok := t.camera.Ray(x, y)
	if !ok {
		return nil, false
	}
	p, _, hit := t.registry.Pick(ray)
	return p, hit
}

// Pick - PickPiece с ошибкой для транспорта
func (t *Table) Pick(x, y float64) (*world.Piece, error) {
	p, ok := t.PickPiece(x, y)
	if !ok {
		return nil, ErrPickMiss
	}
	return p, nil
}

// BeginDrag захватывает фигуру; смещение хвата считается от текущего луча
func (t *Table) BeginDrag(p *world.Piece, x, y float64) bool {
	if p == nil || !t.registry.Contains(p) {
		return false
	}
	b := p.Body
	height := math.Max(b.Position[1]+dragLift, dragMinHeight)
	t.dragHeight = height
	t.grabOffsetX, t.grabOffsetZ = 0, 0
	if hit, ok := t.camera.TablePoint(x, y, height); ok {
		t.grabOffsetX = hit[0] - b.Position[0]
		t.grabOffsetZ = hit[2] - b.Position[2]
	}
	t.grab.Begin(p, height)
	t.trayKnown = false
	return true
}

// DragTo переводит пиксель в цель захвата на высоте удержания
func (t *Table) DragTo(x, y float64) {
	if !t.grab.Active() {
		return
	}
	hit, ok := t.camera.TablePoint(x, y, t.dragHeight)
	if !ok {
		return
	}
	tx, tz := t.arena.Clamp(hit[0]-t.grabOffsetX, hit[2]-t.grabOffsetZ, dragMargin)
	t.grab.SetTarget(tx, tz)
}

// EndDrag отпускает фигуру
func (t *Table) EndDrag() {
	t.grab.Release()
	t.trayKnown = false
}

// BeginPan запоминает камеру и точку стола под пикселем начала
func (t *Table) BeginPan(x, y float64) bool {
	snap := t.camera.Snapshot()
	start, ok := snap.TablePoint(x, y, 0)
	if !ok {
		return false
	}
	t.panActive = true
	t.panCamera = snap
	t.panStart = start
	t.panStartOffset = t.camera.OffsetTarget
	return true
}

// PanTo сдвигает целевое смещение камеры на разницу точек стола.
// Луч строится от снимка камеры, иначе сглаженное смещение дает обратную связь.
func (t *Table) PanTo(x, y float64) {
	if !t.panActive {
		return
	}
	cur, ok := t.panCamera.TablePoint(x, y, 0)
	if !ok {
		return
	}
	d := t.panStart.Sub(cur)
	t.camera.SetOffsetTarget(t.panStartOffset[0]+d[0], t.panStartOffset[1]+d[2])
}

// EndPan завершает панорамирование
func (t *Table) EndPan() {
	t.panActive = false
}

// Panning сообщает об активном панорамировании
func (t *Table) Panning() bool {
	return t.panActive
}

// recoverEscaped возвращает вылетевшие за арену фигуры на стол
func (t *Table) recoverEscaped() int {
	n := 0
	t.registry.ForEach(func(p *world.Piece) {
		b := p.Body
		if !t.arena.Escaped(b, escapeMargin) {
			return
		}
		x, z := t.arena.Clamp(b.Position[0], b.Position[2], dragMargin)
		y := math.Max(b.Position[1], t.spawnCfg.DropHeight*0.5)
		b.Teleport(mgl64.Vec3{x, y, z}, b.Quaternion)
		b.Velocity = mgl64.Vec3{}
		b.AngularVelocity = mgl64.Vec3{}
		b.WakeUp()
		n++
	})
	if n > 0 {
		t.log.Debugf("[Table] Возвращено на стол фигур: %d", n)
	}
	return n
}
