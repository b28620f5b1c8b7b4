package game

import (
	"fmt"
	"math"
	"time"

	"cashpile/backend/internal/world"
)

// Приоритеты систем кадра (меньше = раньше)
const (
	PriorityInput   = 5
	PrioritySpawn   = 10
	PriorityFollow  = 20
	PriorityPhysics = 30
	PrioritySync    = 40
	PriorityTray    = 50
	PrioritySettle  = 60
)

// Attach регистрирует системы стола в цикле
func (t *Table) Attach(gt *GameTicker) {
	for _, s := range t.Systems() {
		gt.RegisterSystem(s)
	}
}

// Systems возвращает системы кадра стола
func (t *Table) Systems() []TickSystem {
	return []TickSystem{
		&InputSystem{name: "InputSystem", priority: PriorityInput, table: t},
		&SpawnSystem{name: "SpawnSystem", priority: PrioritySpawn, table: t},
		&FollowSystem{name: "FollowSystem", priority: PriorityFollow, table: t},
		&PhysicsSystem{name: "PhysicsSystem", priority: PriorityPhysics, table: t},
		&SyncSystem{name: "SyncSystem", priority: PrioritySync, table: t},
		&TraySystem{name: "TraySystem", priority: PriorityTray, table: t},
		&SettleSystem{name: "SettleSystem", priority: PrioritySettle, table: t},
	}
}

// InputSystem продвигает время сессии и таймауты жестов
type InputSystem struct {
	name     string
	priority int
	table    *Table
}

// Update обновляет часы и ожидание двойного тапа
func (s *InputSystem) Update(deltaTime time.Duration) error {
	s.table.now += deltaTime
	s.table.gesture.Tick(s.table.now)
	return nil
}

func (s *InputSystem) GetName() string  { return s.name }
func (s *InputSystem) GetPriority() int { return s.priority }

// SpawnSystem сбрасывает не больше одной фигуры за кадр
type SpawnSystem struct {
	name     string
	priority int
	table    *Table
}

// Update выдает следующую запись очереди по интервалу
func (s *SpawnSystem) Update(deltaTime time.Duration) error {
	t := s.table
	if !t.running {
		return nil
	}
	if entry, ok := t.spawner.Next(deltaTime.Seconds()); ok {
		t.spawnNext(entry)
	}
	return nil
}

func (s *SpawnSystem) GetName() string  { return s.name }
func (s *SpawnSystem) GetPriority() int { return s.priority }

// FollowSystem сглаживает смещение камеры
type FollowSystem struct {
	name     string
	priority int
	table    *Table
	lastX    float64
	lastZ    float64
}

// Update подводит камеру к цели и сообщает о заметном сдвиге
func (s *FollowSystem) Update(deltaTime time.Duration) error {
	c := s.table.camera
	c.Follow(deltaTime.Seconds())
	if math.Abs(c.Offset[0]-s.lastX) > 1e-4 || math.Abs(c.Offset[1]-s.lastZ) > 1e-4 {
		s.lastX, s.lastZ = c.Offset[0], c.Offset[1]
		s.table.emit(Event{Kind: EventCamera})
	}
	return nil
}

func (s *FollowSystem) GetName() string  { return s.name }
func (s *FollowSystem) GetPriority() int { return s.priority }

// PhysicsSystem шагает мир фиксированными подшагами
type PhysicsSystem struct {
	name     string
	priority int
	table    *Table
}

// Update выполняет шаг мира; нечисловое состояние тела фатально
func (s *PhysicsSystem) Update(deltaTime time.Duration) error {
	t := s.table
	cfg := t.physCfg
	t.world.Step(cfg.FixedTimeStep, deltaTime.Seconds(), cfg.MaxSubSteps)

	var broken *world.Piece
	t.registry.ForEach(func(p *world.Piece) {
		if broken == nil && !finiteVec(p.Body.Position[:]) {
			broken = p
		}
	})
	if broken != nil {
		return fmt.Errorf("%w: piece %d has non-finite position", ErrFatal, broken.RenderID)
	}

	t.recoverEscaped()
	return nil
}

func (s *PhysicsSystem) GetName() string  { return s.name }
func (s *PhysicsSystem) GetPriority() int { return s.priority }

func finiteVec(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// SyncSystem копирует трансформы тел в состояние рендера
type SyncSystem struct {
	name     string
	priority int
	table    *Table
}

// Update синхронизирует все фигуры
func (s *SyncSystem) Update(deltaTime time.Duration) error {
	s.table.registry.ForEach(func(p *world.Piece) {
		p.Sync()
	})
	return nil
}

func (s *SyncSystem) GetName() string  { return s.name }
func (s *SyncSystem) GetPriority() int { return s.priority }

// TraySystem пересчитывает сумму лотка после шага
type TraySystem struct {
	name     string
	priority int
	table    *Table
}

// Update обновляет сумму лотка
func (s *TraySystem) Update(deltaTime time.Duration) error {
	s.table.updateTray()
	return nil
}

func (s *TraySystem) GetName() string  { return s.name }
func (s *TraySystem) GetPriority() int { return s.priority }

// SettleSystem завершает сброс, когда куча успокоилась
type SettleSystem struct {
	name     string
	priority int
	table    *Table
}

// Update копит время покоя после опустошения очереди
func (s *SettleSystem) Update(deltaTime time.Duration) error {
	t := s.table
	if !t.running || t.spawner.Len() > 0 {
		return nil
	}
	if !t.settle.Update(deltaTime.Seconds(), t.settle.PileSettled(t.registry)) {
		return nil
	}

	t.running = false
	t.emit(Event{Kind: EventRunning, Running: false})
	t.log.Infof("[Table] Куча успокоилась: фигур %d, время мира %.2fс", t.registry.Size(), t.world.Time())
	t.recorder.Record("settle", map[string]interface{}{
		"pieces":     t.registry.Size(),
		"world_time": t.world.Time(),
	})
	return nil
}

func (s *SettleSystem) GetName() string  { return s.name }
func (s *SettleSystem) GetPriority() int { return s.priority }
