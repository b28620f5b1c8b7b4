// Package gesture разбирает поток указательных событий в действия над столом:
// тап, двойной тап, перетаскивание фигуры, панорамирование и размен.
package gesture

import (
	"math"
	"time"

	"cashpile/backend/internal/world"
)

// EventKind - тип указательного события
type EventKind int

const (
	Down EventKind = iota
	Move
	Up
	Cancel
	ContextMenu
)

var eventKindNames = map[string]EventKind{
	"down":        Down,
	"move":        Move,
	"up":          Up,
	"cancel":      Cancel,
	"contextmenu": ContextMenu,
}

// ParseEventKind разбирает имя события клиента
func ParseEventKind(s string) (EventKind, bool) {
	k, ok := eventKindNames[s]
	return k, ok
}

// PointerType - источник указателя
type PointerType string

const (
	Mouse PointerType = "mouse"
	Touch PointerType = "touch"
	Pen   PointerType = "pen"
)

// Кнопки в нумерации PointerEvent.button
const (
	ButtonPrimary   = 0
	ButtonSecondary = 2
)

// PointerEvent - событие указателя в пикселях вьюпорта
type PointerEvent struct {
	Kind        EventKind
	PointerID   int
	PointerType PointerType
	Button      int
	X, Y        float64
}

// Config - пороги распознавания жестов
type Config struct {
	DragThreshold     float64
	PanThreshold      float64
	DoubleTapWindow   time.Duration
	DoubleTapDistance float64
}

// DefaultConfig возвращает стандартные пороги
func DefaultConfig() Config {
	return Config{
		DragThreshold:     8,
		PanThreshold:      6,
		DoubleTapWindow:   280 * time.Millisecond,
		DoubleTapDistance: 28,
	}
}

// Host выполняет действия, распознанные автоматом
type Host interface {
	PickPiece(x, y float64) (*world.Piece, bool)
	BeginDrag(p *world.Piece, x, y float64) bool
	DragTo(x, y float64)
	EndDrag()
	BeginPan(x, y float64) bool
	PanTo(x, y float64)
	EndPan()
	Exchange(p *world.Piece) error
	ToggleTray(p *world.Piece)
}

// State - состояние автомата
type State int

const (
	Idle State = iota
	Armed
	Dragging
	Panning
	PendingTap
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Panning:
		return "panning"
	case PendingTap:
		return "pending_tap"
	default:
		return "unknown"
	}
}

// FSM - единый автомат указателя. Одновременно активен максимум один жест,
// события других указателей во время жеста игнорируются.
type FSM struct {
	cfg  Config
	host Host

	state       State
	pointerID   int
	pointerType PointerType
	piece       *world.Piece
	startX      float64
	startY      float64
	panStarted  bool
	tapAt       time.Duration

	// после размена двойным тапом остаток касания поглощается
	swallowing bool
	swallowID  int
}

// New создает автомат
func New(host Host, cfg Config) *FSM {
	return &FSM{cfg: cfg, host: host}
}

// State возвращает текущее состояние
func (f *FSM) State() State {
	return f.state
}

// Piece возвращает фигуру текущего жеста (nil, если нет)
func (f *FSM) Piece() *world.Piece {
	return f.piece
}

// Dragging сообщает, идет ли перетаскивание
func (f *FSM) Dragging() bool {
	return f.state == Dragging
}

// Panning сообщает, идет ли панорамирование
func (f *FSM) Panning() bool {
	return f.state == Panning && f.panStarted
}

// Handle обрабатывает событие; now - монотонное время сессии
func (f *FSM) Handle(ev PointerEvent, now time.Duration) {
	if f.swallowing && ev.PointerID == f.swallowID {
		if ev.Kind == Up || ev.Kind == Cancel {
			f.swallowing = false
		}
		return
	}

	switch ev.Kind {
	case ContextMenu:
		f.secondary(ev, now)
	case Down:
		if ev.Button != ButtonPrimary {
			return
		}
		f.down(ev, now)
	case Move:
		f.move(ev)
	case Up:
		f.up(ev, now, false)
	case Cancel:
		f.up(ev, now, true)
	}
}

// Tick завершает ожидание второго тапа по таймауту
func (f *FSM) Tick(now time.Duration) {
	if f.state == PendingTap && now-f.tapAt > f.cfg.DoubleTapWindow {
		f.flushPending()
	}
}

// Reset прерывает любой жест; перетаскивание корректно завершается
func (f *FSM) Reset() {
	switch f.state {
	case Dragging:
		f.host.EndDrag()
	case Panning:
		if f.panStarted {
			f.host.EndPan()
		}
	}
	f.clear()
	f.swallowing = false
}

// Forget сбрасывает жест, если он относится к удаленной фигуре
func (f *FSM) Forget(p *world.Piece) {
	if p == nil || f.piece != p {
		return
	}
	if f.state == Dragging {
		f.host.EndDrag()
	}
	f.clear()
}

func (f *FSM) secondary(ev PointerEvent, now time.Duration) {
	switch f.state {
	case Idle:
	case PendingTap:
		f.flushPending()
	case Armed:
		// долгое касание на мобильных приходит как contextmenu поверх armed
		f.swallow(f.pointerID)
		f.clear()
	default:
		return
	}
	if p, ok := f.host.PickPiece(ev.X, ev.Y); ok {
		_ = f.host.Exchange(p)
	}
}

func (f *FSM) down(ev PointerEvent, now time.Duration) {
	if f.state == PendingTap {
		if now-f.tapAt <= f.cfg.DoubleTapWindow && f.distance(ev) <= f.cfg.DoubleTapDistance {
			p := f.piece
			f.clear()
			f.swallow(ev.PointerID)
			_ = f.host.Exchange(p)
			return
		}
		f.flushPending()
	}
	if f.state != Idle {
		return
	}

	f.pointerID = ev.PointerID
	f.pointerType = ev.PointerType
	f.startX, f.startY = ev.X, ev.Y

	if p, ok := f.host.PickPiece(ev.X, ev.Y); ok {
		f.state = Armed
		f.piece = p
		return
	}
	f.state = Panning
	f.panStarted = false
}

func (f *FSM) move(ev PointerEvent) {
	if ev.PointerID != f.pointerID {
		return
	}
	switch f.state {
	case Armed:
		if f.distance(ev) < f.cfg.DragThreshold {
			return
		}
		if !f.host.BeginDrag(f.piece, ev.X, ev.Y) {
			f.clear()
			return
		}
		f.state = Dragging
	case Dragging:
		f.host.DragTo(ev.X, ev.Y)
	case Panning:
		if !f.panStarted {
			if f.distance(ev) < f.cfg.PanThreshold {
				return
			}
			if !f.host.BeginPan(f.startX, f.startY) {
				return
			}
			f.panStarted = true
		}
		f.host.PanTo(ev.X, ev.Y)
	}
}

func (f *FSM) up(ev PointerEvent, now time.Duration, cancel bool) {
	if ev.PointerID != f.pointerID {
		return
	}
	switch f.state {
	case Armed:
		p := f.piece
		if cancel {
			f.clear()
			return
		}
		if f.pointerType == Touch {
			f.state = PendingTap
			f.tapAt = now
			return
		}
		f.clear()
		f.host.ToggleTray(p)
	case Dragging:
		f.clear()
		f.host.EndDrag()
	case Panning:
		started := f.panStarted
		f.clear()
		if started {
			f.host.EndPan()
		}
	}
}

func (f *FSM) flushPending() {
	p := f.piece
	f.clear()
	if p != nil {
		f.host.ToggleTray(p)
	}
}

func (f *FSM) swallow(id int) {
	f.swallowing = true
	f.swallowID = id
}

func (f *FSM) clear() {
	f.state = Idle
	f.piece = nil
	f.panStarted = false
}

func (f *FSM) distance(ev PointerEvent) float64 {
	return math.Hypot(ev.X-f.startX, ev.Y-f.startY)
}
