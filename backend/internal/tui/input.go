package tui

import (
	"math"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"cashpile/backend/internal/gesture"
)

// Ячейка терминала считается прямоугольником CellWidth×CellHeight пикселей,
// поэтому пороги жестов в пикселях сохраняют смысл
const (
	CellWidth  = 8
	CellHeight = 16

	statusRows   = 2
	maxPromptLen = 12
	mousePointer = 1
)

// Layout - размер терминала в ячейках
type Layout struct {
	Cols int
	Rows int
}

// BoardRows - строки под стол, без строк статуса
func (l Layout) BoardRows() int {
	if r := l.Rows - statusRows; r > 1 {
		return r
	}
	return 1
}

// PixelSize - размер вьюпорта камеры в пикселях
func (l Layout) PixelSize() (int, int) {
	cols := l.Cols
	if cols < 1 {
		cols = 1
	}
	return cols * CellWidth, l.BoardRows() * CellHeight
}

// CellToPixel возвращает центр ячейки в пикселях вьюпорта
func CellToPixel(col, row int) (float64, float64) {
	return float64(col*CellWidth) + CellWidth/2, float64(row*CellHeight) + CellHeight/2
}

// PixelToCell возвращает ячейку, содержащую пиксель
func PixelToCell(x, y float64) (int, int) {
	return int(math.Floor(x / CellWidth)), int(math.Floor(y / CellHeight))
}

// MouseMapper переводит состояния кнопок tcell в поток событий указателя.
// tcell сообщает маску нажатых кнопок, переходы восстанавливаются по предыдущей маске.
type MouseMapper struct {
	pressed tcell.ButtonMask
	col     int
	row     int
}

// Map возвращает события указателя для одного события мыши
func (m *MouseMapper) Map(ev *tcell.EventMouse) []gesture.PointerEvent {
	col, row := ev.Position()
	x, y := CellToPixel(col, row)
	buttons := ev.Buttons() & (tcell.ButtonPrimary | tcell.ButtonSecondary)
	moved := col != m.col || row != m.row

	pointer := func(kind gesture.EventKind, button int) gesture.PointerEvent {
		return gesture.PointerEvent{
			Kind:        kind,
			PointerID:   mousePointer,
			PointerType: gesture.Mouse,
			Button:      button,
			X:           x,
			Y:           y,
		}
	}

	var out []gesture.PointerEvent
	wasPrimary := m.pressed&tcell.ButtonPrimary != 0
	isPrimary := buttons&tcell.ButtonPrimary != 0

	switch {
	case isPrimary && !wasPrimary:
		out = append(out, pointer(gesture.Down, gesture.ButtonPrimary))
	case isPrimary && moved:
		out = append(out, pointer(gesture.Move, gesture.ButtonPrimary))
	case !isPrimary && wasPrimary:
		if moved {
			out = append(out, pointer(gesture.Move, gesture.ButtonPrimary))
		}
		out = append(out, pointer(gesture.Up, gesture.ButtonPrimary))
	}

	if buttons&tcell.ButtonSecondary != 0 && m.pressed&tcell.ButtonSecondary == 0 {
		out = append(out, pointer(gesture.ContextMenu, gesture.ButtonSecondary))
	}

	m.pressed = buttons
	m.col, m.row = col, row
	return out
}

// Action - действие клавиатуры
type Action int

const (
	ActionNone Action = iota
	ActionEdit
	ActionDrop
	ActionPay
	ActionQuit
)

// Prompt - строка ввода суммы
type Prompt struct {
	buf []rune
}

// Text возвращает набранную строку
func (p *Prompt) Text() string {
	return string(p.buf)
}

// HandleKey обновляет строку и возвращает действие.
// Для ActionDrop вторым значением идет набранная сумма, строка очищается.
func (p *Prompt) HandleKey(ev *tcell.EventKey) (Action, string) {
	if IsQuitKey(ev) {
		return ActionQuit, ""
	}

	switch ev.Key() {
	case tcell.KeyEnter:
		if len(p.buf) == 0 {
			return ActionNone, ""
		}
		text := string(p.buf)
		p.buf = p.buf[:0]
		return ActionDrop, text
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.buf) == 0 {
			return ActionNone, ""
		}
		p.buf = p.buf[:len(p.buf)-1]
		return ActionEdit, ""
	case tcell.KeyRune:
	default:
		return ActionNone, ""
	}

	r := ev.Rune()
	switch {
	case r == 'p' || r == 'P':
		return ActionPay, ""
	case (r >= '0' && r <= '9') || r == ',' || r == '.':
		if len(p.buf) >= maxPromptLen {
			return ActionNone, ""
		}
		p.buf = append(p.buf, r)
		return ActionEdit, ""
	}
	return ActionNone, ""
}

// IsQuitKey - q, Esc или Ctrl-C
func IsQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

// ParseAmount разбирает набранную сумму; ошибка разбора дает NaN,
// который стол отвергает как некорректную сумму
func ParseAmount(text string) float64 {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
