package game

import (
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/world"
)

// EventKind - тип события стола для транспорта и терминала
type EventKind int

const (
	EventPieceAdded EventKind = iota
	EventPieceRemoved
	EventTrayTotal
	EventAmount
	EventRunning
	EventPlan
	EventPaid
	EventExchanged
	EventCamera
)

func (k EventKind) String() string {
	switch k {
	case EventPieceAdded:
		return "piece_added"
	case EventPieceRemoved:
		return "piece_removed"
	case EventTrayTotal:
		return "tray_total"
	case EventAmount:
		return "amount"
	case EventRunning:
		return "running"
	case EventPlan:
		return "plan"
	case EventPaid:
		return "paid"
	case EventExchanged:
		return "exchanged"
	case EventCamera:
		return "camera"
	default:
		return "unknown"
	}
}

// Event - изменение состояния стола. Заполнены только поля, относящиеся к Kind.
type Event struct {
	Kind    EventKind
	Piece   *world.Piece
	PieceID uint64
	Value   int64
	Running bool
	Plan    *money.Plan
	Count   int
}

// Recorder принимает доменные события для телеметрии
type Recorder interface {
	Record(kind string, fields map[string]interface{})
}

type nopRecorder struct{}

func (nopRecorder) Record(string, map[string]interface{}) {}
