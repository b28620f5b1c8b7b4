package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cashpile/backend/internal/game"
	"cashpile/backend/internal/gesture"
	"cashpile/backend/internal/money"
)

// ErrUnknownMessage - тип сообщения не поддерживается
var ErrUnknownMessage = errors.New("unknown message type")

// GetCurrentServerTime возвращает текущее время сервера в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// ParseMessage разбирает входящее сообщение клиента в соответствующий тип
func ParseMessage(data []byte) (interface{}, error) {
	msgType, err := GetMessageType(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	var msg interface{}
	switch msgType {
	case MessageTypeDrop:
		msg = &DropMessage{}
	case MessageTypePay:
		msg = &PayMessage{}
	case MessageTypePointer:
		msg = &PointerMessage{}
	case MessageTypeViewport:
		msg = &ViewportMessage{}
	case MessageTypePing:
		msg = &PingMessage{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msgType)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("error parsing %s message: %w", msgType, err)
	}
	return msg, nil
}

// GetMessageType возвращает тип сообщения на основе входных данных
func GetMessageType(data []byte) (string, error) {
	var baseMessage struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(data, &baseMessage); err != nil {
		return "", err
	}

	return baseMessage.Type, nil
}

// Value возвращает введенную сумму как число. Строки разбираются так же, как
// поле ввода: пробелы и запятые-разделители игнорируются. Нечисловой ввод дает NaN,
// чтобы проверка суммы вернула money.ErrInvalidAmount.
func (m *DropMessage) Value() float64 {
	raw := strings.TrimSpace(string(m.Amount))
	if raw == "" || raw == "null" {
		return math.NaN()
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(m.Amount, &s); err != nil {
			return math.NaN()
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// PointerEvent переводит сообщение в событие автомата жестов
func (m *PointerMessage) PointerEvent() (gesture.PointerEvent, error) {
	kind, ok := gesture.ParseEventKind(m.Event)
	if !ok {
		return gesture.PointerEvent{}, fmt.Errorf("unknown pointer event %q", m.Event)
	}
	pt := gesture.PointerType(m.PointerType)
	switch pt {
	case gesture.Mouse, gesture.Touch, gesture.Pen:
	default:
		pt = gesture.Mouse
	}
	return gesture.PointerEvent{
		Kind:        kind,
		PointerID:   m.PointerID,
		PointerType: pt,
		Button:      m.Button,
		X:           m.X,
		Y:           m.Y,
	}, nil
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(session, message string) *InfoMessage {
	return &InfoMessage{
		Type:    MessageTypeInfo,
		Session: session,
		Message: message,
	}
}

// NewPongMessage создает ответ на ping
func NewPongMessage(clientTime int64) *PongMessage {
	return &PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewValueMessage создает сообщение с суммой
func NewValueMessage(msgType string, value int64) *ValueMessage {
	return &ValueMessage{Type: msgType, Value: value}
}

// NewRemoveMessage создает сообщение об удалении
func NewRemoveMessage(id string) *RemoveMessage {
	return &RemoveMessage{Type: MessageTypeRemove, ID: id}
}

// NewRepromptMessage объясняет, почему сумма не принята
func NewRepromptMessage(err error) *RepromptMessage {
	msg := &RepromptMessage{Type: MessageTypeReprompt, Reason: "error", Message: err.Error()}
	if errors.Is(err, money.ErrInvalidAmount) {
		msg.Reason = "invalid_amount"
		msg.Message = "金額を正の数で入力してください"
	} else if errors.Is(err, game.ErrAssetsNotReady) {
		msg.Reason = "assets_not_ready"
		msg.Message = "画像を読み込み中です"
	}
	return msg
}
