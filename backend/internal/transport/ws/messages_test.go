package ws

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpile/backend/internal/game"
	"cashpile/backend/internal/gesture"
	"cashpile/backend/internal/money"
)

func TestGetCurrentServerTime(t *testing.T) {
	now := time.Now().UnixNano() / int64(time.Millisecond)
	serverTime := GetCurrentServerTime()
	assert.InDelta(t, now, serverTime, 100)
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected interface{}
		error    bool
	}{
		{
			name:     "PayMessage",
			json:     `{"type":"pay"}`,
			expected: &PayMessage{Type: MessageTypePay},
		},
		{
			name: "PointerMessage",
			json: `{"type":"pointer","event":"down","pointer_id":3,"pointer_type":"touch","button":0,"x":10.5,"y":20}`,
			expected: &PointerMessage{
				Type:        MessageTypePointer,
				Event:       "down",
				PointerID:   3,
				PointerType: "touch",
				X:           10.5,
				Y:           20,
			},
		},
		{
			name:     "ViewportMessage",
			json:     `{"type":"viewport","width":800,"height":600}`,
			expected: &ViewportMessage{Type: MessageTypeViewport, Width: 800, Height: 600},
		},
		{
			name:     "PingMessage",
			json:     `{"type":"ping","client_time":123456}`,
			expected: &PingMessage{Type: MessageTypePing, ClientTime: 123456},
		},
		{
			name:  "Invalid JSON",
			json:  `{"type":`,
			error: true,
		},
		{
			name:  "Unknown message type",
			json:  `{"type":"create"}`,
			error: true,
		},
		{
			name:  "Wrong field type",
			json:  `{"type":"viewport","width":"wide"}`,
			error: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseMessage([]byte(tt.json))
			if tt.error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseMessageUnknownTypeIsSentinel(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestDropMessageValue(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		nan  bool
	}{
		{raw: `12345`, want: 12345},
		{raw: `12.9`, want: 12.9},
		{raw: `"1,000"`, want: 1000},
		{raw: `" 42 "`, want: 42},
		{raw: `"abc"`, nan: true},
		{raw: `""`, nan: true},
		{raw: `null`, nan: true},
		{raw: ``, nan: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			msg := &DropMessage{Type: MessageTypeDrop, Amount: json.RawMessage(tt.raw)}
			got := msg.Value()
			if tt.nan {
				assert.True(t, math.IsNaN(got))
				_, err := money.ParseAmount(got)
				assert.ErrorIs(t, err, money.ErrInvalidAmount)
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPointerMessageToEvent(t *testing.T) {
	msg := &PointerMessage{Event: "contextmenu", PointerID: 1, PointerType: "stylus", Button: 2, X: 4, Y: 5}
	ev, err := msg.PointerEvent()
	require.NoError(t, err)
	assert.Equal(t, gesture.ContextMenu, ev.Kind)
	assert.Equal(t, gesture.Mouse, ev.PointerType, "unknown pointer types fall back to mouse")
	assert.Equal(t, 2, ev.Button)

	_, err = (&PointerMessage{Event: "hover"}).PointerEvent()
	assert.Error(t, err)
}

func TestRepromptMessage(t *testing.T) {
	msg := NewRepromptMessage(money.ErrInvalidAmount)
	assert.Equal(t, MessageTypeReprompt, msg.Type)
	assert.Equal(t, "invalid_amount", msg.Reason)

	msg = NewRepromptMessage(game.ErrAssetsNotReady)
	assert.Equal(t, "assets_not_ready", msg.Reason)

	msg = NewRepromptMessage(errors.New("boom"))
	assert.Equal(t, "error", msg.Reason)
	assert.Equal(t, "boom", msg.Message)
}
