package ws

import (
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait - предельное время записи одного сообщения
const writeWait = 5 * time.Second

// SafeWriter обеспечивает потокобезопасную запись в WebSocket
type SafeWriter struct {
	conn   *websocket.Conn
	mutex  sync.Mutex
	closed bool
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{
		conn: conn,
	}
}

// WriteJSON потокобезопасно отправляет JSON данные через WebSocket.
// NaN и Inf в map-сообщениях заменяются нулями.
func (w *SafeWriter) WriteJSON(v interface{}) error {
	jsonData, err := json.Marshal(v)
	if err != nil {
		if mapData, ok := v.(map[string]interface{}); ok {
			sanitizeMapValues(mapData)
			jsonData, err = json.Marshal(mapData)
		}
		if err != nil {
			return err
		}
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return websocket.ErrCloseSent
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, jsonData)
}

// WritePing отправляет control-фрейм ping
func (w *SafeWriter) WritePing() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return websocket.ErrCloseSent
	}
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close закрывает соединение WebSocket. Повторный вызов ничего не делает.
func (w *SafeWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.conn.Close()
}

// sanitizeMapValues рекурсивно обходит map и заменяет NaN/Inf на 0
func sanitizeMapValues(data map[string]interface{}) {
	for k, v := range data {
		data[k] = sanitizeValue(v)
	}
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0.0
		}
	case float32:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return float32(0)
		}
	case map[string]interface{}:
		sanitizeMapValues(val)
	case []interface{}:
		for i, item := range val {
			val[i] = sanitizeValue(item)
		}
	}
	return v
}

// safeFloat32 заменяет NaN/Inf значением по умолчанию
func safeFloat32(val float32, defaultVal float32) float32 {
	f := float64(val)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultVal
	}
	return val
}
