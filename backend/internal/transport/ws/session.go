package ws

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/assets"
	"cashpile/backend/internal/game"
	"cashpile/backend/internal/telemetry"
)

const (
	// вмещает удаление всей кучи за один кадр вместе с сообщениями статуса
	sendQueueSize  = 4096
	maxMessageSize = 64 * 1024
)

// Session - одно соединение и его независимый стол со своим циклом
type Session struct {
	id        string
	conn      *SafeWriter
	ws        *websocket.Conn
	table     *game.Table
	ticker    *game.GameTicker
	telemetry *telemetry.TelemetryManager
	assets    AssetSource
	log       logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	send   chan interface{}

	pingInterval time.Duration
	pongWait     time.Duration
	netsim       *netSim

	// Состояние ниже трогает только горутина цикла
	stream     *updateStream
	lastAssets string

	droppedUpdates atomic.Uint64
}

// ID - идентификатор сессии
func (s *Session) ID() string { return s.id }

// Table - стол сессии. Вызывать его методы можно только через Ticker().Enqueue.
func (s *Session) Table() *game.Table { return s.table }

// Ticker - цикл сессии
func (s *Session) Ticker() *game.GameTicker { return s.ticker }

// Done закрывается при завершении сессии
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Close завершает сессию
func (s *Session) Close() { s.cancel() }

// push ставит сообщение в очередь записи, ожидая места. Только вне цикла стола.
func (s *Session) push(msg interface{}) bool {
	select {
	case s.send <- msg:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// offer ставит сообщение в очередь без ожидания; пакеты трансформов можно терять
func (s *Session) offer(msg interface{}) bool {
	select {
	case s.send <- msg:
		return true
	default:
		s.droppedUpdates.Add(1)
		return false
	}
}

// deliver ставит обязательное сообщение без ожидания, цикл стола не блокируется.
// Переполненная очередь значит, что клиент не успевает читать; пропуск создания
// или удаления фигуры рассинхронизирует его, поэтому сессия закрывается.
func (s *Session) deliver(msg interface{}) bool {
	select {
	case s.send <- msg:
		return true
	default:
		s.log.WithField("queue", cap(s.send)).Warn("[Session] Очередь записи переполнена, закрываем сессию")
		s.cancel()
		return false
	}
}

// greet отправляет начальное состояние до запуска цикла
func (s *Session) greet() {
	s.push(NewInfoMessage(s.id, "Connected to cashpile table"))
	s.push(NewDenominationsMessage(s.table.Catalog()))
	s.sendAssets()
	for _, st := range s.table.Arena().Statics {
		s.push(NewStaticCreateMessage(st))
	}
	s.push(NewCameraMessage(s.table.Camera()))
	s.push(NewStatusMessage(s.table))
}

func (s *Session) sendAssets() bool {
	msg := NewAssetsMessage(s.assets)
	if msg.State == s.lastAssets {
		return false
	}
	s.lastAssets = msg.State
	if msg.State == assets.StateReady.String() && s.assets != nil {
		// Аспекты купюр известны только после загрузки
		s.deliver(NewDenominationsMessage(s.table.Catalog().WithBillAspects(s.assets.BillAspects(s.table.Catalog()))))
	}
	s.deliver(msg)
	return true
}

// onFrame переводит события стола в сообщения; выполняется в горутине цикла
func (s *Session) onFrame(delta time.Duration) {
	statusDirty := false
	cameraDirty := false

	for _, ev := range s.table.DrainEvents() {
		switch ev.Kind {
		case game.EventPieceAdded:
			msg := NewPieceCreateMessage(ev.Piece)
			s.stream.Track(ev.PieceID, Transform{X: msg.X, Y: msg.Y, Z: msg.Z, QX: msg.QX, QY: msg.QY, QZ: msg.QZ, QW: msg.QW})
			s.deliver(msg)
		case game.EventPieceRemoved:
			s.stream.Forget(ev.PieceID)
			s.deliver(NewRemoveMessage(PieceID(ev.PieceID)))
		case game.EventTrayTotal:
			s.deliver(NewValueMessage(MessageTypeTrayTotal, ev.Value))
		case game.EventAmount:
			s.deliver(NewValueMessage(MessageTypeAmount, ev.Value))
		case game.EventRunning, game.EventPlan, game.EventPaid, game.EventExchanged:
			statusDirty = true
		case game.EventCamera:
			cameraDirty = true
		}
	}

	if s.assets != nil && s.sendAssets() {
		statusDirty = true
	}
	if cameraDirty {
		s.deliver(NewCameraMessage(s.table.Camera()))
	}
	if statusDirty {
		s.deliver(NewStatusMessage(s.table))
	}

	if s.stream.Advance(delta) {
		if msg := s.stream.Collect(s.table.Registry().All()); msg != nil {
			s.offer(msg)
		}
	}
	s.telemetry.PrintSummary()
}

func (s *Session) onFatal(err error) {
	s.log.WithError(err).Error("[Session] Цикл стола остановлен")
	s.offer(NewInfoMessage(s.id, "table stopped: "+err.Error()))
	s.cancel()
}

// writeLoop - единственный писатель в соединение. При имитации сети сообщения
// копятся в расписании и пишутся, когда наступает их момент доставки.
func (s *Session) writeLoop() {
	var pingC <-chan time.Time
	if s.pingInterval > 0 {
		ping := time.NewTicker(s.pingInterval)
		defer ping.Stop()
		pingC = ping.C
	}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var due <-chan time.Time
		if at, ok := s.netsim.next(); ok {
			timer.Reset(time.Until(at))
			due = timer.C
		}

		select {
		case msg := <-s.send:
			if s.netsim == nil {
				if !s.write(msg) {
					return
				}
				continue
			}
			if !s.netsim.admit(msg, time.Now()) {
				s.droppedUpdates.Add(1)
			}
		case <-due:
			if !s.netsim.release(time.Now(), s.write) {
				return
			}
		case <-pingC:
			if err := s.conn.WritePing(); err != nil {
				s.cancel()
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) write(msg interface{}) bool {
	if err := s.conn.WriteJSON(msg); err != nil {
		s.log.WithError(err).Debug("[Session] Ошибка записи, закрываем сессию")
		s.cancel()
		return false
	}
	return true
}

// readLoop читает команды клиента и передает их в цикл стола
func (s *Session) readLoop() {
	s.ws.SetReadLimit(maxMessageSize)
	if s.pongWait > 0 {
		_ = s.ws.SetReadDeadline(time.Now().Add(s.pongWait))
		s.ws.SetPongHandler(func(string) error {
			return s.ws.SetReadDeadline(time.Now().Add(s.pongWait))
		})
	}

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).Warn("[Session] WebSocket error")
			}
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		s.dispatch(data)
	}
}

// dispatch разбирает сообщение; стол меняется только командой в цикле
func (s *Session) dispatch(data []byte) {
	message, err := ParseMessage(data)
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			s.log.WithError(err).Debug("[Session] Сообщение пропущено")
			return
		}
		if t, _ := GetMessageType(data); t == MessageTypeDrop {
			s.push(NewRepromptMessage(err))
		}
		s.log.WithError(err).Debug("[Session] Ошибка разбора сообщения")
		return
	}

	switch msg := message.(type) {
	case *DropMessage:
		raw := msg.Value()
		s.enqueue(MessageTypeDrop, func() {
			if _, err := s.table.Drop(raw); err != nil {
				s.log.WithError(err).Debug("[Session] Сумма не принята")
				s.push(NewRepromptMessage(err))
			}
		})
	case *PayMessage:
		s.enqueue(MessageTypePay, func() { s.table.Pay() })
	case *PointerMessage:
		ev, err := msg.PointerEvent()
		if err != nil {
			s.log.WithError(err).Debug("[Session] Событие указателя пропущено")
			return
		}
		s.enqueue(MessageTypePointer, func() { s.table.HandlePointer(ev) })
	case *ViewportMessage:
		if msg.Width <= 0 || msg.Height <= 0 {
			return
		}
		w, h := msg.Width, msg.Height
		s.enqueue(MessageTypeViewport, func() { s.table.SetViewport(w, h) })
	case *PingMessage:
		s.push(NewPongMessage(msg.ClientTime))
	}
}

func (s *Session) enqueue(kind string, cmd func()) {
	if !s.ticker.Enqueue(cmd) {
		s.log.WithField("message", kind).Warn("[Session] Очередь команд недоступна, команда отброшена")
	}
}

// Stats - статистика цикла сессии
func (s *Session) Stats() map[string]interface{} {
	stats := s.ticker.GetStats()
	stats["session"] = s.id
	stats["dropped_updates"] = s.droppedUpdates.Load()
	return stats
}
