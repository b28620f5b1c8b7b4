package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/transport/ws"
)

const (
	viewportWidth  = 1280
	viewportHeight = 720
	botPointer     = 1
)

// Bot подключается к серверу как браузерный клиент: выкладывает суммы,
// тыкает и тащит фигуры, периодически оплачивает лоток
type Bot struct {
	ID          string
	ServerURL   string
	Pattern     string
	Duration    time.Duration
	CommandRate time.Duration
	PayEvery    time.Duration
	MaxAmount   int64

	conn    *websocket.Conn
	writeMu sync.Mutex
	rng     *rand.Rand
	log     logrus.FieldLogger

	mu      sync.RWMutex
	session string
	running bool
	ready   bool

	Stats BotStats
}

// BotStats содержит статистику работы бота
type BotStats struct {
	mu sync.Mutex

	StartTime         time.Time
	CommandsSent      int
	MessagesReceived  int
	PiecesCreated     int
	PiecesRemoved     int
	Reprompts         int
	Errors            int
	LastTrayTotal     int64
	LastAmount        int64
	RoundTrips        int
	TotalRTT          time.Duration
	MaxRTT            time.Duration
	UpdateBatches     int
	UpdatedTransforms int
}

func (s *BotStats) add(fn func(s *BotStats)) {
	s.mu.Lock()
	fn(s)
	s.mu.Unlock()
}

// NewBot создает нового бота
func NewBot(id, serverURL, pattern string, duration, commandRate time.Duration, log logrus.FieldLogger) *Bot {
	return &Bot{
		ID:          id,
		ServerURL:   serverURL,
		Pattern:     pattern,
		Duration:    duration,
		CommandRate: commandRate,
		PayEvery:    10 * time.Second,
		MaxAmount:   50000,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		log:         log.WithField("bot", id),
		Stats:       BotStats{StartTime: time.Now()},
	}
}

// Connect подключается к серверу
func (b *Bot) Connect(ctx context.Context) error {
	u, err := url.Parse(b.ServerURL)
	if err != nil {
		return fmt.Errorf("неверный URL: %w", err)
	}

	b.log.Infof("[Bot] Подключение к %s", u.String())
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("ошибка подключения: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.running = true
	b.mu.Unlock()
	return nil
}

// Disconnect отключается от сервера
func (b *Bot) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || !b.running {
		return
	}
	b.running = false

	b.writeMu.Lock()
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	b.writeMu.Unlock()
	b.conn.Close()
	b.log.Info("[Bot] Отключен")
}

func (b *Bot) isRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *Bot) send(v interface{}) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteJSON(v); err != nil {
		b.Stats.add(func(s *BotStats) { s.Errors++ })
		return err
	}
	b.Stats.add(func(s *BotStats) { s.CommandsSent++ })
	return nil
}

func (b *Bot) sendDrop() error {
	amount := 1 + b.rng.Int64N(b.MaxAmount)
	b.log.Debugf("[Bot] Сброс %d иен", amount)
	return b.send(ws.DropMessage{
		Type:   ws.MessageTypeDrop,
		Amount: json.RawMessage(strconv.FormatInt(amount, 10)),
	})
}

func (b *Bot) sendPointer(event string, button int, x, y float64) error {
	return b.send(ws.PointerMessage{
		Type:        ws.MessageTypePointer,
		Event:       event,
		PointerID:   botPointer,
		PointerType: "mouse",
		Button:      button,
		X:           x,
		Y:           y,
	})
}

// gesture выполняет один жест в зависимости от паттерна
func (b *Bot) gesture() error {
	x := viewportWidth * (0.2 + 0.6*b.rng.Float64())
	y := viewportHeight * (0.2 + 0.6*b.rng.Float64())

	switch b.Pattern {
	case "exchange":
		return b.sendPointer("contextmenu", 2, x, y)
	case "drag":
		if err := b.sendPointer("down", 0, x, y); err != nil {
			return err
		}
		// тащим к правому нижнему углу, где лежит лоток
		tx, ty := viewportWidth*0.8, viewportHeight*0.8
		for i := 1; i <= 8; i++ {
			f := float64(i) / 8
			if err := b.sendPointer("move", 0, x+(tx-x)*f, y+(ty-y)*f); err != nil {
				return err
			}
			time.Sleep(b.CommandRate / 10)
		}
		return b.sendPointer("up", 0, tx, ty)
	case "circle":
		elapsed := time.Since(b.Stats.StartTime).Seconds()
		x = viewportWidth/2 + 200*math.Cos(elapsed*0.5)
		y = viewportHeight/2 + 120*math.Sin(elapsed*0.5)
		fallthrough
	default: // "tap"
		if err := b.sendPointer("down", 0, x, y); err != nil {
			return err
		}
		return b.sendPointer("up", 0, x, y)
	}
}

func (b *Bot) sendPing() error {
	return b.send(ws.PingMessage{Type: ws.MessageTypePing, ClientTime: time.Now().UnixMilli()})
}

// handleMessage обрабатывает входящие сообщения
func (b *Bot) handleMessage(data []byte) {
	var msg struct {
		Type       string                  `json:"type"`
		Session    string                  `json:"session"`
		Message    string                  `json:"message"`
		Value      int64                   `json:"value"`
		Reason     string                  `json:"reason"`
		ClientTime int64                   `json:"client_time"`
		Updates    map[string]ws.Transform `json:"updates"`
		Running    bool                    `json:"running"`
		Ready      bool                    `json:"assets_ready"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		b.log.WithError(err).Warn("[Bot] Ошибка разбора сообщения")
		b.Stats.add(func(s *BotStats) { s.Errors++ })
		return
	}
	b.Stats.add(func(s *BotStats) { s.MessagesReceived++ })

	switch msg.Type {
	case ws.MessageTypeInfo:
		if msg.Session != "" {
			b.mu.Lock()
			b.session = msg.Session
			b.mu.Unlock()
		}
		b.log.Infof("[Bot] Информация: %s", msg.Message)
	case ws.MessageTypeStatus:
		b.mu.Lock()
		b.ready = msg.Ready
		b.mu.Unlock()
	case ws.MessageTypeCreate:
		b.Stats.add(func(s *BotStats) { s.PiecesCreated++ })
	case ws.MessageTypeRemove:
		b.Stats.add(func(s *BotStats) { s.PiecesRemoved++ })
	case ws.MessageTypeUpdate:
		b.Stats.add(func(s *BotStats) {
			s.UpdateBatches++
			s.UpdatedTransforms += len(msg.Updates)
		})
	case ws.MessageTypeTrayTotal:
		b.Stats.add(func(s *BotStats) { s.LastTrayTotal = msg.Value })
	case ws.MessageTypeAmount:
		b.Stats.add(func(s *BotStats) { s.LastAmount = msg.Value })
	case ws.MessageTypeReprompt:
		b.log.Warnf("[Bot] Сервер просит повторить ввод: %s", msg.Reason)
		b.Stats.add(func(s *BotStats) { s.Reprompts++ })
	case ws.MessageTypePong:
		rtt := time.Since(time.UnixMilli(msg.ClientTime))
		b.Stats.add(func(s *BotStats) {
			s.RoundTrips++
			s.TotalRTT += rtt
			if rtt > s.MaxRTT {
				s.MaxRTT = rtt
			}
		})
	}
}

// Run запускает бота
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Connect(ctx); err != nil {
		return err
	}
	defer b.Disconnect()

	ctx, cancel := context.WithTimeout(ctx, b.Duration)
	defer cancel()

	go func() {
		defer cancel()
		for {
			_, data, err := b.conn.ReadMessage()
			if err != nil {
				if b.isRunning() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					b.log.WithError(err).Warn("[Bot] Ошибка чтения сообщения")
					b.Stats.add(func(s *BotStats) { s.Errors++ })
				}
				return
			}
			b.handleMessage(data)
		}
	}()

	if err := b.send(ws.ViewportMessage{Type: ws.MessageTypeViewport, Width: viewportWidth, Height: viewportHeight}); err != nil {
		return err
	}

	pingTicker := time.NewTicker(5 * time.Second)
	defer pingTicker.Stop()
	payTicker := time.NewTicker(b.PayEvery)
	defer payTicker.Stop()
	commandTicker := time.NewTicker(b.CommandRate)
	defer commandTicker.Stop()

	dropped := false
	for {
		select {
		case <-ctx.Done():
			b.log.Info("[Bot] Завершение работы")
			return nil
		case <-pingTicker.C:
			if err := b.sendPing(); err != nil {
				b.log.WithError(err).Warn("[Bot] Ошибка отправки ping")
			}
		case <-payTicker.C:
			if err := b.send(ws.PayMessage{Type: ws.MessageTypePay}); err != nil {
				b.log.WithError(err).Warn("[Bot] Ошибка оплаты")
			}
			dropped = false
		case <-commandTicker.C:
			b.mu.RLock()
			ready := b.ready
			b.mu.RUnlock()
			if !ready {
				continue
			}
			var err error
			if !dropped {
				err = b.sendDrop()
				dropped = true
			} else {
				err = b.gesture()
			}
			if err != nil {
				b.log.WithError(err).Warn("[Bot] Ошибка отправки команды")
			}
		}
	}
}

// PrintStats выводит статистику бота
func (b *Bot) PrintStats() {
	b.Stats.mu.Lock()
	defer b.Stats.mu.Unlock()

	duration := time.Since(b.Stats.StartTime)
	fields := logrus.Fields{
		"duration":   duration.Round(time.Millisecond).String(),
		"commands":   b.Stats.CommandsSent,
		"messages":   b.Stats.MessagesReceived,
		"created":    b.Stats.PiecesCreated,
		"removed":    b.Stats.PiecesRemoved,
		"reprompts":  b.Stats.Reprompts,
		"errors":     b.Stats.Errors,
		"tray_total": b.Stats.LastTrayTotal,
		"amount":     b.Stats.LastAmount,
		"batches":    b.Stats.UpdateBatches,
		"transforms": b.Stats.UpdatedTransforms,
		"max_rtt":    b.Stats.MaxRTT.String(),
	}
	if b.Stats.RoundTrips > 0 {
		fields["avg_rtt"] = (b.Stats.TotalRTT / time.Duration(b.Stats.RoundTrips)).String()
	}
	if duration > 0 {
		fields["commands_per_sec"] = fmt.Sprintf("%.2f", float64(b.Stats.CommandsSent)/duration.Seconds())
	}
	b.mu.RLock()
	fields["session"] = b.session
	b.mu.RUnlock()
	b.log.WithFields(fields).Info("[Bot] Статистика")
}

func main() {
	var (
		serverURL   = flag.String("url", "ws://localhost:8080/ws", "URL WebSocket сервера")
		botID       = flag.String("id", "bot1", "ID бота")
		pattern     = flag.String("pattern", "tap", "Жесты (tap, drag, circle, exchange)")
		duration    = flag.Duration("duration", 30*time.Second, "Длительность работы бота")
		commandRate = flag.Duration("rate", 500*time.Millisecond, "Частота отправки команд")
		payEvery    = flag.Duration("pay", 10*time.Second, "Период оплаты лотка")
		maxAmount   = flag.Int64("max", 50000, "Максимальная сумма сброса")
		verbose     = flag.Bool("v", false, "Подробный лог")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bot := NewBot(*botID, *serverURL, *pattern, *duration, *commandRate, log)
	bot.PayEvery = *payEvery
	if *maxAmount > 0 {
		bot.MaxAmount = *maxAmount
	}

	if err := bot.Run(ctx); err != nil {
		log.WithError(err).Error("[Bot] Ошибка")
		os.Exit(1)
	}
	bot.PrintStats()
}
