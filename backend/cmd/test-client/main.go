package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/transport/ws"
)

// Проверка сервера одной сессией: приветствие, сброс суммы, ожидание окончания сброса
func main() {
	var (
		serverURL = flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
		amount    = flag.String("amount", "", "Amount to drop, as typed into the input field (empty: greeting only)")
		timeout   = flag.Duration("timeout", 30*time.Second, "Overall deadline")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Infof("Подключение к %s", *serverURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *serverURL, nil)
	if err != nil {
		log.Fatalf("Ошибка подключения: %v", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	p := &probe{conn: conn, amount: *amount, log: log}
	if err := p.run(); err != nil {
		log.WithError(err).Error("Проверка не прошла")
		os.Exit(1)
	}
	log.Info("Тест завершен")
}

type probe struct {
	conn   *websocket.Conn
	amount string
	log    *logrus.Logger

	greeted bool
	dropped bool
	running bool
	created int
}

func (p *probe) run() error {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		done, err := p.handle(data)
		if err != nil || done {
			return err
		}
	}
}

func (p *probe) handle(data []byte) (bool, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		p.log.WithError(err).Warn("Сообщение без типа")
		return false, nil
	}

	switch head.Type {
	case ws.MessageTypeInfo:
		var msg ws.InfoMessage
		_ = json.Unmarshal(data, &msg)
		p.log.WithField("session", msg.Session).Infof("INFO: %s", msg.Message)

	case ws.MessageTypeDenominations:
		var msg ws.DenominationsMessage
		_ = json.Unmarshal(data, &msg)
		p.log.Infof("DENOMINATIONS: %d", len(msg.Items))

	case ws.MessageTypeAssets:
		var msg ws.AssetsMessage
		_ = json.Unmarshal(data, &msg)
		p.log.WithField("textures", len(msg.Textures)).Infof("ASSETS: %s %s", msg.State, msg.Error)

	case ws.MessageTypeCreate:
		p.created++

	case ws.MessageTypeReprompt:
		var msg ws.RepromptMessage
		_ = json.Unmarshal(data, &msg)
		return true, fmt.Errorf("amount rejected: %s (%s)", msg.Message, msg.Reason)

	case ws.MessageTypeStatus:
		var msg ws.StatusMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		return p.status(msg)
	}
	return false, nil
}

func (p *probe) status(msg ws.StatusMessage) (bool, error) {
	p.log.WithFields(logrus.Fields{
		"running":      msg.Running,
		"amount":       msg.Amount,
		"pieces":       msg.Pieces,
		"assets_ready": msg.AssetsReady,
	}).Info("STATUS")

	if !p.greeted {
		p.greeted = true
		if p.amount == "" {
			return true, nil
		}
	}
	if !p.dropped {
		if !msg.AssetsReady {
			return false, nil
		}
		p.dropped = true
		raw, _ := json.Marshal(p.amount)
		p.log.Infof("Сброс суммы %q", p.amount)
		return false, p.conn.WriteJSON(ws.DropMessage{Type: ws.MessageTypeDrop, Amount: raw})
	}

	if msg.Running {
		p.running = true
		return false, nil
	}
	if !p.running {
		return false, nil
	}

	if msg.Plan != nil {
		p.log.WithFields(logrus.Fields{
			"original":    msg.Plan.Original,
			"bundle_size": msg.Plan.BundleSize,
			"represented": msg.Plan.RepresentedAmount,
		}).Info("PLAN")
		for _, c := range msg.Plan.Counts {
			p.log.Infof("  %-8s x %d", c.Label, c.Count)
		}
	}
	p.log.Infof("Создано объектов: %d", p.created)
	if msg.Pieces == 0 {
		return true, fmt.Errorf("drop finished with no pieces")
	}
	return true, nil
}
