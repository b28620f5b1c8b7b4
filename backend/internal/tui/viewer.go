// Package tui - терминальный вид стола сверху: рендер через tcell, мышь
// превращается в события указателя для автомата жестов.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/game"
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/world"
)

const (
	frameInterval = 33 * time.Millisecond
	noticeTTL     = 3 * time.Second
)

// Options - параметры терминального вида
type Options struct {
	Catalog  *money.Catalog
	TickRate int
	Seed     uint64
	Sound    Sound // nil - без звука
	Logger   logrus.FieldLogger
	Recorder game.Recorder
}

// Viewer владеет экраном и локальным столом. Стол и hud меняются только
// в цикле стола: события терминала ставятся в очередь команд.
type Viewer struct {
	screen tcell.Screen
	table  *game.Table
	ticker *game.GameTicker
	sound  Sound
	log    logrus.FieldLogger

	// поток событий терминала
	mouse MouseMapper

	// цикл стола
	layout      Layout
	prompt      Prompt
	hud         hud
	noticeLeft  time.Duration
	sinceDraw   time.Duration
	lastTray    int64
	trayPrimed  bool
	fatal       chan error
}

// NewViewer создает вид и стол под текущий размер экрана
func NewViewer(screen tcell.Screen, opts Options) (*Viewer, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	cols, rows := screen.Size()
	layout := Layout{Cols: cols, Rows: rows}
	pw, ph := layout.PixelSize()
	camera := game.NewTopDownCamera(pw, ph, world.GetArenaConfig().HalfExtent)

	table, err := game.NewTable(game.Options{
		Catalog:  opts.Catalog,
		Camera:   camera,
		Rand:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Logger:   opts.Logger,
		Recorder: opts.Recorder,
	})
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		screen: screen,
		table:  table,
		ticker: game.NewGameTicker(opts.TickRate, 0, opts.Logger),
		sound:  opts.Sound,
		log:    opts.Logger,
		layout: layout,
		fatal:  make(chan error, 1),
	}
	table.Attach(v.ticker)
	v.ticker.OnFrame(v.onFrame)
	v.ticker.OnFatal(func(err error) {
		select {
		case v.fatal <- err:
		default:
		}
	})
	return v, nil
}

// Table возвращает стол вида
func (v *Viewer) Table() *game.Table { return v.table }

// Ticker возвращает цикл стола
func (v *Viewer) Ticker() *game.GameTicker { return v.ticker }

// Run обрабатывает события терминала до выхода или отмены ctx
func (v *Viewer) Run(ctx context.Context) error {
	v.screen.EnableMouse()
	v.screen.HideCursor()

	if err := v.ticker.Start(); err != nil {
		return err
	}
	defer v.ticker.Stop()

	events := make(chan tcell.Event, 100)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stop:
				return
			}
		}
	}()

	v.log.Info("[TUI] Терминальный вид запущен")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-v.fatal:
			return err
		case ev := <-events:
			if !v.HandleEvent(ev) {
				return nil
			}
		}
	}
}

// HandleEvent переводит событие терминала в команды стола.
// Возвращает false, если пользователь вышел.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if IsQuitKey(ev) {
			return false
		}
		v.enqueue(func() { v.applyKey(ev) })
	case *tcell.EventMouse:
		for _, pe := range v.mouse.Map(ev) {
			v.enqueue(func() {
				v.table.HandlePointer(pe)
			})
		}
	case *tcell.EventResize:
		v.screen.Sync()
		cols, rows := ev.Size()
		v.enqueue(func() { v.resize(cols, rows) })
	}
	return true
}

func (v *Viewer) enqueue(cmd func()) {
	if !v.ticker.Enqueue(cmd) {
		v.log.Debug("[TUI] Команда отброшена: очередь цикла недоступна")
	}
}

func (v *Viewer) resize(cols, rows int) {
	v.layout = Layout{Cols: cols, Rows: rows}
	pw, ph := v.layout.PixelSize()
	v.table.SetViewport(pw, ph)
	v.sinceDraw = frameInterval
}

func (v *Viewer) applyKey(ev *tcell.EventKey) {
	action, text := v.prompt.HandleKey(ev)
	switch action {
	case ActionEdit:
		v.hud.prompt = v.prompt.Text()
	case ActionDrop:
		v.hud.prompt = ""
		if _, err := v.table.Drop(ParseAmount(text)); err != nil {
			v.notify(repromptText(err), true)
			return
		}
		v.notify("dropping "+FormatYen(v.table.Amount()), false)
	case ActionPay:
		if paid := v.table.Pay(); paid == 0 {
			v.notify("tray is empty", true)
		}
	}
}

func repromptText(err error) string {
	switch {
	case errors.Is(err, money.ErrInvalidAmount):
		return "enter a positive amount of yen"
	case errors.Is(err, game.ErrAssetsNotReady):
		return "images are still loading"
	default:
		return err.Error()
	}
}

func (v *Viewer) notify(text string, isErr bool) {
	v.hud.notice = text
	v.hud.noticeErr = isErr
	v.noticeLeft = noticeTTL
}

// onFrame реагирует на события стола и перерисовывает экран раз в frameInterval
func (v *Viewer) onFrame(delta time.Duration) {
	var trayChanged, paid bool
	for _, ev := range v.table.DrainEvents() {
		switch ev.Kind {
		case game.EventTrayTotal:
			trayChanged = trayChanged || (v.trayPrimed && ev.Value != v.lastTray)
			v.lastTray, v.trayPrimed = ev.Value, true
		case game.EventPaid:
			paid = true
			v.notify(fmt.Sprintf("paid %s (%d pieces)", FormatYen(ev.Value), ev.Count), false)
		case game.EventExchanged:
			v.notify(fmt.Sprintf("%s exchanged into %d pieces", FormatYen(ev.Value), ev.Count), false)
		}
	}
	// при оплате лоток тоже меняется, звенит только аккорд
	if v.sound != nil {
		switch {
		case paid:
			v.sound.Chime()
		case trayChanged:
			v.sound.Clink()
		}
	}

	if v.noticeLeft > 0 {
		v.noticeLeft -= delta
		if v.noticeLeft <= 0 {
			v.hud.notice = ""
		}
	}

	// tcell отправляет в терминал только изменившиеся ячейки
	v.sinceDraw += delta
	if v.sinceDraw < frameInterval {
		return
	}
	v.sinceDraw = 0
	drawTable(v.screen, v.table, v.layout, v.hud)
	v.screen.Show()
}
