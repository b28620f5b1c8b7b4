package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"cashpile/backend/internal/config"
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/telemetry"
	"cashpile/backend/internal/tui"
)

func main() {
	var (
		logPath = flag.String("log", "cashpile-tui.log", "Файл лога (терминал занят видом)")
		mute    = flag.Bool("mute", false, "Без звука")
		seed    = flag.Uint64("seed", 0, "Сид раскладки (0 - случайный)")
	)
	flag.Parse()

	cfg := config.Load()
	log := cfg.NewLogger()
	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось открыть лог: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	if *seed == 0 {
		*seed = cfg.SessionSeed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sound tui.Sound
	if !*mute {
		sm := tui.NewSoundManager(log.WithField("component", "sound"))
		if err := sm.Initialize(); err != nil {
			// без звука вид продолжает работать
			log.WithError(err).Warn("[Sound] Аудио недоступно")
		} else {
			defer sm.Close()
			sound = sm
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось создать экран: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось инициализировать экран: %v\n", err)
		os.Exit(1)
	}

	tm := telemetry.NewTelemetryManager("tui", log.WithField("component", "telemetry"))
	viewer, err := tui.NewViewer(screen, tui.Options{
		Catalog:  money.Yen(),
		TickRate: cfg.TickRate,
		Seed:     *seed,
		Sound:    sound,
		Logger:   log.WithField("component", "tui"),
		Recorder: tm,
	})
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Не удалось создать стол: %v\n", err)
		os.Exit(1)
	}

	runErr := viewer.Run(ctx)
	screen.Fini()
	log.WithField("totals", tm.Totals()).Info("[TUI] Итоги сессии")
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Цикл стола остановлен с ошибкой: %v\n", runErr)
		os.Exit(1)
	}
}
