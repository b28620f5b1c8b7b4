package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/assets"
	"cashpile/backend/internal/config"
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/telemetry"
	"cashpile/backend/internal/transport/ws"
)

func main() {
	cfg := config.Load()
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := money.Yen()

	// Текстуры грузятся в фоне; до готовности сброс суммы отклоняется
	store := assets.NewStore(cfg.ImageDir, log.WithField("component", "assets"))
	go func() {
		if err := store.Preload(ctx, catalog.Files()); err != nil {
			log.WithError(err).Error("[Assets] Не удалось загрузить изображения денег")
		}
	}()

	network, ok := ws.NetworkProfile(cfg.NetworkProfile)
	if !ok {
		log.WithField("profile", cfg.NetworkProfile).Warn("[Server] Неизвестный профиль сети, имитация выключена")
	} else if network.Enabled {
		log.WithFields(logrus.Fields{
			"profile": cfg.NetworkProfile,
			"latency": network.BaseLatency,
			"loss":    network.PacketLoss,
		}).Warn("[Server] Включена имитация сетевых условий")
	}

	hub := telemetry.NewHub(cfg.TelemetryKeep, log.WithField("component", "telemetry"))
	wsServer := ws.NewWSServer(ws.Options{
		Catalog:        catalog,
		Assets:         store,
		Telemetry:      hub,
		TickRate:       cfg.TickRate,
		StreamInterval: cfg.StreamInterval(),
		PingInterval:   20 * time.Second,
		Seed:           cfg.SessionSeed,
		Network:        network,
		Logger:         log,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	router.Use(corsMiddleware(cfg, log))

	wsServer.RegisterRoutes(router)
	router.Static("/static", cfg.StaticDir)
	index := filepath.Join(cfg.StaticDir, "index.html")
	if _, err := os.Stat(index); err == nil {
		router.StaticFile("/", index)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("[Server] Запуск cashpile")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("[Server] Ошибка HTTP сервера")
		}
	}()

	<-ctx.Done()
	log.Info("[Server] Остановка...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Захваченные WebSocket соединения http.Server не отслеживает, закрываем их первыми
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("[Server] Не все сессии закрылись вовремя")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("[Server] Ошибка остановки HTTP сервера")
	}
	log.Info("[Server] Сервер остановлен")
}

func corsMiddleware(cfg *config.Config, log logrus.FieldLogger) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			corsConfig.AllowAllOrigins = true
		}
	}
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	log.WithField("origins", cfg.CORSOrigins).Debug("[CORS] Настроены источники")
	return cors.New(corsConfig)
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("[HTTP] Запрос")
	}
}
