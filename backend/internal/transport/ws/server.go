package ws

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/game"
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/telemetry"
)

// Options - параметры сервера сессий
type Options struct {
	Catalog        *money.Catalog
	Assets         AssetSource // nil - текстуры не требуются
	Telemetry      *telemetry.Hub
	TickRate       int
	MaxFrameDelta  time.Duration
	StreamInterval time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	// Seed - 0 означает случайный сид для каждой сессии
	Seed    uint64
	Network NetworkSimulation
	Logger  logrus.FieldLogger
}

// WSServer принимает соединения и держит по одному столу на соединение
type WSServer struct {
	opts     Options
	upgrader websocket.Upgrader
	log      logrus.FieldLogger

	sessionsMu sync.RWMutex
	sessions   map[string]*Session
	wg         sync.WaitGroup
	counter    atomic.Uint64
	closing    atomic.Bool
}

// NewWSServer создает новый экземпляр сервера
func NewWSServer(opts Options) *WSServer {
	if opts.Catalog == nil {
		opts.Catalog = money.Yen()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewHub(0, opts.Logger)
	}
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = DefaultUpdateInterval
	}
	if opts.PongWait <= 0 && opts.PingInterval > 0 {
		opts.PongWait = opts.PingInterval * 5 / 2
	}
	return &WSServer{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:      opts.Logger.WithField("component", "ws"),
		sessions: make(map[string]*Session),
	}
}

// RegisterRoutes регистрирует WebSocket и JSON API
func (s *WSServer) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", func(c *gin.Context) {
		s.HandleWS(c.Writer, c.Request)
	})

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/denominations", s.handleDenominations)
	api.GET("/plan", s.handlePlan)
	api.GET("/telemetry/:session", s.handleTelemetry)
	api.GET("/sessions", s.handleSessions)
	api.GET("/sessions/:session/stats", s.handleSessionStats)
}

// HandleWS обрабатывает WebSocket соединения; возвращается, когда сессия завершена
func (s *WSServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("[WSServer] Ошибка апгрейда соединения")
		return
	}

	sess, err := s.openSession(r.Context(), conn)
	if err != nil {
		s.log.WithError(err).Error("[WSServer] Не удалось создать сессию")
		_ = conn.Close()
		return
	}

	s.run(sess)
}

func (s *WSServer) openSession(parent context.Context, conn *websocket.Conn) (*Session, error) {
	id := uuid.New().String()
	log := s.log.WithField("session", id)
	tm := s.opts.Telemetry.Open(id)

	seed := s.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	n := s.counter.Add(1)

	var gate game.AssetGate
	if s.opts.Assets != nil {
		gate = s.opts.Assets
	}
	table, err := game.NewTable(game.Options{
		Catalog:  s.opts.Catalog,
		Assets:   gate,
		Rand:     rand.New(rand.NewPCG(seed, n)),
		Logger:   log,
		Recorder: tm,
	})
	if err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}

	ticker := game.NewGameTicker(s.opts.TickRate, s.opts.MaxFrameDelta, log)
	table.Attach(ticker)

	// Сессия живет, пока открыто соединение, а не пока обрабатывается HTTP запрос
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	sess := &Session{
		id:           id,
		conn:         NewSafeWriter(conn),
		ws:           conn,
		table:        table,
		ticker:       ticker,
		telemetry:    tm,
		assets:       s.opts.Assets,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
		send:         make(chan interface{}, sendQueueSize),
		pingInterval: s.opts.PingInterval,
		pongWait:     s.opts.PongWait,
		stream:       newUpdateStream(s.opts.StreamInterval),
		netsim:       newNetSim(s.opts.Network, seed^n),
	}
	ticker.OnFrame(sess.onFrame)
	ticker.OnFatal(sess.onFatal)
	return sess, nil
}

func (s *WSServer) run(sess *Session) {
	s.sessionsMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()
	sess.log.WithField("remote", sess.ws.RemoteAddr().String()).Info("[WSServer] Новое соединение")

	defer func() {
		sess.cancel()
		sess.ticker.Stop()
		_ = sess.conn.Close()

		s.sessionsMu.Lock()
		delete(s.sessions, sess.id)
		s.sessionsMu.Unlock()
		sess.log.Info("[WSServer] Соединение закрыто")
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sess.writeLoop()
	}()

	sess.greet()
	if err := sess.ticker.Start(); err != nil {
		sess.log.WithError(err).Error("[WSServer] Не удалось запустить цикл")
		return
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		sess.readLoop()
	}()

	select {
	case <-readerDone:
	case <-sess.ctx.Done():
	}
	sess.cancel()
	_ = sess.conn.Close()
	<-writerDone
	<-readerDone
}

// Session возвращает активную сессию
func (s *WSServer) Session(id string) (*Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SessionIDs возвращает идентификаторы активных сессий
func (s *WSServer) SessionIDs() []string {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown закрывает все сессии и ждет их завершения
func (s *WSServer) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	s.sessionsMu.RLock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.sessionsMu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("[WSServer] Все сессии закрыты")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WSServer) assetState() string {
	if s.opts.Assets == nil {
		return "ready"
	}
	return s.opts.Assets.State().String()
}

func (s *WSServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "cashpile",
		"sessions": len(s.SessionIDs()),
		"assets":   s.assetState(),
	})
}

func (s *WSServer) handleDenominations(c *gin.Context) {
	catalog := s.opts.Catalog
	if s.opts.Assets != nil && s.opts.Assets.Ready() {
		catalog = catalog.WithBillAspects(s.opts.Assets.BillAspects(catalog))
	}
	c.JSON(http.StatusOK, NewDenominationsMessage(catalog))
}

func (s *WSServer) handlePlan(c *gin.Context) {
	raw, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		raw = 0
	}
	amount, err := money.ParseAmount(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Порядок очереди на отчет не влияет
	plan := money.NewPlanner(s.opts.Catalog).Plan(amount, rand.New(rand.NewPCG(1, 2)))
	c.JSON(http.StatusOK, NewPlanReport(plan))
}

func (s *WSServer) handleTelemetry(c *gin.Context) {
	id := c.Param("session")
	tm, ok := s.opts.Telemetry.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": id,
		"totals":  tm.Totals(),
		"entries": tm.Entries(),
	})
}

func (s *WSServer) handleSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active":    s.SessionIDs(),
		"telemetry": s.opts.Telemetry.Sessions(),
	})
}

func (s *WSServer) handleSessionStats(c *gin.Context) {
	sess, ok := s.Session(c.Param("session"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, sess.Stats())
}
