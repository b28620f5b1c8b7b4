package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// commandQueueSize - буфер входящих команд (ввод, сообщения клиента)
const commandQueueSize = 256

// TickSystem интерфейс для всех систем кадра
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

// FrameHook вызывается после всех систем кадра
type FrameHook func(deltaTime time.Duration)

// GameTicker - цикл кадров одной сессии. Все изменения состояния стола
// выполняются в горутине цикла: системы по приоритету и команды из очереди.
type GameTicker struct {
	// Конфигурация
	targetTPS     int
	tickDuration  time.Duration
	maxTickTime   time.Duration
	maxFrameDelta time.Duration

	// Состояние
	stateMu      sync.RWMutex
	isRunning    bool
	isPaused     bool
	tickCount    uint64
	startTime    time.Time
	lastTickTime time.Time
	fatalErr     error

	// Системы
	systems      []TickSystem
	systemsMutex sync.RWMutex
	hooks        []FrameHook

	// Мониторинг производительности
	perfMonitor *PerformanceMonitor

	// Управление
	ctx       context.Context
	cancel    context.CancelFunc
	pauseChan chan bool
	commands  chan func()
	done      chan struct{}
	onFatal   func(error)

	// Метрики
	averageTickTime time.Duration
	maxObservedTick time.Duration
	skippedTicks    uint64
	droppedCommands uint64

	logger           logrus.FieldLogger
	warningThreshold time.Duration
}

// NewGameTicker создает цикл кадров с целевой частотой targetTPS
func NewGameTicker(targetTPS int, maxFrameDelta time.Duration, logger logrus.FieldLogger) *GameTicker {
	if targetTPS <= 0 {
		targetTPS = 60
	}
	if maxFrameDelta <= 0 {
		maxFrameDelta = 50 * time.Millisecond
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	tickDuration := time.Second / time.Duration(targetTPS)
	ctx, cancel := context.WithCancel(context.Background())

	return &GameTicker{
		targetTPS:        targetTPS,
		tickDuration:     tickDuration,
		maxTickTime:      tickDuration * 2,
		maxFrameDelta:    maxFrameDelta,
		systems:          make([]TickSystem, 0),
		perfMonitor:      NewPerformanceMonitor(50, tickDuration/4),
		ctx:              ctx,
		cancel:           cancel,
		pauseChan:        make(chan bool, 1),
		commands:         make(chan func(), commandQueueSize),
		done:             make(chan struct{}),
		logger:           logger,
		warningThreshold: tickDuration / 2,
	}
}

// Start запускает цикл в отдельной горутине
func (gt *GameTicker) Start() error {
	gt.stateMu.Lock()
	if gt.isRunning {
		gt.stateMu.Unlock()
		return nil
	}
	if gt.ctx.Err() != nil {
		gt.stateMu.Unlock()
		return fmt.Errorf("game ticker already stopped")
	}
	gt.isRunning = true
	gt.startTime = time.Now()
	gt.lastTickTime = gt.startTime
	gt.stateMu.Unlock()

	gt.logger.Infof("[GameTicker] Запуск цикла кадров: %d TPS (кадр каждые %v)", gt.targetTPS, gt.tickDuration)

	go gt.gameLoop()
	return nil
}

// Stop останавливает цикл; повторный вызов ничего не делает
func (gt *GameTicker) Stop() {
	gt.stateMu.Lock()
	wasRunning := gt.isRunning
	gt.isRunning = false
	gt.stateMu.Unlock()

	gt.cancel()
	if wasRunning {
		<-gt.done
		gt.logger.Infof("[GameTicker] Остановка цикла кадров (выполнено кадров: %d)", gt.GetTickCount())
	}
}

// Done закрывается после выхода из цикла
func (gt *GameTicker) Done() <-chan struct{} {
	return gt.done
}

// Err возвращает фатальную ошибку, остановившую цикл
func (gt *GameTicker) Err() error {
	gt.stateMu.RLock()
	defer gt.stateMu.RUnlock()
	return gt.fatalErr
}

// OnFatal задает обработчик фатальной ошибки (вызывается из горутины цикла)
func (gt *GameTicker) OnFatal(fn func(error)) {
	gt.onFatal = fn
}

// Pause приостанавливает или возобновляет кадры
func (gt *GameTicker) Pause(pause bool) {
	select {
	case gt.pauseChan <- pause:
	default:
		gt.logger.Warn("[GameTicker] Команда паузы пропущена: очередь занята")
	}
}

// RegisterSystem добавляет систему в цикл
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMutex.Lock()
	defer gt.systemsMutex.Unlock()

	gt.systems = append(gt.systems, system)

	// Сортируем по приоритету (меньше = выше приоритет)
	for i := len(gt.systems) - 1; i > 0; i-- {
		if gt.systems[i].GetPriority() < gt.systems[i-1].GetPriority() {
			gt.systems[i], gt.systems[i-1] = gt.systems[i-1], gt.systems[i]
		} else {
			break
		}
	}

	gt.perfMonitor.initSystemMetrics(system.GetName())

	gt.logger.Debugf("[GameTicker] Зарегистрирована система: %s (приоритет: %d)",
		system.GetName(), system.GetPriority())
}

// OnFrame добавляет хук конца кадра
func (gt *GameTicker) OnFrame(hook FrameHook) {
	gt.systemsMutex.Lock()
	defer gt.systemsMutex.Unlock()
	gt.hooks = append(gt.hooks, hook)
}

// Enqueue ставит команду в очередь цикла. Возвращает false, если очередь
// переполнена или цикл остановлен.
func (gt *GameTicker) Enqueue(cmd func()) bool {
	if gt.ctx.Err() != nil {
		return false
	}
	select {
	case gt.commands <- cmd:
		return true
	default:
		gt.stateMu.Lock()
		gt.droppedCommands++
		gt.stateMu.Unlock()
		gt.logger.Warn("[GameTicker] Очередь команд переполнена, команда отброшена")
		return false
	}
}

// gameLoop основной цикл
func (gt *GameTicker) gameLoop() {
	ticker := time.NewTicker(gt.tickDuration)
	defer ticker.Stop()
	defer close(gt.done)

	for {
		select {
		case <-gt.ctx.Done():
			return

		case pause := <-gt.pauseChan:
			gt.setPaused(pause)
			for pause {
				select {
				case <-gt.ctx.Done():
					return
				case pause = <-gt.pauseChan:
					gt.setPaused(pause)
				}
			}
			// после паузы время не накапливается
			gt.lastTickTime = time.Now()

		case cmd := <-gt.commands:
			gt.runCommand(cmd)

		case tickTime := <-ticker.C:
			delta := tickTime.Sub(gt.lastTickTime)
			if delta > gt.tickDuration*2 {
				gt.logger.Debugf("[GameTicker] Большая задержка между кадрами: %v (ожидалось: %v)", delta, gt.tickDuration)
				gt.stateMu.Lock()
				gt.skippedTicks++
				gt.stateMu.Unlock()
			}
			gt.lastTickTime = tickTime
			if err := gt.Tick(delta); err != nil {
				return
			}
		}
	}
}

func (gt *GameTicker) setPaused(pause bool) {
	gt.stateMu.Lock()
	gt.isPaused = pause
	gt.stateMu.Unlock()
}

// Tick выполняет один кадр синхронно: сначала накопленные команды, затем
// системы и хуки. Дельта ограничивается сверху maxFrameDelta.
// Возвращает фатальную ошибку, если кадр остановил цикл.
func (gt *GameTicker) Tick(delta time.Duration) error {
	if err := gt.Err(); err != nil {
		return err
	}
	gt.drainCommands()

	if delta < 0 {
		delta = 0
	}
	if delta > gt.maxFrameDelta {
		delta = gt.maxFrameDelta
	}

	tickStart := time.Now()
	gt.stateMu.Lock()
	gt.tickCount++
	gt.stateMu.Unlock()

	gt.systemsMutex.RLock()
	systems := make([]TickSystem, len(gt.systems))
	copy(systems, gt.systems)
	hooks := make([]FrameHook, len(gt.hooks))
	copy(hooks, gt.hooks)
	gt.systemsMutex.RUnlock()

	for _, system := range systems {
		if err := gt.executeSystem(system, delta); err != nil {
			gt.fail(err)
			return err
		}
	}
	for _, hook := range hooks {
		hook(delta)
	}

	total := time.Since(tickStart)
	gt.updateTickMetrics(total)
	gt.checkPerformance(total)
	return nil
}

func (gt *GameTicker) drainCommands() {
	for {
		select {
		case cmd := <-gt.commands:
			gt.runCommand(cmd)
		default:
			return
		}
	}
}

func (gt *GameTicker) runCommand(cmd func()) {
	defer func() {
		if r := recover(); r != nil {
			gt.logger.Errorf("[GameTicker] Паника в команде: %v", r)
		}
	}()
	cmd()
}

// executeSystem выполняет одну систему с замером времени.
// Фатальные ошибки и паники возвращаются наружу, остальные только логируются.
func (gt *GameTicker) executeSystem(system TickSystem, deltaTime time.Duration) (fatal error) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Errorf("[GameTicker] КРИТИЧЕСКАЯ ОШИБКА в системе %s: %v", systemName, r)
			gt.perfMonitor.recordError(systemName)
			fatal = fmt.Errorf("%w: panic in %s: %v", ErrFatal, systemName, r)
		}
	}()

	err := system.Update(deltaTime)
	gt.perfMonitor.recordExecution(systemName, time.Since(systemStart))

	if err != nil {
		gt.perfMonitor.recordError(systemName)
		if errors.Is(err, ErrFatal) {
			gt.logger.Errorf("[GameTicker] Фатальная ошибка в системе %s: %v", systemName, err)
			return err
		}
		gt.logger.Warnf("[GameTicker] Ошибка в системе %s: %v", systemName, err)
	}
	return nil
}

func (gt *GameTicker) fail(err error) {
	gt.stateMu.Lock()
	if gt.fatalErr == nil {
		gt.fatalErr = err
	}
	// цикл выходит сам, Stop не должен его ждать
	gt.isRunning = false
	gt.stateMu.Unlock()

	gt.cancel()
	if gt.onFatal != nil {
		gt.onFatal(err)
	}
}

// GetStats возвращает статистику цикла
func (gt *GameTicker) GetStats() map[string]interface{} {
	gt.stateMu.RLock()
	defer gt.stateMu.RUnlock()

	uptime := time.Since(gt.startTime)
	actualTPS := 0.0
	if !gt.startTime.IsZero() && uptime > 0 {
		actualTPS = float64(gt.tickCount) / uptime.Seconds()
	}

	gt.systemsMutex.RLock()
	systemsCount := len(gt.systems)
	gt.systemsMutex.RUnlock()

	return map[string]interface{}{
		"target_tps":        gt.targetTPS,
		"actual_tps":        actualTPS,
		"tick_count":        gt.tickCount,
		"uptime_seconds":    uptime.Seconds(),
		"average_tick_time": gt.averageTickTime,
		"max_observed_tick": gt.maxObservedTick,
		"skipped_ticks":     gt.skippedTicks,
		"dropped_commands":  gt.droppedCommands,
		"is_running":        gt.isRunning,
		"is_paused":         gt.isPaused,
		"systems_count":     systemsCount,
		"systems":           gt.perfMonitor.GetSystemsStats(),
	}
}

// GetTickCount возвращает количество выполненных кадров
func (gt *GameTicker) GetTickCount() uint64 {
	gt.stateMu.RLock()
	defer gt.stateMu.RUnlock()
	return gt.tickCount
}

func (gt *GameTicker) updateTickMetrics(tickTime time.Duration) {
	gt.stateMu.Lock()
	defer gt.stateMu.Unlock()

	if tickTime > gt.maxObservedTick {
		gt.maxObservedTick = tickTime
	}
	if gt.averageTickTime == 0 {
		gt.averageTickTime = tickTime
	} else {
		gt.averageTickTime = (gt.averageTickTime*9 + tickTime) / 10
	}
}

func (gt *GameTicker) checkPerformance(tickTime time.Duration) {
	if tickTime > gt.maxTickTime {
		gt.logger.Warnf("[GameTicker] Кадр превысил максимальное время: %v > %v (цель: %v)",
			tickTime, gt.maxTickTime, gt.tickDuration)
	} else if tickTime > gt.warningThreshold {
		gt.logger.Debugf("[GameTicker] Медленный кадр: %v (цель: %v)", tickTime, gt.tickDuration)
	}
}
