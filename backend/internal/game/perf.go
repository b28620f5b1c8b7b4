package game

import (
	"sync"
	"time"
)

// PerformanceMonitor отслеживает время выполнения каждой системы кадра
type PerformanceMonitor struct {
	systemMetrics map[string]*SystemMetrics
	mutex         sync.RWMutex

	metricsWindow     int
	warningThreshold  time.Duration
	criticalThreshold time.Duration
}

// SystemMetrics метрики производительности системы
type SystemMetrics struct {
	Name              string
	LastExecutionTime time.Duration
	AverageTime       time.Duration
	MaxTime           time.Duration
	TotalExecutions   uint64
	Errors            uint64
	SlowExecutions    uint64

	// Кольцевое окно последних замеров
	recentTimes  []time.Duration
	recentIndex  int
	windowFilled bool
}

// NewPerformanceMonitor создает монитор с окном усреднения windowSize
func NewPerformanceMonitor(windowSize int, warningThreshold time.Duration) *PerformanceMonitor {
	if windowSize <= 0 {
		windowSize = 1
	}
	return &PerformanceMonitor{
		systemMetrics:     make(map[string]*SystemMetrics),
		metricsWindow:     windowSize,
		warningThreshold:  warningThreshold,
		criticalThreshold: warningThreshold * 2,
	}
}

func (pm *PerformanceMonitor) initSystemMetrics(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.systemMetrics[systemName] = &SystemMetrics{
		Name:        systemName,
		recentTimes: make([]time.Duration, pm.metricsWindow),
	}
}

func (pm *PerformanceMonitor) recordExecution(systemName string, executionTime time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	m, exists := pm.systemMetrics[systemName]
	if !exists {
		return
	}

	m.LastExecutionTime = executionTime
	m.TotalExecutions++
	if executionTime > m.MaxTime {
		m.MaxTime = executionTime
	}
	if pm.warningThreshold > 0 && executionTime > pm.warningThreshold {
		m.SlowExecutions++
	}

	m.recentTimes[m.recentIndex] = executionTime
	m.recentIndex = (m.recentIndex + 1) % pm.metricsWindow
	if !m.windowFilled && m.recentIndex == 0 {
		m.windowFilled = true
	}

	limit := pm.metricsWindow
	if !m.windowFilled {
		limit = m.recentIndex
	}
	var total time.Duration
	for i := 0; i < limit; i++ {
		total += m.recentTimes[i]
	}
	if limit > 0 {
		m.AverageTime = total / time.Duration(limit)
	}
}

func (pm *PerformanceMonitor) recordError(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if m, exists := pm.systemMetrics[systemName]; exists {
		m.Errors++
	}
}

// Metrics возвращает копию метрик системы
func (pm *PerformanceMonitor) Metrics(systemName string) (SystemMetrics, bool) {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	m, ok := pm.systemMetrics[systemName]
	if !ok {
		return SystemMetrics{}, false
	}
	out := *m
	out.recentTimes = nil
	return out, true
}

// GetSystemsStats возвращает метрики всех систем для /api/health
func (pm *PerformanceMonitor) GetSystemsStats() map[string]interface{} {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	stats := make(map[string]interface{}, len(pm.systemMetrics))
	for name, m := range pm.systemMetrics {
		stats[name] = map[string]interface{}{
			"last_execution_time": m.LastExecutionTime.String(),
			"average_time":        m.AverageTime.String(),
			"max_time":            m.MaxTime.String(),
			"total_executions":    m.TotalExecutions,
			"slow_executions":     m.SlowExecutions,
			"errors":              m.Errors,
		}
	}
	return stats
}

// Monitor возвращает монитор производительности цикла
func (gt *GameTicker) Monitor() *PerformanceMonitor {
	return gt.perfMonitor
}
