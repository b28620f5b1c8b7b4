package physics

import "sync"

// Config содержит настройки физического движка стола
type Config struct {
	// Gravity - ускорение свободного падения по Y
	Gravity float64

	// FixedTimeStep - фиксированный шаг симуляции, секунды
	FixedTimeStep float64

	// MaxSubSteps - максимум внутренних шагов за кадр
	MaxSubSteps int

	// MaxFrameDelta - верхняя граница длительности кадра, секунды
	MaxFrameDelta float64

	// SolverIterations - число итераций последовательных импульсов
	SolverIterations int

	// SolverTolerance - досрочный выход, когда суммарное изменение импульса² меньше порога
	SolverTolerance float64

	// Baumgarte - доля проникновения, устраняемая за шаг псевдоскоростью
	Baumgarte float64

	// PositionIterations - итерации коррекции проникновения
	PositionIterations int

	// ContactMargin - зазор, в пределах которого контакт заводится до касания
	ContactMargin float64

	// PenetrationSlop - допустимое проникновение без коррекции
	PenetrationSlop float64

	// MaxCorrectionSpeed - предел псевдоскорости выталкивания
	MaxCorrectionSpeed float64

	// RestitutionThreshold - ниже этой скорости сближения отскок не применяется
	RestitutionThreshold float64

	// AllowSleep - разрешает засыпание тел
	AllowSleep bool

	// CashCash - контакт купюра/купюра
	CashCash Surface

	// CashTable - контакт купюра/стол
	CashTable Surface

	// Default - для пар без явного материала
	Default Surface
}

// Surface - трение и упругость пары материалов
type Surface struct {
	Friction    float64
	Restitution float64
}

// GlobalConfig - глобальная конфигурация движка
var GlobalConfig *Config
var configMutex sync.RWMutex

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Gravity:              -14.0,
		FixedTimeStep:        1.0 / 60.0,
		MaxSubSteps:          10,
		MaxFrameDelta:        0.05,
		SolverIterations:     18,
		SolverTolerance:      5e-4,
		Baumgarte:            0.2,
		PositionIterations:   8,
		ContactMargin:        0.004,
		PenetrationSlop:      0.001,
		MaxCorrectionSpeed:   2.0,
		RestitutionThreshold: 0.5,
		AllowSleep:           true,
		CashCash:             Surface{Friction: 0.52, Restitution: 0.05},
		CashTable:            Surface{Friction: 0.66, Restitution: 0.02},
		Default:              Surface{Friction: 0.3, Restitution: 0.0},
	}
}

// GetConfig возвращает копию текущей конфигурации
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if GlobalConfig == nil {
		return DefaultConfig()
	}

	// Копия, чтобы избежать гонок данных
	config := *GlobalConfig
	return &config
}

// SetConfig устанавливает новую конфигурацию
func SetConfig(config *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	newConfig := *config
	GlobalConfig = &newConfig
}

// Initialize инициализирует глобальную конфигурацию
func Initialize() {
	configMutex.RLock()
	empty := GlobalConfig == nil
	configMutex.RUnlock()
	if empty {
		SetConfig(DefaultConfig())
	}
}

func init() {
	Initialize()
}
