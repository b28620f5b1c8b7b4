package world

import (
	"sync"

	"cashpile/backend/internal/money"
)

// PieceProfile - физические параметры фигуры одного вида
type PieceProfile struct {
	Mass            float64
	LinearDamping   float64
	AngularDamping  float64
	SleepSpeedLimit float64
	SleepTimeLimit  float64

	// CoinBoxFactor - доля радиуса для квадратной призмы монеты
	CoinBoxFactor float64
}

// TrayConfig - прямоугольник лотка оплаты
type TrayConfig struct {
	CenterX      float64
	CenterZ      float64
	Width        float64
	Depth        float64
	BaseHeight   float64
	RimHeight    float64
	RimThickness float64

	// Inset - отступ внутрь для предиката «в лотке»
	Inset float64
	// MaxY - выше этой высоты фигура не считается лежащей в лотке
	MaxY float64
	// DropY - высота, на которую фигура переносится в лоток
	DropY float64
}

// ArenaConfig - границы стола
type ArenaConfig struct {
	HalfExtent    float64
	WallHeight    float64
	WallThickness float64
	Tray          TrayConfig
}

// PhysicsConfig объединяет параметры фигур и арены
type PhysicsConfig struct {
	Bill  PieceProfile
	Coin  PieceProfile
	Arena ArenaConfig
}

var (
	physicsConfig PhysicsConfig
	configMutex   sync.RWMutex
)

// DefaultPhysicsConfig возвращает значения по умолчанию
func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		Bill: PieceProfile{
			Mass:            0.026,
			LinearDamping:   0.32,
			AngularDamping:  0.45,
			SleepSpeedLimit: 0.1,
			SleepTimeLimit:  0.65,
		},
		Coin: PieceProfile{
			Mass:            0.012,
			LinearDamping:   0.2,
			AngularDamping:  0.14,
			SleepSpeedLimit: 0.12,
			SleepTimeLimit:  0.55,
			CoinBoxFactor:   0.86,
		},
		Arena: ArenaConfig{
			HalfExtent:    2.9,
			WallHeight:    3.6,
			WallThickness: 0.18,
			Tray: TrayConfig{
				CenterX:      1.95,
				CenterZ:      2.0,
				Width:        1.5,
				Depth:        1.3,
				BaseHeight:   0.012,
				RimHeight:    0.08,
				RimThickness: 0.04,
				Inset:        0.03,
				MaxY:         1.15,
				DropY:        1.05,
			},
		},
	}
}

func init() {
	physicsConfig = DefaultPhysicsConfig()
}

// GetPhysicsConfig возвращает текущую конфигурацию
func GetPhysicsConfig() PhysicsConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return physicsConfig
}

// SetPhysicsConfig устанавливает новую конфигурацию
func SetPhysicsConfig(config PhysicsConfig) {
	configMutex.Lock()
	defer configMutex.Unlock()
	physicsConfig = config
}

// GetPieceProfile возвращает профиль для вида фигуры
func GetPieceProfile(kind money.Kind) PieceProfile {
	configMutex.RLock()
	defer configMutex.RUnlock()
	if kind == money.KindBill {
		return physicsConfig.Bill
	}
	return physicsConfig.Coin
}

// GetArenaConfig возвращает только конфигурацию арены
func GetArenaConfig() ArenaConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return physicsConfig.Arena
}
