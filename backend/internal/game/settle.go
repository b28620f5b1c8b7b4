package game

import (
	"cashpile/backend/internal/physics"
	"cashpile/backend/internal/world"
)

// SettleDetector объявляет кучу успокоившейся после непрерывного покоя
type SettleDetector struct {
	SpeedSq    float64
	AngularSq  float64
	Hysteresis float64

	acc float64
}

// NewSettleDetector создает детектор с порогами по умолчанию
func NewSettleDetector() *SettleDetector {
	return &SettleDetector{SpeedSq: 0.04, AngularSq: 0.08, Hysteresis: 0.75}
}

// BodySettled - тело спит или почти неподвижно
func (s *SettleDetector) BodySettled(b *physics.Body) bool {
	if b.IsSleeping() {
		return true
	}
	return b.Velocity.LenSqr() < s.SpeedSq && b.AngularVelocity.LenSqr() < s.AngularSq
}

// PileSettled проверяет все фигуры; удерживаемые (кинематические) не учитываются
func (s *SettleDetector) PileSettled(r *world.Registry) bool {
	settled := true
	r.ForEach(func(p *world.Piece) {
		if !settled || p.Body.Type == physics.Kinematic {
			return
		}
		if !s.BodySettled(p.Body) {
			settled = false
		}
	})
	return settled
}

// Update копит время покоя; true - покой длится дольше гистерезиса
func (s *SettleDetector) Update(dt float64, settled bool) bool {
	if !settled {
		s.acc = 0
		return false
	}
	s.acc += dt
	return s.acc > s.Hysteresis
}

// Reset обнуляет накопленное время
func (s *SettleDetector) Reset() {
	s.acc = 0
}

// Accumulated - накопленное время покоя
func (s *SettleDetector) Accumulated() float64 {
	return s.acc
}
