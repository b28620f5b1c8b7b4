package game

import "errors"

var (
	// ErrAssetsNotReady - Drop до завершения загрузки текстур
	ErrAssetsNotReady = errors.New("assets not ready")
	// ErrExchangeInapplicable - фигуру нельзя разменять (нет цели, мало частей, остаток)
	ErrExchangeInapplicable = errors.New("exchange not applicable")
	// ErrPickMiss - луч не попал ни в одну фигуру
	ErrPickMiss = errors.New("no piece under pointer")
	// ErrFatal - ошибка, после которой сессия не может продолжать кадры
	ErrFatal = errors.New("fatal session error")
)
