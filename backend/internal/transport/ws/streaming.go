package ws

import (
	"time"

	"cashpile/backend/internal/world"
)

// DefaultUpdateInterval - период пакетной отправки трансформов
const DefaultUpdateInterval = 50 * time.Millisecond

// transformEpsilon - изменения меньше этого не отправляются
const transformEpsilon = 1e-4

// updateStream копит время кадров и собирает пакет трансформов
// только по фигурам, которые сдвинулись с прошлой отправки
type updateStream struct {
	interval time.Duration
	elapsed  time.Duration
	last     map[uint64]Transform
}

func newUpdateStream(interval time.Duration) *updateStream {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	return &updateStream{
		interval: interval,
		last:     make(map[uint64]Transform),
	}
}

// Advance возвращает true, когда пора отправлять пакет
func (u *updateStream) Advance(delta time.Duration) bool {
	u.elapsed += delta
	if u.elapsed < u.interval {
		return false
	}
	u.elapsed = 0
	return true
}

// Track запоминает трансформ, отправленный в create
func (u *updateStream) Track(id uint64, tr Transform) {
	u.last[id] = tr
}

// Forget убирает удаленную фигуру
func (u *updateStream) Forget(id uint64) {
	delete(u.last, id)
}

// Reset очищает все запомненные трансформы
func (u *updateStream) Reset() {
	u.last = make(map[uint64]Transform)
	u.elapsed = 0
}

// Collect собирает пакет по изменившимся фигурам; nil, если менять нечего
func (u *updateStream) Collect(pieces []*world.Piece) *UpdateMessage {
	var updates map[string]Transform
	for _, p := range pieces {
		tr := transformOf(p.Position, p.Rotation)
		if prev, ok := u.last[p.RenderID]; ok && !transformChanged(prev, tr) {
			continue
		}
		u.last[p.RenderID] = tr
		if updates == nil {
			updates = make(map[string]Transform)
		}
		updates[PieceID(p.RenderID)] = tr
	}
	if len(updates) == 0 {
		return nil
	}
	return &UpdateMessage{
		Type:       MessageTypeUpdate,
		Updates:    updates,
		ServerTime: GetCurrentServerTime(),
	}
}

func transformChanged(a, b Transform) bool {
	return absDiff(a.X, b.X) > transformEpsilon ||
		absDiff(a.Y, b.Y) > transformEpsilon ||
		absDiff(a.Z, b.Z) > transformEpsilon ||
		absDiff(a.QX, b.QX) > transformEpsilon ||
		absDiff(a.QY, b.QY) > transformEpsilon ||
		absDiff(a.QZ, b.QZ) > transformEpsilon ||
		absDiff(a.QW, b.QW) > transformEpsilon
}

func absDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}
