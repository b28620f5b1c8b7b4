package world

import (
	"github.com/sirupsen/logrus"

	"cashpile/backend/internal/physics"
)

// RegistryObserver получает уведомления о жизненном цикле фигур
type RegistryObserver interface {
	PieceAdded(p *Piece)
	PieceRemoved(p *Piece)
}

// Registry владеет фигурами: упорядоченный список и индекс по RenderID.
// Только реестр добавляет и удаляет тела фигур из физического мира.
// Не потокобезопасен: принадлежит циклу сессии.
type Registry struct {
	world    *physics.World
	pieces   []*Piece
	byID     map[uint64]*Piece
	nextID   uint64
	observer RegistryObserver
	log      logrus.FieldLogger
}

// NewRegistry создает пустой реестр
func NewRegistry(w *physics.World, log logrus.FieldLogger) *Registry {
	return &Registry{
		world: w,
		byID:  make(map[uint64]*Piece),
		log:   log,
	}
}

// SetObserver подключает наблюдателя (nil отключает)
func (r *Registry) SetObserver(o RegistryObserver) {
	r.observer = o
}

// Add регистрирует фигуру и добавляет тело в мир
func (r *Registry) Add(p *Piece) {
	if p == nil {
		return
	}
	if _, exists := r.byID[p.RenderID]; exists && p.RenderID != 0 {
		return
	}
	r.nextID++
	p.RenderID = r.nextID
	p.Sync()

	r.pieces = append(r.pieces, p)
	r.byID[p.RenderID] = p
	r.world.AddBody(p.Body)

	if r.observer != nil {
		r.observer.PieceAdded(p)
	}
}

// Remove удаляет фигуру; для отсутствующей фигуры ничего не делает
func (r *Registry) Remove(p *Piece) bool {
	if p == nil {
		return false
	}
	if _, ok := r.byID[p.RenderID]; !ok {
		return false
	}
	delete(r.byID, p.RenderID)
	for i, other := range r.pieces {
		if other == p {
			r.pieces = append(r.pieces[:i], r.pieces[i+1:]...)
			break
		}
	}
	r.world.RemoveBody(p.Body)

	if r.observer != nil {
		r.observer.PieceRemoved(p)
	}
	return true
}

// Clear удаляет все фигуры и возвращает их количество
func (r *Registry) Clear() int {
	n := len(r.pieces)
	for i := len(r.pieces) - 1; i >= 0; i-- {
		r.Remove(r.pieces[i])
	}
	if n > 0 && r.log != nil {
		r.log.WithField("removed", n).Debug("[Registry] cleared")
	}
	return n
}

// ForEach обходит фигуры в порядке добавления
func (r *Registry) ForEach(fn func(p *Piece)) {
	for _, p := range r.pieces {
		fn(p)
	}
}

// Find ищет фигуру по RenderID
func (r *Registry) Find(id uint64) (*Piece, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Contains возвращает true для живой фигуры
func (r *Registry) Contains(p *Piece) bool {
	if p == nil {
		return false
	}
	found, ok := r.byID[p.RenderID]
	return ok && found == p
}

// Size - количество живых фигур
func (r *Registry) Size() int {
	return len(r.pieces)
}

// All возвращает копию списка фигур
func (r *Registry) All() []*Piece {
	out := make([]*Piece, len(r.pieces))
	copy(out, r.pieces)
	return out
}

// TotalValue - сумма представляемых значений всех фигур
func (r *Registry) TotalValue() int64 {
	var total int64
	for _, p := range r.pieces {
		total += p.RepresentedValue
	}
	return total
}

// Pick возвращает ближайшую фигуру на луче
func (r *Registry) Pick(ray physics.Ray) (*Piece, float64, bool) {
	var best *Piece
	bestDist := 0.0
	for _, p := range r.pieces {
		d, ok := ray.IntersectBody(p.Body)
		if !ok {
			continue
		}
		if best == nil || d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best, bestDist, best != nil
}
