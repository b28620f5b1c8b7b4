package money

import (
	"errors"
	"math"
	"math/rand/v2"
)

// MaxVisualItems - предел количества объектов на экране для одной суммы
const MaxVisualItems = 480

// ErrInvalidAmount - сумма не число, не конечна или не положительна
var ErrInvalidAmount = errors.New("invalid amount")

// QueueEntry - одна будущая фигура: номинал и представляемая сумма (номинал × пачка)
type QueueEntry struct {
	Denomination     Denomination
	RepresentedValue int64
}

// DenominationCount - результат жадного разложения по одному номиналу
type DenominationCount struct {
	Denomination Denomination
	Count        int64
}

// Plan - результат разложения суммы
type Plan struct {
	Original          int64
	Queue             []QueueEntry
	BundleSize        int64
	Counts            []DenominationCount
	RepresentedAmount int64
}

// Empty возвращает true, если ничего не нужно выкладывать
func (p Plan) Empty() bool {
	return len(p.Queue) == 0
}

// ParseAmount проверяет сырое значение и округляет вниз до целых иен
func ParseAmount(raw float64) (int64, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 {
		return 0, ErrInvalidAmount
	}
	amount := math.Floor(raw)
	if amount < 1 || amount > math.MaxInt64/2 {
		return 0, ErrInvalidAmount
	}
	return int64(amount), nil
}

// Planner раскладывает сумму на очередь фигур
type Planner struct {
	catalog   *Catalog
	maxVisual int64
}

// NewPlanner создает планировщик с пределом MaxVisualItems
func NewPlanner(c *Catalog) *Planner {
	return &Planner{catalog: c, maxVisual: MaxVisualItems}
}

// WithMaxVisual меняет предел количества фигур (используется в тестах и TUI)
func (p *Planner) WithMaxVisual(n int) *Planner {
	if n < 1 {
		n = 1
	}
	return &Planner{catalog: p.catalog, maxVisual: int64(n)}
}

// Plan раскладывает amount жадно от большего номинала к меньшему.
// Если фигур больше предела, каждая фигура становится пачкой из BundleSize штук;
// последняя пачка не урезается, поэтому RepresentedAmount может превышать amount.
// Банкноты и монеты перемешиваются внутри своих групп, банкноты идут первыми.
func (p *Planner) Plan(amount int64, rng *rand.Rand) Plan {
	if amount <= 0 {
		return Plan{BundleSize: 1}
	}

	remaining := amount
	counts := make([]DenominationCount, 0, p.catalog.Len())
	var total int64
	for _, d := range p.catalog.list {
		n := remaining / d.Value
		remaining -= n * d.Value
		counts = append(counts, DenominationCount{Denomination: d, Count: n})
		total += n
	}

	bundle := int64(1)
	if total > p.maxVisual {
		bundle = (total + p.maxVisual - 1) / p.maxVisual
	}

	var bills, coins []QueueEntry
	var represented int64
	for _, c := range counts {
		if c.Count == 0 {
			continue
		}
		visual := (c.Count + bundle - 1) / bundle
		entry := QueueEntry{Denomination: c.Denomination, RepresentedValue: c.Denomination.Value * bundle}
		for i := int64(0); i < visual; i++ {
			if c.Denomination.IsBill() {
				bills = append(bills, entry)
			} else {
				coins = append(coins, entry)
			}
			represented += entry.RepresentedValue
		}
	}

	shuffle(bills, rng)
	shuffle(coins, rng)

	return Plan{
		Original:          amount,
		Queue:             append(bills, coins...),
		BundleSize:        bundle,
		Counts:            counts,
		RepresentedAmount: represented,
	}
}

func shuffle(entries []QueueEntry, rng *rand.Rand) {
	for i := len(entries) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		entries[i], entries[j] = entries[j], entries[i]
	}
}
