package money

import (
	"fmt"
	"math"
	"sort"
)

// Kind различает банкноты и монеты
type Kind string

const (
	KindBill Kind = "bill"
	KindCoin Kind = "coin"
)

// Размеры банкноты в мировых единицах
const (
	NoteWidth     = 1.5
	NoteDepth     = 0.68
	NoteThickness = 0.013

	// MinBillAspect ограничивает слишком «квадратные» картинки банкнот
	MinBillAspect = 1.2
)

// DefaultBillAspect используется, пока текстуры не загружены
var DefaultBillAspect = NoteWidth / NoteDepth

// Denomination описывает класс купюры или монеты. Значения неизменяемы после
// построения каталога.
type Denomination struct {
	Value int64
	Label string
	Kind  Kind

	// Файлы лицевой и оборотной стороны
	Front string
	Back  string

	// EdgeColor - цвет торца банкноты или гурта монеты, 0xRRGGBB
	EdgeColor uint32

	// Aspect - отношение ширины к глубине для банкнот (из непрозрачной области картинки)
	Aspect float64

	// Radius и Thickness заданы только для монет
	Radius    float64
	Thickness float64
}

// IsBill возвращает true для банкнот
func (d Denomination) IsBill() bool {
	return d.Kind == KindBill
}

// BillDepth возвращает глубину банкноты с учетом пропорций картинки
func (d Denomination) BillDepth() float64 {
	aspect := d.Aspect
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = DefaultBillAspect
	}
	return NoteWidth / math.Max(MinBillAspect, aspect)
}

// Size возвращает полные габариты (ширина, высота, глубина)
func (d Denomination) Size() (w, h, depth float64) {
	if d.IsBill() {
		return NoteWidth, NoteThickness, d.BillDepth()
	}
	return d.Radius * 2, d.Thickness, d.Radius * 2
}

// GeometryKey - ключ кэша геометрии: банкноты зависят от глубины, монеты только от номинала
func (d Denomination) GeometryKey() string {
	if d.IsBill() {
		return fmt.Sprintf("%d:%.4f", d.Value, d.BillDepth())
	}
	return fmt.Sprintf("%d", d.Value)
}

// Catalog - упорядоченная по убыванию таблица номиналов с картой размена
type Catalog struct {
	list     []Denomination
	byValue  map[int64]int
	exchange map[int64]int64
}

// NewCatalog проверяет и строит каталог. Номиналы должны быть уникальны и
// положительны, цель размена обязана делить исходный номинал нацело и давать
// минимум две части.
func NewCatalog(list []Denomination, exchange map[int64]int64) (*Catalog, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("empty denomination table")
	}

	sorted := make([]Denomination, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	byValue := make(map[int64]int, len(sorted))
	for i, d := range sorted {
		if d.Value <= 0 {
			return nil, fmt.Errorf("denomination %q: non-positive value %d", d.Label, d.Value)
		}
		if _, dup := byValue[d.Value]; dup {
			return nil, fmt.Errorf("duplicate denomination value %d", d.Value)
		}
		if d.Kind != KindBill && d.Kind != KindCoin {
			return nil, fmt.Errorf("denomination %d: unknown kind %q", d.Value, d.Kind)
		}
		byValue[d.Value] = i
	}

	ex := make(map[int64]int64, len(exchange))
	for from, to := range exchange {
		if _, ok := byValue[from]; !ok {
			return nil, fmt.Errorf("exchange source %d is not a denomination", from)
		}
		if _, ok := byValue[to]; !ok {
			return nil, fmt.Errorf("exchange target %d is not a denomination", to)
		}
		if to >= from || from%to != 0 {
			return nil, fmt.Errorf("exchange %d -> %d does not split evenly", from, to)
		}
		ex[from] = to
	}

	return &Catalog{list: sorted, byValue: byValue, exchange: ex}, nil
}

// All возвращает копию таблицы в порядке убывания
func (c *Catalog) All() []Denomination {
	out := make([]Denomination, len(c.list))
	copy(out, c.list)
	return out
}

// Len возвращает количество номиналов
func (c *Catalog) Len() int {
	return len(c.list)
}

// ByValue ищет номинал по значению
func (c *Catalog) ByValue(value int64) (Denomination, bool) {
	i, ok := c.byValue[value]
	if !ok {
		return Denomination{}, false
	}
	return c.list[i], true
}

// ExchangeTarget возвращает номинал, на который разменивается value
func (c *Catalog) ExchangeTarget(value int64) (Denomination, bool) {
	to, ok := c.exchange[value]
	if !ok {
		return Denomination{}, false
	}
	return c.ByValue(to)
}

// Files возвращает все различные файлы картинок в порядке таблицы
func (c *Catalog) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, d := range c.list {
		for _, f := range []string{d.Front, d.Back} {
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}
	return files
}

// WithBillAspects возвращает копию каталога с пропорциями банкнот из текстур.
// Отсутствующие значения оставляют текущие пропорции.
func (c *Catalog) WithBillAspects(aspects map[int64]float64) *Catalog {
	list := make([]Denomination, len(c.list))
	copy(list, c.list)
	for i := range list {
		if !list[i].IsBill() {
			continue
		}
		if a, ok := aspects[list[i].Value]; ok && a > 0 {
			list[i].Aspect = math.Max(MinBillAspect, a)
		}
	}
	return &Catalog{list: list, byValue: c.byValue, exchange: c.exchange}
}
