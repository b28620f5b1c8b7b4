package telemetry

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxEntries - размер кольцевого буфера сессии
const DefaultMaxEntries = 200

// Entry - одно доменное событие стола
type Entry struct {
	Timestamp int64                  `json:"timestamp"` // миллисекунды
	Session   string                 `json:"session"`
	Kind      string                 `json:"kind"` // drop, spawn, exchange, tray_toggle, pay, settle
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// TelemetryManager собирает события одной сессии в кольцевой буфер
type TelemetryManager struct {
	session    string
	enabled    bool
	data       []Entry
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики с момента последней сводки
	counters      map[string]int
	totals        map[string]int
	lastPrint     time.Time
	printInterval time.Duration

	logger logrus.FieldLogger
	now    func() time.Time
}

// NewTelemetryManager создает менеджер телеметрии сессии
func NewTelemetryManager(session string, logger logrus.FieldLogger) *TelemetryManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TelemetryManager{
		session:       session,
		enabled:       true,
		data:          make([]Entry, 0, DefaultMaxEntries),
		maxEntries:    DefaultMaxEntries,
		counters:      make(map[string]int),
		totals:        make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 30 * time.Second,
		logger:        logger,
		now:           time.Now,
	}
}

// Session - идентификатор сессии
func (tm *TelemetryManager) Session() string {
	return tm.session
}

// Record записывает событие; реализует game.Recorder
func (tm *TelemetryManager) Record(kind string, fields map[string]interface{}) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	tm.data = append(tm.data, Entry{
		Timestamp: tm.now().UnixMilli(),
		Session:   tm.session,
		Kind:      kind,
		Fields:    fields,
	})
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[len(tm.data)-tm.maxEntries:]
	}

	tm.counters[kind]++
	tm.totals[kind]++
}

// PrintSummary пишет сводку в лог не чаще printInterval
func (tm *TelemetryManager) PrintSummary() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}
	now := tm.now()
	if now.Sub(tm.lastPrint) < tm.printInterval || len(tm.counters) == 0 {
		return
	}

	kinds := make([]string, 0, len(tm.counters))
	for k := range tm.counters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	fields := logrus.Fields{"session": tm.session, "buffered": len(tm.data)}
	for _, k := range kinds {
		fields[k] = tm.counters[k]
	}
	tm.logger.WithFields(fields).Info("[Telemetry] Сводка событий сессии")

	tm.counters = make(map[string]int)
	tm.lastPrint = now
}

// Entries возвращает копию буфера
func (tm *TelemetryManager) Entries() []Entry {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make([]Entry, len(tm.data))
	copy(out, tm.data)
	return out
}

// Totals возвращает счетчики событий за всю сессию
func (tm *TelemetryManager) Totals() map[string]int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make(map[string]int, len(tm.totals))
	for k, v := range tm.totals {
		out[k] = v
	}
	return out
}

// GetTelemetryJSON возвращает буфер в JSON
func (tm *TelemetryManager) GetTelemetryJSON() (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	jsonData, err := json.MarshalIndent(tm.data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// SetEnabled включает/выключает запись
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Debugf("[Telemetry] Телеметрия сессии %s %s", tm.session,
		map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// Clear очищает буфер и счетчики
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = tm.data[:0]
	tm.counters = make(map[string]int)
	tm.totals = make(map[string]int)
}

// Hub хранит менеджеры активных и недавно закрытых сессий
type Hub struct {
	mutex    sync.RWMutex
	sessions map[string]*TelemetryManager
	order    []string
	keep     int
	logger   logrus.FieldLogger
}

// NewHub создает хаб; keep - сколько сессий хранить после закрытия
func NewHub(keep int, logger logrus.FieldLogger) *Hub {
	if keep <= 0 {
		keep = 16
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		sessions: make(map[string]*TelemetryManager),
		keep:     keep,
		logger:   logger,
	}
}

// Open создает менеджер для сессии, вытесняя самые старые сверх лимита
func (h *Hub) Open(session string) *TelemetryManager {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if tm, ok := h.sessions[session]; ok {
		return tm
	}
	tm := NewTelemetryManager(session, h.logger)
	h.sessions[session] = tm
	h.order = append(h.order, session)

	for len(h.order) > h.keep {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.sessions, oldest)
	}
	return tm
}

// Get возвращает менеджер сессии
func (h *Hub) Get(session string) (*TelemetryManager, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	tm, ok := h.sessions[session]
	return tm, ok
}

// Sessions возвращает идентификаторы в порядке открытия
func (h *Hub) Sessions() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}
