package ws

import (
	"encoding/json"

	"cashpile/backend/internal/assets"
	"cashpile/backend/internal/game"
)

// Константы для WebSocket сообщений
const (
	// Сервер -> клиент
	MessageTypeInfo          = "info"          // Информационное сообщение
	MessageTypeAssets        = "assets"        // Состояние и метаданные текстур
	MessageTypeDenominations = "denominations" // Таблица номиналов
	MessageTypeCreate        = "create"        // Создание объекта
	MessageTypeUpdate        = "update"        // Пакет трансформов
	MessageTypeRemove        = "remove"        // Удаление объекта
	MessageTypeTrayTotal     = "tray_total"    // Сумма в лотке
	MessageTypeAmount        = "amount"        // Текущая сумма
	MessageTypeStatus        = "status"        // Состояние сессии и план
	MessageTypeCamera        = "camera"        // Камера
	MessageTypeReprompt      = "reprompt"      // Сумма некорректна, спросить снова
	MessageTypePong          = "pong"          // Ответ на пинг

	// Клиент -> сервер
	MessageTypeDrop     = "drop"     // Выложить сумму
	MessageTypePay      = "pay"      // Оплатить содержимое лотка
	MessageTypePointer  = "pointer"  // Событие указателя
	MessageTypeViewport = "viewport" // Размер окна
	MessageTypePing     = "ping"     // Пинг для измерения задержки
)

// InfoMessage представляет информационное сообщение от сервера
type InfoMessage struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Message string `json:"message"`
}

// AssetsMessage - состояние загрузки текстур
type AssetsMessage struct {
	Type     string           `json:"type"`
	State    string           `json:"state"`
	Error    string           `json:"error,omitempty"`
	Textures []assets.Texture `json:"textures,omitempty"`
}

// DenominationInfo - номинал в том виде, в каком он нужен рендеру
type DenominationInfo struct {
	Value     int64   `json:"value"`
	Label     string  `json:"label"`
	Kind      string  `json:"kind"`
	Front     string  `json:"front"`
	Back      string  `json:"back"`
	EdgeColor string  `json:"edge_color"`
	Aspect    float64 `json:"aspect,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
	Exchange  int64   `json:"exchange,omitempty"`
}

// DenominationsMessage - таблица номиналов
type DenominationsMessage struct {
	Type  string             `json:"type"`
	Items []DenominationInfo `json:"items"`
}

// ObjectMessage представляет сообщение о создании объекта
type ObjectMessage struct {
	Type       string  `json:"type"`
	ID         string  `json:"id"`
	ObjectType string  `json:"object_type"`
	Static     bool    `json:"static,omitempty"`
	Value      int64   `json:"value,omitempty"`
	Represents int64   `json:"represents,omitempty"`
	Geometry   string  `json:"geometry,omitempty"`
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Z          float32 `json:"z"`
	QX         float32 `json:"qx"`
	QY         float32 `json:"qy"`
	QZ         float32 `json:"qz"`
	QW         float32 `json:"qw"`
	Width      float32 `json:"width,omitempty"`
	Height     float32 `json:"height,omitempty"`
	Depth      float32 `json:"depth,omitempty"`
	Radius     float32 `json:"radius,omitempty"`
	Thickness  float32 `json:"thickness,omitempty"`
	Front      string  `json:"front,omitempty"`
	Back       string  `json:"back,omitempty"`
	Color      string  `json:"color,omitempty"`
	Visible    bool    `json:"visible"`
	ServerTime int64   `json:"server_time"`
}

// Transform - положение и поворот одной фигуры
type Transform struct {
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	Z  float32 `json:"z"`
	QX float32 `json:"qx"`
	QY float32 `json:"qy"`
	QZ float32 `json:"qz"`
	QW float32 `json:"qw"`
}

// UpdateMessage - пакет трансформов, ключ - id объекта
type UpdateMessage struct {
	Type       string               `json:"type"`
	Updates    map[string]Transform `json:"updates"`
	ServerTime int64                `json:"server_time"`
}

// RemoveMessage - удаление объекта
type RemoveMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ValueMessage - сообщение с одной суммой (tray_total, amount)
type ValueMessage struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

// PlanCount - строка отчета о разложении
type PlanCount struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// PlanReport - отчет о разложении суммы для строки состояния
type PlanReport struct {
	Original          int64       `json:"original"`
	BundleSize        int64       `json:"bundle_size"`
	RepresentedAmount int64       `json:"represented_amount"`
	Pieces            int         `json:"pieces"`
	Counts            []PlanCount `json:"denomination_counts"`
}

// StatusMessage - состояние сессии
type StatusMessage struct {
	Type        string      `json:"type"`
	Running     bool        `json:"running"`
	Amount      int64       `json:"amount"`
	TrayTotal   int64       `json:"tray_total"`
	PaidTotal   int64       `json:"paid_total"`
	Pieces      int         `json:"pieces"`
	AssetsReady bool        `json:"assets_ready"`
	Plan        *PlanReport `json:"plan,omitempty"`
}

// CameraMessage - состояние камеры
type CameraMessage struct {
	Type   string           `json:"type"`
	Camera game.CameraState `json:"camera"`
}

// RepromptMessage - просьба ввести сумму заново
type RepromptMessage struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// PongMessage представляет ответ на пинг от сервера
type PongMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
	ServerTime int64  `json:"server_time"`
}

// DropMessage - клиент вводит сумму. Amount - число или строка из поля ввода.
type DropMessage struct {
	Type   string          `json:"type"`
	Amount json.RawMessage `json:"amount"`
}

// PayMessage - оплата содержимого лотка
type PayMessage struct {
	Type string `json:"type"`
}

// PointerMessage - событие указателя в пикселях окна
type PointerMessage struct {
	Type        string  `json:"type"`
	Event       string  `json:"event"`
	PointerID   int     `json:"pointer_id"`
	PointerType string  `json:"pointer_type"`
	Button      int     `json:"button"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// ViewportMessage - размер окна клиента
type ViewportMessage struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PingMessage представляет пинг от клиента
type PingMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
}
