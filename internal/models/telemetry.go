package models

import "time"

// TelemetryType is the declared type of a telemetry channel.
type TelemetryType string

const (
	TelemetryDouble  TelemetryType = "Double"
	TelemetryInteger TelemetryType = "Integer"
	TelemetryBoolean TelemetryType = "Boolean"
	TelemetryString  TelemetryType = "String"
	TelemetryJSON    TelemetryType = "JSON"
)

// Valid reports whether t is a known telemetry type.
func (t TelemetryType) Valid() bool {
	switch t {
	case TelemetryDouble, TelemetryInteger, TelemetryBoolean, TelemetryString, TelemetryJSON:
		return true
	}
	return false
}

// TelemetryItem is a named measurement channel of a device. It only changes
// through an explicit collect.
type TelemetryItem struct {
	Key          string        `json:"key"`
	Label        string        `json:"label"`
	Type         TelemetryType `json:"type"`
	Unit         string        `json:"unit,omitempty"`
	CurrentValue interface{}   `json:"currentValue"`
	LastUpdate   Timestamp     `json:"lastUpdate"`
}

// Clone deep copies the current value.
func (t TelemetryItem) Clone() TelemetryItem {
	t.CurrentValue = cloneValue(t.CurrentValue)
	return t
}

// CollectTelemetry overwrites the current value of the channel with key and
// bumps its update time. It reports false when the channel does not exist.
func CollectTelemetry(items []TelemetryItem, key string, value interface{}, now time.Time) ([]TelemetryItem, bool) {
	out := make([]TelemetryItem, len(items))
	copy(out, items)
	for i, item := range out {
		if item.Key == key {
			out[i].CurrentValue = value
			out[i].LastUpdate = NewTimestamp(now)
			return out, true
		}
	}
	return items, false
}

// DefaultTelemetry is the channel set shown for a device that has none.
func DefaultTelemetry(now time.Time) []TelemetryItem {
	ts := NewTimestamp(now)
	return []TelemetryItem{
		{Key: "temp", Label: "环境温度", Type: TelemetryDouble, Unit: "°C", CurrentValue: 24.5, LastUpdate: ts},
		{Key: "humi", Label: "环境湿度", Type: TelemetryDouble, Unit: "%", CurrentValue: 62.1, LastUpdate: ts},
		{Key: "battery", Label: "剩余电量", Type: TelemetryInteger, Unit: "%", CurrentValue: int64(85), LastUpdate: ts},
		{Key: "voltage", Label: "输入电压", Type: TelemetryDouble, Unit: "V", CurrentValue: 3.6, LastUpdate: ts},
		{Key: "signal", Label: "信号强度", Type: TelemetryInteger, Unit: "dBm", CurrentValue: int64(-42), LastUpdate: ts},
	}
}
