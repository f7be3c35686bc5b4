// Package view derives what a user currently sees from a collection and the
// active filter, sort and selection state. Every function is pure.
package view

import (
	"strings"
	"time"

	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/validation"
)

// All is the wildcard accepted by the type, scope and recency filters.
const All = "all"

// RecencyWindow separates active telemetry from inactive telemetry.
const RecencyWindow = 24 * time.Hour

// Recency selects telemetry by how recently it was updated.
type Recency string

const (
	RecencyAll      Recency = All
	RecencyActive   Recency = "active"
	RecencyInactive Recency = "inactive"
)

// ParseRecency accepts "", "all", "active" and "inactive".
func ParseRecency(s string) (Recency, error) {
	switch Recency(strings.ToLower(s)) {
	case "", RecencyAll:
		return RecencyAll, nil
	case RecencyActive:
		return RecencyActive, nil
	case RecencyInactive:
		return RecencyInactive, nil
	}
	return "", validation.Errorf("status", "must be one of [all active inactive]")
}

func filter[T any](list []T, keep func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// matches reports whether any field contains q, ignoring case. An empty q
// matches everything.
func matches(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// SearchDevices keeps devices whose name or id contains q.
func SearchDevices(list []models.Device, q string) []models.Device {
	return filter(list, func(d models.Device) bool { return matches(q, d.Name, d.ID) })
}

// SearchTemplates keeps templates whose name or id contains q.
func SearchTemplates(list []models.DeviceTemplate, q string) []models.DeviceTemplate {
	return filter(list, func(t models.DeviceTemplate) bool { return matches(q, t.Name, t.ID) })
}

// TelemetryFilter holds the three telemetry predicates. Empty fields match
// everything.
type TelemetryFilter struct {
	Search string
	Type   string
	Status Recency
}

// IsActive reports whether item was updated within RecencyWindow before now.
func IsActive(item models.TelemetryItem, now time.Time) bool {
	return item.LastUpdate.After(now.Add(-RecencyWindow))
}

// FilterTelemetry keeps items matching every predicate of f.
func FilterTelemetry(items []models.TelemetryItem, f TelemetryFilter, now time.Time) []models.TelemetryItem {
	return filter(items, func(item models.TelemetryItem) bool {
		if !matches(f.Search, item.Label, item.Key) {
			return false
		}
		if f.Type != "" && !strings.EqualFold(f.Type, All) && !strings.EqualFold(f.Type, string(item.Type)) {
			return false
		}
		switch f.Status {
		case RecencyActive:
			return IsActive(item, now)
		case RecencyInactive:
			return !IsActive(item, now)
		}
		return true
	})
}

// AttributeFilter selects attributes by key and scope.
type AttributeFilter struct {
	Search string
	Scope  string
}

// FilterAttributes keeps attributes whose key contains Search and whose scope
// equals Scope.
func FilterAttributes(attrs []models.DeviceAttribute, f AttributeFilter) []models.DeviceAttribute {
	return filter(attrs, func(a models.DeviceAttribute) bool {
		if !matches(f.Search, a.Key) {
			return false
		}
		return f.Scope == "" || f.Scope == All || models.AttributeScope(f.Scope) == a.Scope
	})
}
