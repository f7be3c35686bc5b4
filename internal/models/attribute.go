package models

import (
	"strings"
	"time"

	"github.com/fleet-console/fleet-console/internal/validation"
)

// AttributeScope classifies where an attribute originates.
type AttributeScope string

const (
	ScopeClient AttributeScope = "client"
	ScopeServer AttributeScope = "server"
	ScopeShared AttributeScope = "shared"
)

// Valid reports whether s is a known scope.
func (s AttributeScope) Valid() bool {
	switch s {
	case ScopeClient, ScopeServer, ScopeShared:
		return true
	}
	return false
}

// DeviceAttribute is a typed key/value pair attached to a device. Value holds
// a string, an int64, a float64, a bool or a decoded JSON document.
type DeviceAttribute struct {
	Key        string         `json:"key"`
	Value      interface{}    `json:"value"`
	Scope      AttributeScope `json:"scope"`
	LastUpdate Timestamp      `json:"lastUpdate"`
}

// NewAttribute validates key and scope and stamps the update time. An empty
// scope defaults to client.
func NewAttribute(key string, value interface{}, scope AttributeScope, now time.Time) (DeviceAttribute, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return DeviceAttribute{}, validation.Errorf("key", "must not be blank")
	}
	if scope == "" {
		scope = ScopeClient
	}
	if !scope.Valid() {
		return DeviceAttribute{}, validation.Errorf("scope", "must be one of [client server shared]")
	}
	return DeviceAttribute{Key: key, Value: value, Scope: scope, LastUpdate: NewTimestamp(now)}, nil
}

// Clone deep copies the value.
func (a DeviceAttribute) Clone() DeviceAttribute {
	a.Value = cloneValue(a.Value)
	return a
}

// InsertAttribute appends attr. The key must not already exist.
func InsertAttribute(attrs []DeviceAttribute, attr DeviceAttribute) ([]DeviceAttribute, error) {
	for _, a := range attrs {
		if a.Key == attr.Key {
			return nil, validation.Errorf("key", "attribute %q already exists", attr.Key)
		}
	}
	out := make([]DeviceAttribute, 0, len(attrs)+1)
	out = append(out, attrs...)
	return append(out, attr), nil
}

// ReplaceAttribute swaps the value and scope of the attribute with the same
// key. It reports false when no such attribute exists.
func ReplaceAttribute(attrs []DeviceAttribute, attr DeviceAttribute) ([]DeviceAttribute, bool) {
	out := make([]DeviceAttribute, len(attrs))
	copy(out, attrs)
	for i, a := range out {
		if a.Key == attr.Key {
			out[i] = attr
			return out, true
		}
	}
	return attrs, false
}

// RemoveAttributes drops every attribute whose key is in keys and returns the
// keys that were actually removed.
func RemoveAttributes(attrs []DeviceAttribute, keys []string) ([]DeviceAttribute, []string) {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}

	kept := make([]DeviceAttribute, 0, len(attrs))
	var removed []string
	for _, a := range attrs {
		if _, ok := drop[a.Key]; ok {
			removed = append(removed, a.Key)
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}

// DefaultAttributes is the attribute set shown for a device that has none.
func DefaultAttributes(now time.Time) []DeviceAttribute {
	ts := NewTimestamp(now)
	return []DeviceAttribute{
		{Key: "active", Value: true, Scope: ScopeClient, LastUpdate: ts},
		{Key: "firmware_version", Value: "1.2.5-stable", Scope: ScopeClient, LastUpdate: ts},
		{Key: "upload_interval", Value: int64(60), Scope: ScopeShared, LastUpdate: ts},
		{Key: "region", Value: "CN-North-1", Scope: ScopeServer, LastUpdate: ts},
	}
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[k] = cloneValue(item)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(val))
		for i, item := range val {
			s[i] = cloneValue(item)
		}
		return s
	}
	return v
}
