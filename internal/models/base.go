package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// TimestampLayout is the wire layout for instants.
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout is the wire layout for calendar dates.
	DateLayout = "2006-01-02"
)

var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// Timestamp is a second-precision UTC instant encoded as "2006-01-02 15:04:05".
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to seconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// String returns the wire representation
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	parsed, err := parseTime(data)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Date is a calendar date encoded as "2006-01-02".
type Date struct {
	time.Time
}

// NewDate drops the clock part of t.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String returns the wire representation
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := parseTime(data)
	if err != nil {
		return err
	}
	if parsed.IsZero() {
		d.Time = parsed
		return nil
	}
	*d = NewDate(parsed)
	return nil
}

func parseTime(data []byte) (time.Time, error) {
	s := string(data)
	if s == "null" {
		return time.Time{}, nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return time.Time{}, fmt.Errorf("invalid time format: %s", s)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// Record is implemented by every entity addressed by a unique identifier.
type Record interface {
	RecordID() string
}

// SameRecord reports whether a and b address the same record.
func SameRecord(a, b Record) bool {
	return a.RecordID() == b.RecordID()
}

// RecordIDs collects the identifiers of items in order.
func RecordIDs[T Record](items []T) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.RecordID()
	}
	return ids
}

func floatPtr(v float64) *float64 { return &v }

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(*v)
}
