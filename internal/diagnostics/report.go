package diagnostics

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Priorities a sanitized recommendation carries.
const (
	PriorityHigh    = "high"
	PriorityMedium  = "medium"
	PriorityLow     = "low"
	PriorityUnknown = "unknown"
)

// Recommendation is one maintenance action for a device.
type Recommendation struct {
	DeviceID string `json:"deviceId"`
	Action   string `json:"action"`
	Priority string `json:"priority"`
}

// Report is the model's assessment of the fleet.
type Report struct {
	HealthScore     float64          `json:"healthScore"`
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
}

// rawReport accepts the loosely typed shapes models return.
type rawReport struct {
	HealthScore     interface{}       `json:"healthScore"`
	Summary         interface{}       `json:"summary"`
	Recommendations []json.RawMessage `json:"recommendations"`
}

func (r rawReport) report() *Report {
	out := &Report{
		HealthScore: toScore(r.HealthScore),
		Summary:     toText(r.Summary),
	}
	for _, item := range r.Recommendations {
		var rec struct {
			DeviceID interface{} `json:"deviceId"`
			Action   interface{} `json:"action"`
			Priority interface{} `json:"priority"`
		}
		if json.Unmarshal(item, &rec) != nil {
			continue
		}
		out.Recommendations = append(out.Recommendations, Recommendation{
			DeviceID: toText(rec.DeviceID),
			Action:   toText(rec.Action),
			Priority: toText(rec.Priority),
		})
	}
	return out
}

func toScore(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func toText(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// Sanitize clamps the score to 0-100, normalizes priorities and drops
// recommendations that name no device.
func (r *Report) Sanitize() {
	switch {
	case math.IsNaN(r.HealthScore), r.HealthScore < 0:
		r.HealthScore = 0
	case r.HealthScore > 100:
		r.HealthScore = 100
	}

	kept := make([]Recommendation, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		rec.DeviceID = strings.TrimSpace(rec.DeviceID)
		if rec.DeviceID == "" {
			continue
		}
		rec.Action = strings.TrimSpace(rec.Action)
		rec.Priority = NormalizePriority(rec.Priority)
		kept = append(kept, rec)
	}
	r.Recommendations = kept
}

// NormalizePriority maps the Chinese and English spellings models use onto
// high, medium and low. Anything else is unknown.
func NormalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "高", "high", "urgent", "critical":
		return PriorityHigh
	case "中", "medium", "moderate", "normal":
		return PriorityMedium
	case "低", "low":
		return PriorityLow
	}
	return PriorityUnknown
}
