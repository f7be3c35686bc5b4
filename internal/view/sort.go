package view

import (
	"sort"
	"strings"

	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/validation"
)

// SortSpec orders a listing. An empty Field keeps the stored order.
type SortSpec struct {
	Field string
	Desc  bool
}

// ParseSort builds a SortSpec from query values. order is "asc" or "desc".
func ParseSort(field, order string) (SortSpec, error) {
	spec := SortSpec{Field: field}
	switch strings.ToLower(order) {
	case "", "asc":
	case "desc":
		spec.Desc = true
	default:
		return SortSpec{}, validation.Errorf("order", "must be one of [asc desc]")
	}
	return spec, nil
}

type lessFunc[T any] func(a, b T) bool

func sortBy[T any](list []T, less lessFunc[T], desc bool) []T {
	out := make([]T, len(list))
	copy(out, list)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

var deviceLess = map[string]lessFunc[models.Device]{
	"name":       func(a, b models.Device) bool { return a.Name < b.Name },
	"id":         func(a, b models.Device) bool { return a.ID < b.ID },
	"status":     func(a, b models.Device) bool { return a.Status < b.Status },
	"type":       func(a, b models.Device) bool { return a.Type < b.Type },
	"customer":   func(a, b models.Device) bool { return a.Customer < b.Customer },
	"createdAt":  func(a, b models.Device) bool { return a.CreatedAt.Before(b.CreatedAt.Time) },
	"lastActive": func(a, b models.Device) bool { return a.LastActive.Before(b.LastActive.Time) },
}

var templateLess = map[string]lessFunc[models.DeviceTemplate]{
	"name":      func(a, b models.DeviceTemplate) bool { return a.Name < b.Name },
	"id":        func(a, b models.DeviceTemplate) bool { return a.ID < b.ID },
	"transport": func(a, b models.DeviceTemplate) bool { return a.Transport < b.Transport },
	"createdAt": func(a, b models.DeviceTemplate) bool { return a.CreatedAt.Before(b.CreatedAt.Time) },
}

// SortDevices returns a stably sorted copy of list.
func SortDevices(list []models.Device, spec SortSpec) ([]models.Device, error) {
	if spec.Field == "" {
		return sortBy[models.Device](list, nil, false), nil
	}
	less, ok := deviceLess[spec.Field]
	if !ok {
		return nil, validation.Errorf("sort", "cannot sort devices by %q", spec.Field)
	}
	return sortBy(list, less, spec.Desc), nil
}

// SortTemplates returns a stably sorted copy of list.
func SortTemplates(list []models.DeviceTemplate, spec SortSpec) ([]models.DeviceTemplate, error) {
	if spec.Field == "" {
		return sortBy[models.DeviceTemplate](list, nil, false), nil
	}
	less, ok := templateLess[spec.Field]
	if !ok {
		return nil, validation.Errorf("sort", "cannot sort templates by %q", spec.Field)
	}
	return sortBy(list, less, spec.Desc), nil
}

// Paginate returns at most limit items starting at offset. A limit of zero or
// less returns everything after offset.
func Paginate[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
