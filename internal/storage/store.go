package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/validation"
	"github.com/fleet-console/fleet-console/internal/view"
)

// Keys names the KV entries the store reads and writes.
type Keys struct {
	Devices   string
	Templates string
	Theme     string
}

// DefaultKeys are the keys the browser dashboard used.
var DefaultKeys = Keys{
	Devices:   "iot_devices",
	Templates: "iot_templates",
	Theme:     "iot_theme",
}

// Entities and actions reported in a Change.
const (
	EntityDevice    = "device"
	EntityTemplate  = "template"
	EntityAttribute = "attribute"
	EntityTelemetry = "telemetry"
	EntityTheme     = "theme"

	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionCollect = "collect"
)

// Change describes a committed mutation. For attribute and telemetry changes
// DeviceID names the owning device and IDs holds the keys.
type Change struct {
	Entity   string
	Action   string
	DeviceID string
	IDs      []string
}

// Notifier receives every committed change. It is called after the commit on
// the writer's goroutine and must not block.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

// Option configures a Store
type Option func(*Store)

// WithKeys overrides DefaultKeys.
func WithKeys(keys Keys) Option {
	return func(s *Store) { s.keys = keys }
}

// WithNotifier registers n for committed changes.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the device and template collections. Every mutation writes the
// whole collection through to the KV before the in-memory copy is replaced,
// so a failed write leaves both unchanged. Readers always get copies.
type Store struct {
	kv       KV
	keys     Keys
	notifier Notifier
	now      func() time.Time
	ids      *models.Sequence

	mu        sync.RWMutex
	devices   []models.Device
	templates []models.DeviceTemplate
}

// NewStore creates a store over kv. Call Load before use.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:   kv,
		keys: DefaultKeys,
		now:  time.Now,
		ids:  models.NewSequence(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads both collections once. A missing or malformed blob falls back to
// the built-in defaults; only KV failures are returned.
func (s *Store) Load(ctx context.Context) error {
	devices, err := loadCollection(ctx, s.kv, s.keys.Devices, models.DefaultDevices)
	if err != nil {
		return err
	}
	templates, err := loadCollection(ctx, s.kv, s.keys.Templates, models.DefaultTemplates)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices = devices
	s.templates = templates
	s.ids.Observe(models.RecordIDs(devices)...)
	s.ids.Observe(models.RecordIDs(templates)...)

	log.Info().
		Int("devices", len(devices)).
		Int("templates", len(templates)).
		Msg("Collections loaded")
	return nil
}

func loadCollection[T any](ctx context.Context, kv KV, key string, defaults func() []T) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		log.Debug().Str("key", key).Msg("No stored collection, using defaults")
		return defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var list []T
	if err := json.Unmarshal([]byte(raw), &list); err != nil || list == nil {
		log.Warn().Err(err).Str("key", key).Msg("Stored collection is malformed, using defaults")
		return defaults(), nil
	}
	return list, nil
}

func (s *Store) write(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) commitDevices(ctx context.Context, next []models.Device) error {
	if err := s.write(ctx, s.keys.Devices, next); err != nil {
		return err
	}
	s.devices = next
	return nil
}

func (s *Store) commitTemplates(ctx context.Context, next []models.DeviceTemplate) error {
	if err := s.write(ctx, s.keys.Templates, next); err != nil {
		return err
	}
	s.templates = next
	return nil
}

func (s *Store) notify(ctx context.Context, change Change) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, change)
	}
}

func cloneDevices(list []models.Device) []models.Device {
	out := make([]models.Device, len(list))
	for i, d := range list {
		out[i] = d.Clone()
	}
	return out
}

func cloneTemplates(list []models.DeviceTemplate) []models.DeviceTemplate {
	out := make([]models.DeviceTemplate, len(list))
	copy(out, list)
	return out
}

func indexOf[T models.Record](list []T, id string) int {
	for i, item := range list {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

// ========== Devices ==========

// Devices returns a copy of the device collection in stored order.
func (s *Store) Devices() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDevices(s.devices)
}

// Device returns a copy of one device.
func (s *Store) Device(id string) (models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.devices, id)
	if i < 0 {
		return models.Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	return s.devices[i].Clone(), nil
}

// AddDevice validates the form and appends the new device.
func (s *Store) AddDevice(ctx context.Context, in models.DeviceInput) (models.Device, error) {
	s.mu.Lock()
	d, err := models.NewDevice(in, s.ids, s.now())
	if err != nil {
		s.mu.Unlock()
		return models.Device{}, err
	}
	if indexOf(s.devices, d.ID) >= 0 {
		s.mu.Unlock()
		return models.Device{}, fmt.Errorf("device %s: %w", d.ID, ErrDuplicateKey)
	}

	next := append(cloneDevices(s.devices), *d)
	err = s.commitDevices(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.Device{}, err
	}

	log.Info().Str("device_id", d.ID).Str("name", d.Name).Msg("Device created")
	s.notify(ctx, Change{Entity: EntityDevice, Action: ActionCreate, IDs: []string{d.ID}})
	return d.Clone(), nil
}

// UpdateDevice replaces the editable fields of device id with the form.
func (s *Store) UpdateDevice(ctx context.Context, id string, in models.DeviceInput) (models.Device, error) {
	s.mu.Lock()
	i := indexOf(s.devices, id)
	if i < 0 {
		s.mu.Unlock()
		return models.Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	updated, err := models.ApplyDeviceEdit(s.devices[i], in, s.now())
	if err != nil {
		s.mu.Unlock()
		return models.Device{}, err
	}

	next := cloneDevices(s.devices)
	next[i] = *updated
	err = s.commitDevices(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.Device{}, err
	}

	s.notify(ctx, Change{Entity: EntityDevice, Action: ActionUpdate, IDs: []string{id}})
	return updated.Clone(), nil
}

// RemoveDevice deletes one device.
func (s *Store) RemoveDevice(ctx context.Context, id string) error {
	removed, err := s.RemoveDevices(ctx, []string{id})
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	return nil
}

// RemoveDevices deletes every device in ids in one commit and returns the
// ids that existed. Unknown ids are ignored.
func (s *Store) RemoveDevices(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	next, removed := view.RemoveByID(s.devices, ids)
	if len(removed) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	err := s.commitDevices(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	log.Info().Strs("device_ids", removed).Msg("Devices deleted")
	s.notify(ctx, Change{Entity: EntityDevice, Action: ActionDelete, IDs: removed})
	return removed, nil
}

// ========== Attributes & telemetry ==========

// Attributes returns the attributes of a device. A device that never had any
// shows the default attribute set.
func (s *Store) Attributes(deviceID string) ([]models.DeviceAttribute, error) {
	d, err := s.Device(deviceID)
	if err != nil {
		return nil, err
	}
	return effectiveAttributes(d), nil
}

func effectiveAttributes(d models.Device) []models.DeviceAttribute {
	if d.Attributes == nil {
		return models.DefaultAttributes(d.CreatedAt.Time)
	}
	return d.Attributes
}

// UpsertAttribute adds attr when create is set, otherwise replaces the value
// and scope of the existing attribute with the same key.
func (s *Store) UpsertAttribute(ctx context.Context, deviceID string, attr models.DeviceAttribute, create bool) (models.DeviceAttribute, error) {
	s.mu.Lock()
	i := indexOf(s.devices, deviceID)
	if i < 0 {
		s.mu.Unlock()
		return models.DeviceAttribute{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}

	current := effectiveAttributes(s.devices[i])
	var attrs []models.DeviceAttribute
	if create {
		var err error
		if attrs, err = models.InsertAttribute(current, attr); err != nil {
			s.mu.Unlock()
			return models.DeviceAttribute{}, err
		}
	} else {
		var ok bool
		if attrs, ok = models.ReplaceAttribute(current, attr); !ok {
			s.mu.Unlock()
			return models.DeviceAttribute{}, fmt.Errorf("attribute %s: %w", attr.Key, ErrNotFound)
		}
	}

	next := cloneDevices(s.devices)
	next[i].Attributes = attrs
	err := s.commitDevices(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.DeviceAttribute{}, err
	}

	action := ActionUpdate
	if create {
		action = ActionCreate
	}
	s.notify(ctx, Change{Entity: EntityAttribute, Action: action, DeviceID: deviceID, IDs: []string{attr.Key}})
	return attr.Clone(), nil
}

// RemoveAttributes deletes the attributes named by keys and returns the keys
// that existed.
func (s *Store) RemoveAttributes(ctx context.Context, deviceID string, keys []string) ([]string, error) {
	s.mu.Lock()
	i := indexOf(s.devices, deviceID)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}

	kept, removed := models.RemoveAttributes(effectiveAttributes(s.devices[i]), keys)
	if len(removed) == 0 {
		s.mu.Unlock()
		return nil, nil
	}

	next := cloneDevices(s.devices)
	next[i].Attributes = kept
	err := s.commitDevices(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Change{Entity: EntityAttribute, Action: ActionDelete, DeviceID: deviceID, IDs: removed})
	return removed, nil
}

// Telemetry returns the telemetry channels of a device, or the default
// channel set when it never had any.
func (s *Store) Telemetry(deviceID string) ([]models.TelemetryItem, error) {
	d, err := s.Device(deviceID)
	if err != nil {
		return nil, err
	}
	return effectiveTelemetry(d), nil
}

func effectiveTelemetry(d models.Device) []models.TelemetryItem {
	if d.Telemetry == nil {
		return models.DefaultTelemetry(d.LastActive.Time)
	}
	return d.Telemetry
}

// CollectTelemetry stores value as the current reading of channel key. value
// must already have the channel's type.
func (s *Store) CollectTelemetry(ctx context.Context, deviceID, key string, value interface{}) (models.TelemetryItem, error) {
	s.mu.Lock()
	i := indexOf(s.devices, deviceID)
	if i < 0 {
		s.mu.Unlock()
		return models.TelemetryItem{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}

	items, ok := models.CollectTelemetry(effectiveTelemetry(s.devices[i]), key, value, s.now())
	if !ok {
		s.mu.Unlock()
		return models.TelemetryItem{}, fmt.Errorf("telemetry %s: %w", key, ErrNotFound)
	}

	next := cloneDevices(s.devices)
	next[i].Telemetry = items
	err := s.commitDevices(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.TelemetryItem{}, err
	}

	s.notify(ctx, Change{Entity: EntityTelemetry, Action: ActionCollect, DeviceID: deviceID, IDs: []string{key}})
	item, _ := next[i].TelemetryItem(key)
	return item.Clone(), nil
}

// ========== Templates ==========

// Templates returns a copy of the template collection in stored order.
func (s *Store) Templates() []models.DeviceTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTemplates(s.templates)
}

// Template returns one template.
func (s *Store) Template(id string) (models.DeviceTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.templates, id)
	if i < 0 {
		return models.DeviceTemplate{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return s.templates[i], nil
}

// AddTemplate validates the form and appends the new template.
func (s *Store) AddTemplate(ctx context.Context, in models.TemplateInput) (models.DeviceTemplate, error) {
	s.mu.Lock()
	t, err := models.NewTemplate(in, s.ids, s.now())
	if err != nil {
		s.mu.Unlock()
		return models.DeviceTemplate{}, err
	}
	if indexOf(s.templates, t.ID) >= 0 {
		s.mu.Unlock()
		return models.DeviceTemplate{}, fmt.Errorf("template %s: %w", t.ID, ErrDuplicateKey)
	}

	next := append(cloneTemplates(s.templates), *t)
	err = s.commitTemplates(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.DeviceTemplate{}, err
	}

	log.Info().Str("template_id", t.ID).Str("name", t.Name).Msg("Template created")
	s.notify(ctx, Change{Entity: EntityTemplate, Action: ActionCreate, IDs: []string{t.ID}})
	return *t, nil
}

// UpdateTemplate replaces the editable fields of template id with the form.
func (s *Store) UpdateTemplate(ctx context.Context, id string, in models.TemplateInput) (models.DeviceTemplate, error) {
	s.mu.Lock()
	i := indexOf(s.templates, id)
	if i < 0 {
		s.mu.Unlock()
		return models.DeviceTemplate{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	updated, err := models.ApplyTemplateEdit(s.templates[i], in)
	if err != nil {
		s.mu.Unlock()
		return models.DeviceTemplate{}, err
	}

	next := cloneTemplates(s.templates)
	next[i] = *updated
	err = s.commitTemplates(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.DeviceTemplate{}, err
	}

	s.notify(ctx, Change{Entity: EntityTemplate, Action: ActionUpdate, IDs: []string{id}})
	return *updated, nil
}

// RemoveTemplate deletes one template. Devices referencing it are left alone
// and resolve to the default configuration.
func (s *Store) RemoveTemplate(ctx context.Context, id string) error {
	removed, err := s.RemoveTemplates(ctx, []string{id})
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

// RemoveTemplates deletes every template in ids in one commit and returns the
// ids that existed.
func (s *Store) RemoveTemplates(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	next, removed := view.RemoveByID(s.templates, ids)
	if len(removed) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	err := s.commitTemplates(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	log.Info().Strs("template_ids", removed).Msg("Templates deleted")
	s.notify(ctx, Change{Entity: EntityTemplate, Action: ActionDelete, IDs: removed})
	return removed, nil
}

// ========== Theme ==========

// Theme values
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ValidTheme reports whether theme is light or dark.
func ValidTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark
}

// Theme returns the stored theme, or fallback when none or an unknown value
// is stored.
func (s *Store) Theme(ctx context.Context, fallback string) (string, error) {
	theme, err := s.kv.Get(ctx, s.keys.Theme)
	if errors.Is(err, ErrMiss) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.keys.Theme, err)
	}
	if !ValidTheme(theme) {
		return fallback, nil
	}
	return theme, nil
}

// SetTheme stores the theme as a bare string.
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	if !ValidTheme(theme) {
		return validation.Errorf("theme", "must be one of [light dark]")
	}
	if err := s.kv.Set(ctx, s.keys.Theme, theme); err != nil {
		return fmt.Errorf("write %s: %w", s.keys.Theme, err)
	}
	s.notify(ctx, Change{Entity: EntityTheme, Action: ActionUpdate, IDs: []string{theme}})
	return nil
}
