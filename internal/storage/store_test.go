package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/validation"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// faultyKV fails reads or writes on demand.
type faultyKV struct {
	*MemoryKV
	getErr error
	setErr error
}

func (f *faultyKV) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.MemoryKV.Get(ctx, key)
}

func (f *faultyKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryKV.Set(ctx, key, value)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingNotifier) Notify(ctx context.Context, change Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recordingNotifier) last() Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes[len(r.changes)-1]
}

func newTestStore(t *testing.T, kv KV, opts ...Option) *Store {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s := NewStore(kv, opts...)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func storedDevices(t *testing.T, kv KV) []models.Device {
	raw, err := kv.Get(context.Background(), DefaultKeys.Devices)
	require.NoError(t, err)

	var list []models.Device
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	return list
}

func TestLoad_DefaultsOnMiss(t *testing.T) {
	s := newTestStore(t, NewMemoryKV())

	assert.Equal(t, []string{"DEV-001", "DEV-002", "DEV-003"}, models.RecordIDs(s.Devices()))
	assert.Equal(t, []string{"TPL-001", "TPL-002"}, models.RecordIDs(s.Templates()))
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	for _, raw := range []string{"{not json", "null", `{"id":"DEV-001"}`} {
		kv := NewMemoryKV()
		require.NoError(t, kv.Set(context.Background(), DefaultKeys.Devices, raw))

		s := newTestStore(t, kv)
		assert.Len(t, s.Devices(), 3, raw)
	}
}

func TestLoad_StoredCollection(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), DefaultKeys.Devices,
		`[{"id":"DEV-041","name":"Pump","type":"Actuator","status":"offline","customer":"未分配"}]`))
	require.NoError(t, kv.Set(context.Background(), DefaultKeys.Templates, `[]`))

	s := newTestStore(t, kv)
	require.Len(t, s.Devices(), 1)
	assert.Empty(t, s.Templates())

	d, err := s.AddDevice(context.Background(), models.DeviceInput{Name: "Valve"})
	require.NoError(t, err)
	assert.Equal(t, "DEV-042", d.ID)
}

func TestLoad_ReadError(t *testing.T) {
	kv := &faultyKV{MemoryKV: NewMemoryKV(), getErr: errors.New("connection refused")}

	err := NewStore(kv).Load(context.Background())
	assert.Error(t, err)
}

func TestAddDevice(t *testing.T) {
	kv := NewMemoryKV()
	notifier := &recordingNotifier{}
	s := newTestStore(t, kv, WithNotifier(notifier))

	d, err := s.AddDevice(context.Background(), models.DeviceInput{Name: "Roof Sensor", Type: models.DeviceTypeSensor})
	require.NoError(t, err)

	assert.Equal(t, "DEV-004", d.ID)
	assert.Equal(t, models.StatusOnline, d.Status)
	assert.Equal(t, models.UnassignedCustomer, d.Customer)
	assert.Equal(t, fixedNow, d.CreatedAt.Time)

	stored := storedDevices(t, kv)
	require.Len(t, stored, 4)
	assert.Equal(t, "Roof Sensor", stored[3].Name)

	assert.Equal(t, Change{Entity: EntityDevice, Action: ActionCreate, IDs: []string{"DEV-004"}}, notifier.last())
}

func TestAddDevice_InvalidLeavesStateUnchanged(t *testing.T) {
	kv := NewMemoryKV()
	s := newTestStore(t, kv)

	_, err := s.AddDevice(context.Background(), models.DeviceInput{Name: "   "})
	assert.True(t, errors.Is(err, validation.ErrValidation))
	assert.Len(t, s.Devices(), 3)

	_, err = kv.Get(context.Background(), DefaultKeys.Devices)
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestAddDevice_WriteFailure(t *testing.T) {
	kv := &faultyKV{MemoryKV: NewMemoryKV()}
	notifier := &recordingNotifier{}
	s := newTestStore(t, kv, WithNotifier(notifier))

	kv.setErr = errors.New("disk full")
	_, err := s.AddDevice(context.Background(), models.DeviceInput{Name: "Roof Sensor"})
	require.Error(t, err)

	assert.Len(t, s.Devices(), 3)
	assert.Empty(t, notifier.changes)
}

func TestUpdateDevice(t *testing.T) {
	s := newTestStore(t, NewMemoryKV())
	ctx := context.Background()

	updated, err := s.UpdateDevice(ctx, "DEV-001", models.DeviceInput{
		Name:      "North Hall Sensor",
		IsGateway: true,
		Status:    models.StatusWarning,
	})
	require.NoError(t, err)
	assert.Equal(t, "DEV-001", updated.ID)
	assert.Equal(t, models.DeviceTypeGateway, updated.Type)
	assert.Equal(t, models.StatusWarning, updated.Status)
	assert.Equal(t, models.CredentialAccessToken, updated.CredentialType())

	got, err := s.Device("DEV-001")
	require.NoError(t, err)
	assert.Equal(t, "North Hall Sensor", got.Name)

	_, err = s.UpdateDevice(ctx, "DEV-999", models.DeviceInput{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoveDevices(t *testing.T) {
	kv := NewMemoryKV()
	notifier := &recordingNotifier{}
	s := newTestStore(t, kv, WithNotifier(notifier))
	ctx := context.Background()

	removed, err := s.RemoveDevices(ctx, []string{"DEV-001", "DEV-003", "DEV-404"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DEV-001", "DEV-003"}, removed)
	assert.Equal(t, []string{"DEV-002"}, models.RecordIDs(s.Devices()))
	assert.Len(t, storedDevices(t, kv), 1)
	assert.Equal(t, ActionDelete, notifier.last().Action)

	removed, err = s.RemoveDevices(ctx, []string{"DEV-404"})
	require.NoError(t, err)
	assert.Empty(t, removed)

	assert.True(t, errors.Is(s.RemoveDevice(ctx, "DEV-001"), ErrNotFound))
	require.NoError(t, s.RemoveDevice(ctx, "DEV-002"))
	assert.Empty(t, s.Devices())
}

func TestDevices_ReturnsCopies(t *testing.T) {
	s := newTestStore(t, NewMemoryKV())

	list := s.Devices()
	list[0].Name = "changed"
	list[0].Labels[0] = "changed"

	d, err := s.Device("DEV-001")
	require.NoError(t, err)
	assert.Equal(t, "北厅温度传感器", d.Name)
	assert.Equal(t, "环境监控", d.Labels[0])
}

func TestAttributes(t *testing.T) {
	kv := NewMemoryKV()
	s := newTestStore(t, kv)
	ctx := context.Background()

	attrs, err := s.Attributes("DEV-001")
	require.NoError(t, err)
	assert.Len(t, attrs, 4)

	attr, err := models.NewAttribute("location_floor", int64(3), models.ScopeServer, fixedNow)
	require.NoError(t, err)
	_, err = s.UpsertAttribute(ctx, "DEV-001", attr, true)
	require.NoError(t, err)

	_, err = s.UpsertAttribute(ctx, "DEV-001", attr, true)
	assert.True(t, errors.Is(err, validation.ErrValidation))

	attrs, err = s.Attributes("DEV-001")
	require.NoError(t, err)
	assert.Len(t, attrs, 5)

	edit, err := models.NewAttribute("upload_interval", 60.5, models.ScopeShared, fixedNow)
	require.NoError(t, err)
	_, err = s.UpsertAttribute(ctx, "DEV-001", edit, false)
	require.NoError(t, err)

	d := storedDevices(t, kv)[0]
	got, ok := d.Attribute("upload_interval")
	require.True(t, ok)
	assert.Equal(t, 60.5, got.Value)

	missing, err := models.NewAttribute("nope", "x", models.ScopeClient, fixedNow)
	require.NoError(t, err)
	_, err = s.UpsertAttribute(ctx, "DEV-001", missing, false)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.UpsertAttribute(ctx, "DEV-404", attr, true)
	assert.True(t, errors.Is(err, ErrNotFound))

	removed, err := s.RemoveAttributes(ctx, "DEV-001", []string{"active", "region", "nope"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"active", "region"}, removed)

	attrs, err = s.Attributes("DEV-001")
	require.NoError(t, err)
	assert.Len(t, attrs, 3)

	// other devices still show the default set
	attrs, err = s.Attributes("DEV-002")
	require.NoError(t, err)
	assert.Len(t, attrs, 4)
}

func TestCollectTelemetry(t *testing.T) {
	later := fixedNow.Add(time.Hour)
	now := fixedNow
	s := newTestStore(t, NewMemoryKV(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	now = later
	item, err := s.CollectTelemetry(ctx, "DEV-001", "temp", 26.25)
	require.NoError(t, err)
	assert.Equal(t, 26.25, item.CurrentValue)
	assert.Equal(t, later, item.LastUpdate.Time)

	items, err := s.Telemetry("DEV-001")
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, 26.25, items[0].CurrentValue)
	assert.Equal(t, 62.1, items[1].CurrentValue)

	_, err = s.CollectTelemetry(ctx, "DEV-001", "pressure", 1.0)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTemplates(t *testing.T) {
	s := newTestStore(t, NewMemoryKV())
	ctx := context.Background()

	tpl, err := s.AddTemplate(ctx, models.TemplateInput{Name: "Cold Chain", Transport: models.TransportSNMP})
	require.NoError(t, err)
	assert.Equal(t, "TPL-003", tpl.ID)
	assert.Equal(t, models.ProvisioningDisabled, tpl.ProvisioningStrategy)

	updated, err := s.UpdateTemplate(ctx, "TPL-001", models.TemplateInput{Name: "Env v2"})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, models.TransportDefault, updated.Transport)

	_, err = s.UpdateTemplate(ctx, "TPL-404", models.TemplateInput{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.RemoveTemplate(ctx, "TPL-001"))
	assert.True(t, errors.Is(s.RemoveTemplate(ctx, "TPL-001"), ErrNotFound))

	// DEV-001 still references the removed template
	d, err := s.Device("DEV-001")
	require.NoError(t, err)
	assert.Equal(t, "TPL-001", d.TemplateID)
	assert.Equal(t, models.DefaultTemplateName, models.TemplateName(s.Templates(), d.TemplateID))
}

func TestTheme(t *testing.T) {
	kv := NewMemoryKV()
	s := newTestStore(t, kv)
	ctx := context.Background()

	theme, err := s.Theme(ctx, ThemeLight)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	raw, err := kv.Get(ctx, DefaultKeys.Theme)
	require.NoError(t, err)
	assert.Equal(t, "dark", raw)

	theme, err = s.Theme(ctx, ThemeLight)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	err = s.SetTheme(ctx, "sepia")
	assert.True(t, errors.Is(err, validation.ErrValidation))

	require.NoError(t, kv.Set(ctx, DefaultKeys.Theme, `"dark"`))
	theme, err = s.Theme(ctx, ThemeLight)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}
