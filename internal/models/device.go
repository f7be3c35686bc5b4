package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/fleet-console/fleet-console/internal/validation"
)

// DeviceType is the hardware role of a device.
type DeviceType string

const (
	DeviceTypeSensor   DeviceType = "Sensor"
	DeviceTypeActuator DeviceType = "Actuator"
	DeviceTypeGateway  DeviceType = "Gateway"
	DeviceTypeCamera   DeviceType = "Camera"
)

// Valid reports whether t is a known device type.
func (t DeviceType) Valid() bool {
	switch t {
	case DeviceTypeSensor, DeviceTypeActuator, DeviceTypeGateway, DeviceTypeCamera:
		return true
	}
	return false
}

// DeviceStatus is the last known connectivity state.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusWarning DeviceStatus = "warning"
)

// Valid reports whether s is a known status.
func (s DeviceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusWarning:
		return true
	}
	return false
}

// UnassignedCustomer is stored when a device has no customer.
const UnassignedCustomer = "未分配"

// DevicePrefix prefixes generated device identifiers.
const DevicePrefix = "DEV-"

// GeoLocation places a device on the map. Latitude and longitude are never
// range checked.
type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"locationName,omitempty"`
}

// Device is a managed IoT device
type Device struct {
	ID                    string
	Name                  string
	Type                  DeviceType
	Status                DeviceStatus
	Customer              string
	Description           string
	IsPublic              bool
	IsGateway             bool
	OverwriteActivityTime bool
	Labels                []string
	TemplateID            string
	Credential            Credential
	Location              *GeoLocation
	Attributes            []DeviceAttribute
	Telemetry             []TelemetryItem

	// Optional readings shown on the dashboard
	Battery     *float64
	Consumption *float64
	Temperature *float64

	CreatedAt  Timestamp
	LastActive Timestamp
}

// RecordID implements Record
func (d Device) RecordID() string { return d.ID }

// CredentialType returns the type of the active credential, or "" when the
// device has none.
func (d Device) CredentialType() CredentialType {
	if d.Credential == nil {
		return ""
	}
	return d.Credential.CredentialType()
}

// Attribute looks up an attribute by key.
func (d Device) Attribute(key string) (DeviceAttribute, bool) {
	for _, a := range d.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return DeviceAttribute{}, false
}

// TelemetryItem looks up a telemetry channel by key.
func (d Device) TelemetryItem(key string) (TelemetryItem, bool) {
	for _, t := range d.Telemetry {
		if t.Key == key {
			return t, true
		}
	}
	return TelemetryItem{}, false
}

// Clone returns a deep copy that shares nothing with d.
func (d Device) Clone() Device {
	c := d
	if d.Labels != nil {
		c.Labels = append([]string(nil), d.Labels...)
	}
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	if d.Attributes != nil {
		c.Attributes = make([]DeviceAttribute, len(d.Attributes))
		for i, a := range d.Attributes {
			c.Attributes[i] = a.Clone()
		}
	}
	if d.Telemetry != nil {
		c.Telemetry = make([]TelemetryItem, len(d.Telemetry))
		for i, t := range d.Telemetry {
			c.Telemetry[i] = t.Clone()
		}
	}
	c.Battery = cloneFloat(d.Battery)
	c.Consumption = cloneFloat(d.Consumption)
	c.Temperature = cloneFloat(d.Temperature)
	return c
}

// deviceJSON is the flat wire shape of a device.
type deviceJSON struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Type                  DeviceType   `json:"type"`
	Status                DeviceStatus `json:"status"`
	Customer              string       `json:"customer"`
	Description           string       `json:"description,omitempty"`
	IsPublic              bool         `json:"isPublic"`
	IsGateway             bool         `json:"isGateway"`
	OverwriteActivityTime bool         `json:"overwriteActivityTime"`
	Labels                []string     `json:"labels"`
	TemplateID            string       `json:"templateId,omitempty"`

	CredentialInput

	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	LocationName string   `json:"locationName,omitempty"`

	Attributes []DeviceAttribute `json:"attributes,omitempty"`
	Telemetry  []TelemetryItem   `json:"telemetry,omitempty"`

	Battery     *float64 `json:"battery,omitempty"`
	Consumption *float64 `json:"consumption,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	CreatedAt  Timestamp `json:"createdAt"`
	LastActive Timestamp `json:"lastActive"`
}

// MarshalJSON emits only the payload of the active credential.
func (d Device) MarshalJSON() ([]byte, error) {
	w := deviceJSON{
		ID:                    d.ID,
		Name:                  d.Name,
		Type:                  d.Type,
		Status:                d.Status,
		Customer:              d.Customer,
		Description:           d.Description,
		IsPublic:              d.IsPublic,
		IsGateway:             d.IsGateway,
		OverwriteActivityTime: d.OverwriteActivityTime,
		Labels:                d.Labels,
		TemplateID:            d.TemplateID,
		CredentialInput:       flattenCredential(d.Credential),
		Attributes:            d.Attributes,
		Telemetry:             d.Telemetry,
		Battery:               d.Battery,
		Consumption:           d.Consumption,
		Temperature:           d.Temperature,
		CreatedAt:             d.CreatedAt,
		LastActive:            d.LastActive,
	}
	if w.Labels == nil {
		w.Labels = []string{}
	}
	if d.Location != nil {
		w.Latitude = floatPtr(d.Location.Latitude)
		w.Longitude = floatPtr(d.Location.Longitude)
		w.LocationName = d.Location.Name
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the flat shape, including blobs that carry payloads
// for several credential types.
func (d *Device) UnmarshalJSON(data []byte) error {
	var w deviceJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*d = Device{
		ID:                    w.ID,
		Name:                  w.Name,
		Type:                  w.Type,
		Status:                w.Status,
		Customer:              w.Customer,
		Description:           w.Description,
		IsPublic:              w.IsPublic,
		IsGateway:             w.IsGateway,
		OverwriteActivityTime: w.OverwriteActivityTime,
		Labels:                w.Labels,
		TemplateID:            w.TemplateID,
		Credential:            decodeCredential(w.CredentialInput),
		Attributes:            w.Attributes,
		Telemetry:             w.Telemetry,
		Battery:               w.Battery,
		Consumption:           w.Consumption,
		Temperature:           w.Temperature,
		CreatedAt:             w.CreatedAt,
		LastActive:            w.LastActive,
	}
	if w.Latitude != nil && w.Longitude != nil {
		d.Location = &GeoLocation{Latitude: *w.Latitude, Longitude: *w.Longitude, Name: w.LocationName}
	}
	return nil
}

// DeviceInput is the submitted create/edit form.
type DeviceInput struct {
	Name                  string       `json:"name" validate:"notblank,max=128"`
	Type                  DeviceType   `json:"type,omitempty" validate:"omitempty,oneof=Sensor Actuator Gateway Camera"`
	Status                DeviceStatus `json:"status,omitempty" validate:"omitempty,oneof=online offline warning"`
	Customer              string       `json:"customer,omitempty" validate:"max=128"`
	Description           string       `json:"description,omitempty"`
	IsPublic              bool         `json:"isPublic"`
	IsGateway             bool         `json:"isGateway"`
	OverwriteActivityTime bool         `json:"overwriteActivityTime"`
	Labels                []string     `json:"labels,omitempty"`
	TemplateID            string       `json:"templateId,omitempty"`

	CredentialInput

	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	LocationName string   `json:"locationName,omitempty"`
}

var validator = validation.NewValidator()

func (in DeviceInput) validate() error {
	if err := validator.Validate(in); err != nil {
		return err
	}
	if err := validator.Validate(in.CredentialInput); err != nil {
		return err
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return validation.Errorf("latitude", "latitude and longitude must be set together")
	}
	return nil
}

func (in DeviceInput) location() *GeoLocation {
	if in.Latitude == nil || in.Longitude == nil {
		return nil
	}
	return &GeoLocation{Latitude: *in.Latitude, Longitude: *in.Longitude, Name: in.LocationName}
}

// createType applies the gateway flag on create. A submitted Gateway type is
// kept even without the flag.
func createType(isGateway bool, t DeviceType) DeviceType {
	if isGateway {
		return DeviceTypeGateway
	}
	if t == "" {
		return DeviceTypeSensor
	}
	return t
}

// editType applies the gateway flag on edit. Clearing the flag demotes a
// Gateway to a Sensor.
func editType(isGateway bool, t DeviceType) DeviceType {
	if t == DeviceTypeGateway && !isGateway {
		return DeviceTypeSensor
	}
	return createType(isGateway, t)
}

func customerOrUnassigned(customer string) string {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return UnassignedCustomer
	}
	return customer
}

// NewDevice validates a create form and builds the device record.
func NewDevice(in DeviceInput, ids IDGenerator, now time.Time) (*Device, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ts := NewTimestamp(now)
	return &Device{
		ID:                    ids.NextID(DevicePrefix),
		Name:                  strings.TrimSpace(in.Name),
		Type:                  createType(in.IsGateway, in.Type),
		Status:                StatusOnline,
		Customer:              customerOrUnassigned(in.Customer),
		Description:           in.Description,
		IsPublic:              in.IsPublic,
		IsGateway:             in.IsGateway,
		OverwriteActivityTime: in.OverwriteActivityTime,
		Labels:                NormalizeLabels(in.Labels),
		TemplateID:            in.TemplateID,
		Credential:            in.CredentialInput.Build(),
		Location:              in.location(),
		Battery:               floatPtr(100),
		CreatedAt:             ts,
		LastActive:            ts,
	}, nil
}

// ApplyDeviceEdit replaces the editable fields of existing with the form.
// Identity, creation time, attributes, telemetry and readings are kept.
func ApplyDeviceEdit(existing Device, in DeviceInput, now time.Time) (*Device, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	updated := existing.Clone()
	updated.Name = strings.TrimSpace(in.Name)
	updated.Type = editType(in.IsGateway, in.Type)
	if in.Status != "" {
		updated.Status = in.Status
	}
	updated.Customer = customerOrUnassigned(in.Customer)
	updated.Description = in.Description
	updated.IsPublic = in.IsPublic
	updated.IsGateway = in.IsGateway
	updated.OverwriteActivityTime = in.OverwriteActivityTime
	updated.Labels = NormalizeLabels(in.Labels)
	updated.TemplateID = in.TemplateID
	if in.CredentialInput.Type != "" {
		updated.Credential = in.CredentialInput.Build()
	}
	updated.Location = in.location()
	updated.LastActive = NewTimestamp(now)

	return &updated, nil
}

// NormalizeLabels trims labels, drops empty ones and removes duplicates while
// keeping first-seen order.
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
