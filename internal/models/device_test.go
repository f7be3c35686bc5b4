package models

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/fleet-console/fleet-console/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 5, 9, 30, 15, 500, time.UTC)

func TestNewDevice_Defaults(t *testing.T) {
	ids := NewSequence(RecordIDs(DefaultDevices())...)

	d, err := NewDevice(DeviceInput{Name: "Roof Sensor"}, ids, now)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^DEV-\d{3,}$`), d.ID)
	assert.Equal(t, "DEV-004", d.ID)
	assert.Equal(t, "Roof Sensor", d.Name)
	assert.Equal(t, StatusOnline, d.Status)
	assert.Equal(t, UnassignedCustomer, d.Customer)
	assert.Equal(t, DeviceTypeSensor, d.Type)
	assert.Equal(t, 100.0, *d.Battery)
	assert.Equal(t, "2024-03-05 09:30:15", d.CreatedAt.String())
	assert.Equal(t, d.CreatedAt, d.LastActive)
	assert.Empty(t, d.Labels)
	assert.Nil(t, d.Location)

	token, ok := d.Credential.(AccessToken)
	require.True(t, ok)
	assert.Len(t, token.Token, AccessTokenLength)
}

func TestNewDevice_BlankName(t *testing.T) {
	for _, name := range []string{"", " ", "\t \n"} {
		_, err := NewDevice(DeviceInput{Name: name, Customer: "Acme", IsPublic: true}, NewSequence(), now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, validation.ErrValidation), name)
	}
}

func TestNewDevice_InvalidEnums(t *testing.T) {
	_, err := NewDevice(DeviceInput{Name: "x", Type: "Robot"}, NewSequence(), now)
	assert.True(t, errors.Is(err, validation.ErrValidation))

	_, err = NewDevice(DeviceInput{Name: "x", CredentialInput: CredentialInput{Type: "psk"}}, NewSequence(), now)
	assert.True(t, errors.Is(err, validation.ErrValidation))
}

func TestNewDevice_GatewayCoupling(t *testing.T) {
	tests := []struct {
		name      string
		isGateway bool
		typ       DeviceType
		want      DeviceType
	}{
		{"gateway flag forces type", true, DeviceTypeSensor, DeviceTypeGateway},
		{"gateway type without flag is kept", false, DeviceTypeGateway, DeviceTypeGateway},
		{"camera stays camera", false, DeviceTypeCamera, DeviceTypeCamera},
		{"empty type", false, "", DeviceTypeSensor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDevice(DeviceInput{Name: "d", IsGateway: tt.isGateway, Type: tt.typ}, NewSequence(), now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Type)
		})
	}
}

func TestApplyDeviceEdit_GatewayCoupling(t *testing.T) {
	tests := []struct {
		name      string
		isGateway bool
		typ       DeviceType
		want      DeviceType
	}{
		{"gateway flag forces type", true, DeviceTypeCamera, DeviceTypeGateway},
		{"clearing the flag demotes a gateway", false, DeviceTypeGateway, DeviceTypeSensor},
		{"actuator stays actuator", false, DeviceTypeActuator, DeviceTypeActuator},
		{"empty type", false, "", DeviceTypeSensor},
	}

	existing := DefaultDevices()[1]
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ApplyDeviceEdit(existing, DeviceInput{Name: "d", IsGateway: tt.isGateway, Type: tt.typ}, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Type)
		})
	}
}

func TestNewDevice_Location(t *testing.T) {
	lat, lng := 95.0, 200.0

	_, err := NewDevice(DeviceInput{Name: "d", Latitude: &lat}, NewSequence(), now)
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "latitude", verr.Field)

	// coordinates are not range checked
	d, err := NewDevice(DeviceInput{Name: "d", Latitude: &lat, Longitude: &lng, LocationName: "nowhere"}, NewSequence(), now)
	require.NoError(t, err)
	assert.Equal(t, &GeoLocation{Latitude: 95, Longitude: 200, Name: "nowhere"}, d.Location)
}

func TestNewDevice_Credentials(t *testing.T) {
	d, err := NewDevice(DeviceInput{
		Name: "gw",
		CredentialInput: CredentialInput{
			Type:         CredentialMQTTBasic,
			AccessToken:  "ignored",
			MQTTClientID: "c1",
			MQTTUsername: "u",
			MQTTPassword: "p",
		},
	}, NewSequence(), now)
	require.NoError(t, err)
	assert.Equal(t, MQTTBasic{ClientID: "c1", Username: "u", Password: "p"}, d.Credential)

	d, err = NewDevice(DeviceInput{
		Name:            "tok",
		CredentialInput: CredentialInput{Type: CredentialAccessToken, AccessToken: "fixed"},
	}, NewSequence(), now)
	require.NoError(t, err)
	assert.Equal(t, AccessToken{Token: "fixed"}, d.Credential)
}

func TestApplyDeviceEdit(t *testing.T) {
	existing := DefaultDevices()[1]
	existing.Attributes = DefaultAttributes(now)
	later := now.Add(time.Hour)

	updated, err := ApplyDeviceEdit(existing, DeviceInput{
		Name:      " Renamed ",
		Type:      DeviceTypeActuator,
		IsGateway: false,
		Labels:    []string{"a", " a ", "", "b"},
	}, later)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, updated.ID)
	assert.Equal(t, existing.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, DeviceTypeActuator, updated.Type)
	assert.Equal(t, StatusOnline, updated.Status)
	assert.Equal(t, UnassignedCustomer, updated.Customer)
	assert.Equal(t, []string{"a", "b"}, updated.Labels)
	assert.Equal(t, existing.Credential, updated.Credential)
	assert.Equal(t, existing.Attributes, updated.Attributes)
	assert.Equal(t, NewTimestamp(later), updated.LastActive)
	assert.Nil(t, updated.Location)

	// the source device is untouched
	assert.Equal(t, "智能空调控制器", existing.Name)
}

func TestApplyDeviceEdit_BlankName(t *testing.T) {
	_, err := ApplyDeviceEdit(DefaultDevices()[0], DeviceInput{Name: "  "}, now)
	assert.True(t, errors.Is(err, validation.ErrValidation))
}

func TestDeviceJSON_EmitsActiveCredentialOnly(t *testing.T) {
	data, err := json.Marshal(DefaultDevices()[1])
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "mqtt_basic", raw["credentialType"])
	assert.Equal(t, "admin_iot", raw["mqttUsername"])
	assert.NotContains(t, raw, "accessToken")
	assert.NotContains(t, raw, "pemCertificate")
	assert.Equal(t, 22.5431, raw["latitude"])
	assert.Equal(t, "2023-10-05 10:20:00", raw["createdAt"])
}

func TestDeviceJSON_DecodesFlatBlob(t *testing.T) {
	blob := `{
		"id": "DEV-007",
		"name": "legacy",
		"type": "Sensor",
		"status": "offline",
		"customer": "腾讯科技",
		"lastActive": "2023-10-27 14:30:00",
		"createdAt": "2023-10-01T08:00:00Z",
		"isPublic": false,
		"credentialType": "access_token",
		"accessToken": "tok",
		"mqttPassword": "stale",
		"latitude": 1.5,
		"attributes": [{"key": "k", "value": {"a": [1, 2]}, "scope": "server", "lastUpdate": "2023-10-27 14:30:00"}]
	}`

	var d Device
	require.NoError(t, json.Unmarshal([]byte(blob), &d))
	assert.Equal(t, "DEV-007", d.ID)
	assert.Equal(t, AccessToken{Token: "tok"}, d.Credential)
	assert.Nil(t, d.Location, "half a coordinate pair is dropped")
	assert.Equal(t, "2023-10-01 08:00:00", d.CreatedAt.String())
	require.Len(t, d.Attributes, 1)
	assert.Equal(t, ScopeServer, d.Attributes[0].Scope)
}

func TestDeviceJSON_RoundTrip(t *testing.T) {
	for _, d := range DefaultDevices() {
		data, err := json.Marshal(d)
		require.NoError(t, err)

		var decoded Device
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, d, decoded)
	}
}

func TestDevice_Clone(t *testing.T) {
	d := DefaultDevices()[0]
	d.Attributes = []DeviceAttribute{{Key: "cfg", Value: map[string]interface{}{"x": []interface{}{1.0}}, Scope: ScopeShared}}

	c := d.Clone()
	c.Labels[0] = "changed"
	c.Location.Name = "changed"
	*c.Battery = 1
	c.Attributes[0].Value.(map[string]interface{})["x"].([]interface{})[0] = 2.0

	assert.Equal(t, "环境监控", d.Labels[0])
	assert.Equal(t, "北京阿里巴巴总部", d.Location.Name)
	assert.Equal(t, 85.0, *d.Battery)
	assert.Equal(t, 1.0, d.Attributes[0].Value.(map[string]interface{})["x"].([]interface{})[0])
}

func TestNormalizeLabels(t *testing.T) {
	assert.Equal(t, []string{"北厅", "env"}, NormalizeLabels([]string{" 北厅", "env", "", "北厅", "env "}))
	assert.Equal(t, []string{}, NormalizeLabels(nil))
}

func TestSameRecord(t *testing.T) {
	a := DefaultDevices()[0]
	b := a
	b.Name = "other"
	assert.True(t, SameRecord(a, b))
	assert.False(t, SameRecord(a, DefaultDevices()[1]))
}
