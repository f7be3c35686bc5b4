package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fleet-console/fleet-console/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplate_Defaults(t *testing.T) {
	ids := NewSequence(RecordIDs(DefaultTemplates())...)

	tpl, err := NewTemplate(TemplateInput{Name: "Cold chain"}, ids, now)
	require.NoError(t, err)

	assert.Equal(t, "TPL-003", tpl.ID)
	assert.Equal(t, TransportDefault, tpl.Transport)
	assert.Equal(t, ProvisioningDisabled, tpl.ProvisioningStrategy)
	assert.False(t, tpl.IsDefault)
	assert.Equal(t, "2024-03-05", tpl.CreatedAt.String())
	assert.Nil(t, tpl.ActiveTransport())
	assert.Nil(t, tpl.Provisioning())
}

func TestNewTemplate_Validation(t *testing.T) {
	_, err := NewTemplate(TemplateInput{Name: "   "}, NewSequence(), now)
	assert.True(t, errors.Is(err, validation.ErrValidation))

	_, err = NewTemplate(TemplateInput{Name: "x", Transport: "HTTP"}, NewSequence(), now)
	assert.True(t, errors.Is(err, validation.ErrValidation))

	_, err = NewTemplate(TemplateInput{Name: "x", ProvisioningStrategy: "open"}, NewSequence(), now)
	assert.True(t, errors.Is(err, validation.ErrValidation))
}

func TestApplyTemplateEdit(t *testing.T) {
	existing := DefaultTemplates()[0]

	updated, err := ApplyTemplateEdit(existing, TemplateInput{
		Name:                 "Edited",
		Transport:            TransportSNMP,
		ProvisioningStrategy: ProvisioningX509Chain,
		SNMPSettings:         SNMPSettings{Timeout: 500, Retries: 2},
		ProvisioningSettings: ProvisioningSettings{CNRegex: "(.*)"},
	})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, updated.ID)
	assert.Equal(t, existing.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, SNMPSettings{Timeout: 500, Retries: 2}, updated.ActiveTransport())
	require.NotNil(t, updated.Provisioning())
	assert.Equal(t, "(.*)", updated.Provisioning().CNRegex)
}

func TestTemplateJSON_Flat(t *testing.T) {
	tpl := DefaultTemplates()[0]
	tpl.MQTTSettings = MQTTSettings{TopicTelemetry: "v1/devices/me/telemetry", SparkplugBSendPuback: true}

	data, err := json.Marshal(tpl)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "v1/devices/me/telemetry", raw["mqttTopicTelemetry"])
	assert.Equal(t, true, raw["mqttSparkplugB_SendPuback"])
	assert.Equal(t, "2023-09-01", raw["createdAt"])
	assert.NotContains(t, raw, "coapPayload")

	var decoded DeviceTemplate
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tpl, decoded)
}

func TestTemplateName(t *testing.T) {
	templates := DefaultTemplates()
	assert.Equal(t, "标准环境传感器模板", TemplateName(templates, "TPL-001"))
	assert.Equal(t, DefaultTemplateName, TemplateName(templates, "TPL-404"))
	assert.Equal(t, DefaultTemplateName, TemplateName(templates, ""))
	assert.Equal(t, DefaultTemplateName, TemplateName(nil, "TPL-001"))
}

func TestSequence(t *testing.T) {
	seq := NewSequence("DEV-009", "TPL-120", "junk", "DEV-002")

	assert.Equal(t, "DEV-010", seq.NextID(DevicePrefix))
	assert.Equal(t, "DEV-011", seq.NextID(DevicePrefix))
	assert.Equal(t, "TPL-121", seq.NextID(TemplatePrefix))
	assert.Equal(t, "X-001", seq.NextID("X-"))

	seq.Observe("DEV-999")
	assert.Equal(t, "DEV-1000", seq.NextID(DevicePrefix))

	// lower ids never move the sequence back
	seq.Observe("DEV-005")
	assert.Equal(t, "DEV-1001", seq.NextID(DevicePrefix))
}

func TestTimestamp_JSON(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2023-10-27T14:30:00+08:00"`), &ts))
	assert.Equal(t, "2023-10-27 06:30:00", ts.String())

	require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
	assert.True(t, ts.IsZero())

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`42`), &ts))
}
