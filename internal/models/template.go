package models

import (
	"strings"
	"time"
)

// Transport is the device-side protocol a template describes.
type Transport string

const (
	TransportDefault Transport = "DEFAULT"
	TransportMQTT    Transport = "MQTT"
	TransportCoAP    Transport = "CoAP"
	TransportLWM2M   Transport = "LWM2M"
	TransportSNMP    Transport = "SNMP"
)

// Valid reports whether t is a known transport.
func (t Transport) Valid() bool {
	switch t {
	case TransportDefault, TransportMQTT, TransportCoAP, TransportLWM2M, TransportSNMP:
		return true
	}
	return false
}

// ProvisioningStrategy controls how devices may self-register against a
// template.
type ProvisioningStrategy string

const (
	ProvisioningDisabled            ProvisioningStrategy = "disabled"
	ProvisioningAllowCreate         ProvisioningStrategy = "allow_create"
	ProvisioningCheckPreprovisioned ProvisioningStrategy = "check_preprovisioned"
	ProvisioningX509Chain           ProvisioningStrategy = "x509_chain"
)

// Valid reports whether s is a known strategy.
func (s ProvisioningStrategy) Valid() bool {
	switch s {
	case ProvisioningDisabled, ProvisioningAllowCreate, ProvisioningCheckPreprovisioned, ProvisioningX509Chain:
		return true
	}
	return false
}

// TemplatePrefix prefixes generated template identifiers.
const TemplatePrefix = "TPL-"

// DefaultTemplateName is shown for devices without a resolvable template.
const DefaultTemplateName = "默认配置"

// TransportSettings is one of the per-transport setting groups.
type TransportSettings interface {
	Transport() Transport
}

// MQTTSettings configures MQTT topics and payload encoding.
type MQTTSettings struct {
	TopicTelemetry       string `json:"mqttTopicTelemetry,omitempty"`
	TopicAttributes      string `json:"mqttTopicAttributes,omitempty"`
	TopicSubscribe       string `json:"mqttTopicSubscribe,omitempty"`
	Payload              string `json:"mqttPayload,omitempty"`
	SparkplugB           bool   `json:"mqttSparkplugB,omitempty"`
	SparkplugBSendPuback bool   `json:"mqttSparkplugB_SendPuback,omitempty"`
}

func (MQTTSettings) Transport() Transport { return TransportMQTT }

// CoAPSettings configures CoAP devices.
type CoAPSettings struct {
	DeviceType string `json:"coapDeviceType,omitempty"`
	Payload    string `json:"coapPayload,omitempty"`
	PowerMode  string `json:"coapPowerMode,omitempty"`
}

func (CoAPSettings) Transport() Transport { return TransportCoAP }

// LWM2MSettings configures LwM2M devices.
type LWM2MSettings struct {
	Mode            string `json:"lwm2mMode,omitempty"`
	ObserveStrategy string `json:"lwm2mObserveStrategy,omitempty"`
}

func (LWM2MSettings) Transport() Transport { return TransportLWM2M }

// SNMPSettings configures SNMP polling. Timeout is in milliseconds.
type SNMPSettings struct {
	Timeout int `json:"snmpTimeout,omitempty"`
	Retries int `json:"snmpRetries,omitempty"`
}

func (SNMPSettings) Transport() Transport { return TransportSNMP }

// ProvisioningSettings holds the fields gated by the provisioning strategy.
type ProvisioningSettings struct {
	KeyName           string `json:"provisioningKeyName,omitempty"`
	Key               string `json:"provisioningKey,omitempty"`
	CNRegex           string `json:"cnRegex,omitempty"`
	AllowCreateDevice bool   `json:"allowCreateDevice,omitempty"`
	CertificatePEM    string `json:"certificatePem,omitempty"`
}

// DeviceTemplate is a reusable connection and provisioning profile. The
// setting groups are flattened in JSON; only the group matching Transport is
// meaningful.
type DeviceTemplate struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	RuleChain            string               `json:"ruleChain"`
	MobileDashboard      string               `json:"mobileDashboard,omitempty"`
	QueueID              string               `json:"queueId,omitempty"`
	EdgeSide             string               `json:"edgeSide,omitempty"`
	ImageURL             string               `json:"imageUrl,omitempty"`
	Description          string               `json:"description"`
	Transport            Transport            `json:"transport"`
	ProvisioningStrategy ProvisioningStrategy `json:"provisioningStrategy"`
	CreatedAt            Date                 `json:"createdAt"`
	IsDefault            bool                 `json:"isDefault"`

	MQTTSettings
	CoAPSettings
	LWM2MSettings
	SNMPSettings
	ProvisioningSettings
}

// RecordID implements Record
func (t DeviceTemplate) RecordID() string { return t.ID }

// ActiveTransport returns the settings selected by Transport, or nil for the
// default transport.
func (t DeviceTemplate) ActiveTransport() TransportSettings {
	switch t.Transport {
	case TransportMQTT:
		return t.MQTTSettings
	case TransportCoAP:
		return t.CoAPSettings
	case TransportLWM2M:
		return t.LWM2MSettings
	case TransportSNMP:
		return t.SNMPSettings
	}
	return nil
}

// Provisioning returns the provisioning settings, or nil when provisioning is
// disabled.
func (t DeviceTemplate) Provisioning() *ProvisioningSettings {
	if t.ProvisioningStrategy == "" || t.ProvisioningStrategy == ProvisioningDisabled {
		return nil
	}
	p := t.ProvisioningSettings
	return &p
}

// TemplateInput is the submitted create/edit form.
type TemplateInput struct {
	Name                 string               `json:"name" validate:"notblank,max=128"`
	RuleChain            string               `json:"ruleChain,omitempty"`
	MobileDashboard      string               `json:"mobileDashboard,omitempty"`
	QueueID              string               `json:"queueId,omitempty"`
	EdgeSide             string               `json:"edgeSide,omitempty"`
	ImageURL             string               `json:"imageUrl,omitempty"`
	Description          string               `json:"description,omitempty"`
	Transport            Transport            `json:"transport,omitempty" validate:"omitempty,oneof=DEFAULT MQTT CoAP LWM2M SNMP"`
	ProvisioningStrategy ProvisioningStrategy `json:"provisioningStrategy,omitempty" validate:"omitempty,oneof=disabled allow_create check_preprovisioned x509_chain"`

	MQTTSettings
	CoAPSettings
	LWM2MSettings
	SNMPSettings
	ProvisioningSettings
}

func (in TemplateInput) apply(t *DeviceTemplate) {
	t.Name = strings.TrimSpace(in.Name)
	t.RuleChain = in.RuleChain
	t.MobileDashboard = in.MobileDashboard
	t.QueueID = in.QueueID
	t.EdgeSide = in.EdgeSide
	t.ImageURL = in.ImageURL
	t.Description = in.Description
	t.Transport = in.Transport
	if t.Transport == "" {
		t.Transport = TransportDefault
	}
	t.ProvisioningStrategy = in.ProvisioningStrategy
	if t.ProvisioningStrategy == "" {
		t.ProvisioningStrategy = ProvisioningDisabled
	}
	t.MQTTSettings = in.MQTTSettings
	t.CoAPSettings = in.CoAPSettings
	t.LWM2MSettings = in.LWM2MSettings
	t.SNMPSettings = in.SNMPSettings
	t.ProvisioningSettings = in.ProvisioningSettings
}

// NewTemplate validates a create form and builds the template record.
func NewTemplate(in TemplateInput, ids IDGenerator, now time.Time) (*DeviceTemplate, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	t := &DeviceTemplate{
		ID:        ids.NextID(TemplatePrefix),
		CreatedAt: NewDate(now),
	}
	in.apply(t)
	return t, nil
}

// ApplyTemplateEdit replaces the editable fields of existing with the form.
// Identity, creation date and the default flag are kept.
func ApplyTemplateEdit(existing DeviceTemplate, in TemplateInput) (*DeviceTemplate, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	updated := existing
	in.apply(&updated)
	return &updated, nil
}

// TemplateName resolves id against templates. Empty and dangling references
// resolve to DefaultTemplateName.
func TemplateName(templates []DeviceTemplate, id string) string {
	if id == "" {
		return DefaultTemplateName
	}
	for _, t := range templates {
		if t.ID == id {
			return t.Name
		}
	}
	return DefaultTemplateName
}
