package models

import (
	"crypto/rand"
	"math/big"
)

// CredentialType selects which credential payload a device carries.
type CredentialType string

const (
	CredentialAccessToken CredentialType = "access_token"
	CredentialX509        CredentialType = "x509"
	CredentialMQTTBasic   CredentialType = "mqtt_basic"
)

// Valid reports whether t is a known credential type.
func (t CredentialType) Valid() bool {
	switch t {
	case CredentialAccessToken, CredentialX509, CredentialMQTTBasic:
		return true
	}
	return false
}

// Credential is a tagged union: exactly one payload shape per type.
type Credential interface {
	CredentialType() CredentialType
}

// AccessToken authenticates a device with a bearer token.
type AccessToken struct {
	Token string
}

func (AccessToken) CredentialType() CredentialType { return CredentialAccessToken }

// X509Certificate authenticates a device with a PEM encoded certificate.
type X509Certificate struct {
	PEM string
}

func (X509Certificate) CredentialType() CredentialType { return CredentialX509 }

// MQTTBasic authenticates a device with an MQTT client id and credentials.
type MQTTBasic struct {
	ClientID string
	Username string
	Password string
}

func (MQTTBasic) CredentialType() CredentialType { return CredentialMQTTBasic }

// CredentialInput is the flat form representation of a credential.
type CredentialInput struct {
	Type           CredentialType `json:"credentialType,omitempty" validate:"omitempty,oneof=access_token x509 mqtt_basic"`
	AccessToken    string         `json:"accessToken,omitempty"`
	PEMCertificate string         `json:"pemCertificate,omitempty"`
	MQTTClientID   string         `json:"mqttClientId,omitempty"`
	MQTTUsername   string         `json:"mqttUsername,omitempty"`
	MQTTPassword   string         `json:"mqttPassword,omitempty"`
}

// Build selects the payload named by Type and discards the others. An empty
// access token is replaced with a generated one.
func (in CredentialInput) Build() Credential {
	switch in.Type {
	case CredentialX509:
		return X509Certificate{PEM: in.PEMCertificate}
	case CredentialMQTTBasic:
		return MQTTBasic{
			ClientID: in.MQTTClientID,
			Username: in.MQTTUsername,
			Password: in.MQTTPassword,
		}
	default:
		token := in.AccessToken
		if token == "" {
			token = GenerateAccessToken(AccessTokenLength)
		}
		return AccessToken{Token: token}
	}
}

// flatten is the inverse of Build.
func flattenCredential(c Credential) CredentialInput {
	switch v := c.(type) {
	case AccessToken:
		return CredentialInput{Type: CredentialAccessToken, AccessToken: v.Token}
	case X509Certificate:
		return CredentialInput{Type: CredentialX509, PEMCertificate: v.PEM}
	case MQTTBasic:
		return CredentialInput{
			Type:         CredentialMQTTBasic,
			MQTTClientID: v.ClientID,
			MQTTUsername: v.Username,
			MQTTPassword: v.Password,
		}
	}
	return CredentialInput{}
}

// decodeCredential keeps only the payload selected by the stored type. A blob
// without a type but with a token is read as an access token.
func decodeCredential(in CredentialInput) Credential {
	switch in.Type {
	case CredentialAccessToken:
		return AccessToken{Token: in.AccessToken}
	case CredentialX509:
		return X509Certificate{PEM: in.PEMCertificate}
	case CredentialMQTTBasic:
		return MQTTBasic{ClientID: in.MQTTClientID, Username: in.MQTTUsername, Password: in.MQTTPassword}
	}
	if in.AccessToken != "" {
		return AccessToken{Token: in.AccessToken}
	}
	return nil
}

// AccessTokenLength is the length of generated device tokens.
const AccessTokenLength = 16

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateAccessToken returns n random alphanumeric characters.
func GenerateAccessToken(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		buf[i] = tokenAlphabet[idx.Int64()]
	}
	return string(buf)
}
