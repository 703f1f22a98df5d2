// Package models defines the scan, credential, status, and result records
// exchanged between the HTTP surface, the store, and the scanner backend.
package models

import "encoding/json"

// censored is the literal substituted for every secret field on outward
// serialization, regardless of the field's actual content.
const censored = "***"

// Service names a protocol a Credential authenticates against.
type Service string

const (
	ServiceSSH  Service = "ssh"
	ServiceSMB  Service = "smb"
	ServiceESXi Service = "esxi"
	ServiceSNMP Service = "snmp"
)

// CredentialKind discriminates the tagged union of credential shapes.
type CredentialKind string

const (
	CredentialUP   CredentialKind = "up"
	CredentialUSK  CredentialKind = "usk"
	CredentialSNMP CredentialKind = "snmp"
)

// Credential is a tuple of (service, optional port, credential type). Every
// string field below is secret: encrypted at rest by the store, and
// replaced by "***" on any outward (censored) serialization.
//
// Go has no first-class tagged union, so the variant is carried by Kind
// and only the fields relevant to that Kind are populated — mirroring
// Rust's #[serde(flatten)] enum without needing a custom interface type,
// which would only complicate JSON (de)serialization for no benefit here.
type Credential struct {
	Service Service        `json:"service"`
	Port    *uint16        `json:"port,omitempty"`
	Kind    CredentialKind `json:"-"`

	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// USK only.
	PrivateKey string `json:"private,omitempty"`

	// SNMP only.
	Community        string `json:"community,omitempty"`
	AuthAlgorithm    string `json:"auth_algorithm,omitempty"`
	PrivacyPassword  string `json:"privacy_password,omitempty"`
	PrivacyAlgorithm string `json:"privacy_algorithm,omitempty"`
}

// DefaultCredential mirrors original_source's Default impl: ssh/up with
// username "root" and an empty password.
func DefaultCredential() Credential {
	return Credential{
		Service:  ServiceSSH,
		Kind:     CredentialUP,
		Username: "root",
	}
}

// secretFields returns pointers to every secret string field present for
// this credential's Kind, used by both censoring and re-encryption.
func (c *Credential) secretFields() []*string {
	switch c.Kind {
	case CredentialUP:
		return []*string{&c.Username, &c.Password}
	case CredentialUSK:
		return []*string{&c.Username, &c.Password, &c.PrivateKey}
	case CredentialSNMP:
		return []*string{&c.Username, &c.Password, &c.Community, &c.AuthAlgorithm, &c.PrivacyPassword, &c.PrivacyAlgorithm}
	default:
		return nil
	}
}

// MapSecrets applies f to every secret field this credential's Kind
// carries (Username, Password, PrivateKey, Community, AuthAlgorithm,
// PrivacyPassword, PrivacyAlgorithm, as applicable) and returns the result.
// Used by the store to seal on insert and open on read, so every secret
// string is encrypted at rest, not just the password.
func (c Credential) MapSecrets(f func(string) (string, error)) (Credential, error) {
	out := c
	for _, field := range out.secretFields() {
		v, err := f(*field)
		if err != nil {
			return Credential{}, err
		}
		*field = v
	}
	return out, nil
}

// Censored returns a copy with every secret field replaced by "***",
// including fields that were the empty string.
func (c Credential) Censored() Credential {
	out := c
	for _, f := range out.secretFields() {
		*f = censored
	}
	return out
}

// credentialWire is the flattened on-the-wire shape: the Kind discriminator
// plus whichever secret fields that Kind carries.
type credentialWire struct {
	Service          Service        `json:"service"`
	Port             *uint16        `json:"port,omitempty"`
	Type             CredentialKind `json:"type"`
	Username         string         `json:"username,omitempty"`
	Password         string         `json:"password,omitempty"`
	PrivateKey       string         `json:"private,omitempty"`
	Community        string         `json:"community,omitempty"`
	AuthAlgorithm    string         `json:"auth_algorithm,omitempty"`
	PrivacyPassword  string         `json:"privacy_password,omitempty"`
	PrivacyAlgorithm string         `json:"privacy_algorithm,omitempty"`
}

// MarshalJSON flattens the Kind-tagged union the way the original Rust
// model does with #[serde(flatten)] + a "type" discriminator field.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(credentialWire{
		Service:          c.Service,
		Port:             c.Port,
		Type:             c.Kind,
		Username:         c.Username,
		Password:         c.Password,
		PrivateKey:       c.PrivateKey,
		Community:        c.Community,
		AuthAlgorithm:    c.AuthAlgorithm,
		PrivacyPassword:  c.PrivacyPassword,
		PrivacyAlgorithm: c.PrivacyAlgorithm,
	})
}

// UnmarshalJSON restores Kind from the wire "type" field.
func (c *Credential) UnmarshalJSON(data []byte) error {
	var w credentialWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Credential{
		Service:          w.Service,
		Port:             w.Port,
		Kind:             w.Type,
		Username:         w.Username,
		Password:         w.Password,
		PrivateKey:       w.PrivateKey,
		Community:        w.Community,
		AuthAlgorithm:    w.AuthAlgorithm,
		PrivacyPassword:  w.PrivacyPassword,
		PrivacyAlgorithm: w.PrivacyAlgorithm,
	}
	return nil
}
