// Package vault implements the credential vault: per-organization setup,
// unlock/lock session handling, and encrypt-on-write / decrypt-on-read
// credential storage.
package vault

import "time"

// VaultConfig is the one-per-organization record created at setup. The KDF
// salt never changes while the vault exists, except through an explicit
// master-password change which re-encrypts every credential.
type VaultConfig struct {
	OrgID        string
	PasswordHash string
	KDFSalt      []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FieldKind tags a custom field value. Only KindSecret values are encrypted;
// the rest are clear metadata.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindSecret   FieldKind = "secret"
	KindURL      FieldKind = "url"
	KindDate     FieldKind = "date"
	KindDropdown FieldKind = "dropdown"
)

func (k FieldKind) valid() bool {
	switch k {
	case KindText, KindSecret, KindURL, KindDate, KindDropdown:
		return true
	}
	return false
}

// CustomField is a stored custom field. Value holds a ciphertext blob when
// Kind is KindSecret, clear text otherwise.
type CustomField struct {
	Label string
	Kind  FieldKind
	Value string
}

// Credential is a stored secret item. Sensitive fields hold independently
// encrypted blobs (empty string = absent); everything else is clear
// metadata, listable without decryption.
type Credential struct {
	ID               string
	OrgID            string
	Name             string
	ServiceURL       string
	Category         string
	Icon             string
	RelatedServiceID string
	BusinessIDs      []string

	Username   string // encrypted
	Password   string // encrypted
	Notes      string // encrypted
	TOTPSecret string // encrypted
	Purpose    string // encrypted

	CustomFields []CustomField

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so stores can hand out records without sharing
// slices with callers.
func (c *Credential) Clone() *Credential {
	out := *c
	out.BusinessIDs = append([]string(nil), c.BusinessIDs...)
	out.CustomFields = append([]CustomField(nil), c.CustomFields...)
	return &out
}

// CredentialInput carries create/update payloads. Nil pointers mean "not
// supplied": on update the stored value is left untouched, on create the
// field is absent.
type CredentialInput struct {
	Name             *string            `json:"name"`
	ServiceURL       *string            `json:"service_url"`
	Category         *string            `json:"category"`
	Icon             *string            `json:"icon"`
	RelatedServiceID *string            `json:"related_service_id"`
	BusinessIDs      []string           `json:"business_ids"`
	Username         *string            `json:"username"`
	Password         *string            `json:"password"`
	Notes            *string            `json:"notes"`
	TOTPSecret       *string            `json:"totp_secret"`
	Purpose          *string            `json:"purpose"`
	CustomFields     []CustomFieldInput `json:"custom_fields"`
}

type CustomFieldInput struct {
	Label string    `json:"label"`
	Kind  FieldKind `json:"kind"`
	Value string    `json:"value"`
}

// MaskedCredential is the no-secrets view: metadata plus presence flags,
// safe to return while the vault is locked.
type MaskedCredential struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ServiceURL       string              `json:"service_url,omitempty"`
	Category         string              `json:"category,omitempty"`
	Icon             string              `json:"icon,omitempty"`
	RelatedServiceID string              `json:"related_service_id,omitempty"`
	BusinessIDs      []string            `json:"business_ids,omitempty"`
	HasUsername      bool                `json:"has_username"`
	HasPassword      bool                `json:"has_password"`
	HasNotes         bool                `json:"has_notes"`
	HasTOTPSecret    bool                `json:"has_totp_secret"`
	HasPurpose       bool                `json:"has_purpose"`
	CustomFields     []MaskedCustomField `json:"custom_fields,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// MaskedCustomField exposes clear-kind values as-is; secret values are
// reduced to a presence flag.
type MaskedCustomField struct {
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Value    string    `json:"value,omitempty"`
	HasValue bool      `json:"has_value"`
}

// DecryptedCredential is the full plaintext view, only produced while the
// caller's session is unlocked.
type DecryptedCredential struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	ServiceURL       string               `json:"service_url,omitempty"`
	Category         string               `json:"category,omitempty"`
	Icon             string               `json:"icon,omitempty"`
	RelatedServiceID string               `json:"related_service_id,omitempty"`
	BusinessIDs      []string             `json:"business_ids,omitempty"`
	Username         string               `json:"username,omitempty"`
	Password         string               `json:"password,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	TOTPSecret       string               `json:"totp_secret,omitempty"`
	Purpose          string               `json:"purpose,omitempty"`
	CustomFields     []CustomFieldInput   `json:"custom_fields,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// VaultStatus reports setup/unlock state for the caller.
type VaultStatus struct {
	IsSetup     bool `json:"is_setup"`
	IsUnlocked  bool `json:"is_unlocked"`
	MFARequired bool `json:"mfa_required"`
}
