package vault

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	cr "github.com/joshuarg007/made4founders-sub001/internal/crypto"
)

// Canonical sensitive field names, also used as copy_field selectors.
const (
	FieldUsername   = "username"
	FieldPassword   = "password"
	FieldNotes      = "notes"
	FieldTOTPSecret = "totp_secret"
	FieldPurpose    = "purpose"
)

type fieldRef struct {
	name  string
	get   func(*Credential) *string
	input func(*CredentialInput) *string
}

var sensitiveFields = []fieldRef{
	{FieldUsername, func(c *Credential) *string { return &c.Username }, func(in *CredentialInput) *string { return in.Username }},
	{FieldPassword, func(c *Credential) *string { return &c.Password }, func(in *CredentialInput) *string { return in.Password }},
	{FieldNotes, func(c *Credential) *string { return &c.Notes }, func(in *CredentialInput) *string { return in.Notes }},
	{FieldTOTPSecret, func(c *Credential) *string { return &c.TOTPSecret }, func(in *CredentialInput) *string { return in.TOTPSecret }},
	{FieldPurpose, func(c *Credential) *string { return &c.Purpose }, func(in *CredentialInput) *string { return in.Purpose }},
}

// fieldAAD binds a ciphertext blob to its credential and field so blobs
// cannot be swapped between rows or columns without failing authentication.
func fieldAAD(id, field string) []byte {
	return []byte("cred:" + id + ":" + field)
}

func customFieldAAD(id, label string) []byte {
	return fieldAAD(id, "custom:"+label)
}

func (s *Service) requireKey(userID string) ([cr.KeySize]byte, error) {
	key, ok := s.sessions.Key(userID)
	if !ok {
		return [cr.KeySize]byte{}, ErrVaultLocked
	}
	return key, nil
}

// CreateCredential encrypts each supplied sensitive field with the session
// key and stores the row. The response is always the masked view; create
// never echoes plaintext.
func (s *Service) CreateCredential(ctx context.Context, orgID, userID string, in CredentialInput) (*MaskedCredential, error) {
	key, err := s.requireKey(userID)
	if err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, ErrBadInput
	}

	now := time.Now()
	c := &Credential{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Name:        strings.TrimSpace(*in.Name),
		BusinessIDs: append([]string(nil), in.BusinessIDs...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyMetadata(c, in)

	for _, f := range sensitiveFields {
		if p := f.input(&in); p != nil {
			blob, err := cr.EncryptValue(*p, key[:], fieldAAD(c.ID, f.name))
			if err != nil {
				return nil, err
			}
			*f.get(c) = blob
		}
	}
	cfs, err := encryptCustomFields(c.ID, in.CustomFields, key)
	if err != nil {
		return nil, err
	}
	c.CustomFields = cfs

	if err := s.creds.Insert(ctx, c); err != nil {
		return nil, err
	}
	return maskCredential(c), nil
}

// ListCredentials returns masked views only, so it is safe to call while
// locked: users can browse what exists without exposing secrets.
func (s *Service) ListCredentials(ctx context.Context, orgID string, f CredentialFilter) ([]*MaskedCredential, error) {
	creds, err := s.creds.List(ctx, orgID, f)
	if err != nil {
		return nil, err
	}
	out := make([]*MaskedCredential, 0, len(creds))
	for _, c := range creds {
		out = append(out, maskCredential(c))
	}
	return out, nil
}

// GetCredential decrypts every sensitive field and returns the plaintext
// view. Unknown and foreign-org IDs are indistinguishable.
func (s *Service) GetCredential(ctx context.Context, orgID, userID, id string) (*DecryptedCredential, error) {
	key, err := s.requireKey(userID)
	if err != nil {
		return nil, err
	}
	c, err := s.creds.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return decryptCredential(c, key)
}

// UpdateCredential re-encrypts only the supplied sensitive fields; omitted
// fields keep their stored blobs untouched. Metadata updates directly.
func (s *Service) UpdateCredential(ctx context.Context, orgID, userID, id string, in CredentialInput) (*MaskedCredential, error) {
	key, err := s.requireKey(userID)
	if err != nil {
		return nil, err
	}
	c, err := s.creds.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, ErrBadInput
		}
		c.Name = strings.TrimSpace(*in.Name)
	}
	applyMetadata(c, in)
	if in.BusinessIDs != nil {
		c.BusinessIDs = append([]string(nil), in.BusinessIDs...)
	}

	for _, f := range sensitiveFields {
		if p := f.input(&in); p != nil {
			blob, err := cr.EncryptValue(*p, key[:], fieldAAD(c.ID, f.name))
			if err != nil {
				return nil, err
			}
			*f.get(c) = blob
		}
	}
	if in.CustomFields != nil {
		cfs, err := encryptCustomFields(c.ID, in.CustomFields, key)
		if err != nil {
			return nil, err
		}
		c.CustomFields = cfs
	}
	c.UpdatedAt = time.Now()

	if err := s.creds.Update(ctx, c); err != nil {
		return nil, err
	}
	return maskCredential(c), nil
}

// DeleteCredential removes the row and its business-tag associations.
// Deleting never reads secrets, so no unlock is required.
func (s *Service) DeleteCredential(ctx context.Context, orgID, id string) error {
	return s.creds.Delete(ctx, orgID, id)
}

// CopyField decrypts and returns a single named field, for copy-to-clipboard
// style retrieval without exposing the rest of the record. The selector is
// either a canonical field name or a custom field label.
func (s *Service) CopyField(ctx context.Context, orgID, userID, id, field string) (string, error) {
	key, err := s.requireKey(userID)
	if err != nil {
		return "", err
	}
	c, err := s.creds.Get(ctx, orgID, id)
	if err != nil {
		return "", err
	}
	for _, f := range sensitiveFields {
		if f.name != field {
			continue
		}
		return cr.DecryptValue(*f.get(c), key[:], fieldAAD(c.ID, f.name))
	}
	for _, cf := range c.CustomFields {
		if cf.Label != field {
			continue
		}
		if cf.Kind != KindSecret {
			return cf.Value, nil
		}
		return cr.DecryptValue(cf.Value, key[:], customFieldAAD(c.ID, cf.Label))
	}
	return "", ErrNotFound
}

func applyMetadata(c *Credential, in CredentialInput) {
	if in.ServiceURL != nil {
		c.ServiceURL = *in.ServiceURL
	}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.RelatedServiceID != nil {
		c.RelatedServiceID = *in.RelatedServiceID
	}
}

func encryptCustomFields(id string, ins []CustomFieldInput, key [cr.KeySize]byte) ([]CustomField, error) {
	if len(ins) == 0 {
		return nil, nil
	}
	out := make([]CustomField, 0, len(ins))
	for _, in := range ins {
		if strings.TrimSpace(in.Label) == "" || !in.Kind.valid() {
			return nil, ErrBadInput
		}
		cf := CustomField{Label: in.Label, Kind: in.Kind, Value: in.Value}
		if in.Kind == KindSecret {
			blob, err := cr.EncryptValue(in.Value, key[:], customFieldAAD(id, in.Label))
			if err != nil {
				return nil, err
			}
			cf.Value = blob
		}
		out = append(out, cf)
	}
	return out, nil
}

func maskCredential(c *Credential) *MaskedCredential {
	m := &MaskedCredential{
		ID:               c.ID,
		Name:             c.Name,
		ServiceURL:       c.ServiceURL,
		Category:         c.Category,
		Icon:             c.Icon,
		RelatedServiceID: c.RelatedServiceID,
		BusinessIDs:      append([]string(nil), c.BusinessIDs...),
		HasUsername:      c.Username != "",
		HasPassword:      c.Password != "",
		HasNotes:         c.Notes != "",
		HasTOTPSecret:    c.TOTPSecret != "",
		HasPurpose:       c.Purpose != "",
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	for _, cf := range c.CustomFields {
		mc := MaskedCustomField{Label: cf.Label, Kind: cf.Kind, HasValue: cf.Value != ""}
		if cf.Kind != KindSecret {
			mc.Value = cf.Value
		}
		m.CustomFields = append(m.CustomFields, mc)
	}
	return m
}

func decryptCredential(c *Credential, key [cr.KeySize]byte) (*DecryptedCredential, error) {
	d := &DecryptedCredential{
		ID:               c.ID,
		Name:             c.Name,
		ServiceURL:       c.ServiceURL,
		Category:         c.Category,
		Icon:             c.Icon,
		RelatedServiceID: c.RelatedServiceID,
		BusinessIDs:      append([]string(nil), c.BusinessIDs...),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	for _, f := range sensitiveFields {
		plain, err := cr.DecryptValue(*f.get(c), key[:], fieldAAD(c.ID, f.name))
		if err != nil {
			return nil, err
		}
		switch f.name {
		case FieldUsername:
			d.Username = plain
		case FieldPassword:
			d.Password = plain
		case FieldNotes:
			d.Notes = plain
		case FieldTOTPSecret:
			d.TOTPSecret = plain
		case FieldPurpose:
			d.Purpose = plain
		}
	}
	for _, cf := range c.CustomFields {
		val := cf.Value
		if cf.Kind == KindSecret {
			plain, err := cr.DecryptValue(cf.Value, key[:], customFieldAAD(c.ID, cf.Label))
			if err != nil {
				return nil, err
			}
			val = plain
		}
		d.CustomFields = append(d.CustomFields, CustomFieldInput{Label: cf.Label, Kind: cf.Kind, Value: val})
	}
	return d, nil
}
