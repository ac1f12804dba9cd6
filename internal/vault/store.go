package vault

import "context"

// ConfigStore persists the per-organization VaultConfig.
// Get returns ErrNotSetUp when no config exists; Create returns
// ErrAlreadySetUp when one does.
type ConfigStore interface {
	Get(ctx context.Context, orgID string) (*VaultConfig, error)
	Create(ctx context.Context, cfg *VaultConfig) error
	Update(ctx context.Context, cfg *VaultConfig) error
	Delete(ctx context.Context, orgID string) error
}

// CredentialFilter narrows List results; zero values mean no filter.
type CredentialFilter struct {
	BusinessID string
	Category   string
}

// CredentialStore persists credential rows. Get, Update and Delete are
// org-scoped and return ErrNotFound for unknown or foreign IDs.
type CredentialStore interface {
	Insert(ctx context.Context, c *Credential) error
	Get(ctx context.Context, orgID, id string) (*Credential, error)
	List(ctx context.Context, orgID string, f CredentialFilter) ([]*Credential, error)
	Update(ctx context.Context, c *Credential) error
	Delete(ctx context.Context, orgID, id string) error
	DeleteByOrg(ctx context.Context, orgID string) error
}

// MFAVerifier is the boundary to the account-level MFA system. Vault unlock
// piggybacks on it but is distinct from login-time MFA.
type MFAVerifier interface {
	Required(userID string) (bool, error)
	Verify(userID, code string) (bool, error)
}

// Transactor runs fn so that every store write made through the supplied
// context commits together or not at all. The master-password change depends
// on this: re-keyed credential blobs and the new hash/salt must never be
// observable apart, or the stored password stops matching the stored
// ciphertexts.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
