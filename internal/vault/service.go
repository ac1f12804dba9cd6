package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	cr "github.com/joshuarg007/made4founders-sub001/internal/crypto"
	"github.com/joshuarg007/made4founders-sub001/internal/session"
)

// MinMasterPasswordLen is the minimum accepted master password length.
const MinMasterPasswordLen = 10

// DefaultUnlockTTL is how long an unlocked session stays live without an
// explicit lock.
const DefaultUnlockTTL = 15 * time.Minute

// Service drives the vault lifecycle and credential operations. Sessions
// are keyed by the authenticated user ID, so unlocking in one client
// unlocks the vault for that user across this whole process.
type Service struct {
	configs   ConfigStore
	creds     CredentialStore
	sessions  *session.Registry
	mfa       MFAVerifier
	tx        Transactor
	unlockTTL time.Duration
}

func NewService(configs ConfigStore, creds CredentialStore, sessions *session.Registry, mfa MFAVerifier, tx Transactor, unlockTTL time.Duration) *Service {
	if unlockTTL <= 0 {
		unlockTTL = DefaultUnlockTTL
	}
	return &Service{
		configs:   configs,
		creds:     creds,
		sessions:  sessions,
		mfa:       mfa,
		tx:        tx,
		unlockTTL: unlockTTL,
	}
}

// Setup creates the organization's VaultConfig and leaves the caller's
// session unlocked. Fails if a config already exists; a silent overwrite
// would orphan every encrypted blob.
func (s *Service) Setup(ctx context.Context, orgID, userID, masterPassword string) error {
	if len(masterPassword) < MinMasterPasswordLen {
		return ErrPasswordTooShort
	}
	if _, err := s.configs.Get(ctx, orgID); err == nil {
		return ErrAlreadySetUp
	} else if !errors.Is(err, ErrNotSetUp) {
		return err
	}

	salt, err := cr.GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := cr.HashMasterPassword(masterPassword)
	if err != nil {
		return err
	}
	now := time.Now()
	cfg := &VaultConfig{
		OrgID:        orgID,
		PasswordHash: hash,
		KDFSalt:      salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.configs.Create(ctx, cfg); err != nil {
		return err
	}

	master := []byte(masterPassword)
	defer cr.Zero(master)
	key := cr.DeriveKey(master, salt)
	s.sessions.Unlock(userID, orgID, key, s.unlockTTL)
	return nil
}

// Unlock verifies the master password against the stored hash, applies the
// account-level MFA gate if enabled, then derives the key from the stored
// salt and registers it for the caller's session.
func (s *Service) Unlock(ctx context.Context, orgID, userID, masterPassword, mfaCode string) error {
	cfg, err := s.configs.Get(ctx, orgID)
	if err != nil {
		return err
	}
	if !cr.VerifyMasterPassword(masterPassword, cfg.PasswordHash) {
		return ErrInvalidMasterPassword
	}
	required, err := s.mfa.Required(userID)
	if err != nil {
		return err
	}
	if required {
		ok, err := s.mfa.Verify(userID, mfaCode)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidMFACode
		}
	}

	master := []byte(masterPassword)
	defer cr.Zero(master)
	key := cr.DeriveKey(master, cfg.KDFSalt)
	s.sessions.Unlock(userID, orgID, key, s.unlockTTL)
	return nil
}

// Lock drops the caller's session key. Idempotent; always succeeds.
func (s *Service) Lock(userID string) {
	s.sessions.Lock(userID)
}

// Status reports setup and unlock state without touching any secret.
func (s *Service) Status(ctx context.Context, orgID, userID string) (VaultStatus, error) {
	st := VaultStatus{IsUnlocked: s.sessions.IsUnlocked(userID)}
	if _, err := s.configs.Get(ctx, orgID); err == nil {
		st.IsSetup = true
	} else if !errors.Is(err, ErrNotSetUp) {
		return VaultStatus{}, err
	}
	required, err := s.mfa.Required(userID)
	if err != nil {
		return VaultStatus{}, err
	}
	st.MFARequired = required
	return st, nil
}

// Reset destroys the VaultConfig and every credential for the organization
// and locks all of its sessions. Irreversible by design: the documented
// escape hatch from a lost master password.
func (s *Service) Reset(ctx context.Context, orgID string) error {
	if err := s.creds.DeleteByOrg(ctx, orgID); err != nil {
		return err
	}
	if err := s.configs.Delete(ctx, orgID); err != nil && !errors.Is(err, ErrNotSetUp) {
		return err
	}
	s.sessions.LockOrg(orgID)
	return nil
}

// ChangeMasterPassword re-keys the whole vault: every credential field is
// decrypted under the old key and re-encrypted under a key derived from the
// new password and a fresh salt. All blobs are re-encrypted in memory
// before anything is written, so a bad decrypt aborts with no state change.
func (s *Service) ChangeMasterPassword(ctx context.Context, orgID, userID, current, next string) error {
	if len(next) < MinMasterPasswordLen {
		return ErrPasswordTooShort
	}
	cfg, err := s.configs.Get(ctx, orgID)
	if err != nil {
		return err
	}
	if !cr.VerifyMasterPassword(current, cfg.PasswordHash) {
		return ErrInvalidMasterPassword
	}

	curBytes := []byte(current)
	nextBytes := []byte(next)
	defer cr.Zero(curBytes)
	defer cr.Zero(nextBytes)

	oldKey := cr.DeriveKey(curBytes, cfg.KDFSalt)
	newSalt, err := cr.GenerateSalt()
	if err != nil {
		return err
	}
	newKey := cr.DeriveKey(nextBytes, newSalt)

	creds, err := s.creds.List(ctx, orgID, CredentialFilter{})
	if err != nil {
		return err
	}
	rekeyed := make([]*Credential, 0, len(creds))
	for _, c := range creds {
		rc, err := rekeyCredential(c, oldKey, newKey)
		if err != nil {
			return fmt.Errorf("re-encrypt credential %s: %w", c.ID, err)
		}
		rekeyed = append(rekeyed, rc)
	}
	newHash, err := cr.HashMasterPassword(next)
	if err != nil {
		return err
	}

	// The blob rewrites and the hash/salt swap commit as one unit. A partial
	// write would leave ciphertexts the stored password can no longer reach.
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, rc := range rekeyed {
			if err := s.creds.Update(ctx, rc); err != nil {
				return err
			}
		}
		cfg.PasswordHash = newHash
		cfg.KDFSalt = newSalt
		cfg.UpdatedAt = time.Now()
		return s.configs.Update(ctx, cfg)
	})
	if err != nil {
		return err
	}

	// Any other session for this org now holds a stale key.
	s.sessions.LockOrg(orgID)
	s.sessions.Unlock(userID, orgID, newKey, s.unlockTTL)
	return nil
}

func rekeyCredential(c *Credential, oldKey, newKey [cr.KeySize]byte) (*Credential, error) {
	out := c.Clone()
	for _, f := range sensitiveFields {
		blob := *f.get(out)
		if blob == "" {
			continue
		}
		plain, err := cr.DecryptValue(blob, oldKey[:], fieldAAD(out.ID, f.name))
		if err != nil {
			return nil, err
		}
		reblob, err := cr.EncryptValue(plain, newKey[:], fieldAAD(out.ID, f.name))
		if err != nil {
			return nil, err
		}
		*f.get(out) = reblob
	}
	for i, cf := range out.CustomFields {
		if cf.Kind != KindSecret || cf.Value == "" {
			continue
		}
		aad := customFieldAAD(out.ID, cf.Label)
		plain, err := cr.DecryptValue(cf.Value, oldKey[:], aad)
		if err != nil {
			return nil, err
		}
		reblob, err := cr.EncryptValue(plain, newKey[:], aad)
		if err != nil {
			return nil, err
		}
		out.CustomFields[i].Value = reblob
	}
	return out, nil
}
