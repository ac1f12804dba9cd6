package vault

import "errors"

var (
	// ErrAlreadySetUp rejects a second setup; overwriting the config would
	// orphan every previously encrypted blob.
	ErrAlreadySetUp = errors.New("vault: already set up")
	// ErrNotSetUp means no VaultConfig exists for the organization.
	ErrNotSetUp = errors.New("vault: not set up")
	// ErrPasswordTooShort is the only password-strength rule enforced here.
	ErrPasswordTooShort = errors.New("vault: master password too short")
	// ErrInvalidMasterPassword means the supplied password does not match
	// the stored hash.
	ErrInvalidMasterPassword = errors.New("vault: invalid master password")
	// ErrInvalidMFACode means the account requires MFA and the code was
	// missing or wrong.
	ErrInvalidMFACode = errors.New("vault: invalid mfa code")
	// ErrVaultLocked gates every sensitive operation: the caller is
	// authenticated to the app but not to the vault.
	ErrVaultLocked = errors.New("vault: locked")
	// ErrNotFound covers both unknown credential IDs and IDs belonging to
	// another organization; callers cannot distinguish the two.
	ErrNotFound = errors.New("vault: credential not found")
	// ErrBadInput covers invalid payloads (missing name, unknown custom
	// field kind).
	ErrBadInput = errors.New("vault: invalid input")
)
