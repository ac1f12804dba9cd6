package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the length of every derived vault key.
	KeySize = 32
	// SaltSize is the length of the per-organization KDF salt.
	SaltSize = 32

	kdfMemory  uint32 = 64 * 1024 // KiB
	kdfTime    uint32 = 3
	kdfThreads uint8  = 4
)

// GenerateSalt returns a fresh random KDF salt. Generated once per
// organization at vault setup and never rotated outside an explicit
// master-password change.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey stretches a master password into a fixed-size symmetric key
// using argon2id. Identical password and salt always yield the identical
// key; the parameters are deliberately memory-hard.
func DeriveKey(master, salt []byte) (key [KeySize]byte) {
	raw := argon2.IDKey(master, salt, kdfTime, kdfMemory, kdfThreads, KeySize)
	copy(key[:], raw)
	Zero(raw)
	return
}
