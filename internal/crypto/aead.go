package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	xchacha "golang.org/x/crypto/chacha20poly1305"
)

// ErrDecryptFailed covers malformed blobs, wrong keys and failed integrity
// checks alike; callers must never see partially decrypted data.
var ErrDecryptFailed = errors.New("crypto: decryption failed")

// EncryptValue seals a single field value with XChaCha20-Poly1305 under a
// fresh random nonce and returns a self-contained base64 blob
// (nonce||ciphertext||tag). The empty string maps to the empty blob: an
// absent field and an empty field are the same thing to the caller.
func EncryptValue(plain string, key, aad []byte) (string, error) {
	if plain == "" {
		return "", nil
	}
	aead, err := xchacha.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, xchacha.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+len(plain)+aead.Overhead())
	out = append(out, nonce...)
	out = aead.Seal(out[:len(nonce)], nonce, []byte(plain), aad)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptValue reverses EncryptValue. It fails with ErrDecryptFailed if the
// blob is malformed, was produced under a different key, or does not pass
// integrity verification.
func DecryptValue(blob string, key, aad []byte) (string, error) {
	if blob == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(raw) < xchacha.NonceSizeX {
		return "", ErrDecryptFailed
	}
	aead, err := xchacha.NewX(key)
	if err != nil {
		return "", err
	}
	pt, err := aead.Open(nil, raw[:xchacha.NonceSizeX], raw[xchacha.NonceSizeX:], aad)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(pt), nil
}
