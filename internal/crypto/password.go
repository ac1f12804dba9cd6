package crypto

import "golang.org/x/crypto/bcrypt"

// HashMasterPassword produces a one-way hash suitable for storage. bcrypt
// salts internally, independent of the KDF salt; the hash exists only to
// answer "did the caller know the password" and can never be turned back
// into the encryption key.
func HashMasterPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyMasterPassword reports whether password matches the stored hash.
// A wrong password is a false return, never an error.
func VerifyMasterPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
