// Package auth carries the boundary to the primary authentication system:
// bearer-token verification and the account directory the vault consults
// for its MFA gate. Login, account sessions and lockout live elsewhere.
package auth

// Claims is what the vault trusts the external auth system for: who the
// caller is and which organization they belong to.
type Claims struct {
	Sub       string `json:"sub"` // user ID
	OrgID     string `json:"org"`
	TokenID   string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// User is the slice of the account record the vault needs: identity plus
// the account-level MFA settings that gate unlock.
type User struct {
	ID         string
	Username   string
	Email      string
	OrgID      string
	MFAEnabled bool
	TOTPSecret string
}
