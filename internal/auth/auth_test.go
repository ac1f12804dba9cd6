package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joshuarg007/made4founders-sub001/internal/totp"
)

func newTestSigner(t *testing.T) *JWTSigner {
	t.Helper()
	priv, _, err := GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return NewJWTSigner(priv, "vaultd-test", time.Hour)
}

func TestIssueAndParse(t *testing.T) {
	signer := newTestSigner(t)

	token, exp, err := signer.IssueToken("user-1", "org-1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("expiry not in the future")
	}

	claims, err := signer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Sub != "user-1" || claims.OrgID != "org-1" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.TokenID == "" {
		t.Fatal("missing jti")
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	a := newTestSigner(t)
	b := newTestSigner(t)

	token, _, err := a.IssueToken("user-1", "org-1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := b.ParseAndValidate(token); err == nil {
		t.Fatal("token signed by another key accepted")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	signer := newTestSigner(t)
	for _, tok := range []string{"", "x", "a.b.c"} {
		if _, err := signer.ParseAndValidate(tok); err == nil {
			t.Fatalf("garbage token %q accepted", tok)
		}
	}
}

func TestAuthRequiredMiddleware(t *testing.T) {
	signer := newTestSigner(t)

	var got *Claims
	h := AuthRequired(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// No header.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status = %d", rec.Code)
	}

	// Bad token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", rec.Code)
	}

	// Valid token.
	token, _, err := signer.IssueToken("user-9", "org-9")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token: status = %d", rec.Code)
	}
	if got == nil || got.Sub != "user-9" || got.OrgID != "org-9" {
		t.Fatalf("claims in context = %+v", got)
	}
}

func TestMFAGate(t *testing.T) {
	users := NewMemoryUserStore()
	secret, err := totp.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	users.Put(User{ID: "plain", OrgID: "org-1"})
	users.Put(User{ID: "mfa", OrgID: "org-1", MFAEnabled: true, TOTPSecret: secret})

	gate := NewMFAGate(users)

	required, err := gate.Required("plain")
	if err != nil || required {
		t.Fatalf("plain user: required=%v err=%v", required, err)
	}
	required, err = gate.Required("mfa")
	if err != nil || !required {
		t.Fatalf("mfa user: required=%v err=%v", required, err)
	}
	// An unknown subject means the external auth system owns a record we
	// never saw; that must read as "no MFA", not as a failure.
	required, err = gate.Required("ghost")
	if err != nil || required {
		t.Fatalf("unknown user: required=%v err=%v", required, err)
	}
	if ok, err := gate.Verify("ghost", "123456"); err != nil || ok {
		t.Fatalf("unknown user verify: ok=%v err=%v", ok, err)
	}

	code, err := totp.Code(secret, time.Now())
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	ok, err := gate.Verify("mfa", code)
	if err != nil || !ok {
		t.Fatalf("valid code: ok=%v err=%v", ok, err)
	}
	ok, err = gate.Verify("mfa", "000000")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("bogus code accepted")
	}
}
