package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuarg007/made4founders-sub001/internal/audit"
	"github.com/joshuarg007/made4founders-sub001/internal/auth"
	"github.com/joshuarg007/made4founders-sub001/internal/session"
	"github.com/joshuarg007/made4founders-sub001/internal/storage"
	"github.com/joshuarg007/made4founders-sub001/internal/totp"
	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

const testMaster = "correct horse battery"

type env struct {
	t      *testing.T
	srv    *Server
	signer *auth.JWTSigner
	users  *auth.MemoryUserStore
	audit  *audit.Log
}

func newEnv(t *testing.T, cfg Config) *env {
	t.Helper()
	priv, _, err := auth.GenerateEd25519()
	require.NoError(t, err)
	signer := auth.NewJWTSigner(priv, "vaultd-test", time.Hour)

	users := auth.NewMemoryUserStore()
	configs := storage.NewMemoryConfigStore()
	creds := storage.NewMemoryCredentialStore()
	svc := vault.NewService(
		configs,
		creds,
		session.NewRegistry(),
		auth.NewMFAGate(users),
		storage.NewMemoryTransactor(configs, creds),
		0,
	)
	auditLog := audit.NewLog()
	return &env{
		t:      t,
		srv:    New(cfg, svc, signer, auditLog),
		signer: signer,
		users:  users,
		audit:  auditLog,
	}
}

// roomy limits so only the dedicated rate-limit test trips them
func newTestEnv(t *testing.T) *env {
	return newEnv(t, Config{UnlockRateIP: 1000, UnlockRateUser: 1000})
}

func (e *env) token(userID, orgID string) string {
	e.t.Helper()
	e.users.Put(auth.User{ID: userID, OrgID: orgID})
	tok, _, err := e.signer.IssueToken(userID, orgID)
	require.NoError(e.t, err)
	return tok
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func str(s string) *string { return &s }

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequiredOnVaultRoutes(t *testing.T) {
	e := newTestEnv(t)
	for _, p := range []string{"/vault/status", "/credentials"} {
		rec := e.do(http.MethodGet, p, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, p)
	}
	rec := e.do(http.MethodGet, "/vault/status", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVaultLifecycle(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	// Fresh org: not set up, locked.
	rec := e.do(http.MethodGet, "/vault/status", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeAs[vault.VaultStatus](t, rec)
	require.False(t, st.IsSetup)
	require.False(t, st.IsUnlocked)

	// Setup leaves the caller unlocked.
	rec = e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	st = decodeAs[vault.VaultStatus](t, rec)
	require.True(t, st.IsSetup)
	require.True(t, st.IsUnlocked)

	// Create a credential; response is masked.
	rec = e.do(http.MethodPost, "/credentials", tok, vault.CredentialInput{
		Name:     str("Stripe"),
		Username: str("ops@example.com"),
		Password: str("hunter2-but-longer"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	masked := decodeAs[vault.MaskedCredential](t, rec)
	require.NotEmpty(t, masked.ID)
	require.True(t, masked.HasUsername)
	require.True(t, masked.HasPassword)
	require.False(t, masked.HasNotes)
	require.NotContains(t, rec.Body.String(), "hunter2-but-longer")

	// Decrypted view while unlocked.
	rec = e.do(http.MethodGet, "/credentials/"+masked.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dec := decodeAs[vault.DecryptedCredential](t, rec)
	require.Equal(t, "ops@example.com", dec.Username)
	require.Equal(t, "hunter2-but-longer", dec.Password)

	// Single-field copy.
	rec = e.do(http.MethodGet, "/credentials/"+masked.ID+"/copy/password", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	copied := decodeAs[map[string]string](t, rec)
	require.Equal(t, "hunter2-but-longer", copied["value"])

	// Lock: decrypted reads now refuse, masked list still works.
	rec = e.do(http.MethodPost, "/vault/lock", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]bool{"is_unlocked": false}, decodeAs[map[string]bool](t, rec))

	rec = e.do(http.MethodGet, "/credentials/"+masked.ID, tok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/credentials", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeAs[[]vault.MaskedCredential](t, rec)
	require.Len(t, list, 1)

	// Wrong password stays locked, with a generic message.
	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: "wrong password!"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid credentials")

	rec = e.do(http.MethodGet, "/vault/status", tok, nil)
	st = decodeAs[vault.VaultStatus](t, rec)
	require.False(t, st.IsUnlocked)

	// Correct password unlocks again.
	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeAs[vault.VaultStatus](t, rec)
	require.True(t, st.IsUnlocked)

	rec = e.do(http.MethodGet, "/credentials/"+masked.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, e.audit.Verify())
}

func TestSetupValidation(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: "short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnlockBeforeSetup(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	rec := e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnlockWithMFA(t *testing.T) {
	e := newTestEnv(t)
	secret, err := totp.GenerateSecret()
	require.NoError(t, err)
	e.users.Put(auth.User{ID: "user-mfa", OrgID: "org-1", MFAEnabled: true, TOTPSecret: secret})
	tok, _, err := e.signer.IssueToken("user-mfa", "org-1")
	require.NoError(t, err)

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decodeAs[vault.VaultStatus](t, rec)
	require.True(t, st.MFARequired)

	rec = e.do(http.MethodPost, "/vault/lock", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Right password, no code.
	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	code, err := totp.Code(secret, time.Now())
	require.NoError(t, err)
	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: testMaster, MFACode: code})
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeAs[vault.VaultStatus](t, rec)
	require.True(t, st.IsUnlocked)
}

func TestResetDestroysEverything(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(http.MethodPost, "/credentials", tok, vault.CredentialInput{Name: str("AWS"), Password: str("root-key")})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodDelete, "/vault/reset", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeAs[map[string]bool](t, rec)["ok"])

	rec = e.do(http.MethodGet, "/vault/status", tok, nil)
	st := decodeAs[vault.VaultStatus](t, rec)
	require.False(t, st.IsSetup)
	require.False(t, st.IsUnlocked)

	rec = e.do(http.MethodGet, "/credentials", tok, nil)
	list := decodeAs[[]vault.MaskedCredential](t, rec)
	require.Empty(t, list)

	// A fresh setup starts clean.
	rec = e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: "a brand new master"})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestChangeMasterPassword(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")
	next := "an even better master"

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(http.MethodPost, "/credentials", tok, vault.CredentialInput{Name: str("GitHub"), Password: str("ghp_token")})
	require.Equal(t, http.StatusCreated, rec.Code)
	masked := decodeAs[vault.MaskedCredential](t, rec)

	// Wrong current password is refused.
	rec = e.do(http.MethodPut, "/vault/password", tok, changePasswordRequest{CurrentPassword: "nope nope nope", NewPassword: next})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPut, "/vault/password", tok, changePasswordRequest{CurrentPassword: testMaster, NewPassword: next})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Caller stays unlocked and blobs were re-keyed.
	rec = e.do(http.MethodGet, "/credentials/"+masked.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dec := decodeAs[vault.DecryptedCredential](t, rec)
	require.Equal(t, "ghp_token", dec.Password)

	rec = e.do(http.MethodPost, "/vault/lock", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: next})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPartialUpdateAndDelete(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(http.MethodPost, "/credentials", tok, vault.CredentialInput{
		Name:     str("Mailgun"),
		Username: str("postmaster"),
		Password: str("old-password"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	masked := decodeAs[vault.MaskedCredential](t, rec)

	// Only password supplied; username blob must survive untouched.
	rec = e.do(http.MethodPatch, "/credentials/"+masked.ID, tok, vault.CredentialInput{Password: str("new-password")})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/credentials/"+masked.ID, tok, nil)
	dec := decodeAs[vault.DecryptedCredential](t, rec)
	require.Equal(t, "postmaster", dec.Username)
	require.Equal(t, "new-password", dec.Password)

	rec = e.do(http.MethodDelete, "/credentials/"+masked.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeAs[map[string]bool](t, rec)["ok"])

	rec = e.do(http.MethodGet, "/credentials/"+masked.ID, tok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCrossOrgIsolation(t *testing.T) {
	e := newTestEnv(t)
	tokA := e.token("user-a", "org-a")
	tokB := e.token("user-b", "org-b")

	rec := e.do(http.MethodPost, "/vault/setup", tokA, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(http.MethodPost, "/credentials", tokA, vault.CredentialInput{Name: str("Internal"), Password: str("org-a-only")})
	require.Equal(t, http.StatusCreated, rec.Code)
	masked := decodeAs[vault.MaskedCredential](t, rec)

	rec = e.do(http.MethodPost, "/vault/setup", tokB, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Foreign IDs look identical to unknown ones.
	rec = e.do(http.MethodGet, "/credentials/"+masked.ID, tokB, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(http.MethodDelete, "/credentials/"+masked.ID, tokB, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, "/credentials", tokB, nil)
	list := decodeAs[[]vault.MaskedCredential](t, rec)
	require.Empty(t, list)
}

func TestMaskedListNeverLeaksSecrets(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)

	secretValue := "super-secret-api-key-9000"
	rec = e.do(http.MethodPost, "/credentials", tok, vault.CredentialInput{
		Name:     str("Twilio"),
		Password: str(secretValue),
		CustomFields: []vault.CustomFieldInput{
			{Label: "api key", Kind: vault.KindSecret, Value: secretValue},
			{Label: "region", Kind: vault.KindText, Value: "us-east-1"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), secretValue)

	rec = e.do(http.MethodGet, "/credentials", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), secretValue)
	require.Contains(t, rec.Body.String(), "us-east-1") // clear kinds stay visible

	// Locked does not change the masked surface.
	rec = e.do(http.MethodPost, "/vault/lock", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodGet, "/credentials", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), secretValue)
}

func TestCopyFieldSelectors(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(http.MethodPost, "/credentials", tok, vault.CredentialInput{
		Name:     str("Registrar"),
		Password: str("pw-value"),
		CustomFields: []vault.CustomFieldInput{
			{Label: "pin", Kind: vault.KindSecret, Value: "4242"},
			{Label: "portal", Kind: vault.KindURL, Value: "https://example.test"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	masked := decodeAs[vault.MaskedCredential](t, rec)

	rec = e.do(http.MethodGet, "/credentials/"+masked.ID+"/copy/pin", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "4242", decodeAs[map[string]string](t, rec)["value"])

	rec = e.do(http.MethodGet, "/credentials/"+masked.ID+"/copy/portal", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://example.test", decodeAs[map[string]string](t, rec)["value"])

	rec = e.do(http.MethodGet, "/credentials/"+masked.ID+"/copy/no-such-field", tok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnlockRateLimited(t *testing.T) {
	e := newEnv(t, Config{UnlockRateUser: 3, UnlockRateIP: 100})
	tok := e.token("user-1", "org-1")

	rec := e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)

	for i := 0; i < 3; i++ {
		rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: "wrong password!"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: "wrong password!"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestStatusWithoutAccountRecord(t *testing.T) {
	e := newTestEnv(t)
	// Valid token for a subject the user directory has never seen.
	tok, _, err := e.signer.IssueToken("stranger", "org-1")
	require.NoError(t, err)

	rec := e.do(http.MethodGet, "/vault/status", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeAs[vault.VaultStatus](t, rec)
	require.False(t, st.MFARequired)

	// Setup and unlock also work without a directory row.
	rec = e.do(http.MethodPost, "/vault/setup", tok, setupRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(http.MethodPost, "/vault/lock", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodPost, "/vault/unlock", tok, unlockRequest{MasterPassword: testMaster})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("user-1", "org-1")

	req := httptest.NewRequest(http.MethodPost, "/vault/setup", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
