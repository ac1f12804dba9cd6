package server

import (
	"errors"
	"net/http"

	"github.com/joshuarg007/made4founders-sub001/internal/audit"
	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

type setupRequest struct {
	MasterPassword string `json:"master_password"`
}

type unlockRequest struct {
	MasterPassword string `json:"master_password"`
	MFACode        string `json:"mfa_code"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleVaultStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	st, err := s.vaults.Status(r.Context(), claims.OrgID, claims.Sub)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleVaultSetup(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	var req setupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.vaults.Setup(r.Context(), claims.OrgID, claims.Sub, req.MasterPassword); err != nil {
		s.writeVaultError(w, err)
		return
	}
	s.audit.Append(claims.OrgID, audit.ActionSetup)
	s.logger.Printf("vault set up org=%s", claims.OrgID)

	st, err := s.vaults.Status(r.Context(), claims.OrgID, claims.Sub)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, st)
}

func (s *Server) handleVaultUnlock(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	if !s.rlUnlockIP.allow(getClientIP(r)) || !s.rlUnlockUser.allow(claims.Sub) {
		tooMany(w, 60)
		return
	}
	var req unlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.vaults.Unlock(r.Context(), claims.OrgID, claims.Sub, req.MasterPassword, req.MFACode)
	if errors.Is(err, vault.ErrInvalidMasterPassword) || errors.Is(err, vault.ErrInvalidMFACode) {
		s.audit.Append(claims.OrgID, audit.ActionUnlockDenied)
		s.logger.Printf("vault unlock denied org=%s user=%s", claims.OrgID, claims.Sub)
	}
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	s.audit.Append(claims.OrgID, audit.ActionUnlock)

	st, err := s.vaults.Status(r.Context(), claims.OrgID, claims.Sub)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleVaultLock(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	s.vaults.Lock(claims.Sub)
	s.audit.Append(claims.OrgID, audit.ActionLock)
	writeJSON(w, map[string]bool{"is_unlocked": false})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.vaults.ChangeMasterPassword(r.Context(), claims.OrgID, claims.Sub, req.CurrentPassword, req.NewPassword)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	s.audit.Append(claims.OrgID, audit.ActionPasswordChange)
	s.logger.Printf("vault master password changed org=%s", claims.OrgID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVaultReset(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	if err := s.vaults.Reset(r.Context(), claims.OrgID); err != nil {
		s.writeVaultError(w, err)
		return
	}
	s.audit.Append(claims.OrgID, audit.ActionReset)
	s.logger.Printf("vault reset org=%s", claims.OrgID)
	writeJSON(w, map[string]bool{"ok": true})
}
