package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	var in vault.CredentialInput
	if !decodeJSON(w, r, &in) {
		return
	}
	masked, err := s.vaults.CreateCredential(r.Context(), claims.OrgID, claims.Sub, in)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, masked)
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	filter := vault.CredentialFilter{
		BusinessID: r.URL.Query().Get("business_id"),
		Category:   r.URL.Query().Get("category"),
	}
	masked, err := s.vaults.ListCredentials(r.Context(), claims.OrgID, filter)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	if masked == nil {
		masked = []*vault.MaskedCredential{}
	}
	writeJSON(w, masked)
}

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	dec, err := s.vaults.GetCredential(r.Context(), claims.OrgID, claims.Sub, chi.URLParam(r, "id"))
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSON(w, dec)
}

func (s *Server) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	var in vault.CredentialInput
	if !decodeJSON(w, r, &in) {
		return
	}
	masked, err := s.vaults.UpdateCredential(r.Context(), claims.OrgID, claims.Sub, chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSON(w, masked)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	if err := s.vaults.DeleteCredential(r.Context(), claims.OrgID, chi.URLParam(r, "id")); err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleCopyField(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claims(w, r)
	if !ok {
		return
	}
	field := chi.URLParam(r, "field")
	value, err := s.vaults.CopyField(r.Context(), claims.OrgID, claims.Sub, chi.URLParam(r, "id"), field)
	if err != nil {
		s.writeVaultError(w, err)
		return
	}
	writeJSON(w, map[string]string{"field": field, "value": value})
}
