// Package server exposes the vault over HTTP: JSON handlers, bearer-token
// auth, and brute-force rate limiting on unlock.
package server

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/joshuarg007/made4founders-sub001/internal/audit"
	"github.com/joshuarg007/made4founders-sub001/internal/auth"
	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

type Server struct {
	cfg Config

	router *chi.Mux
	logger *log.Logger
	vaults *vault.Service
	parser auth.TokenParser
	audit  *audit.Log

	rlUnlockIP   *limiterSet
	rlUnlockUser *limiterSet
}

func New(cfg Config, vaults *vault.Service, parser auth.TokenParser, auditLog *audit.Log) *Server {
	cfg.setDefaults()

	s := &Server{
		cfg:    cfg,
		logger: log.New(os.Stdout, "[vaultd] ", log.LstdFlags|log.Lshortfile),
		vaults: vaults,
		parser: parser,
		audit:  auditLog,
	}

	perWindow := func(n int, window time.Duration) float64 { return float64(n) / window.Seconds() }
	s.rlUnlockIP = newLimiterSet(rate.Limit(perWindow(cfg.UnlockRateIP, time.Minute)), cfg.UnlockRateIP, cfg.LimiterEntryTTL)
	s.rlUnlockUser = newLimiterSet(rate.Limit(perWindow(cfg.UnlockRateUser, time.Minute)), cfg.UnlockRateUser, cfg.LimiterEntryTTL)

	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(auth.AuthRequired(s.parser))

		r.Route("/vault", func(r chi.Router) {
			r.Get("/status", s.handleVaultStatus)
			r.Post("/setup", s.handleVaultSetup)
			r.Post("/unlock", s.handleVaultUnlock)
			r.Post("/lock", s.handleVaultLock)
			r.Put("/password", s.handleChangePassword)
			r.Delete("/reset", s.handleVaultReset)
		})

		r.Route("/credentials", func(r chi.Router) {
			r.Post("/", s.handleCreateCredential)
			r.Get("/", s.handleListCredentials)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCredential)
				r.Patch("/", s.handleUpdateCredential)
				r.Delete("/", s.handleDeleteCredential)
				r.Get("/copy/{field}", s.handleCopyField)
			})
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
