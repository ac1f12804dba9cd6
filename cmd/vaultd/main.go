package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshuarg007/made4founders-sub001/internal/audit"
	"github.com/joshuarg007/made4founders-sub001/internal/auth"
	"github.com/joshuarg007/made4founders-sub001/internal/platform"
	"github.com/joshuarg007/made4founders-sub001/internal/server"
	"github.com/joshuarg007/made4founders-sub001/internal/session"
	"github.com/joshuarg007/made4founders-sub001/internal/storage"
	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

func main() {
	var (
		addr      = flag.String("addr", envOr("VAULTD_ADDR", ":8080"), "listen address")
		mongoURI  = flag.String("mongo-uri", envOr("VAULTD_MONGO_URI", "mongodb://localhost:27017"), "MongoDB URI")
		mongoDB   = flag.String("mongo-db", envOr("VAULTD_MONGO_DB", "vaultdb"), "Mongo database name")
		unlockTTL = flag.Duration("unlock-ttl", vault.DefaultUnlockTTL, "how long an unlocked session stays live")
		jwtIssuer = flag.String("jwt-issuer", envOr("VAULTD_JWT_ISSUER", "vaultd"), "expected JWT issuer")
		tokenTTL  = flag.Duration("token-ttl", time.Hour, "TTL for tokens minted by this process")
		jwtSeed   = flag.String("jwt-seed", os.Getenv("VAULTD_JWT_SEED"), "base64 ed25519 seed; ephemeral key if empty")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[vaultd] ", log.LstdFlags)

	if err := platform.DisableCoreDumps(); err != nil {
		logger.Printf("warning: could not disable core dumps: %v", err)
	}

	priv, err := loadOrGenerateKey(*jwtSeed, logger)
	if err != nil {
		logger.Fatalf("jwt key: %v", err)
	}
	signer := auth.NewJWTSigner(priv, *jwtIssuer, *tokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli, err := storage.Connect(ctx, *mongoURI)
	if err != nil {
		logger.Fatalf("mongo: %v", err)
	}
	defer func() { _ = cli.Disconnect(context.Background()) }()

	svc := vault.NewService(
		storage.NewMongoConfigStore(cli, *mongoDB),
		storage.NewMongoCredentialStore(ctx, cli, *mongoDB),
		session.NewRegistry(),
		auth.NewMFAGate(auth.NewMongoUserStore(cli, *mongoDB)),
		storage.NewMongoTransactor(cli),
		*unlockTTL,
	)

	srv := server.New(server.Config{Addr: *addr}, svc, signer, audit.NewLog())

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func loadOrGenerateKey(seed string, logger *log.Logger) (ed25519.PrivateKey, error) {
	if seed == "" {
		logger.Println("no jwt seed configured, using an ephemeral signing key")
		priv, _, err := auth.GenerateEd25519()
		return priv, err
	}
	raw, err := base64.StdEncoding.DecodeString(seed)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.SeedSize {
		return nil, errors.New("jwt seed must be a 32-byte base64 value")
	}
	return ed25519.NewKeyFromSeed(raw), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
