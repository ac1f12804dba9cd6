// vaultctl is the operator sidekick for vaultd: mint dev tokens, manage
// TOTP secrets, and seed user records for local testing.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joshuarg007/made4founders-sub001/internal/auth"
	"github.com/joshuarg007/made4founders-sub001/internal/storage"
	"github.com/joshuarg007/made4founders-sub001/internal/totp"
)

func main() {
	// ---- token ----
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenSeed := tokenCmd.String("jwt-seed", os.Getenv("VAULTD_JWT_SEED"), "base64 ed25519 seed (must match vaultd)")
	tokenIssuer := tokenCmd.String("jwt-issuer", "vaultd", "JWT issuer")
	tokenUser := tokenCmd.String("user", "", "user ID (sub claim)")
	tokenOrg := tokenCmd.String("org", "", "organization ID (org claim)")
	tokenTTL := tokenCmd.Duration("ttl", time.Hour, "token lifetime")

	// ---- totp-secret ----
	secretCmd := flag.NewFlagSet("totp-secret", flag.ExitOnError)

	// ---- totp-code ----
	codeCmd := flag.NewFlagSet("totp-code", flag.ExitOnError)
	codeSecret := codeCmd.String("secret", "", "base32 TOTP secret")

	// ---- seed-user ----
	seedCmd := flag.NewFlagSet("seed-user", flag.ExitOnError)
	seedMongoURI := seedCmd.String("mongo-uri", "mongodb://localhost:27017", "MongoDB URI")
	seedMongoDB := seedCmd.String("mongo-db", "vaultdb", "Mongo database name")
	seedID := seedCmd.String("id", "", "user ID")
	seedUsername := seedCmd.String("username", "", "username")
	seedEmail := seedCmd.String("email", "", "email")
	seedOrg := seedCmd.String("org", "", "organization ID")
	seedMFA := seedCmd.Bool("mfa", false, "enable MFA with a fresh TOTP secret")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "token":
		_ = tokenCmd.Parse(os.Args[2:])
		if *tokenUser == "" || *tokenOrg == "" {
			dieIf(errors.New("token: -user and -org are required"))
		}
		priv, err := keyFromSeed(*tokenSeed)
		dieIf(err)
		signer := auth.NewJWTSigner(priv, *tokenIssuer, *tokenTTL)
		tok, exp, err := signer.IssueToken(*tokenUser, *tokenOrg)
		dieIf(err)
		fmt.Println(tok)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))

	case "totp-secret":
		_ = secretCmd.Parse(os.Args[2:])
		secret, err := totp.GenerateSecret()
		dieIf(err)
		fmt.Println(secret)

	case "totp-code":
		_ = codeCmd.Parse(os.Args[2:])
		if *codeSecret == "" {
			dieIf(errors.New("totp-code: -secret is required"))
		}
		code, err := totp.Code(*codeSecret, time.Now())
		dieIf(err)
		fmt.Println(code)

	case "seed-user":
		_ = seedCmd.Parse(os.Args[2:])
		if *seedID == "" || *seedOrg == "" {
			dieIf(errors.New("seed-user: -id and -org are required"))
		}
		dieIf(seedUser(*seedMongoURI, *seedMongoDB, auth.User{
			ID:       *seedID,
			Username: *seedUsername,
			Email:    *seedEmail,
			OrgID:    *seedOrg,
		}, *seedMFA))

	default:
		usage()
		os.Exit(2)
	}
}

func seedUser(uri, db string, u auth.User, mfa bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mfa {
		secret, err := totp.GenerateSecret()
		if err != nil {
			return err
		}
		u.MFAEnabled = true
		u.TOTPSecret = secret
		fmt.Fprintf(os.Stderr, "totp secret: %s\n", secret)
	}

	cli, err := storage.Connect(ctx, uri)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Disconnect(context.Background()) }()

	doc := bson.M{
		"username":    u.Username,
		"email":       u.Email,
		"org_id":      u.OrgID,
		"mfa_enabled": u.MFAEnabled,
		"totp_secret": u.TOTPSecret,
	}
	_, err = cli.Database(db).Collection("users").UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	if err == nil {
		fmt.Printf("seeded user %s (org %s)\n", u.ID, u.OrgID)
	}
	return err
}

func keyFromSeed(seed string) (ed25519.PrivateKey, error) {
	if seed == "" {
		return nil, errors.New("a jwt seed is required; ephemeral vaultd keys cannot be matched")
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

func dieIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: vaultctl <command> [flags]

commands:
  token        mint a dev bearer token (requires the vaultd jwt seed)
  totp-secret  generate a fresh base32 TOTP secret
  totp-code    print the current code for a secret
  seed-user    upsert a user record in Mongo for local testing`)
}
