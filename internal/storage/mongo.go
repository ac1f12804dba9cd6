// Package storage provides the Mongo-backed and in-memory implementations
// of the vault's persistence interfaces.
package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

const (
	configCollection     = "vault_configs"
	credentialCollection = "credentials"
)

// Connect dials Mongo and verifies the connection quickly.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return cli, nil
}

// MongoTransactor groups store writes into a multi-document transaction.
// Collection operations pick the session up from the context, so the stores
// need no transaction awareness of their own.
type MongoTransactor struct {
	cli *mongo.Client
}

func NewMongoTransactor(cli *mongo.Client) *MongoTransactor {
	return &MongoTransactor{cli: cli}
}

func (t *MongoTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := t.cli.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// ---------- VAULT CONFIG STORE ----------

type MongoConfigStore struct {
	coll *mongo.Collection
}

func NewMongoConfigStore(cli *mongo.Client, dbName string) *MongoConfigStore {
	return &MongoConfigStore{coll: cli.Database(dbName).Collection(configCollection)}
}

type configDoc struct {
	OrgID        string    `bson:"_id"`
	PasswordHash string    `bson:"password_hash"`
	KDFSalt      []byte    `bson:"kdf_salt"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (s *MongoConfigStore) Get(ctx context.Context, orgID string) (*vault.VaultConfig, error) {
	var doc configDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": orgID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, vault.ErrNotSetUp
	}
	if err != nil {
		return nil, err
	}
	return &vault.VaultConfig{
		OrgID:        doc.OrgID,
		PasswordHash: doc.PasswordHash,
		KDFSalt:      doc.KDFSalt,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func (s *MongoConfigStore) Create(ctx context.Context, cfg *vault.VaultConfig) error {
	_, err := s.coll.InsertOne(ctx, configDoc{
		OrgID:        cfg.OrgID,
		PasswordHash: cfg.PasswordHash,
		KDFSalt:      cfg.KDFSalt,
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return vault.ErrAlreadySetUp
	}
	return err
}

func (s *MongoConfigStore) Update(ctx context.Context, cfg *vault.VaultConfig) error {
	res, err := s.coll.UpdateByID(ctx, cfg.OrgID, bson.M{"$set": bson.M{
		"password_hash": cfg.PasswordHash,
		"kdf_salt":      cfg.KDFSalt,
		"updated_at":    cfg.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return vault.ErrNotSetUp
	}
	return nil
}

func (s *MongoConfigStore) Delete(ctx context.Context, orgID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": orgID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return vault.ErrNotSetUp
	}
	return nil
}

// ---------- CREDENTIAL STORE ----------

type MongoCredentialStore struct {
	coll *mongo.Collection
}

func NewMongoCredentialStore(ctx context.Context, cli *mongo.Client, dbName string) *MongoCredentialStore {
	coll := cli.Database(dbName).Collection(credentialCollection)
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "org_id", Value: 1}},
	})
	return &MongoCredentialStore{coll: coll}
}

type customFieldDoc struct {
	Label string `bson:"label"`
	Kind  string `bson:"kind"`
	Value string `bson:"value"`
}

type credentialDoc struct {
	ID               string           `bson:"_id"`
	OrgID            string           `bson:"org_id"`
	Name             string           `bson:"name"`
	ServiceURL       string           `bson:"service_url,omitempty"`
	Category         string           `bson:"category,omitempty"`
	Icon             string           `bson:"icon,omitempty"`
	RelatedServiceID string           `bson:"related_service_id,omitempty"`
	BusinessIDs      []string         `bson:"business_ids,omitempty"`
	Username         string           `bson:"username,omitempty"`
	Password         string           `bson:"password,omitempty"`
	Notes            string           `bson:"notes,omitempty"`
	TOTPSecret       string           `bson:"totp_secret,omitempty"`
	Purpose          string           `bson:"purpose,omitempty"`
	CustomFields     []customFieldDoc `bson:"custom_fields,omitempty"`
	CreatedAt        time.Time        `bson:"created_at"`
	UpdatedAt        time.Time        `bson:"updated_at"`
}

func toCredentialDoc(c *vault.Credential) credentialDoc {
	doc := credentialDoc{
		ID:               c.ID,
		OrgID:            c.OrgID,
		Name:             c.Name,
		ServiceURL:       c.ServiceURL,
		Category:         c.Category,
		Icon:             c.Icon,
		RelatedServiceID: c.RelatedServiceID,
		BusinessIDs:      c.BusinessIDs,
		Username:         c.Username,
		Password:         c.Password,
		Notes:            c.Notes,
		TOTPSecret:       c.TOTPSecret,
		Purpose:          c.Purpose,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	for _, cf := range c.CustomFields {
		doc.CustomFields = append(doc.CustomFields, customFieldDoc{Label: cf.Label, Kind: string(cf.Kind), Value: cf.Value})
	}
	return doc
}

func fromCredentialDoc(doc credentialDoc) *vault.Credential {
	c := &vault.Credential{
		ID:               doc.ID,
		OrgID:            doc.OrgID,
		Name:             doc.Name,
		ServiceURL:       doc.ServiceURL,
		Category:         doc.Category,
		Icon:             doc.Icon,
		RelatedServiceID: doc.RelatedServiceID,
		BusinessIDs:      doc.BusinessIDs,
		Username:         doc.Username,
		Password:         doc.Password,
		Notes:            doc.Notes,
		TOTPSecret:       doc.TOTPSecret,
		Purpose:          doc.Purpose,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	for _, cf := range doc.CustomFields {
		c.CustomFields = append(c.CustomFields, vault.CustomField{Label: cf.Label, Kind: vault.FieldKind(cf.Kind), Value: cf.Value})
	}
	return c
}

func (s *MongoCredentialStore) Insert(ctx context.Context, c *vault.Credential) error {
	_, err := s.coll.InsertOne(ctx, toCredentialDoc(c))
	return err
}

func (s *MongoCredentialStore) Get(ctx context.Context, orgID, id string) (*vault.Credential, error) {
	var doc credentialDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, vault.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromCredentialDoc(doc), nil
}

func (s *MongoCredentialStore) List(ctx context.Context, orgID string, f vault.CredentialFilter) ([]*vault.Credential, error) {
	filter := bson.M{"org_id": orgID}
	if f.BusinessID != "" {
		filter["business_ids"] = f.BusinessID
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*vault.Credential
	for cur.Next(ctx) {
		var doc credentialDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, fromCredentialDoc(doc))
	}
	return out, cur.Err()
}

func (s *MongoCredentialStore) Update(ctx context.Context, c *vault.Credential) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": c.ID, "org_id": c.OrgID}, toCredentialDoc(c))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return vault.ErrNotFound
	}
	return nil
}

func (s *MongoCredentialStore) Delete(ctx context.Context, orgID, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "org_id": orgID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return vault.ErrNotFound
	}
	return nil
}

func (s *MongoCredentialStore) DeleteByOrg(ctx context.Context, orgID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"org_id": orgID})
	return err
}
