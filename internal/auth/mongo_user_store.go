package auth

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserStore reads account records from the users collection owned by
// the primary auth system. The vault never writes to it.
type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(cli *mongo.Client, dbName string) *MongoUserStore {
	return &MongoUserStore{coll: cli.Database(dbName).Collection("users")}
}

type userDoc struct {
	ID         string `bson:"_id"`
	Username   string `bson:"username"`
	Email      string `bson:"email"`
	OrgID      string `bson:"org_id"`
	MFAEnabled bool   `bson:"mfa_enabled"`
	TOTPSecret string `bson:"totp_secret,omitempty"`
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &User{
		ID:         doc.ID,
		Username:   doc.Username,
		Email:      doc.Email,
		OrgID:      doc.OrgID,
		MFAEnabled: doc.MFAEnabled,
		TOTPSecret: doc.TOTPSecret,
	}, nil
}
