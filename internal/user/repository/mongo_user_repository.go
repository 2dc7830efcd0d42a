// Package repository persists user records and their dependent reset and
// verification requests in the document store.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/errors"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// MongoUserRepository owns the "users" collection. Writes go through the
// field codec so every leaf string (name, email, role, password) is
// encrypted under the caller-provided DEK while uid, flags, counters and
// timestamps stay plaintext. Lookups use the plaintext uid.
type MongoUserRepository struct {
	coll   *mongo.Collection
	cipher cryptoService.Cipher
	codec  *cryptoService.FieldCodec
}

// userDocument is the persisted shape of a user record.
type userDocument struct {
	UID                 string     `bson:"uid"`
	Name                string     `bson:"name"`
	Email               string     `bson:"email"`
	Role                string     `bson:"role"`
	Password            string     `bson:"password"`
	EmailVerified       bool       `bson:"email_verified"`
	IsActive            bool       `bson:"is_active"`
	FailedLoginAttempts int        `bson:"failed_login_attempts"`
	BlockedUntil        *time.Time `bson:"blocked_until,omitempty"`
	CreatedAt           time.Time  `bson:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at"`
}

// NewMongoUserRepository creates a new user repository.
func NewMongoUserRepository(db *mongo.Database, cipher cryptoService.Cipher) *MongoUserRepository {
	return &MongoUserRepository{
		coll:   db.Collection("users"),
		cipher: cipher,
		codec:  cryptoService.NewFieldCodec(cipher),
	}
}

// Insert encrypts the user's string fields under dek and writes the record.
func (r *MongoUserRepository) Insert(ctx context.Context, user *userDomain.User, dek string) error {
	doc := map[string]any{
		"uid":                   user.UID,
		"name":                  user.Name,
		"email":                 user.Email,
		"role":                  user.Role,
		"password":              user.Password,
		"email_verified":        user.EmailVerified,
		"is_active":             user.IsActive,
		"failed_login_attempts": user.FailedLoginAttempts,
		"created_at":            user.CreatedAt,
		"updated_at":            user.UpdatedAt,
	}

	encrypted, err := r.codec.EncryptDocument(doc, dek)
	if err != nil {
		return err
	}

	if _, err := r.coll.InsertOne(ctx, encrypted); err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}

// GetByUID reads the record for uid and decrypts its string fields with dek.
func (r *MongoUserRepository) GetByUID(ctx context.Context, uid, dek string) (*userDomain.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"uid": uid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrap(errors.ErrUserNotFound, "no user for uid")
		}
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return r.decrypt(&doc, dek)
}

// GetAllRaw returns every user record with fields still encrypted. The
// caller resolves each user's DEK before decrypting.
func (r *MongoUserRepository) GetAllRaw(ctx context.Context) ([]userDomain.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	defer cursor.Close(ctx)

	var users []userDomain.User
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrServerError, err.Error())
		}
		users = append(users, *fromDocument(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return users, nil
}

// UpdateName sets the DEK-encrypted name and bumps updated_at.
func (r *MongoUserRepository) UpdateName(ctx context.Context, uid, nameEnc string) error {
	return r.setFields(ctx, uid, bson.M{"name": nameEnc})
}

// UpdateRole sets the DEK-encrypted role and bumps updated_at.
func (r *MongoUserRepository) UpdateRole(ctx context.Context, uid, roleEnc string) error {
	return r.setFields(ctx, uid, bson.M{"role": roleEnc})
}

// UpdatePassword sets the DEK-encrypted credential and bumps updated_at.
func (r *MongoUserRepository) UpdatePassword(ctx context.Context, uid, credentialEnc string) error {
	return r.setFields(ctx, uid, bson.M{"password": credentialEnc})
}

// SetActive toggles the activation flag.
func (r *MongoUserRepository) SetActive(ctx context.Context, uid string, isActive bool) error {
	return r.setFields(ctx, uid, bson.M{"is_active": isActive})
}

// SetEmailVerified marks the user's email as verified.
func (r *MongoUserRepository) SetEmailVerified(ctx context.Context, uid string) error {
	return r.setFields(ctx, uid, bson.M{"email_verified": true})
}

// IncrementFailedAttempts atomically bumps the failed sign-in counter and
// returns the new value, so threshold checks tolerate interleavings.
func (r *MongoUserRepository) IncrementFailedAttempts(ctx context.Context, uid string) (int, error) {
	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"uid": uid},
		bson.M{
			"$inc": bson.M{"failed_login_attempts": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, errors.Wrap(errors.ErrUserNotFound, "no user for uid")
		}
		return 0, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return doc.FailedLoginAttempts, nil
}

// ResetFailedAttempts sets the failed sign-in counter to zero.
func (r *MongoUserRepository) ResetFailedAttempts(ctx context.Context, uid string) error {
	return r.setFields(ctx, uid, bson.M{"failed_login_attempts": 0})
}

// SetBlockedUntil writes the lockout deadline. Writing the same deadline
// twice is harmless, so concurrent threshold hits stay idempotent.
func (r *MongoUserRepository) SetBlockedUntil(ctx context.Context, uid string, until time.Time) error {
	return r.setFields(ctx, uid, bson.M{"blocked_until": until})
}

// Delete removes the user record.
func (r *MongoUserRepository) Delete(ctx context.Context, uid string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(errors.ErrUserNotFound, "no user for uid")
	}
	return nil
}

// Count returns the number of user records.
func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return count, nil
}

func (r *MongoUserRepository) setFields(ctx context.Context, uid string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(errors.ErrUserNotFound, "no user for uid")
	}
	return nil
}

func (r *MongoUserRepository) decrypt(doc *userDocument, dek string) (*userDomain.User, error) {
	user := fromDocument(doc)

	var err error
	if user.Name, err = r.cipher.Decrypt(doc.Name, dek); err != nil {
		return nil, err
	}
	if user.Email, err = r.cipher.Decrypt(doc.Email, dek); err != nil {
		return nil, err
	}
	if user.Role, err = r.cipher.Decrypt(doc.Role, dek); err != nil {
		return nil, err
	}
	if user.Password, err = r.cipher.Decrypt(doc.Password, dek); err != nil {
		return nil, err
	}
	return user, nil
}

func fromDocument(doc *userDocument) *userDomain.User {
	return &userDomain.User{
		UID:                 doc.UID,
		Name:                doc.Name,
		Email:               doc.Email,
		Role:                doc.Role,
		Password:            doc.Password,
		EmailVerified:       doc.EmailVerified,
		IsActive:            doc.IsActive,
		FailedLoginAttempts: doc.FailedLoginAttempts,
		BlockedUntil:        doc.BlockedUntil,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
	}
}
