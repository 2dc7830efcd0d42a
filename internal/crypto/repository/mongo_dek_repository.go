// Package repository persists DEK records in the document store.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/validation"
)

// MongoDekRepository stores one DEK record per user in the "deks"
// collection. The uid, email and DEK are all encrypted under the KEK, so
// the record can be located by either identifier without the DEK while
// keeping identifiers non-enumerable. KEK encryption is deterministic,
// which is what makes the encrypted fields usable as lookup keys.
type MongoDekRepository struct {
	coll   *mongo.Collection
	cipher cryptoService.Cipher
	kek    string
}

// dekDocument is the persisted shape; every string field is KEK-encrypted.
type dekDocument struct {
	UID       string    `bson:"uid"`
	Email     string    `bson:"email"`
	Dek       string    `bson:"dek"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoDekRepository creates a new DEK repository bound to the KEK.
func NewMongoDekRepository(
	db *mongo.Database,
	cipher cryptoService.Cipher,
	kek string,
) *MongoDekRepository {
	return &MongoDekRepository{
		coll:   db.Collection("deks"),
		cipher: cipher,
		kek:    kek,
	}
}

// Put encrypts uid, email and dek under the KEK and inserts the record.
func (r *MongoDekRepository) Put(ctx context.Context, uid, email, dek string) error {
	uidEnc, err := r.cipher.Encrypt(uid, r.kek)
	if err != nil {
		return err
	}
	emailEnc, err := r.cipher.Encrypt(email, r.kek)
	if err != nil {
		return err
	}
	dekEnc, err := r.cipher.Encrypt(dek, r.kek)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := dekDocument{
		UID:       uidEnc,
		Email:     emailEnc,
		Dek:       dekEnc,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}

// Get looks up a DEK record by uid or email. Identifiers matching the email
// pattern are searched in the email index, everything else in the uid
// index. The returned record has all three fields decrypted.
func (r *MongoDekRepository) Get(ctx context.Context, identifier string) (*cryptoDomain.DekRecord, error) {
	field := "uid"
	if validation.IsEmail(identifier) {
		field = "email"
	}

	identifierEnc, err := r.cipher.Encrypt(identifier, r.kek)
	if err != nil {
		return nil, err
	}

	var doc dekDocument
	err = r.coll.FindOne(ctx, bson.M{field: identifierEnc}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrap(errors.ErrKeyNotFound, "no DEK record for identifier")
		}
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}

	return r.decryptRecord(&doc)
}

// Delete removes the DEK record for uid. Deleting a DEK permanently makes
// every field encrypted under it undecryptable.
func (r *MongoDekRepository) Delete(ctx context.Context, uid string) error {
	uidEnc, err := r.cipher.Encrypt(uid, r.kek)
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"uid": uidEnc})
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(errors.ErrKeyNotFound, "no DEK record for uid")
	}
	return nil
}

// Count returns the number of DEK records.
func (r *MongoDekRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return count, nil
}

func (r *MongoDekRepository) decryptRecord(doc *dekDocument) (*cryptoDomain.DekRecord, error) {
	uid, err := r.cipher.Decrypt(doc.UID, r.kek)
	if err != nil {
		return nil, err
	}
	email, err := r.cipher.Decrypt(doc.Email, r.kek)
	if err != nil {
		return nil, err
	}
	dek, err := r.cipher.Decrypt(doc.Dek, r.kek)
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.DekRecord{
		UID:       uid,
		Email:     email,
		Dek:       dek,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
