package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/allisson/flexauth/internal/errors"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// MongoResetRepository owns the "forget_password_requests" collection.
// The email field arrives already encrypted under the user's DEK.
type MongoResetRepository struct {
	coll *mongo.Collection
}

type resetDocument struct {
	ID        string    `bson:"id"`
	Email     string    `bson:"email"`
	IsUsed    bool      `bson:"is_used"`
	ValidTill time.Time `bson:"valid_till"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoResetRepository creates a new reset request repository.
func NewMongoResetRepository(db *mongo.Database) *MongoResetRepository {
	return &MongoResetRepository{coll: db.Collection("forget_password_requests")}
}

// Insert writes a reset request; req.Email must already be DEK-encrypted.
func (r *MongoResetRepository) Insert(ctx context.Context, req *userDomain.ForgetPasswordRequest) error {
	doc := resetDocument{
		ID:        req.ID,
		Email:     req.Email,
		IsUsed:    req.IsUsed,
		ValidTill: req.ValidTill,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}

// Get returns the reset request for id with its email still encrypted.
func (r *MongoResetRepository) Get(ctx context.Context, id string) (*userDomain.ForgetPasswordRequest, error) {
	var doc resetDocument
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrap(errors.ErrResetLinkNotFound, "no reset request for id")
		}
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return &userDomain.ForgetPasswordRequest{
		ID:        doc.ID,
		Email:     doc.Email,
		IsUsed:    doc.IsUsed,
		ValidTill: doc.ValidTill,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Consume marks the request used in a single conditional update so a link
// can transition is_used false -> true at most once. A request that exists
// but cannot be consumed (already used or past valid_till) yields
// ErrResetLinkExpired.
func (r *MongoResetRepository) Consume(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "is_used": false, "valid_till": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"is_used": true, "updated_at": now}},
	)
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	if res.MatchedCount == 0 {
		count, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return errors.Wrap(errors.ErrServerError, err.Error())
		}
		if count == 0 {
			return errors.Wrap(errors.ErrResetLinkNotFound, "no reset request for id")
		}
		return errors.Wrap(errors.ErrResetLinkExpired, "reset request used or expired")
	}
	return nil
}

// MongoVerificationRepository owns the "email_verification_requests"
// collection. UID stays plaintext; email arrives DEK-encrypted.
type MongoVerificationRepository struct {
	coll *mongo.Collection
}

type verificationDocument struct {
	ReqID     string    `bson:"req_id"`
	UID       string    `bson:"uid"`
	Email     string    `bson:"email"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoVerificationRepository creates a new verification request repository.
func NewMongoVerificationRepository(db *mongo.Database) *MongoVerificationRepository {
	return &MongoVerificationRepository{coll: db.Collection("email_verification_requests")}
}

// Insert writes a verification request.
func (r *MongoVerificationRepository) Insert(ctx context.Context, req *userDomain.EmailVerificationRequest) error {
	doc := verificationDocument{
		ReqID:     req.ReqID,
		UID:       req.UID,
		Email:     req.Email,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: req.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}

// Get returns the verification request for reqID. An unknown id is reported
// the same way as an expired one so link ids cannot be probed.
func (r *MongoVerificationRepository) Get(ctx context.Context, reqID string) (*userDomain.EmailVerificationRequest, error) {
	var doc verificationDocument
	err := r.coll.FindOne(ctx, bson.M{"req_id": reqID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrap(errors.ErrVerificationLinkExpired, "no verification request for id")
		}
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return &userDomain.EmailVerificationRequest{
		ReqID:     doc.ReqID,
		UID:       doc.UID,
		Email:     doc.Email,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Delete removes the verification request.
func (r *MongoVerificationRepository) Delete(ctx context.Context, reqID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"req_id": reqID}); err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}
