// Package repository persists session records in the document store. Every
// string field arrives already encrypted under the owning user's DEK; the
// repository only matches and moves ciphertexts.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/allisson/flexauth/internal/errors"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
)

// MongoSessionRepository owns the "sessions" collection.
type MongoSessionRepository struct {
	coll *mongo.Collection
}

type sessionDocument struct {
	UID          string    `bson:"uid"`
	SessionID    string    `bson:"session_id"`
	Email        string    `bson:"email"`
	UserAgent    string    `bson:"user_agent"`
	IDToken      string    `bson:"id_token"`
	RefreshToken string    `bson:"refresh_token"`
	IsRevoked    bool      `bson:"is_revoked"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// NewMongoSessionRepository creates a new session repository.
func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{coll: db.Collection("sessions")}
}

// Insert writes a session whose fields are already DEK-encrypted.
func (r *MongoSessionRepository) Insert(ctx context.Context, session *sessionDomain.Session) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(session)); err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}

// CountUsable counts non-revoked sessions matching the encrypted uid and id
// token. Token verification requires the count to be exactly one.
func (r *MongoSessionRepository) CountUsable(ctx context.Context, uidEnc, idTokenEnc string) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"uid":        uidEnc,
		"id_token":   idTokenEnc,
		"is_revoked": false,
	})
	if err != nil {
		return 0, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return count, nil
}

// GetActive returns the non-revoked session for the encrypted uid and
// session id, fields still encrypted.
func (r *MongoSessionRepository) GetActive(ctx context.Context, uidEnc, sessionIDEnc string) (*sessionDomain.Session, error) {
	var doc sessionDocument
	err := r.coll.FindOne(ctx, bson.M{
		"uid":        uidEnc,
		"session_id": sessionIDEnc,
		"is_revoked": false,
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrap(errors.ErrSessionNotFound, "no active session for uid and session id")
		}
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return fromDocument(&doc), nil
}

// Get returns the session for the encrypted uid and session id regardless
// of revocation state.
func (r *MongoSessionRepository) Get(ctx context.Context, uidEnc, sessionIDEnc string) (*sessionDomain.Session, error) {
	var doc sessionDocument
	err := r.coll.FindOne(ctx, bson.M{"uid": uidEnc, "session_id": sessionIDEnc}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrap(errors.ErrSessionNotFound, "no session for uid and session id")
		}
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return fromDocument(&doc), nil
}

// RotateTokens swaps the stored token pair for a new one in a single
// conditional update keyed on the old encrypted tokens. Exactly one match is
// required; zero matches means another request rotated first and the caller
// must treat the presented pair as replayed.
func (r *MongoSessionRepository) RotateTokens(ctx context.Context, uidEnc, oldIDEnc, oldRefreshEnc, newIDEnc, newRefreshEnc string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"uid":           uidEnc,
			"id_token":      oldIDEnc,
			"refresh_token": oldRefreshEnc,
			"is_revoked":    false,
		},
		bson.M{"$set": bson.M{
			"id_token":      newIDEnc,
			"refresh_token": newRefreshEnc,
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(errors.ErrSessionNotFound, "no session matched the presented token pair")
	}
	return nil
}

// Revoke marks the session revoked.
func (r *MongoSessionRepository) Revoke(ctx context.Context, uidEnc, sessionIDEnc string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"uid": uidEnc, "session_id": sessionIDEnc},
		bson.M{"$set": bson.M{"is_revoked": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(errors.ErrSessionNotFound, "no session for uid and session id")
	}
	return nil
}

// Delete removes the session record.
func (r *MongoSessionRepository) Delete(ctx context.Context, uidEnc, sessionIDEnc string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"uid": uidEnc, "session_id": sessionIDEnc})
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(errors.ErrSessionNotFound, "no session for uid and session id")
	}
	return nil
}

// GetAllRaw returns every session with fields still encrypted, sorted
// ascending by creation time.
func (r *MongoSessionRepository) GetAllRaw(ctx context.Context) ([]sessionDomain.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return collect(ctx, cursor)
}

// GetAllByUID returns every session of the encrypted uid, fields still
// encrypted, sorted ascending by creation time.
func (r *MongoSessionRepository) GetAllByUID(ctx context.Context, uidEnc string) ([]sessionDomain.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"uid": uidEnc}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return collect(ctx, cursor)
}

// RevokeAll marks every session of the encrypted uid revoked.
func (r *MongoSessionRepository) RevokeAll(ctx context.Context, uidEnc string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"uid": uidEnc},
		bson.M{"$set": bson.M{"is_revoked": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}

// DeleteAll removes every session of the encrypted uid.
func (r *MongoSessionRepository) DeleteAll(ctx context.Context, uidEnc string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"uid": uidEnc}); err != nil {
		return errors.Wrap(errors.ErrServerError, err.Error())
	}
	return nil
}

// Count returns the number of session records.
func (r *MongoSessionRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return count, nil
}

func collect(ctx context.Context, cursor *mongo.Cursor) ([]sessionDomain.Session, error) {
	defer cursor.Close(ctx)

	var sessions []sessionDomain.Session
	for cursor.Next(ctx) {
		var doc sessionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrServerError, err.Error())
		}
		sessions = append(sessions, *fromDocument(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrServerError, err.Error())
	}
	return sessions, nil
}

func toDocument(s *sessionDomain.Session) *sessionDocument {
	return &sessionDocument{
		UID:          s.UID,
		SessionID:    s.SessionID,
		Email:        s.Email,
		UserAgent:    s.UserAgent,
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
		IsRevoked:    s.IsRevoked,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func fromDocument(doc *sessionDocument) *sessionDomain.Session {
	return &sessionDomain.Session{
		UID:          doc.UID,
		SessionID:    doc.SessionID,
		Email:        doc.Email,
		UserAgent:    doc.UserAgent,
		IDToken:      doc.IDToken,
		RefreshToken: doc.RefreshToken,
		IsRevoked:    doc.IsRevoked,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}
