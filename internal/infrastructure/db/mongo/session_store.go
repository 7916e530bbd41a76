package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/batuta/dashboard/internal/core/domain"
)

const sessionCollection = "sessions"

// SessionStore persists sessions as {_id: key, state: {user, token}, updated_at}.
type SessionStore struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewSessionStore uses the sessions collection of db. A positive ttl is
// enforced by a TTL index on updated_at (see EnsureIndexes).
func NewSessionStore(db *mongo.Database, ttl time.Duration) *SessionStore {
	return &SessionStore{col: db.Collection(sessionCollection), ttl: ttl}
}

type mongoUser struct {
	ID        string `bson:"id"`
	Email     string `bson:"email"`
	Role      string `bson:"role"`
	FirstName string `bson:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"`
	Phone     string `bson:"phone,omitempty"`
	Company   string `bson:"company,omitempty"`
}

type mongoSession struct {
	Key   string `bson:"_id"`
	State struct {
		User  mongoUser `bson:"user"`
		Token string    `bson:"token"`
	} `bson:"state"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (s *SessionStore) Load(ctx context.Context, key string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoSession
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	u := doc.State.User
	sess := domain.Session{
		User: &domain.User{
			ID:        u.ID,
			Email:     u.Email,
			Role:      domain.Role(u.Role),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Phone:     u.Phone,
			Company:   u.Company,
		},
		Token: doc.State.Token,
	}
	if !sess.Valid() || u.ID == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, key string, sess domain.Session) error {
	if !sess.Valid() {
		return s.Delete(ctx, key)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoSession{Key: key, UpdatedAt: time.Now().UTC()}
	doc.State.Token = sess.Token
	doc.State.User = mongoUser{
		ID:        sess.User.ID,
		Email:     sess.User.Email,
		Role:      string(sess.User.Role),
		FirstName: sess.User.FirstName,
		LastName:  sess.User.LastName,
		Phone:     sess.User.Phone,
		Company:   sess.User.Company,
	}

	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// EnsureIndexes creates the expiry index on the sessions collection.
func (s *SessionStore) EnsureIndexes(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(s.ttl.Seconds())),
	}
	_, err := s.col.Indexes().CreateOne(ctx, idx)
	return err
}

// Ping reports whether the server is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}
