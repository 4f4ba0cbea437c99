// Package session tracks which owner is signed in. The pointer lives in its
// own short-lived store, apart from the durable collections.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"tailorfinder/storage"
)

const scopePrefix = "tailor_current_user:"

var ErrInvalidSession = errors.New("invalid or expired session")

// Session is the current actor. Operations that act as an owner take it
// explicitly.
type Session struct {
	ID         string    `json:"id"`
	OwnerEmail string    `json:"owner"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type Manager struct {
	scope  storage.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(scope storage.Store, secret []byte, ttl time.Duration) *Manager {
	return &Manager{
		scope:  scope,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Begin records a session for ownerEmail and returns its signed token.
func (m *Manager) Begin(ctx context.Context, ownerEmail string) (string, Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", Session{}, err
	}
	now := m.now()
	sess := Session{
		ID:         id.String(),
		OwnerEmail: ownerEmail,
		ExpiresAt:  now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        sess.ID,
		Subject:   sess.OwnerEmail,
		IssuedAt:  now.Unix(),
		ExpiresAt: sess.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to sign session: %w", err)
	}

	if err := m.scope.Apply(ctx, storage.Put(scopePrefix+sess.ID, sess.OwnerEmail)); err != nil {
		return "", Session{}, err
	}
	return signed, sess, nil
}

// Resolve validates a token and checks its session is still open.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	claims := &jwt.StandardClaims{}
	parser := &jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || claims.Id == "" {
		return Session{}, ErrInvalidSession
	}

	sess := Session{
		ID:         claims.Id,
		OwnerEmail: claims.Subject,
		ExpiresAt:  time.Unix(claims.ExpiresAt, 0),
	}
	if !m.now().Before(sess.ExpiresAt) {
		// drop the stale pointer so the scope does not grow
		_ = m.End(ctx, sess)
		return Session{}, ErrInvalidSession
	}

	owner, ok, err := m.scope.Get(ctx, scopePrefix+sess.ID)
	if err != nil {
		return Session{}, err
	}
	if !ok || owner != sess.OwnerEmail {
		return Session{}, ErrInvalidSession
	}
	return sess, nil
}

// End closes the session. Ending an unknown session is not an error.
func (m *Manager) End(ctx context.Context, sess Session) error {
	return m.scope.Apply(ctx, storage.Delete(scopePrefix+sess.ID))
}
