package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/storage/local"
)

const (
	collectionUsers   = "users"
	collectionInvites = "invites"
)

// storedUser is the on-disk form of a user; the hash is hidden from JSON
// everywhere else
type storedUser struct {
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         domain.Role `json:"role"`
	PasswordHash string      `json:"password_hash"`
}

type storedInvite struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JSONStore keeps users and invites as JSON files in the local data directory
type JSONStore struct {
	store *local.Store
	mu    sync.Mutex
}

// NewJSONStore wraps an existing local store
func NewJSONStore(store *local.Store) *JSONStore {
	return &JSONStore{store: store}
}

func (s *JSONStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var u storedUser
	if err := s.store.Load(collectionUsers, email, &u); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &domain.User{Email: u.Email, Name: u.Name, Role: u.Role, PasswordHash: u.PasswordHash}, nil
}

func (s *JSONStore) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists(collectionUsers, user.Email) {
		return ErrEmailExists
	}
	return s.store.Save(collectionUsers, user.Email, storedUser{
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		PasswordHash: user.PasswordHash,
	})
}

func (s *JSONStore) PutInvite(ctx context.Context, student, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Save(collectionInvites, student, storedInvite{Code: code, ExpiresAt: expiresAt})
}

func (s *JSONStore) ConsumeInvite(ctx context.Context, student, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inv storedInvite
	if err := s.store.Load(collectionInvites, student, &inv); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return ErrInvalidInvite
		}
		return err
	}
	if !now.Before(inv.ExpiresAt) {
		_ = s.store.Delete(collectionInvites, student)
		return ErrInvalidInvite
	}
	if !codesEqual(inv.Code, code) {
		return ErrInvalidInvite
	}
	return s.store.Delete(collectionInvites, student)
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
