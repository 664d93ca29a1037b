package gamification

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/prepwise/internal/storage/local"
)

const collectionProgress = "progress"

// JSONStore keeps one JSON file per user under the local data directory
type JSONStore struct {
	store *local.Store
}

// NewJSONStore creates a JSON file store rooted at basePath
func NewJSONStore(basePath string) (*JSONStore, error) {
	store, err := local.NewStore(basePath)
	if err != nil {
		return nil, err
	}
	return &JSONStore{store: store}, nil
}

// NewJSONStoreFrom wraps an existing local store
func NewJSONStoreFrom(store *local.Store) *JSONStore {
	return &JSONStore{store: store}
}

// Load reads the state of user
func (s *JSONStore) Load(ctx context.Context, user string) (*State, error) {
	var state State
	if err := s.store.Load(collectionProgress, user, &state); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

// Save writes the state of user
func (s *JSONStore) Save(ctx context.Context, user string, state *State) error {
	return s.store.Save(collectionProgress, user, state)
}

// Delete removes the state of user
func (s *JSONStore) Delete(ctx context.Context, user string) error {
	if err := s.store.Delete(collectionProgress, user); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns every user with stored state
func (s *JSONStore) List(ctx context.Context) ([]string, error) {
	return s.store.List(collectionProgress)
}
