package mistakes

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/storage/local"
)

const collectionMistakes = "mistakes"

// JSONStore keeps each journal as one JSON array file
type JSONStore struct {
	store *local.Store
	mu    sync.Mutex
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

func (s *JSONStore) List(ctx context.Context, user string) ([]domain.Mistake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(user)
}

func (s *JSONStore) Add(ctx context.Context, user string, m domain.Mistake) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(user)
	if err != nil {
		return err
	}
	list = append([]domain.Mistake{m}, list...)
	return s.store.Save(collectionMistakes, user, list)
}

func (s *JSONStore) Clear(ctx context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.Delete(collectionMistakes, user)
	if errors.Is(err, local.ErrNotFound) {
		return nil
	}
	return err
}

func (s *JSONStore) load(user string) ([]domain.Mistake, error) {
	var list []domain.Mistake
	if err := s.store.Load(collectionMistakes, user, &list); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return []domain.Mistake{}, nil
		}
		return nil, err
	}
	if list == nil {
		list = []domain.Mistake{}
	}
	return list, nil
}
