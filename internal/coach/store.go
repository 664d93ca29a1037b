package coach

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/prepwise/internal/storage/local"
)

const collectionPlans = "plans"

// PlanStore keeps the latest plan per user
type PlanStore interface {
	LoadPlan(ctx context.Context, user string) (*Plan, error)
	SavePlan(ctx context.Context, user string, p *Plan) error
	DeletePlan(ctx context.Context, user string) error
}

// JSONPlanStore keeps plans as JSON files
type JSONPlanStore struct {
	store *local.Store
}

// NewJSONPlanStore wraps an existing local store
func NewJSONPlanStore(store *local.Store) *JSONPlanStore {
	return &JSONPlanStore{store: store}
}

func (s *JSONPlanStore) LoadPlan(ctx context.Context, user string) (*Plan, error) {
	var p Plan
	if err := s.store.Load(collectionPlans, user, &p); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *JSONPlanStore) SavePlan(ctx context.Context, user string, p *Plan) error {
	return s.store.Save(collectionPlans, user, p)
}

func (s *JSONPlanStore) DeletePlan(ctx context.Context, user string) error {
	err := s.store.Delete(collectionPlans, user)
	if errors.Is(err, local.ErrNotFound) {
		return nil
	}
	return err
}
