// Package statestore adapts the state blob repository to the controller's
// Store, encoding state with the snapshot document format.
package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/repository"
	"pomodoroplaza/internal/snapshot"
)

// LocalKey is the storage key of the single-user CLI state.
const LocalKey = "timerState"

// KeyFor returns the storage key of an account's state.
func KeyFor(userID string) string {
	if userID == "" {
		return LocalKey
	}
	return LocalKey + ":" + userID
}

type Store struct {
	repo *repository.StateRepository
	key  string
}

func New(repo *repository.StateRepository, key string) *Store {
	return &Store{repo: repo, key: key}
}

func (s *Store) Key() string {
	return s.key
}

func (s *Store) Load(ctx context.Context, now time.Time) (model.State, bool, error) {
	blob, err := s.repo.Load(ctx, s.key)
	if errors.Is(err, repository.ErrNotFound) {
		return model.State{}, false, nil
	}
	if err != nil {
		return model.State{}, false, err
	}

	state, err := snapshot.Unmarshal(blob.Payload, now)
	if err != nil {
		return model.State{}, true, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return state, true, nil
}

func (s *Store) Save(ctx context.Context, state model.State) error {
	payload, err := snapshot.Marshal(state)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, s.key, payload)
}
