package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/party-queue-system/pkg/models"
	"github.com/party-queue-system/pkg/store"
)

const (
	sessionKeyPrefix = "partyqueue_"
	userKey          = "partyqueue_user"
)

func sessionKey(code string) string {
	return sessionKeyPrefix + code
}

// Repository encodes sessions and the local CurrentUser record as JSON over a store.Store.
type Repository struct {
	store store.Store
}

func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

func (r *Repository) LoadSession(ctx context.Context, code string) (*models.Session, error) {
	data, err := r.store.Get(ctx, sessionKey(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: failed to read session %s: %w", ErrPersistenceFailed, code, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: failed to decode session %s: %w", ErrPersistenceFailed, code, err)
	}
	return &session, nil
}

func (r *Repository) SaveSession(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: failed to encode session %s: %w", ErrPersistenceFailed, session.ID, err)
	}
	if err := r.store.Set(ctx, sessionKey(session.ID), data); err != nil {
		return fmt.Errorf("%w: failed to write session %s: %w", ErrPersistenceFailed, session.ID, err)
	}
	return nil
}

// LoadUser returns the CurrentUser held by this store, or nil when none was saved.
func (r *Repository) LoadUser(ctx context.Context) (*models.CurrentUser, error) {
	data, err := r.store.Get(ctx, userKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read user: %w", ErrPersistenceFailed, err)
	}

	var user models.CurrentUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode user: %w", ErrPersistenceFailed, err)
	}
	return &user, nil
}

// SaveUser overwrites the single CurrentUser record. It makes a Repository
// usable as the Identity of a local, single-user client.
func (r *Repository) SaveUser(ctx context.Context, user models.CurrentUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("%w: failed to encode user: %w", ErrPersistenceFailed, err)
	}
	if err := r.store.Set(ctx, userKey, data); err != nil {
		return fmt.Errorf("%w: failed to write user: %w", ErrPersistenceFailed, err)
	}
	return nil
}
