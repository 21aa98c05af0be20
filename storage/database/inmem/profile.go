package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
)

type profileRepository struct {
	db *profileTable
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) CreateProfile(_ context.Context, prof profile.Profile, _ ...core.DBExecutor) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prof.ID = uuid.NewString()
	repo.db.table[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) GetProfileByUserID(_ context.Context, userID string, _ ...core.DBExecutor) (profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, prof := range repo.db.table {
		if prof.UserID == userID {
			return *prof, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) UpdateProfilePin(_ context.Context, prof profile.Profile, _ ...core.DBExecutor) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[prof.ID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	orig.PinHash = prof.PinHash
	orig.RecoveryHash = prof.RecoveryHash
	orig.PinAttempts = prof.PinAttempts
	orig.UpdatedAt = prof.UpdatedAt
	return *orig, nil
}

func (repo *profileRepository) DecrementPinAttempts(_ context.Context, id string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prof, ok := repo.db.table[id]
	if !ok {
		return 0, profile.ErrNotFound
	}
	if prof.PinAttempts > 0 {
		prof.PinAttempts--
	}
	return prof.PinAttempts, nil
}

func (repo *profileRepository) DeleteProfilesByUserID(_ context.Context, userIDs []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, userID := range userIDs {
		for id, prof := range repo.db.table {
			if prof.UserID == userID {
				delete(repo.db.table, id)
				n++
			}
		}
	}
	return n, nil
}
