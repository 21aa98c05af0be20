package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/setting"
)

type settingRepository struct {
	db *settingTable
}

var _ setting.Repository = (*settingRepository)(nil)

func NewSettingRepository(db *DB) *settingRepository {
	return &settingRepository{db: db.setting}
}

func (repo *settingRepository) GetSetting(_ context.Context, key string, _ ...core.DBExecutor) (setting.Setting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[key]; ok {
		return st, nil
	}
	return setting.Setting{}, setting.ErrNotFound
}

func (repo *settingRepository) UpsertSetting(_ context.Context, st setting.Setting, _ ...core.DBExecutor) (setting.Setting, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[st.Key] = st
	return st, nil
}
