package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/setting"
)

type dbSetting struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

type settingRepository struct {
	db core.DBExecutor
}

var _ setting.Repository = (*settingRepository)(nil)

func NewSettingRepository(db core.DBExecutor) *settingRepository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) GetSetting(ctx context.Context, key string, exec ...core.DBExecutor) (setting.Setting, error) {
	query, args, err := psql.Select("key", "value").From("setting").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return setting.Setting{}, errors.Wrap(err, "building query")
	}
	var row dbSetting
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &row, query, args...); err != nil {
		return setting.Setting{}, trapNoRowsErr(err, setting.ErrNotFound)
	}
	return setting.Setting(row), nil
}

func (repo *settingRepository) UpsertSetting(ctx context.Context, st setting.Setting, exec ...core.DBExecutor) (setting.Setting, error) {
	query, args, err := psql.Insert("setting").
		Columns("key", "value").
		Values(st.Key, st.Value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return setting.Setting{}, errors.Wrap(err, "building query")
	}
	if _, err = getExec(repo.db, exec).ExecContext(ctx, query, args...); err != nil {
		return setting.Setting{}, errors.Wrap(err, "upserting setting")
	}
	return st, nil
}
