package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
)

var profileColumns = []string{
	"id", "user_id", "kind", "phone", "department",
	"pin_hash", "recovery_hash", "pin_attempts", "created_at", "updated_at",
}

type dbProfile struct {
	ID           string       `db:"id"`
	UserID       string       `db:"user_id"`
	Kind         profile.Kind `db:"kind"`
	Phone        string       `db:"phone"`
	Department   string       `db:"department"`
	PinHash      []byte       `db:"pin_hash"`
	RecoveryHash []byte       `db:"recovery_hash"`
	PinAttempts  int          `db:"pin_attempts"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (row dbProfile) toProfile() profile.Profile {
	return profile.Profile{
		ID:           row.ID,
		UserID:       row.UserID,
		Kind:         row.Kind,
		Phone:        row.Phone,
		Department:   row.Department,
		PinHash:      row.PinHash,
		RecoveryHash: row.RecoveryHash,
		PinAttempts:  row.PinAttempts,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

type profileRepository struct {
	db core.DBExecutor
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db core.DBExecutor) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) CreateProfile(ctx context.Context, prof profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	query, args, err := psql.Insert("profile").
		Columns("user_id", "kind", "phone", "department", "pin_attempts", "created_at", "updated_at").
		Values(prof.UserID, prof.Kind, prof.Phone, prof.Department, prof.PinAttempts, prof.CreatedAt, prof.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &prof.ID, query, args...); err != nil {
		return profile.Profile{}, errors.Wrap(err, "creating profile")
	}
	return prof, nil
}

func (repo *profileRepository) GetProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.Profile, error) {
	query, args, err := psql.Select(profileColumns...).
		From("profile").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "building query")
	}
	var row dbProfile
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &row, query, args...); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound)
	}
	return row.toProfile(), nil
}

func (repo *profileRepository) UpdateProfilePin(ctx context.Context, prof profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	query, args, err := psql.Update("profile").
		Set("pin_hash", prof.PinHash).
		Set("recovery_hash", prof.RecoveryHash).
		Set("pin_attempts", prof.PinAttempts).
		Set("updated_at", prof.UpdatedAt).
		Where(sq.Eq{"id": prof.ID}).
		Suffix("RETURNING " + columnList(profileColumns)).
		ToSql()
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "building query")
	}
	var row dbProfile
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &row, query, args...); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound)
	}
	return row.toProfile(), nil
}

func (repo *profileRepository) DecrementPinAttempts(ctx context.Context, id string, exec ...core.DBExecutor) (int, error) {
	// single round trip; the floor keeps concurrent failures from going negative
	query := `UPDATE profile SET pin_attempts = GREATEST(pin_attempts - 1, 0) WHERE id = $1 RETURNING pin_attempts`
	var remaining int
	if err := sqlx.GetContext(ctx, getExec(repo.db, exec), &remaining, query, id); err != nil {
		return 0, trapNoRowsErr(err, profile.ErrNotFound)
	}
	return remaining, nil
}

func (repo *profileRepository) DeleteProfilesByUserID(ctx context.Context, userIDs []string, exec ...core.DBExecutor) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	query, args, err := psql.Delete("profile").Where(sq.Eq{"user_id": userIDs}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := getExec(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting profiles")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
