package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
)

var courseColumns = []string{
	"id", "title", "description", "category", "duration_weeks", "created_by", "created_at", "updated_at",
}

type dbCourse struct {
	ID            string      `db:"id"`
	Title         string      `db:"title"`
	Description   string      `db:"description"`
	Category      string      `db:"category"`
	DurationWeeks int         `db:"duration_weeks"`
	CreatedBy     null.String `db:"created_by"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (row dbCourse) toCourse() course.Course {
	return course.Course{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		Category:      row.Category,
		DurationWeeks: row.DurationWeeks,
		CreatedBy:     row.CreatedBy.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

type courseRepository struct {
	db core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db core.DBExecutor) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	query, args, err := psql.Insert("course").
		Columns("title", "description", "category", "duration_weeks", "created_by", "created_at", "updated_at").
		Values(crs.Title, crs.Description, crs.Category, crs.DurationWeeks, null.NewString(crs.CreatedBy, crs.CreatedBy != ""), crs.CreatedAt, crs.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &crs.ID, query, args...); err != nil {
		if uniqErr := trapUniqueErr(err, course.ErrTitleExists); uniqErr == course.ErrTitleExists {
			return course.Course{}, uniqErr
		}
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("course").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	var row dbCourse
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &row, query, args...); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound)
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryCourses(
	ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor,
) ([]course.Course, error) {
	qb := psql.Select(courseColumns...).From("course")
	if filter != nil {
		if filter.Search != "" {
			search := "%" + filter.Search + "%"
			qb = qb.Where(sq.Or{
				sq.ILike{"title": search},
				sq.ILike{"description": search},
			})
		}
		if filter.Category != "" {
			qb = qb.Where(sq.Eq{"category": filter.Category})
		}
	}
	qb = qb.OrderBy(orderByClauses(ordering, "title ASC")...)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []dbCourse
	if err = sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	query, args, err := psql.Update("course").
		Set("title", crs.Title).
		Set("description", crs.Description).
		Set("category", crs.Category).
		Set("duration_weeks", crs.DurationWeeks).
		Set("updated_at", crs.UpdatedAt).
		Where(sq.Eq{"id": crs.ID}).
		Suffix("RETURNING " + columnList(courseColumns)).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	var row dbCourse
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &row, query, args...); err != nil {
		if uniqErr := trapUniqueErr(err, course.ErrTitleExists); uniqErr == course.ErrTitleExists {
			return course.Course{}, uniqErr
		}
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound)
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Delete("course").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := getExec(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
