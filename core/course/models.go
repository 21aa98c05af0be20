package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound    = errors.New("course not found")
	ErrTitleExists = errors.New("a course with this title already exists")
)

type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	DurationWeeks int       `json:"duration_weeks"`
	CreatedBy     string    `json:"created_by"` // user ID
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required"`
	Category      string `json:"category"`
	DurationWeeks int    `json:"duration_weeks" validate:"omitempty,min=1"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	return validate.Struct(nc)
}

// UpdateCourse defines what may be modified on an existing Course.
type UpdateCourse struct {
	Title         string `json:"title" validate:"omitempty,max=200"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	DurationWeeks int    `json:"duration_weeks" validate:"omitempty,min=1"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	title := core.CleanString(uc.Title)
	if title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}

	desc := core.CleanString(uc.Description)
	if desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}

	if uc.Category == "" {
		uc.Category = orig.Category
	}
	if uc.DurationWeeks == 0 {
		uc.DurationWeeks = orig.DurationWeeks
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
}

type Repository interface {
	CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
	GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
	// QueryCourses applies AND operation on available QueryFilter fields;
	// Search matches Title or Description case-insensitively.
	QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
	UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
	DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
}
