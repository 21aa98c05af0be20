package course

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
)

type (
	ServiceInterface interface {
		Create(createdBy string, nc NewCourse) (Course, error)
		GetByID(id string) (Course, error)
		Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		Update(id string, uc UpdateCourse) (Course, error)
		Delete(ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(createdBy string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:         nc.Title,
		Description:   nc.Description,
		Category:      nc.Category,
		DurationWeeks: nc.DurationWeeks,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateCourse(context.Background(), crs)
}

func (svc *service) GetByID(id string) (Course, error) {
	return svc.repo.GetCourseByID(context.Background(), id)
}

func (svc *service) Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(context.Background(), filter, ordering)
}

func (svc *service) Update(id string, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:            id,
		Title:         uc.Title,
		Description:   uc.Description,
		Category:      uc.Category,
		DurationWeeks: uc.DurationWeeks,
		UpdatedAt:     time.Now().UTC(),
	}
	return svc.repo.UpdateCourse(context.Background(), crs)
}

func (svc *service) Delete(ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(context.Background(), ids)
	return err
}
