package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.Title == crs.Title {
			return course.Course{}, course.ErrTitleExists
		}
	}
	crs.ID = uuid.NewString()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(
	_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor,
) ([]course.Course, error) {
	repo.db.RLock()
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		if matchCourse(*crs, filter) {
			courses = append(courses, *crs)
		}
	}
	repo.db.RUnlock()

	sortCourses(courses, ordering)
	return courses, nil
}

func matchCourse(crs course.Course, filter *course.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(crs.Title), search) &&
			!strings.Contains(strings.ToLower(crs.Description), search) {
			return false
		}
	}
	if filter.Category != "" && crs.Category != filter.Category {
		return false
	}
	return true
}

func sortCourses(courses []course.Course, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "title", Ascending: true}}
	}
	o := ordering[0]
	sort.SliceStable(courses, func(i, j int) bool {
		var less bool
		switch o.Field {
		case "created_at":
			less = courses[i].CreatedAt.Before(courses[j].CreatedAt)
		case "category":
			less = courses[i].Category < courses[j].Category
		default:
			less = courses[i].Title < courses[j].Title
		}
		if o.Ascending {
			return less
		}
		return !less
	})
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	for id, existing := range repo.db.table {
		if id != crs.ID && existing.Title == crs.Title {
			return course.Course{}, course.ErrTitleExists
		}
	}
	orig.Title = crs.Title
	orig.Description = crs.Description
	orig.Category = crs.Category
	orig.DurationWeeks = crs.DurationWeeks
	orig.UpdatedAt = crs.UpdatedAt
	return *orig, nil
}

func (repo *courseRepository) DeleteCoursesByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
