package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kymanga/darasa/core"
	"github.com/kymanga/darasa/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.table {
		if other.Slug == crs.Slug {
			return course.Course{}, course.ErrDuplicateTitle
		}
	}

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func matches(crs *course.Course, filter *course.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Category != "" && crs.Category != filter.Category {
		return false
	}
	if filter.Level != "" && crs.Level != filter.Level {
		return false
	}
	if filter.PriceMin != nil && crs.Price < *filter.PriceMin {
		return false
	}
	if filter.PriceMax != nil && crs.Price > *filter.PriceMax {
		return false
	}
	if len(filter.Tags) > 0 {
		found := false
	tagLoop:
		for _, want := range filter.Tags {
			for _, tag := range crs.Tags {
				if tag.Name == want {
					found = true
					break tagLoop
				}
			}
		}
		if !found {
			return false
		}
	}
	if filter.AuthorID != "" && crs.AuthorID != filter.AuthorID {
		return false
	}
	if filter.Published != nil && crs.Published != *filter.Published {
		return false
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(crs.Title), strings.ToLower(filter.Search)) {
		return false
	}
	if filter.FavoritesOf != "" {
		found := false
		for _, uid := range crs.Favorites {
			if uid == filter.FavoritesOf {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (repo *courseRepository) QueryCourses(
	ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, page core.Pagination,
) ([]course.Course, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		if matches(crs, filter) {
			courses = append(courses, *crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })

	total := len(courses)
	if page.Limit > 0 {
		start := page.Offset()
		if start > total {
			start = total
		}
		end := start + page.Limit
		if end > total {
			end = total
		}
		courses = courses[start:end]
	}
	return courses, total, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) CourseExists(ctx context.Context, id string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	_, ok := repo.db.table[id]
	return ok, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	for id, other := range repo.db.table {
		if id != crs.ID && other.Slug == crs.Slug {
			return course.Course{}, course.ErrDuplicateTitle
		}
	}
	crs.Favorites = orig.Favorites
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *courseRepository) ToggleFavorite(ctx context.Context, courseID, userID string) (bool, int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return false, 0, course.ErrNotFound
	}
	for i, uid := range crs.Favorites {
		if uid == userID {
			crs.Favorites = append(crs.Favorites[:i], crs.Favorites[i+1:]...)
			return false, len(crs.Favorites), nil
		}
	}
	crs.Favorites = append(crs.Favorites, userID)
	return true, len(crs.Favorites), nil
}

func (repo *courseRepository) UpsertTags(ctx context.Context, names []string) ([]course.Tag, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tags := make([]course.Tag, 0, len(names))
	for _, name := range names {
		tag, ok := repo.db.tags[name]
		if !ok {
			tag = &course.Tag{ID: uuid.New().String(), Name: name}
			repo.db.tags[name] = tag
		}
		tags = append(tags, *tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}
