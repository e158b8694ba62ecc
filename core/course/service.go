package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrDuplicateTitle = errors.New("a course with this title already exists")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields;
		// QueryFilter.Search does a case-insensitive match on Course.Title.
		// It returns the page of courses and the total match count.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		CourseExists(ctx context.Context, id string) (bool, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error
		// ToggleFavorite atomically flips userID's membership in the course's
		// favorites and reports the resulting state and count.
		ToggleFavorite(ctx context.Context, courseID, userID string) (isFavorite bool, count int, err error)
		// UpsertTags inserts any tag names not yet known and returns the full
		// Tag rows for all the given names.
		UpsertTags(ctx context.Context, names []string) ([]Tag, error)
	}

	Service interface {
		Create(ctx context.Context, authorID string, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Exists(ctx context.Context, id string) (bool, error)
		Update(ctx context.Context, orig Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
		ToggleFavorite(ctx context.Context, courseID, userID string) (bool, int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, authorID string, nc NewCourse) (Course, error) {
	tags, err := svc.repo.UpsertTags(ctx, nc.Tags)
	if err != nil {
		return Course{}, errors.Wrap(err, "upserting tags")
	}

	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Slug:        MakeSlug(nc.Title),
		Description: nc.Description,
		Price:       nc.Price,
		Image:       nc.Image,
		Category:    nc.Category,
		Level:       nc.Level,
		Published:   nc.Published,
		AuthorID:    authorID,
		Tags:        tags,
		Favorites:   []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) Exists(ctx context.Context, id string) (bool, error) {
	return svc.repo.CourseExists(ctx, id)
}

func (svc *service) Update(ctx context.Context, orig Course, uc UpdateCourse) (Course, error) {
	crs := orig

	if uc.Title != "" && uc.Title != orig.Title {
		crs.Title = uc.Title
		crs.Slug = MakeSlug(uc.Title)
	}
	if uc.Description != nil {
		crs.Description = *uc.Description
	}
	if uc.Price != nil {
		crs.Price = *uc.Price
	}
	if uc.Image != "" {
		crs.Image = uc.Image
	}
	if uc.Category != "" {
		crs.Category = uc.Category
	}
	if uc.Level != "" {
		crs.Level = uc.Level
	}
	if uc.Published != nil {
		crs.Published = *uc.Published
	}
	if uc.Tags != nil {
		tags, err := svc.repo.UpsertTags(ctx, uc.Tags)
		if err != nil {
			return Course{}, errors.Wrap(err, "upserting tags")
		}
		crs.Tags = tags
	}
	crs.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

func (svc *service) ToggleFavorite(ctx context.Context, courseID, userID string) (bool, int, error) {
	if exists, err := svc.repo.CourseExists(ctx, courseID); err != nil {
		return false, 0, errors.Wrap(err, "checking course")
	} else if !exists {
		return false, 0, ErrNotFound
	}
	return svc.repo.ToggleFavorite(ctx, courseID, userID)
}
