package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core/course"
)

var (
	// errors
	ErrNotFound = errors.New("lesson not found")
)

type (
	Repository interface {
		// CreateLesson persists lsn; when lsn.Order is zero the repository
		// assigns max(order in course) + 1 atomically with the insert.
		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		// QueryLessonsByCourse returns the course's lessons sorted by Order.
		QueryLessonsByCourse(ctx context.Context, courseID string) ([]Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		CountLessonsByCourse(ctx context.Context, courseID string) (int, error)
		ListLessonIDsByCourse(ctx context.Context, courseID string) ([]string, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		// DeleteLessonsByID removes lessons and their comments.
		DeleteLessonsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, courseID string, nl NewLesson) (Lesson, error)
		QueryByCourse(ctx context.Context, courseID string) ([]Lesson, error)
		GetByID(ctx context.Context, id string) (Lesson, error)
		CountByCourse(ctx context.Context, courseID string) (int, error)
		ListIDsByCourse(ctx context.Context, courseID string) ([]string, error)
		BelongsToCourse(ctx context.Context, lessonID, courseID string) (bool, error)
		Update(ctx context.Context, orig Lesson, ul UpdateLesson) (Lesson, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo      Repository
		courseSvc course.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service) Service {
	return &service{repo: repo, courseSvc: courseSvc}
}

func (svc *service) Create(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	if exists, err := svc.courseSvc.Exists(ctx, courseID); err != nil {
		return Lesson{}, errors.Wrap(err, "checking course")
	} else if !exists {
		return Lesson{}, course.ErrNotFound
	}

	now := time.Now().UTC()
	lsn := Lesson{
		Title:     nl.Title,
		Content:   nl.Content,
		VideoURL:  nl.VideoURL,
		CourseID:  courseID,
		Order:     nl.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *service) QueryByCourse(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryLessonsByCourse(ctx, courseID)
}

func (svc *service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *service) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return svc.repo.CountLessonsByCourse(ctx, courseID)
}

func (svc *service) ListIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	return svc.repo.ListLessonIDsByCourse(ctx, courseID)
}

func (svc *service) BelongsToCourse(ctx context.Context, lessonID, courseID string) (bool, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return lsn.CourseID == courseID, nil
}

func (svc *service) Update(ctx context.Context, orig Lesson, ul UpdateLesson) (Lesson, error) {
	lsn := orig

	if ul.Title != "" {
		lsn.Title = ul.Title
	}
	if ul.Content != nil {
		lsn.Content = *ul.Content
	}
	if ul.VideoURL != nil {
		lsn.VideoURL = *ul.VideoURL
	}
	if ul.Order > 0 {
		lsn.Order = ul.Order
	}
	lsn.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateLesson(ctx, lsn)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteLessonsByID(ctx, ids...)
}
