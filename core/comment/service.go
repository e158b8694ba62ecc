package comment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core/lesson"
)

var (
	// errors
	ErrNotFound = errors.New("comment not found")
)

type (
	Repository interface {
		CreateComment(ctx context.Context, cmt Comment) (Comment, error)
		QueryCommentsByLesson(ctx context.Context, lessonID string) ([]Comment, error)
		GetCommentByID(ctx context.Context, id string) (Comment, error)
		UpdateComment(ctx context.Context, cmt Comment) (Comment, error)
		DeleteCommentsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, lessonID, authorID string, nc NewComment) (Comment, error)
		QueryByLesson(ctx context.Context, lessonID string) ([]Comment, error)
		GetByID(ctx context.Context, id string) (Comment, error)
		Update(ctx context.Context, orig Comment, uc UpdateComment) (Comment, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo      Repository
		lessonSvc lesson.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, lessonSvc lesson.Service) Service {
	return &service{repo: repo, lessonSvc: lessonSvc}
}

func (svc *service) Create(ctx context.Context, lessonID, authorID string, nc NewComment) (Comment, error) {
	if _, err := svc.lessonSvc.GetByID(ctx, lessonID); err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return Comment{}, lesson.ErrNotFound
		}
		return Comment{}, errors.Wrap(err, "checking lesson")
	}

	now := time.Now().UTC()
	cmt := Comment{
		Content:   nc.Content,
		LessonID:  lessonID,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateComment(ctx, cmt)
}

func (svc *service) QueryByLesson(ctx context.Context, lessonID string) ([]Comment, error) {
	return svc.repo.QueryCommentsByLesson(ctx, lessonID)
}

func (svc *service) GetByID(ctx context.Context, id string) (Comment, error) {
	return svc.repo.GetCommentByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, orig Comment, uc UpdateComment) (Comment, error) {
	cmt := orig
	cmt.Content = uc.Content
	cmt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateComment(ctx, cmt)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCommentsByID(ctx, ids...)
}
