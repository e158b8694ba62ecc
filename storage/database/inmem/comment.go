package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kymanga/darasa/core/comment"
)

type commentRepository struct {
	db *commentTable
}

var _ comment.Repository = (*commentRepository)(nil)

func NewCommentRepository(db *DB) *commentRepository {
	return &commentRepository{db: db.comment}
}

func (repo *commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cmt.ID = uuid.New().String()
	repo.db.table[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *commentRepository) QueryCommentsByLesson(ctx context.Context, lessonID string) ([]comment.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	comments := make([]comment.Comment, 0)
	for _, cmt := range repo.db.table {
		if cmt.LessonID == lessonID {
			comments = append(comments, *cmt)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (repo *commentRepository) GetCommentByID(ctx context.Context, id string) (comment.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cmt, ok := repo.db.table[id]; ok {
		return *cmt, nil
	}
	return comment.Comment{}, comment.ErrNotFound
}

func (repo *commentRepository) UpdateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[cmt.ID]; !ok {
		return comment.Comment{}, comment.ErrNotFound
	}
	repo.db.table[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *commentRepository) DeleteCommentsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
