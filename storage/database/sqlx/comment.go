package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core/comment"
)

type commentRow struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	LessonID  string    `db:"lesson_id"`
	AuthorID  string    `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row *commentRow) unload() comment.Comment {
	return comment.Comment{
		ID:        row.ID,
		Content:   row.Content,
		LessonID:  row.LessonID,
		AuthorID:  row.AuthorID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type commentRepository struct {
	db *sqlx.DB
}

var _ comment.Repository = (*commentRepository)(nil)

func NewCommentRepository(db *sqlx.DB) *commentRepository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	cmt.ID = uuid.New().String()

	q := `INSERT INTO comment (id, content, lesson_id, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, cmt.ID, cmt.Content, cmt.LessonID, cmt.AuthorID, cmt.CreatedAt, cmt.UpdatedAt)
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "creating comment")
	}
	return cmt, nil
}

func (repo *commentRepository) QueryCommentsByLesson(ctx context.Context, lessonID string) ([]comment.Comment, error) {
	var rows []commentRow
	q := `SELECT * FROM comment WHERE lesson_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, lessonID); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]comment.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.unload())
	}
	return comments, nil
}

func (repo *commentRepository) GetCommentByID(ctx context.Context, id string) (comment.Comment, error) {
	var row commentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM comment WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, errors.Wrap(err, "getting comment")
	}
	return row.unload(), nil
}

func (repo *commentRepository) UpdateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	q := `UPDATE comment SET content = $2, updated_at = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, cmt.ID, cmt.Content, cmt.UpdatedAt)
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "updating comment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return comment.Comment{}, comment.ErrNotFound
	}
	return cmt, nil
}

func (repo *commentRepository) DeleteCommentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM comment WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	return nil
}
