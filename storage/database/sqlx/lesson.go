package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core/lesson"
)

type lessonRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	VideoURL  string    `db:"video_url"`
	CourseID  string    `db:"course_id"`
	Order     int       `db:"order"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row *lessonRow) unload() lesson.Lesson {
	return lesson.Lesson{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		VideoURL:  row.VideoURL,
		CourseID:  row.CourseID,
		Order:     row.Order,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type lessonRepository struct {
	db *sqlx.DB
}

var _ lesson.Repository = (*lessonRepository)(nil)

func NewLessonRepository(db *sqlx.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

// CreateLesson inserts lsn; a zero Order gets max(order)+1 within the course,
// assigned in the INSERT itself so concurrent appends cannot collide on a
// stale max.
func (repo *lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	lsn.ID = uuid.New().String()

	var row lessonRow
	q := `INSERT INTO lesson (id, title, content, video_url, course_id, "order", created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5,
			CASE WHEN $6 > 0 THEN $6
				ELSE COALESCE((SELECT MAX("order") FROM lesson WHERE course_id = $5), 0) + 1 END,
			$7, $8)
		RETURNING *`
	err := repo.db.GetContext(ctx, &row, q,
		lsn.ID, lsn.Title, lsn.Content, lsn.VideoURL, lsn.CourseID, lsn.Order, lsn.CreatedAt, lsn.UpdatedAt)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return row.unload(), nil
}

func (repo *lessonRepository) QueryLessonsByCourse(ctx context.Context, courseID string) ([]lesson.Lesson, error) {
	var rows []lessonRow
	q := `SELECT * FROM lesson WHERE course_id = $1 ORDER BY "order"`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.unload())
	}
	return lessons, nil
}

func (repo *lessonRepository) GetLessonByID(ctx context.Context, id string) (lesson.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return lesson.Lesson{}, lesson.ErrNotFound
		}
		return lesson.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.unload(), nil
}

func (repo *lessonRepository) CountLessonsByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM lesson WHERE course_id = $1`, courseID); err != nil {
		return 0, errors.Wrap(err, "counting lessons")
	}
	return count, nil
}

func (repo *lessonRepository) ListLessonIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	ids := make([]string, 0)
	q := `SELECT id FROM lesson WHERE course_id = $1 ORDER BY "order"`
	if err := repo.db.SelectContext(ctx, &ids, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing lesson ids")
	}
	return ids, nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	q := `UPDATE lesson SET title = $2, content = $3, video_url = $4, "order" = $5, updated_at = $6 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, lsn.ID, lsn.Title, lsn.Content, lsn.VideoURL, lsn.Order, lsn.UpdatedAt)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return lsn, nil
}

func (repo *lessonRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	// comments go with their lesson via ON DELETE CASCADE
	q, args, err := sqlx.In(`DELETE FROM lesson WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	return nil
}
