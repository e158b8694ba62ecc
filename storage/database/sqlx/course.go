package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core"
	"github.com/kymanga/darasa/core/course"
)

type courseRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	Image       string    `db:"image"`
	Category    string    `db:"category"`
	Level       string    `db:"level"`
	Published   bool      `db:"published"`
	AuthorID    string    `db:"author_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row *courseRow) load(crs course.Course) {
	row.ID = crs.ID
	row.Title = crs.Title
	row.Slug = crs.Slug
	row.Description = crs.Description
	row.Price = crs.Price
	row.Image = crs.Image
	row.Category = crs.Category
	row.Level = string(crs.Level)
	row.Published = crs.Published
	row.AuthorID = crs.AuthorID
	row.CreatedAt = crs.CreatedAt
	row.UpdatedAt = crs.UpdatedAt
}

func (row *courseRow) unload() course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Slug:        row.Slug,
		Description: row.Description,
		Price:       row.Price,
		Image:       row.Image,
		Category:    row.Category,
		Level:       course.Level(row.Level),
		Published:   row.Published,
		AuthorID:    row.AuthorID,
		Tags:        []course.Tag{},
		Favorites:   []string{},
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	var row courseRow
	row.load(crs)
	q := `INSERT INTO course (id, title, slug, description, price, image, category, level, published, author_id, created_at, updated_at)
		VALUES (:id, :title, :slug, :description, :price, :image, :category, :level, :published, :author_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, q, &row); err != nil {
		if isUniqueViolation(err) { // slug
			return course.Course{}, course.ErrDuplicateTitle
		}
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	if err = setCourseTags(ctx, tx, crs.ID, crs.Tags); err != nil {
		return course.Course{}, err
	}

	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing tx")
	}
	return crs, nil
}

func setCourseTags(ctx context.Context, tx *sqlx.Tx, courseID string, tags []course.Tag) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_tag WHERE course_id = $1`, courseID); err != nil {
		return errors.Wrap(err, "clearing course tags")
	}
	for _, tag := range tags {
		q := `INSERT INTO course_tag (course_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, q, courseID, tag.ID); err != nil {
			return errors.Wrap(err, "tagging course")
		}
	}
	return nil
}

func (repo *courseRepository) QueryCourses(
	ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, page core.Pagination,
) ([]course.Course, int, error) {
	where := []string{"TRUE"}
	var args []interface{}

	if filter != nil {
		if filter.Category != "" {
			where = append(where, "category = ?")
			args = append(args, filter.Category)
		}
		if filter.Level != "" {
			where = append(where, "level = ?")
			args = append(args, string(filter.Level))
		}
		if filter.PriceMin != nil {
			where = append(where, "price >= ?")
			args = append(args, *filter.PriceMin)
		}
		if filter.PriceMax != nil {
			where = append(where, "price <= ?")
			args = append(args, *filter.PriceMax)
		}
		if len(filter.Tags) > 0 {
			where = append(where, `id IN (
				SELECT ct.course_id FROM course_tag ct JOIN tag t ON t.id = ct.tag_id WHERE t.name IN (?))`)
			args = append(args, filter.Tags)
		}
		if filter.AuthorID != "" {
			where = append(where, "author_id = ?")
			args = append(args, filter.AuthorID)
		}
		if filter.Published != nil {
			where = append(where, "published = ?")
			args = append(args, *filter.Published)
		}
		if filter.Search != "" {
			where = append(where, "title ILIKE ?")
			args = append(args, "%"+filter.Search+"%")
		}
		if filter.FavoritesOf != "" {
			where = append(where, "id IN (SELECT course_id FROM course_favorite WHERE user_id = ?)")
			args = append(args, filter.FavoritesOf)
		}
	}
	cond := strings.Join(where, " AND ")

	countQ, countArgs, err := sqlx.In("SELECT COUNT(*) FROM course WHERE "+cond, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "building count query")
	}
	var total int
	if err = repo.db.GetContext(ctx, &total, repo.db.Rebind(countQ), countArgs...); err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	orderBy := "created_at DESC"
	if len(ordering) > 0 {
		clauses := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			clauses = append(clauses, ord.String())
		}
		orderBy = strings.Join(clauses, ", ")
	}
	q := fmt.Sprintf("SELECT * FROM course WHERE %s ORDER BY %s", cond, orderBy)
	if page.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit, page.Offset())
	}
	q, qArgs, err := sqlx.In(q, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}

	var rows []courseRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), qArgs...); err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.unload())
	}
	if err = repo.loadRelated(ctx, courses); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// loadRelated fills Tags and Favorites for the given courses in two queries.
func (repo *courseRepository) loadRelated(ctx context.Context, courses []course.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]string, 0, len(courses))
	byID := make(map[string]*course.Course, len(courses))
	for i := range courses {
		ids = append(ids, courses[i].ID)
		byID[courses[i].ID] = &courses[i]
	}

	tagQ, tagArgs, err := sqlx.In(`
		SELECT ct.course_id, t.id, t.name FROM course_tag ct JOIN tag t ON t.id = ct.tag_id
		WHERE ct.course_id IN (?) ORDER BY t.name`, ids)
	if err != nil {
		return errors.Wrap(err, "building tags query")
	}
	tagRows, err := repo.db.QueryContext(ctx, repo.db.Rebind(tagQ), tagArgs...)
	if err != nil {
		return errors.Wrap(err, "loading course tags")
	}
	defer func() { _ = tagRows.Close() }()
	for tagRows.Next() {
		var courseID string
		var tag course.Tag
		if err = tagRows.Scan(&courseID, &tag.ID, &tag.Name); err != nil {
			return errors.Wrap(err, "scanning course tag")
		}
		if crs, ok := byID[courseID]; ok {
			crs.Tags = append(crs.Tags, tag)
		}
	}
	if err = tagRows.Err(); err != nil {
		return errors.Wrap(err, "loading course tags")
	}

	favQ, favArgs, err := sqlx.In(`SELECT course_id, user_id FROM course_favorite WHERE course_id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building favorites query")
	}
	favRows, err := repo.db.QueryContext(ctx, repo.db.Rebind(favQ), favArgs...)
	if err != nil {
		return errors.Wrap(err, "loading course favorites")
	}
	defer func() { _ = favRows.Close() }()
	for favRows.Next() {
		var courseID, userID string
		if err = favRows.Scan(&courseID, &userID); err != nil {
			return errors.Wrap(err, "scanning course favorite")
		}
		if crs, ok := byID[courseID]; ok {
			crs.Favorites = append(crs.Favorites, userID)
		}
	}
	return errors.Wrap(favRows.Err(), "loading course favorites")
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	courses := []course.Course{row.unload()}
	if err := repo.loadRelated(ctx, courses); err != nil {
		return course.Course{}, err
	}
	return courses[0], nil
}

func (repo *courseRepository) CourseExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM course WHERE id = $1)`
	if err := repo.db.GetContext(ctx, &exists, q, id); err != nil {
		return false, errors.Wrap(err, "checking course")
	}
	return exists, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	var row courseRow
	row.load(crs)
	q := `UPDATE course SET title = :title, slug = :slug, description = :description, price = :price,
		image = :image, category = :category, level = :level, published = :published, updated_at = :updated_at
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, q, &row)
	if err != nil {
		if isUniqueViolation(err) { // slug
			return course.Course{}, course.ErrDuplicateTitle
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	if err = setCourseTags(ctx, tx, crs.ID, crs.Tags); err != nil {
		return course.Course{}, err
	}

	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing tx")
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM course WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

// ToggleFavorite removes the favorite if present, adds it otherwise, and
// returns the resulting state along with the course's favorite count. The
// whole flip runs in one transaction.
func (repo *courseRepository) ToggleFavorite(ctx context.Context, courseID, userID string) (bool, int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM course_favorite WHERE course_id = $1 AND user_id = $2`, courseID, userID)
	if err != nil {
		return false, 0, errors.Wrap(err, "removing favorite")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, errors.Wrap(err, "removing favorite")
	}

	isFavorite := false
	if n == 0 {
		q := `INSERT INTO course_favorite (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err = tx.ExecContext(ctx, q, courseID, userID); err != nil {
			return false, 0, errors.Wrap(err, "adding favorite")
		}
		isFavorite = true
	}

	var count int
	if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM course_favorite WHERE course_id = $1`, courseID); err != nil {
		return false, 0, errors.Wrap(err, "counting favorites")
	}

	if err = tx.Commit(); err != nil {
		return false, 0, errors.Wrap(err, "committing tx")
	}
	return isFavorite, count, nil
}

func (repo *courseRepository) UpsertTags(ctx context.Context, names []string) ([]course.Tag, error) {
	if len(names) == 0 {
		return []course.Tag{}, nil
	}

	for _, name := range names {
		q := `INSERT INTO tag (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
		if _, err := repo.db.ExecContext(ctx, q, uuid.New().String(), name); err != nil {
			return nil, errors.Wrap(err, "upserting tag")
		}
	}

	var tags []course.Tag
	rows, err := repo.db.QueryContext(ctx, `SELECT id, name FROM tag WHERE name = ANY($1) ORDER BY name`, pq.Array(names))
	if err != nil {
		return nil, errors.Wrap(err, "loading tags")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var tag course.Tag
		if err = rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, errors.Wrap(err, "scanning tag")
		}
		tags = append(tags, tag)
	}
	return tags, errors.Wrap(rows.Err(), "loading tags")
}
