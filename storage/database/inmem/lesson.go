package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kymanga/darasa/core/lesson"
)

type lessonRepository struct {
	db       *lessonTable
	comments *commentTable
}

var _ lesson.Repository = (*lessonRepository)(nil)

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db.lesson, comments: db.comment}
}

func (repo *lessonRepository) queryByCourse(courseID string) []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0)
	for _, lsn := range repo.db.table {
		if lsn.CourseID == courseID {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if lsn.Order == 0 {
		max := 0
		for _, l := range repo.db.table {
			if l.CourseID == lsn.CourseID && l.Order > max {
				max = l.Order
			}
		}
		lsn.Order = max + 1
	}
	lsn.ID = uuid.New().String()
	repo.db.table[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *lessonRepository) QueryLessonsByCourse(ctx context.Context, courseID string) ([]lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.queryByCourse(courseID), nil
}

func (repo *lessonRepository) GetLessonByID(ctx context.Context, id string) (lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lsn, ok := repo.db.table[id]; ok {
		return *lsn, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) CountLessonsByCourse(ctx context.Context, courseID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	count := 0
	for _, lsn := range repo.db.table {
		if lsn.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (repo *lessonRepository) ListLessonIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := repo.queryByCourse(courseID)
	ids := make([]string, 0, len(lessons))
	for _, lsn := range lessons {
		ids = append(ids, lsn.ID)
	}
	return ids, nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[lsn.ID]; !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	repo.db.table[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *lessonRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.comments.mutex.Lock()
	defer repo.comments.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
		for cid, cmt := range repo.comments.table {
			if cmt.LessonID == id {
				delete(repo.comments.table, cid)
			}
		}
	}
	return nil
}
