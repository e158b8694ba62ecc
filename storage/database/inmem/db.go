// Package inmemdb provides map-backed repositories for tests.
package inmemdb

import (
	"sync"

	"github.com/kymanga/darasa/core/comment"
	"github.com/kymanga/darasa/core/course"
	"github.com/kymanga/darasa/core/enrollment"
	"github.com/kymanga/darasa/core/lesson"
	"github.com/kymanga/darasa/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}
	courseTable struct {
		mutex sync.RWMutex
		table map[string]*course.Course
		tags  map[string]*course.Tag // by name
	}
	lessonTable struct {
		mutex sync.RWMutex
		table map[string]*lesson.Lesson
	}
	enrollmentTable struct {
		mutex sync.RWMutex
		table map[string]*enrollment.Enrollment
	}
	commentTable struct {
		mutex sync.RWMutex
		table map[string]*comment.Comment
	}

	DB struct {
		user       *userTable
		course     *courseTable
		lesson     *lessonTable
		enrollment *enrollmentTable
		comment    *commentTable
	}
)

func NewDB() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course), tags: make(map[string]*course.Tag)},
		lesson:     &lessonTable{table: make(map[string]*lesson.Lesson)},
		enrollment: &enrollmentTable{table: make(map[string]*enrollment.Enrollment)},
		comment:    &commentTable{table: make(map[string]*comment.Comment)},
	}
}
