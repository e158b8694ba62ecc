package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kymanga/darasa/core/enrollment"
	"github.com/kymanga/darasa/core/user"
)

func decodeEnrollment(t *testing.T, rec *httptest.ResponseRecorder) enrollment.Enrollment {
	t.Helper()
	var enr enrollment.Enrollment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
	return enr
}

func decodeProgress(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var res struct {
		Progress int `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Progress
}

func Test_enrollment_enroll(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "awesomestudent", user.RoleStudent)
	token := env.getToken(t, student)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Go for Gophers")

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll")
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/b5343e21-4b6c-4969-9cbc-91c4f9e80daa/enroll", token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNotFound, rec)
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		enr := decodeEnrollment(t, rec)
		assert.Equal(t, student.ID, enr.StudentID)
		assert.Equal(t, crs.ID, enr.CourseID)
		assert.Empty(t, enr.CompletedLessonIDs)
		assert.Equal(t, 0, enr.Progress)
	})

	t.Run("duplicate enrollment is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusBadRequest, rec)
	})
}

func Test_enrollment_progress(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "awesomestudent", user.RoleStudent)
	token := env.getToken(t, student)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)

	progressPath := func(courseID string) string { return "/v1/courses/" + courseID + "/progress" }

	t.Run("not enrolled", func(t *testing.T) {
		crs := env.createCourse(t, author.ID, "Lonely Course")
		req, rec := newAuthRequest(http.MethodGet, progressPath(crs.ID), token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNotFound, rec)
	})

	t.Run("course without lessons reports zero", func(t *testing.T) {
		crs := env.createCourse(t, author.ID, "Empty Course")
		env.enroll(t, student.ID, crs.ID)

		req, rec := newAuthRequest(http.MethodGet, progressPath(crs.ID), token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)
		assert.Equal(t, 0, decodeProgress(t, rec))
	})

	t.Run("progress follows completions", func(t *testing.T) {
		crs := env.createCourse(t, author.ID, "Four Lessons")
		lessons := make([]string, 4)
		for i := range lessons {
			lessons[i] = env.createLesson(t, crs.ID, fmt.Sprintf("Lesson %d", i+1)).ID
		}
		env.enroll(t, student.ID, crs.ID)

		// 2 of 4 -> 50
		for _, lid := range lessons[:2] {
			req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/lessons/"+lid+"/complete", token)
			env.app.ServeHTTP(rec, req)
			checkCode(t, http.StatusOK, rec)
		}
		req, rec := newAuthRequest(http.MethodGet, progressPath(crs.ID), token)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, 50, decodeProgress(t, rec))

		// undo one -> 25
		req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+crs.ID+"/lessons/"+lessons[0]+"/complete", token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)
		assert.Equal(t, 25, decodeEnrollment(t, rec).Progress)
	})

	t.Run("two of three rounds to 67", func(t *testing.T) {
		crs := env.createCourse(t, author.ID, "Three Lessons")
		lessons := make([]string, 3)
		for i := range lessons {
			lessons[i] = env.createLesson(t, crs.ID, fmt.Sprintf("Lesson %d", i+1)).ID
		}
		env.enroll(t, student.ID, crs.ID)

		for _, lid := range lessons[:2] {
			req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/lessons/"+lid+"/complete", token)
			env.app.ServeHTTP(rec, req)
			checkCode(t, http.StatusOK, rec)
		}
		req, rec := newAuthRequest(http.MethodGet, progressPath(crs.ID), token)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, 67, decodeProgress(t, rec))
	})
}

func Test_enrollment_completeLesson(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "awesomestudent", user.RoleStudent)
	token := env.getToken(t, student)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Go for Gophers")
	l1 := env.createLesson(t, crs.ID, "Hello World")
	env.createLesson(t, crs.ID, "Packages")
	env.enroll(t, student.ID, crs.ID)

	completePath := "/v1/courses/" + crs.ID + "/lessons/" + l1.ID + "/complete"

	t.Run("marks lesson", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, completePath, token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		enr := decodeEnrollment(t, rec)
		assert.Equal(t, []string{l1.ID}, enr.CompletedLessonIDs)
		assert.Equal(t, 50, enr.Progress)
	})

	t.Run("repeat completion does not change anything", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, completePath, token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		enr := decodeEnrollment(t, rec)
		assert.Equal(t, []string{l1.ID}, enr.CompletedLessonIDs)
		assert.Equal(t, 50, enr.Progress)
	})

	t.Run("undo for never-completed lesson is a no-op", func(t *testing.T) {
		other := env.createLesson(t, crs.ID, "Interfaces")
		req, rec := newAuthRequest(http.MethodDelete, "/v1/courses/"+crs.ID+"/lessons/"+other.ID+"/complete", token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		enr := decodeEnrollment(t, rec)
		assert.Equal(t, []string{l1.ID}, enr.CompletedLessonIDs)
		assert.Equal(t, 33, enr.Progress) // 1 of 3 now
	})

	t.Run("foreign lesson accepted by default", func(t *testing.T) {
		otherCrs := env.createCourse(t, author.ID, "Another Course")
		foreign := env.createLesson(t, otherCrs.ID, "Foreign Lesson")

		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/lessons/"+foreign.ID+"/complete", token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)
	})
}

func Test_enrollment_completeLesson_enforcedMatch(t *testing.T) {
	env := setup(t)
	env.conf.Enrollment.EnforceLessonCourseMatch = true

	student := env.createUser(t, "awesomestudent", user.RoleStudent)
	token := env.getToken(t, student)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Strict Course")
	env.createLesson(t, crs.ID, "Lesson 1")
	otherCrs := env.createCourse(t, author.ID, "Other Course")
	foreign := env.createLesson(t, otherCrs.ID, "Foreign Lesson")
	env.enroll(t, student.ID, crs.ID)

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/lessons/"+foreign.ID+"/complete", token)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)
}

func Test_enrollment_completeCourse(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "awesomestudent", user.RoleStudent)
	token := env.getToken(t, student)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Go for Gophers")
	for i := 0; i < 3; i++ {
		env.createLesson(t, crs.ID, fmt.Sprintf("Lesson %d", i+1))
	}
	env.enroll(t, student.ID, crs.ID)

	completePath := "/v1/courses/" + crs.ID + "/complete"

	t.Run("marks all lessons", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, completePath, token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		enr := decodeEnrollment(t, rec)
		assert.Len(t, enr.CompletedLessonIDs, 3)
		assert.Equal(t, 100, enr.Progress)
	})

	t.Run("idempotent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, completePath, token)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		enr := decodeEnrollment(t, rec)
		assert.Len(t, enr.CompletedLessonIDs, 3)
		assert.Equal(t, 100, enr.Progress)
	})
}

func Test_enrollment_countStudents(t *testing.T) {
	env := setup(t)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Popular Course")

	countPath := "/v1/courses/" + crs.ID + "/students/count"

	t.Run("public and zero initially", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, countPath)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"count":0}`)}, rec)
	})

	t.Run("counts enrollments", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			usr := env.createUser(t, fmt.Sprintf("student%d", i), user.RoleStudent)
			env.enroll(t, usr.ID, crs.ID)
		}
		req, rec := newRequest(http.MethodGet, countPath)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"count":3}`)}, rec)
	})

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/b5343e21-4b6c-4969-9cbc-91c4f9e80daa/students/count")
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNotFound, rec)
	})
}
