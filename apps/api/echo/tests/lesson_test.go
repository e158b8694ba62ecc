package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kymanga/darasa/core/comment"
	"github.com/kymanga/darasa/core/lesson"
	"github.com/kymanga/darasa/core/user"
)

func Test_lessonApi_create(t *testing.T) {
	env := setup(t)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	other := env.createUser(t, "otherteacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Go for Gophers")
	path := "/v1/courses/" + crs.ID + "/lessons"

	t.Run("only the course author may add lessons", func(t *testing.T) {
		body := marchallObj(t, lesson.NewLesson{Title: "Intruder Lesson"})
		req, rec := newAuthRequest(http.MethodPost, path, env.getToken(t, other), body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusForbidden, rec)
	})

	t.Run("orders are assigned in sequence", func(t *testing.T) {
		token := env.getToken(t, author)
		for i, title := range []string{"Hello World", "Packages"} {
			req, rec := newAuthRequest(http.MethodPost, path, token, marchallObj(t, lesson.NewLesson{Title: title}))
			env.app.ServeHTTP(rec, req)
			checkCode(t, http.StatusCreated, rec)

			var lsn lesson.Lesson
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lsn))
			assert.Equal(t, i+1, lsn.Order)
			assert.Equal(t, crs.ID, lsn.CourseID)
		}
	})

	t.Run("explicit order is kept", func(t *testing.T) {
		body := marchallObj(t, lesson.NewLesson{Title: "Bonus Lesson", Order: 10})
		req, rec := newAuthRequest(http.MethodPost, path, env.getToken(t, author), body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		var lsn lesson.Lesson
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lsn))
		assert.Equal(t, 10, lsn.Order)
	})
}

func Test_lessonApi_update(t *testing.T) {
	env := setup(t)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	other := env.createUser(t, "otherteacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Go for Gophers")
	lsn := env.createLesson(t, crs.ID, "Hello World")
	path := "/v1/lessons/" + lsn.ID

	t.Run("retrieve is public", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, path)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, lsn)}, rec)
	})

	t.Run("only the course author may update", func(t *testing.T) {
		body := marchallObj(t, lesson.UpdateLesson{Title: "Hijacked"})
		req, rec := newAuthRequest(http.MethodPut, path, env.getToken(t, other), body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusForbidden, rec)
	})

	t.Run("author updates", func(t *testing.T) {
		body := marchallObj(t, lesson.UpdateLesson{Title: "Hello Gophers"})
		req, rec := newAuthRequest(http.MethodPut, path, env.getToken(t, author), body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var updated lesson.Lesson
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Hello Gophers", updated.Title)
	})

	t.Run("author deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, env.getToken(t, author))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNoContent, rec)

		req, rec = newRequest(http.MethodGet, path)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNotFound, rec)
	})
}

func Test_lessonApi_comments(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "awesomestudent", user.RoleStudent)
	token := env.getToken(t, student)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Go for Gophers")
	lsn := env.createLesson(t, crs.ID, "Hello World")
	path := "/v1/lessons/" + lsn.ID + "/comments"

	t.Run("unknown lesson", func(t *testing.T) {
		body := marchallObj(t, comment.NewComment{Content: "Nice one!"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/b5343e21-4b6c-4969-9cbc-91c4f9e80daa/comments", token, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNotFound, rec)
	})

	t.Run("create and list", func(t *testing.T) {
		body := marchallObj(t, comment.NewComment{Content: "Nice one!"})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		var cmt comment.Comment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmt))
		assert.Equal(t, student.ID, cmt.AuthorID)
		assert.Equal(t, lsn.ID, cmt.LessonID)

		req, rec = newRequest(http.MethodGet, path)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var comments []comment.Comment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
		require.Len(t, comments, 1)
		assert.Equal(t, "Nice one!", comments[0].Content)
	})
}

func Test_commentApi_manage(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "awesomestudent", user.RoleStudent)
	other := env.createUser(t, "otherstudent", user.RoleStudent)
	admin := env.createUser(t, "awesomeadmin", user.RoleAdmin)
	author := env.createUser(t, "awesometeacher", user.RoleTeacher)
	crs := env.createCourse(t, author.ID, "Go for Gophers")
	lsn := env.createLesson(t, crs.ID, "Hello World")

	cmt, err := env.commentSvc.Create(context.Background(), lsn.ID, student.ID, comment.NewComment{Content: "First!"})
	require.NoError(t, err)
	path := "/v1/comments/" + cmt.ID

	t.Run("only the author may edit", func(t *testing.T) {
		body := marchallObj(t, comment.UpdateComment{Content: "Hijacked"})
		req, rec := newAuthRequest(http.MethodPut, path, env.getToken(t, other), body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusForbidden, rec)
	})

	t.Run("author edits", func(t *testing.T) {
		body := marchallObj(t, comment.UpdateComment{Content: "First! (edited)"})
		req, rec := newAuthRequest(http.MethodPut, path, env.getToken(t, student), body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var updated comment.Comment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "First! (edited)", updated.Content)
	})

	t.Run("admin deletes any comment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, env.getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNoContent, rec)
	})
}
