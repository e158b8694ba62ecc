package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/kymanga/darasa/apps/api/echo"
	"github.com/kymanga/darasa/core"
	"github.com/kymanga/darasa/core/comment"
	"github.com/kymanga/darasa/core/course"
	"github.com/kymanga/darasa/core/enrollment"
	"github.com/kymanga/darasa/core/lesson"
	"github.com/kymanga/darasa/core/user"
	appfs "github.com/kymanga/darasa/fs"
	emailsvc "github.com/kymanga/darasa/services/email"
	inmemdb "github.com/kymanga/darasa/storage/database/inmem"
	testutil "github.com/kymanga/darasa/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app  Server
	conf *core.Config

	usrRepo    user.Repository
	usrSvc     user.Service
	courseSvc  course.Service
	lessonSvc  lesson.Service
	enrollSvc  enrollment.Service
	commentSvc comment.Service
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.Logger{T: t}

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)

	// set up services
	mailer := core.NewMailer(conf, appfs.FS, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, mailer)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	courseSvc := course.NewService(inmemdb.NewCourseRepository(db))
	lessonSvc := lesson.NewService(inmemdb.NewLessonRepository(db), courseSvc)
	enrollSvc := enrollment.NewService(inmemdb.NewEnrollmentRepository(db), courseSvc, lessonSvc, conf)
	commentSvc := comment.NewService(inmemdb.NewCommentRepository(db), lessonSvc)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		LessonSvc:      lessonSvc,
		EnrollmentSvc:  enrollSvc,
		CommentSvc:     commentSvc,
		DisableReqLogs: true,
	})

	return &env{
		app:        app,
		conf:       conf,
		usrRepo:    usrRepo,
		usrSvc:     usrSvc,
		courseSvc:  courseSvc,
		lessonSvc:  lessonSvc,
		enrollSvc:  enrollSvc,
		commentSvc: commentSvc,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// seeding helpers

func (env *env) createUser(t *testing.T, uname string, role user.Role) user.User {
	t.Helper()
	return testutil.CreateUser(t, env.usrRepo, "John", "Doe", uname, uname+"@test.cd", "PassW0rd!", role, true)
}

func (env *env) createCourse(t *testing.T, authorID, title string) course.Course {
	t.Helper()
	crs, err := env.courseSvc.Create(context.Background(), authorID, course.NewCourse{
		Title:    title,
		Image:    "https://cdn.test.cd/img.png",
		Category: "programming",
		Level:    course.LevelBeginner,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func (env *env) createLesson(t *testing.T, courseID, title string) lesson.Lesson {
	t.Helper()
	lsn, err := env.lessonSvc.Create(context.Background(), courseID, lesson.NewLesson{Title: title})
	if err != nil {
		t.Fatalf("createLesson() failed: %v", err)
	}
	return lsn
}

func (env *env) enroll(t *testing.T, studentID, courseID string) enrollment.Enrollment {
	t.Helper()
	enr, err := env.enrollSvc.Enroll(context.Background(), studentID, courseID)
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	return enr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (env *env) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(env.conf, usr)
	token, err := GenerateToken(env.conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func checkCode(t *testing.T, wantCode int, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
}
