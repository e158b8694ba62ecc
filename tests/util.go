// Package testutil holds helpers shared by test suites across the repo.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kymanga/darasa/core"
	"github.com/kymanga/darasa/core/user"
)

// NewConfig returns a Config suitable for tests: in-process secrets, short
// deltas, no external services.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:        true,
		Env:             "TEST",
		Build:           "test",
		AppName:         "Darasa",
		SecretKey:       "poq5-wer)tyu$+32=ab&cdez8(t!f)#*x2(#gh4i^$jklm9nopq",
		FrontendBaseURL: "http://localhost:3000",

		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,

		Server: core.ServerConfig{
			Host:                      "localhost",
			Addr:                      ":0",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

// Logger is a no-op core.Logger; Fatal fails the test.
type Logger struct {
	T *testing.T
}

var _ core.Logger = (*Logger)(nil)

func (l Logger) Debug(msg string, args ...interface{}) {}
func (l Logger) Info(msg string, args ...interface{})  {}
func (l Logger) Warn(msg string, args ...interface{})  {}
func (l Logger) Error(msg string, args ...interface{}) {}
func (l Logger) Fatal(msg string, args ...interface{}) {
	if l.T != nil {
		l.T.Fatal(msg, args)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, lastName, uname, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FirstName: firstName,
		LastName:  lastName,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
