package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/domain/apperr"
	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type fakeLifecycle struct {
	err        error
	registered application.RegisterInput
	token      string
	email      string
	password   string
	login      *application.LoginResult
}

func (f *fakeLifecycle) Register(_ context.Context, in application.RegisterInput) (string, error) {
	f.registered = in
	return application.MsgRegistered, f.err
}

func (f *fakeLifecycle) Activate(_ context.Context, raw string) (string, error) {
	f.token = raw
	return application.MsgActivated, f.err
}

func (f *fakeLifecycle) ResendActivation(_ context.Context, email string) (string, error) {
	f.email = email
	return application.MsgResendAccepted, f.err
}

func (f *fakeLifecycle) Login(_ context.Context, email, password string) (*application.LoginResult, error) {
	f.email, f.password = email, password
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

func (f *fakeLifecycle) RequestPasswordReset(_ context.Context, email string) (string, error) {
	f.email = email
	return application.MsgResetRequested, f.err
}

func (f *fakeLifecycle) ResetPassword(_ context.Context, raw, pw string) (string, error) {
	f.token, f.password = raw, pw
	return application.MsgPasswordReset, f.err
}

type fakeSearcher struct{ docs []search.AccountDoc }

func (f *fakeSearcher) Search(_ context.Context, q string, size int) ([]search.AccountDoc, error) {
	return f.docs, nil
}

func newRouter(svc AccountLifecycle, dir AccountSearcher) *gin.Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewAccountHandler(svc, dir, logger, "", false)
	r := gin.New()
	g := r.Group("/users")
	g.POST("", h.Register)
	g.POST("/login", h.Login)
	g.GET("/activate/:id", h.Activate)
	g.POST("/activation/resend", h.ResendActivation)
	g.POST("/password/forgot", h.ForgotPassword)
	g.POST("/password/reset", h.ResetPassword)
	g.GET("/search", h.Search)
	return r
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func call(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func validRegistration() map[string]string {
	return map[string]string{
		"username":        "alice",
		"email":           "alice@example.com",
		"password":        "password1",
		"confirmPassword": "password1",
		"role":            "employee",
	}
}

func TestRegister_Created(t *testing.T) {
	svc := &fakeLifecycle{}
	rec, env := call(t, newRouter(svc, nil), http.MethodPost, "/users", validRegistration())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, application.MsgRegistered, env.Message)
	assert.Equal(t, entity.RoleEmployee, svc.registered.Role)
	assert.Equal(t, "alice@example.com", svc.registered.Email)
}

func TestRegister_ValidationDetails(t *testing.T) {
	body := validRegistration()
	body["role"] = "admin"
	body["confirmPassword"] = "other"
	body["username"] = "al"

	rec, env := call(t, newRouter(&fakeLifecycle{}, nil), http.MethodPost, "/users", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &details))
	assert.Equal(t, "must be one of: employee, employer", details["role"])
	assert.Equal(t, "must match password", details["confirmPassword"])
	assert.Equal(t, "must be between 3 and 30 characters long", details["username"])
}

func TestRegister_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newRouter(&fakeLifecycle{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid json")
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Conflict("exists"), http.StatusConflict},
		{apperr.Unauthorized("bad"), http.StatusUnauthorized},
		{apperr.Forbidden("pending"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Expired("late"), http.StatusGone},
		{apperr.RateLimited("slow"), http.StatusTooManyRequests},
		{apperr.Validation("bad role"), http.StatusUnprocessableEntity},
		{apperr.Internal(errors.New("db down")), http.StatusInternalServerError},
		{errors.New("foreign"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(apperr.KindOf(tc.err)), func(t *testing.T) {
			rec, env := call(t, newRouter(&fakeLifecycle{err: tc.err}, nil), http.MethodGet, "/users/activate/tok", nil)
			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, apperr.MessageOf(tc.err), env.Message)
			assert.NotContains(t, rec.Body.String(), "db down")
		})
	}
}

func TestActivate_PassesPathToken(t *testing.T) {
	svc := &fakeLifecycle{}
	rec, env := call(t, newRouter(svc, nil), http.MethodGet, "/users/activate/raw-token", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.MsgActivated, env.Message)
	assert.Equal(t, "raw-token", svc.token)
}

func TestLogin_SetsCookieAndReturnsToken(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	svc := &fakeLifecycle{login: &application.LoginResult{
		Token:     "signed",
		ExpiresAt: exp,
		Account:   &entity.Account{ID: "a1", Username: "alice", Email: "alice@example.com", Role: entity.RoleEmployer, PasswordDigest: "$2a$secret", IsActivated: true},
	}}
	rec, env := call(t, newRouter(svc, nil), http.MethodPost, "/users/login", map[string]string{"email": "alice@example.com", "password": "pw"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), helpers.AccessTokenCookie+"=signed")
	assert.Contains(t, string(env.Data), `"token":"signed"`)
	assert.Contains(t, string(env.Data), `"role":"employer"`)
	assert.NotContains(t, rec.Body.String(), "$2a$secret")
}

func TestResendAndForgot(t *testing.T) {
	svc := &fakeLifecycle{}
	r := newRouter(svc, nil)

	rec, env := call(t, r, http.MethodPost, "/users/activation/resend", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.MsgResendAccepted, env.Message)

	rec, env = call(t, r, http.MethodPost, "/users/password/forgot", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.MsgResetRequested, env.Message)
	assert.Equal(t, "bob@example.com", svc.email)
}

func TestResetPassword_RequiresStrongMatchingPassword(t *testing.T) {
	svc := &fakeLifecycle{}
	r := newRouter(svc, nil)

	rec, _ := call(t, r, http.MethodPost, "/users/password/reset", map[string]string{"token": "t", "password": "weakpass", "confirmPassword": "weakpass"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env := call(t, r, http.MethodPost, "/users/password/reset", map[string]string{"token": "t", "password": "Str0ng!pass", "confirmPassword": "Str0ng!pass"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.MsgPasswordReset, env.Message)
	assert.Equal(t, "Str0ng!pass", svc.password)
}

func TestPasswordOverBcryptLimitRejected(t *testing.T) {
	svc := &fakeLifecycle{}
	r := newRouter(svc, nil)
	long := "Aa1!" + strings.Repeat("a", 69)

	body := validRegistration()
	body["password"], body["confirmPassword"] = long, long
	rec, env := call(t, r, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &details))
	assert.Contains(t, details["password"], "72")
	assert.Empty(t, svc.registered.Email)

	rec, _ = call(t, r, http.MethodPost, "/users/password/reset", map[string]string{"token": "t", "password": long, "confirmPassword": long})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, svc.password)
}

func TestSearch(t *testing.T) {
	dir := &fakeSearcher{docs: []search.AccountDoc{{ID: "a1", Username: "alice"}}}
	rec, env := call(t, newRouter(&fakeLifecycle{}, dir), http.MethodGet, "/users/search?q=ali", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"alice"`)

	rec, _ = call(t, newRouter(&fakeLifecycle{}, dir), http.MethodGet, "/users/search", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = call(t, newRouter(&fakeLifecycle{}, nil), http.MethodGet, "/users/search?q=x", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
