package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-auth-guard/internal/application"
	"github.com/oksasatya/go-auth-guard/internal/domain/entity"
	"github.com/oksasatya/go-auth-guard/internal/domain/repository"
	"github.com/oksasatya/go-auth-guard/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-guard/internal/interface/middleware"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
	"github.com/oksasatya/go-auth-guard/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    map[string]any    `json:"meta"`
	Error   map[string]string `json:"error"`
}

type authData struct {
	User  map[string]any `json:"user"`
	Token string         `json:"token"`
}

func newEngine(repo repository.UserRepository) *gin.Engine {
	logger, _ := test.NewNullLogger()
	jwt := helpers.NewJWTManager("handler-seed", time.Hour)
	svc := application.NewService(repo, helpers.NewBcryptHasher(bcrypt.MinCost), jwt, logger, 18)
	auth := NewAuthHandler(svc, logger)
	users := NewUserHandler(svc, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth", auth.Create)
	api.GET("/health", users.Health)

	guarded := api.Group("/")
	guarded.Use(middleware.Auth(svc, jwt, logger, nil))
	guarded.GET("/auth", auth.FindAll)
	guarded.GET("/auth/check-token", auth.CheckToken)
	guarded.GET("/users/search", users.Search)
	return r
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func register(t *testing.T, r *gin.Engine, name, email string, age int) authData {
	t.Helper()
	rec, env := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret1", "age": age,
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestRegister(t *testing.T) {
	r := newEngine(memory.NewUserRepository())

	data := register(t, r, "Ann", "ann@example.com", 18)
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, "ann@example.com", data.User["email"])
	assert.Equal(t, true, data.User["isActive"])
	assert.NotContains(t, data.User, "password")

	t.Run("underage", func(t *testing.T) {
		rec, env := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
			"name": "Kid", "email": "kid@example.com", "password": "secret1", "age": 17,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "must be at least 18 years old to register", env.Message)
	})

	t.Run("age zero is a policy violation", func(t *testing.T) {
		rec, _ := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
			"name": "Zero", "email": "zero@example.com", "password": "secret1", "age": 0,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec, env := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
			"name": "Other", "email": "ann@example.com", "password": "secret1", "age": 40,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ann@example.com already exists", env.Message)
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec, env := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
			"email": "nope", "password": "123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid payload", env.Message)
		assert.Equal(t, map[string]string{
			"name":     "is required",
			"email":    "must be a valid email",
			"password": "must be at least 6 characters long",
			"age":      "is required",
		}, env.Error)
	})
}

func TestLogin(t *testing.T) {
	r := newEngine(memory.NewUserRepository())
	register(t, r, "Ann", "ann@example.com", 30)

	tests := []struct {
		name     string
		email    string
		password string
		code     int
		message  string
	}{
		{"ok", "ann@example.com", "secret1", http.StatusOK, "login successful"},
		{"unknown email", "bob@example.com", "secret1", http.StatusUnauthorized, "Not valid credentials - email error"},
		{"wrong password", "ann@example.com", "wrong-pass", http.StatusUnauthorized, "Not valid credentials - password error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": tt.email, "password": tt.password})
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestCreate_NoAgeGateNoToken(t *testing.T) {
	r := newEngine(memory.NewUserRepository())

	rec, env := call(t, r, http.MethodPost, "/api/auth", "", gin.H{
		"name": "Ann", "email": "ann@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var u map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "Ann", u["name"])
	assert.NotContains(t, u, "token")
	assert.NotContains(t, u, "password")
}

func TestGuardedRoutes(t *testing.T) {
	r := newEngine(memory.NewUserRepository())
	ann := register(t, r, "Ann", "ann@example.com", 30)
	register(t, r, "Bob", "bob@example.com", 30)

	rec, env := call(t, r, http.MethodGet, "/api/auth", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, middleware.ReasonTokenNotFound, env.Message)

	rec, env = call(t, r, http.MethodGet, "/api/auth", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotContains(t, u, "password")
	}

	rec, env = call(t, r, http.MethodGet, "/api/auth/check-token", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, ann.User["id"], data.User["id"])
	assert.NotEmpty(t, data.Token)

	rec, env = call(t, r, http.MethodGet, "/api/users/search?q=ann", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), env.Meta["count"])

	rec, _ = call(t, r, http.MethodGet, "/api/users/search", ann.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type downRepo struct {
	*memory.UserRepository
}

func (downRepo) Ping(context.Context) error { return errors.New("dial tcp: refused") }

func (downRepo) FindAll(context.Context) ([]*entity.User, error) {
	return nil, errors.New("dial tcp: refused")
}

func TestHealth(t *testing.T) {
	rec, env := call(t, newEngine(memory.NewUserRepository()), http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = call(t, newEngine(downRepo{memory.NewUserRepository()}), http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "store unavailable", env.Message)
}

func TestInternalErrorsHideCause(t *testing.T) {
	r := newEngine(downRepo{memory.NewUserRepository()})
	ann := register(t, r, "Ann", "ann@example.com", 30)

	rec, env := call(t, r, http.MethodGet, "/api/auth", ann.Token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", env.Message)
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(application.KindDuplicate))
	assert.Equal(t, http.StatusUnauthorized, statusFor(application.KindPolicyViolation))
	assert.Equal(t, http.StatusUnauthorized, statusFor(application.KindUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, statusFor(application.KindInternal))
}
