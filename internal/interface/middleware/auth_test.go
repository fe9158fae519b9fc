package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-auth-guard/internal/application"
	"github.com/oksasatya/go-auth-guard/internal/domain/entity"
	"github.com/oksasatya/go-auth-guard/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-guard/internal/observability"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
)

const testSeed = "guard-seed"

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	svc     *application.Service
	repo    *memory.UserRepository
	jwt     *helpers.JWTManager
	metrics *observability.Metrics
	engine  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	repo := memory.NewUserRepository()
	jwt := helpers.NewJWTManager(testSeed, time.Hour)
	svc := application.NewService(repo, helpers.NewBcryptHasher(bcrypt.MinCost), jwt, logger, 18)
	metrics := observability.NewMetrics("test")

	r := gin.New()
	r.GET("/private", Auth(svc, jwt, logger, metrics), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		fromCtx, ok := UserFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "ctx_id": fromCtx.ID, "user_id": c.GetString("userID")})
	})
	return &fixture{svc: svc, repo: repo, jwt: jwt, metrics: metrics, engine: r}
}

func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	res, err := f.svc.Register(context.Background(), application.RegisterInput{
		Name: email, Email: email, Password: "secret1", Age: 30,
	})
	require.NoError(t, err)
	return res.Token
}

func (f *fixture) do(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"  Bearer abc  ", "abc"},
		{"", ""},
		{"Bearer", ""},
		{"Bearer ", ""},
		{"Basic abc", ""},
		{"bearer abc", ""},
		{"Bearer a b", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractBearerToken(tt.header), "header %q", tt.header)
	}
}

func TestAuth_AdmitsActiveUser(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "ann@example.com")

	rec := f.do("Bearer " + token)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, body["id"], body["ctx_id"])
	assert.Equal(t, body["id"], body["user_id"])
}

func TestAuth_Rejections(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "ann@example.com")

	inactive := f.register(t, "bob@example.com")
	claims, err := f.jwt.Verify(inactive)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetActive(context.Background(), claims.ID, false))

	unknown, _, err := f.jwt.Issue("00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	expired, _, err := helpers.NewJWTManager(testSeed, -time.Minute).Issue(claims.ID)
	require.NoError(t, err)
	foreign, _, err := helpers.NewJWTManager("other-seed", time.Hour).Issue(claims.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", ReasonTokenNotFound},
		{"wrong scheme", "Token " + token, ReasonTokenNotFound},
		{"trailing segment", "Bearer " + token + " extra", ReasonTokenNotFound},
		{"garbage token", "Bearer not.a.jwt", ReasonTokenInvalid},
		{"expired token", "Bearer " + expired, ReasonTokenInvalid},
		{"foreign seed", "Bearer " + foreign, ReasonTokenInvalid},
		{"unknown user", "Bearer " + unknown, ReasonUserNotFound},
		{"inactive user", "Bearer " + inactive, ReasonUserInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.want, message(t, rec))
		})
	}

	assert.Equal(t, 3.0, promtest.ToFloat64(f.metrics.GuardRejections.WithLabelValues(ReasonTokenNotFound)))
	assert.Equal(t, 3.0, promtest.ToFloat64(f.metrics.GuardRejections.WithLabelValues(ReasonTokenInvalid)))
}

type failingResolver struct{ err error }

func (r failingResolver) FindUserByID(context.Context, string) (*entity.PublicUser, error) {
	return nil, r.err
}

func TestAuthorize_LookupFailureIsTokenInvalid(t *testing.T) {
	jwt := helpers.NewJWTManager(testSeed, time.Hour)
	token, _, err := jwt.Issue("u-1")
	require.NoError(t, err)

	cause := errors.New("connection refused")
	_, err = Authorize(context.Background(), "Bearer "+token, jwt, failingResolver{err: cause})

	var ge *GuardError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ReasonTokenInvalid, ge.Reason)
	assert.ErrorIs(t, err, cause)
}

func TestAuthorize_VerifyFailureKeepsCause(t *testing.T) {
	jwt := helpers.NewJWTManager(testSeed, time.Hour)
	_, err := Authorize(context.Background(), "Bearer xyz", jwt, failingResolver{})
	assert.ErrorIs(t, err, helpers.ErrInvalidToken)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Body.String()
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, rec.Header().Get(RequestIDHeader))

	const given = "5f0c6f5e-3c55-4a57-9d31-2f0b6a1f7c11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, given)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Body.String())
}
