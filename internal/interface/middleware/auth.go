package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-guard/internal/application"
	"github.com/oksasatya/go-auth-guard/internal/domain/entity"
	"github.com/oksasatya/go-auth-guard/internal/observability"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
	"github.com/oksasatya/go-auth-guard/pkg/response"
)

// Rejection reasons rendered to the client.
const (
	ReasonTokenNotFound = "Token not found"
	ReasonTokenInvalid  = "Token not valid"
	ReasonUserNotFound  = "User not found"
	ReasonUserInactive  = "User isn't active"
)

const (
	ctxUserKey   = "user"
	ctxUserIDKey = "userID"
)

type userCtxKey struct{}

type UserResolver interface {
	FindUserByID(ctx context.Context, id string) (*entity.PublicUser, error)
}

type TokenVerifier interface {
	Verify(token string) (*helpers.Claims, error)
}

// GuardError is a rejection by the access guard. Only Reason is rendered;
// Cause is kept for logs.
type GuardError struct {
	Reason string
	Cause  error
}

func (e *GuardError) Error() string {
	if e.Cause != nil {
		return e.Reason + ": " + e.Cause.Error()
	}
	return e.Reason
}

func (e *GuardError) Unwrap() error { return e.Cause }

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>"
// header value, or "" when the header is missing or malformed.
func ExtractBearerToken(header string) string {
	parts := strings.Split(strings.TrimSpace(header), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Authorize runs the guard steps in order: token presence, signature and
// expiry, user lookup, active flag.
func Authorize(ctx context.Context, header string, tokens TokenVerifier, users UserResolver) (*entity.PublicUser, error) {
	token := ExtractBearerToken(header)
	if token == "" {
		return nil, &GuardError{Reason: ReasonTokenNotFound}
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		return nil, &GuardError{Reason: ReasonTokenInvalid, Cause: err}
	}

	u, err := users.FindUserByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			return nil, &GuardError{Reason: ReasonUserNotFound, Cause: err}
		}
		return nil, &GuardError{Reason: ReasonTokenInvalid, Cause: err}
	}
	if !u.IsActive {
		return nil, &GuardError{Reason: ReasonUserInactive}
	}
	return u, nil
}

// Auth admits requests carrying a valid bearer token for an active user.
// The resolved user is attached to the Gin context and the request context.
func Auth(users UserResolver, tokens TokenVerifier, logger *logrus.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := Authorize(c.Request.Context(), c.GetHeader("Authorization"), tokens, users)
		if err != nil {
			reason := ReasonTokenInvalid
			var ge *GuardError
			if errors.As(err, &ge) {
				reason = ge.Reason
			}
			metrics.RecordGuardRejection(reason)
			if logger != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"request_id": c.GetString("request_id"),
					"path":       c.FullPath(),
				}).Debug("access denied")
			}
			response.Abort(c, http.StatusUnauthorized, reason, nil)
			return
		}

		c.Set(ctxUserKey, u)
		c.Set(ctxUserIDKey, u.ID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userCtxKey{}, u))
		c.Next()
	}
}

// CurrentUser returns the user the guard attached to c.
func CurrentUser(c *gin.Context) (*entity.PublicUser, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.PublicUser)
	return u, ok
}

func UserFromContext(ctx context.Context) (*entity.PublicUser, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*entity.PublicUser)
	return u, ok
}
