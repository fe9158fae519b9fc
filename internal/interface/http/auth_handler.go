package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-guard/internal/application"
	"github.com/oksasatya/go-auth-guard/internal/interface/middleware"
	"github.com/oksasatya/go-auth-guard/pkg/response"
	"github.com/oksasatya/go-auth-guard/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Age      *int   `json:"age" binding:"required"`
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      *req.Age,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res, "registered", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), application.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "login successful", map[string]any{"expires_at": res.ExpiresAt})
}

// Create adds a user without the age gate and without issuing a token.
func (h *AuthHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), application.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, u, "user created", nil)
}

func (h *AuthHandler) FindAll(c *gin.Context) {
	users, err := h.Svc.FindAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, users, "users", map[string]any{"count": len(users)})
}

// CheckToken re-issues a token for the user admitted by the guard.
func (h *AuthHandler) CheckToken(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, middleware.ReasonTokenNotFound, nil)
		return
	}
	res, err := h.Svc.CheckToken(c.Request.Context(), *u)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "token valid", map[string]any{"expires_at": res.ExpiresAt})
}

func statusFor(kind application.Kind) int {
	switch kind {
	case application.KindDuplicate:
		return http.StatusBadRequest
	case application.KindPolicyViolation, application.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders only the public message; causes are logged by the service.
func writeError(c *gin.Context, err error) {
	response.Error[any](c, statusFor(application.KindOf(err)), application.PublicMessage(err), nil)
}
