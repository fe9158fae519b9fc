package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-auth-guard/internal/interface/http"
)

// AuthModule routes:
// Public: POST /auth/register, POST /auth/login, POST /auth
// Protected: GET /auth, GET /auth/check-token
type AuthModule struct {
	Handler *handlers.AuthHandler
	Guard   gin.HandlerFunc
}

func NewAuthModule(h *handlers.AuthHandler, guard gin.HandlerFunc) *AuthModule {
	return &AuthModule{Handler: h, Guard: guard}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/register", m.Handler.Register)
	rg.POST("/auth/login", m.Handler.Login)
	rg.POST("/auth", m.Handler.Create)

	auth := rg.Group("/auth", m.Guard)
	{
		auth.GET("", m.Handler.FindAll)
		auth.GET("/check-token", m.Handler.CheckToken)
	}
}
