package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-auth-guard/internal/interface/http"
)

// UserModule serves GET /health and the protected GET /users/search.
type UserModule struct {
	Handler *handlers.UserHandler
	Guard   gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, guard gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Guard: guard}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Handler.Health)

	users := rg.Group("/users", m.Guard)
	users.GET("/search", m.Handler.Search)
}
