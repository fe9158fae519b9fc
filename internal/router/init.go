package router

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-guard/internal/application"
	"github.com/oksasatya/go-auth-guard/internal/container"
	"github.com/oksasatya/go-auth-guard/internal/infrastructure/cache"
	"github.com/oksasatya/go-auth-guard/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-auth-guard/internal/interface/http"
	"github.com/oksasatya/go-auth-guard/internal/interface/middleware"
	"github.com/oksasatya/go-auth-guard/internal/router/modules"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
)

type AuthModuleDeps struct {
	Service     *application.Service
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
	Guard       gin.HandlerFunc
}

// BuildService assembles the auth service from the container. Optional
// collaborators are attached only when their backing client is configured.
func BuildService() *application.Service {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	svc := application.NewService(
		container.GetUserRepo(),
		helpers.NewBcryptHasher(cfg.BcryptCost),
		container.GetJWT(),
		logger,
		cfg.MinRegisterAge,
	)
	svc.AppName = cfg.AppName
	svc.Metrics = container.GetMetrics()

	if rdb := container.GetRedis(); rdb != nil && cfg.UserCacheTTL > 0 {
		svc.Cache = cache.NewUserCache(rdb, cfg.UserCacheTTL, logger)
	}
	if es := container.GetES(); es != nil {
		svc.Index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		svc.Mail = pub
	}
	return svc
}

func buildAuthDeps() AuthModuleDeps {
	svc := BuildService()
	logger := container.GetLogger()

	return AuthModuleDeps{
		Service:     svc,
		AuthHandler: handlers.NewAuthHandler(svc, logger),
		UserHandler: handlers.NewUserHandler(svc, logger),
		Guard:       middleware.Auth(svc, container.GetJWT(), logger, container.GetMetrics()),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildAuthDeps()
	r.Add(modules.NewAuthModule(deps.AuthHandler, deps.Guard))
	r.Add(modules.NewUserModule(deps.UserHandler, deps.Guard))
	if m := container.GetMetrics(); m != nil {
		r.Add(modules.NewDebugModule(m))
	}
}
