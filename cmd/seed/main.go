package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-auth-guard/config"
	"github.com/oksasatya/go-auth-guard/internal/application"
	"github.com/oksasatya/go-auth-guard/internal/container"
	"github.com/oksasatya/go-auth-guard/internal/infrastructure/store"
	"github.com/oksasatya/go-auth-guard/internal/router"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
)

// seed creates a demo user, or toggles an existing user's active flag:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -deactivate <user-id>
//	go run ./cmd/seed -activate <user-id>
func main() {
	activate := flag.String("activate", "", "user id to mark active")
	deactivate := flag.String("deactivate", "", "user id to mark inactive")
	name := flag.String("name", "demoUser", "seed user name")
	email := flag.String("email", "demo@example.com", "seed user email")
	password := flag.String("password", "password123", "seed user password")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	repo, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open user store: %v", err)
	}
	defer closeStore()

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetUserRepo(repo)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTSeed, cfg.JWTTTL))
	// Redis is wired so a toggle evicts the server's cached projection.
	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
	}
	svc := router.BuildService()

	switch {
	case *activate != "":
		setActive(ctx, svc, *activate, true)
	case *deactivate != "":
		setActive(ctx, svc, *deactivate, false)
	default:
		u, err := svc.CreateUser(ctx, application.CreateUserInput{Name: *name, Email: *email, Password: *password})
		if errors.Is(err, application.ErrDuplicate) {
			fmt.Printf("seed user %s already exists\n", *email)
			return
		}
		if err != nil {
			log.Fatalf("failed to seed user: %v", err)
		}
		fmt.Printf("seeded user: id=%s email=%s name=%s password=%s\n", u.ID, u.Email, u.Name, *password)
	}
}

func setActive(ctx context.Context, svc *application.Service, id string, active bool) {
	if err := svc.SetActive(ctx, id, active); err != nil {
		log.Fatalf("failed to update user %s: %v", id, err)
	}
	fmt.Printf("user %s active=%v\n", id, active)
}
