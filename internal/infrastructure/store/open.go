// Package store opens the user record store selected by STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-guard/config"
	"github.com/oksasatya/go-auth-guard/internal/domain/repository"
	"github.com/oksasatya/go-auth-guard/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-guard/internal/infrastructure/mongostore"
	pginfra "github.com/oksasatya/go-auth-guard/internal/infrastructure/postgres"
)

// Open connects the configured store and prepares its schema. The returned
// close func releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return pginfra.NewUserRepository(pool), pool.Close, nil

	case "mongo":
		client, err := mongostore.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoUsersCollection)
		if err := mongostore.EnsureIndexes(ctx, coll); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return mongostore.NewUserRepository(coll), closeFn, nil

	case "memory":
		logger.Warn("using in-memory user store; data is lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	}
	return nil, nil, config.ErrUnknownStoreDriver
}
