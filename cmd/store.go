package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// openStore returns the configured user store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (repository.UserStore, func(), error) {
	if cfg.Store == config.StoreMemory {
		logrus.Warn("Using in-memory user store, data is lost on restart")
		return repository.NewMemoryUserRepository(), func() {}, nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewUserRepository(db), func() { _ = db.Close() }, nil
}
