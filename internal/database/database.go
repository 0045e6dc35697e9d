// Package database opens the configured document store.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"socialgraph/internal/config"
	"socialgraph/internal/observability"
	"socialgraph/internal/store"
	"socialgraph/internal/store/mongostore"
	"socialgraph/internal/store/sqlstore"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Handle is an open store plus what is needed to shut it down.
type Handle struct {
	Backend store.Backend
	// DB is set for the relational backends.
	DB    *gorm.DB
	close func(ctx context.Context) error
}

// Close releases the underlying connections.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close(ctx)
}

// Transactional reports whether the backend can run cascades atomically.
func (h *Handle) Transactional() bool {
	_, ok := h.Backend.(store.Transactional)
	return ok
}

// Open connects to the backend named by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (*Handle, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		s, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Disconnect(ctx)
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		observability.Logger.Info("Mongo connected", slog.String("database", cfg.MongoDB))
		return &Handle{Backend: s, close: s.Disconnect}, nil
	case config.BackendPostgres, config.BackendSQLite:
		db, err := Connect(cfg)
		if err != nil {
			return nil, err
		}
		return &Handle{
			Backend: sqlstore.New(db),
			DB:      db,
			close: func(context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

// Connect opens a gorm connection for the postgres or sqlite backend,
// migrates the store tables when AutoMigrate is set, and configures the pool.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	dbInstance, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(observability.Logger, logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	observability.Logger.Info("Database connected successfully", slog.String("backend", cfg.StoreBackend))

	if cfg.AutoMigrate {
		if err := sqlstore.Migrate(dbInstance); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		observability.Logger.Info("Database migration completed")
	}

	if err := configurePool(dbInstance, cfg); err != nil {
		return nil, err
	}
	return dbInstance, nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		sslMode := cfg.DBSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			sslMode,
		)
		return postgres.Open(dsn), nil
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("store backend %q is not relational", cfg.StoreBackend)
	}
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY
	// inside cascade transactions.
	if cfg.StoreBackend == config.BackendSQLite {
		sqlDB.SetMaxOpenConns(1)
		return nil
	}

	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	}
	return nil
}
