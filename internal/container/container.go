package container

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"intakegate/adapters/postgres"
	"intakegate/adapters/sqlite"
	"intakegate/app"
	"intakegate/internal"
	"intakegate/internal/config"
	"intakegate/internal/errors"
	"intakegate/internal/migration"
	"intakegate/ports"
)

// Container holds the wired application and owns the store handle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Runs is nil when database.driver is "none"
	Runs    ports.RunRepository
	Service *app.IntakeService

	closer io.Closer
}

// New opens the configured run store, migrates it and builds the intake service
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.ConfigInvalid("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewConfiguredLogger(cfg.Log.Level, cfg.Log.Format)
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initStore(ctx); err != nil {
		return nil, err
	}

	svc, err := app.NewIntakeServiceFromConfig(cfg, c.Runs, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Service = svc
	logger.Info("container initialized", "driver", cfg.Database.Driver, "persisting", c.Runs != nil)
	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.Database.Driver {
	case "none":
		return nil
	case "sqlite":
		store, err := sqlite.Open(ctx, c.Config.Database.URL)
		if err != nil {
			return errors.DatabaseError("failed to open sqlite run store", err)
		}
		c.Runs, c.closer = store, store
		return nil
	case "postgres":
		db, err := ConnectPostgres(ctx, c.Config.Database.URL)
		if err != nil {
			return err
		}
		c.Runs, c.closer = postgres.NewRunRepository(db), db
		return nil
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", c.Config.Database.Driver))
	}
}

// ConnectPostgres connects and applies the schema
func ConnectPostgres(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to postgres", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the store handle and flushes the logger
func (c *Container) Close() error {
	var err error
	if c.closer != nil {
		err = c.closer.Close()
		c.closer = nil
	}
	_ = c.Logger.Sync()
	return err
}
