package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/xo/dburl"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB bundles the ORM handle used by repositories and the sqlx handle used by
// read-only queries. Both share one connection pool.
type DB struct {
	Gorm    *gorm.DB
	SQLX    *sqlx.DB
	Dialect string
}

// Open picks the backend from the source URL: postgres://… for production,
// sqlite:… for local development.
func Open(ctx context.Context, cfg internal.DatabaseConfig, log *slog.Logger) (*DB, error) {
	log = logger.OrNop(log)

	u, err := dburl.Parse(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("could not parse database url: %w", err)
	}

	var (
		dialector  gorm.Dialector
		sqlxDriver string
		dialect    string
	)
	switch u.Driver {
	case "postgres":
		dialector = postgres.Open(u.DSN)
		sqlxDriver, dialect = "pgx", "postgres"
	case "sqlite3":
		dialector = sqlite.Open(u.DSN)
		sqlxDriver, dialect = "sqlite3", "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported database backend: %s", u.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := internal.WithTimeout(ctx, 0)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connected", "backend", dialect, "url", u.Redacted())

	return &DB{
		Gorm:    gdb,
		SQLX:    sqlx.NewDb(sqlDB, sqlxDriver),
		Dialect: dialect,
	}, nil
}

func (d *DB) Close() error {
	return d.SQLX.Close()
}
