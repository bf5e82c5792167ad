package cmd

import (
	"context"
	"fmt"

	auditDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/audit"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	workflowDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/workflow"
	"github.com/frahmantamala/docflow/internal/platform/database"
	"github.com/frahmantamala/docflow/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.LoggerWrapper()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	// The SQL migrations are written for postgres. Local sqlite databases are
	// created from the models instead.
	if db.Dialect != "postgres" {
		if migrateRollback {
			return fmt.Errorf("rollback is only supported on postgres")
		}
		if err := db.Gorm.WithContext(ctx).AutoMigrate(
			&userDatamodel.User{},
			&documentDatamodel.Document{},
			&documentDatamodel.PermissionGrant{},
			&workflowDatamodel.Transition{},
			&auditDatamodel.Entry{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("schema migrated from models", "backend", db.Dialect)
		return nil
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db.SQLX.DB, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
