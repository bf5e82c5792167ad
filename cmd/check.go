package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/frahmantamala/docflow/internal/audit"
	auditPostgres "github.com/frahmantamala/docflow/internal/audit/postgres"
	"github.com/frahmantamala/docflow/internal/authz"
	authzPostgres "github.com/frahmantamala/docflow/internal/authz/postgres"
	"github.com/frahmantamala/docflow/internal/platform/database"
	"github.com/frahmantamala/docflow/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	checkActorID    int64
	checkResourceID int64
	checkAudit      bool
)

var checkCmd = &cobra.Command{
	Use:   "check ACTION RESOURCE_TYPE",
	Short: "Evaluate one authorization request",
	Long:  `Evaluate an authorization request against the configured database and print the decision as JSON.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
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

		var recorder audit.Recorder = audit.Discard
		if checkAudit {
			recorder = auditPostgres.NewAuditRepository(db.Gorm)
		}
		resolver := authz.NewResolver(authzPostgres.NewStore(db.Gorm), recorder, authz.Config{
			DepartmentDefaults: cfg.Authorization.DepartmentDefaults,
			StoreTimeout:       cfg.Workflow.StoreTimeout,
		}, log)

		req := authz.Request{
			ActorID:      checkActorID,
			Action:       args[0],
			ResourceType: args[1],
			Context:      map[string]any{"source": "cli"},
		}
		if checkResourceID > 0 {
			req.ResourceID = &checkResourceID
		}

		var decision authz.Decision
		if checkAudit {
			decision = resolver.CheckPermission(ctx, req)
		} else {
			decision = resolver.Evaluate(ctx, req)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(decision); err != nil {
			return err
		}
		if !decision.Allowed {
			return fmt.Errorf("denied: %s", decision.Reason)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().Int64Var(&checkActorID, "actor", 0, "acting user id")
	checkCmd.Flags().Int64Var(&checkResourceID, "resource", 0, "resource id")
	checkCmd.Flags().BoolVar(&checkAudit, "audit", false, "record the check in the audit trail")
	_ = checkCmd.MarkFlagRequired("actor")

	rootCmd.AddCommand(checkCmd)
}
