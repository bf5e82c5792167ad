package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/docflow/internal/auth"
	auditDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/audit"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	workflowDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/workflow"
	"github.com/frahmantamala/docflow/internal/platform/database"
	"github.com/frahmantamala/docflow/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedTokenTTL time.Duration

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users and documents for development, and print a bearer token per user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		db, err := database.Open(ctx, cfg.Database, logger.LoggerWrapper())
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		users, err := seed(ctx, db.Gorm, clearData)
		if err != nil {
			return err
		}

		validator := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)
		for _, u := range users {
			token, err := validator.Sign(u.ID, seedTokenTTL)
			if err != nil {
				return fmt.Errorf("failed to sign token for %s: %w", u.Email, err)
			}
			fmt.Printf("%-26s %-6s %-5s %s\n", u.Email, u.Department, u.Role, token)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().DurationVar(&seedTokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed development tokens")
}

var seedUsers = []userDatamodel.User{
	{Email: "admin@docflow.local", Name: "System Admin", Department: "IT", Role: userDatamodel.RoleAdmin},
	{Email: "author@docflow.local", Name: "QC Author", Department: "QC", Role: userDatamodel.RoleUser},
	{Email: "manager@docflow.local", Name: "QC Manager", Department: "QC", Role: userDatamodel.RoleUser, IsManager: true},
	{Email: "reviewer@docflow.local", Name: "RND Reviewer", Department: "RND", Role: userDatamodel.RoleUser},
	{Email: "approver@docflow.local", Name: "QC Approver", Department: "QC", Role: userDatamodel.RoleUser},
	{Email: "guest@docflow.local", Name: "Auditor Guest", Department: "QC", Role: userDatamodel.RoleGuest},
}

func seed(ctx context.Context, db *gorm.DB, wipe bool) ([]userDatamodel.User, error) {
	var out []userDatamodel.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if wipe {
			for _, model := range []interface{}{
				&auditDatamodel.Entry{},
				&workflowDatamodel.Transition{},
				&documentDatamodel.PermissionGrant{},
				&documentDatamodel.Document{},
				&userDatamodel.User{},
			} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
					return fmt.Errorf("failed to clear %T: %w", model, err)
				}
			}
		}

		byEmail := map[string]*userDatamodel.User{}
		for _, seedUser := range seedUsers {
			u := seedUser
			u.Active = true
			if err := tx.Where(userDatamodel.User{Email: u.Email}).FirstOrCreate(&u).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
			}
			byEmail[u.Email] = &u
			out = append(out, u)
		}

		author := byEmail["author@docflow.local"]
		reviewer := byEmail["reviewer@docflow.local"]
		approver := byEmail["approver@docflow.local"]

		docs := []documentDatamodel.Document{
			{Title: "Incoming Inspection Procedure", Type: documentDatamodel.TypeSOP, SecurityLevel: documentDatamodel.SecurityInternal},
			{Title: "Calibration Record Template", Type: documentDatamodel.TypeForm, SecurityLevel: documentDatamodel.SecurityPublic},
			{Title: "Supplier Audit Findings", Type: documentDatamodel.TypeTD, SecurityLevel: documentDatamodel.SecurityConfidential},
		}
		for _, d := range docs {
			doc := d
			doc.Department = author.Department
			doc.Status = documentDatamodel.StatusDraft
			doc.AuthorID = author.ID
			doc.ReviewerID = &reviewer.ID
			doc.ApproverID = &approver.ID
			doc.ReviewCycle = 365
			doc.RetentionPeriod = 2555
			doc.Version = 1
			if err := tx.Where(documentDatamodel.Document{Title: doc.Title}).FirstOrCreate(&doc).Error; err != nil {
				return fmt.Errorf("failed to seed document %q: %w", doc.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
