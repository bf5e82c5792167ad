package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	auditPostgres "github.com/frahmantamala/docflow/internal/audit/postgres"
	"github.com/frahmantamala/docflow/internal/auth"
	"github.com/frahmantamala/docflow/internal/authz"
	authzPostgres "github.com/frahmantamala/docflow/internal/authz/postgres"
	"github.com/frahmantamala/docflow/internal/core/events"
	"github.com/frahmantamala/docflow/internal/document"
	documentPostgres "github.com/frahmantamala/docflow/internal/document/postgres"
	"github.com/frahmantamala/docflow/internal/platform/database"
	"github.com/frahmantamala/docflow/internal/transport"
	"github.com/frahmantamala/docflow/internal/transport/openapi"
	"github.com/frahmantamala/docflow/internal/transport/rest"
	"github.com/frahmantamala/docflow/internal/user"
	userPostgres "github.com/frahmantamala/docflow/internal/user/postgres"
	"github.com/frahmantamala/docflow/internal/workflow"
	workflowPostgres "github.com/frahmantamala/docflow/internal/workflow/postgres"
	"github.com/frahmantamala/docflow/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *database.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	Recorder *audit.AsyncRecorder
	EventBus *events.EventBus
	Handlers rest.Handlers
	OpenAPI  *openapi.Document
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB, deps.Handlers, rest.RouterOptions{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		OpenAPIPath:    deps.Config.Server.OpenAPIPath,
		OpenAPI:        deps.OpenAPI,
	}, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
		}
	}

	deps.shutdown()
	deps.Logger.Info("Server stopped")
}

// shutdown stops background work in dependency order: event handlers, then
// the audit queue, then the database.
func (d *Dependencies) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.EventBus.Wait(ctx); err != nil {
		d.Logger.Warn("event handlers still running at shutdown", "error", err)
	}
	d.Recorder.Shutdown()
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	db, err := database.Open(ctx, config.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var spec *openapi.Document
	if config.Server.OpenAPIPath != "" {
		spec, err = openapi.Load(ctx, config.Server.OpenAPIPath)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	auditRepo := auditPostgres.NewAuditRepository(db.Gorm)
	recorder := audit.NewAsyncRecorder(auditRepo, audit.RecorderConfig{
		Workers:      config.Audit.Workers,
		QueueSize:    config.Audit.QueueSize,
		WriteTimeout: config.Workflow.StoreTimeout,
	}, log)
	go drainAuditFailures(recorder, log)

	eventBus := events.NewEventBus(log)
	eventBus.Subscribe(events.EventTypeDocumentStatusChanged, logStatusChange(log))

	store := authzPostgres.NewStore(db.Gorm)
	resolver := authz.NewResolver(store, recorder, authz.Config{
		DepartmentDefaults: config.Authorization.DepartmentDefaults,
		StoreTimeout:       config.Workflow.StoreTimeout,
	}, log)

	documentRepo := documentPostgres.NewDocumentRepository(db.Gorm)
	userRepo := userPostgres.NewUserRepository(db.Gorm)
	workflowRepo := workflowPostgres.NewWorkflowRepository(db.Gorm)

	documentService := document.NewService(documentRepo, resolver, recorder, log).WithStoreTimeout(config.Workflow.StoreTimeout)
	grantService := document.NewGrantService(documentRepo, documentRepo, resolver, recorder, log).WithStoreTimeout(config.Workflow.StoreTimeout)
	userService := user.NewService(userRepo, resolver, recorder, log).WithStoreTimeout(config.Workflow.StoreTimeout)
	workflowService := workflow.NewService(workflowRepo, resolver, recorder, eventBus, workflow.Config{
		StoreTimeout: config.Workflow.StoreTimeout,
	}, log)

	base := transport.NewBaseHandler(log)
	validator := auth.NewJWTValidator(config.Security.JWTSecret, config.Security.JWTIssuer)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   chi.NewRouter(),
		Logger:   log,
		Recorder: recorder,
		EventBus: eventBus,
		OpenAPI:  spec,
		Handlers: rest.Handlers{
			Auth:     auth.NewMiddleware(base, validator, store),
			Guard:    authz.NewGuard(base, resolver),
			Authz:    authz.NewHandler(base, resolver),
			Document: document.NewHandler(base, documentService, grantService),
			Workflow: workflow.NewHandler(base, workflowService),
			User:     user.NewHandler(base, userService),
			Audit:    audit.NewHandler(base, auditPostgres.NewTrailReader(db.SQLX)),
		},
	}, nil
}

func drainAuditFailures(recorder *audit.AsyncRecorder, log *slog.Logger) {
	for err := range recorder.Errors() {
		log.Error("audit entry lost", "error", err)
	}
}

func logStatusChange(log *slog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		changed, ok := event.(*events.DocumentStatusChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}
		log.Info("document status changed",
			"event_id", changed.EventID(),
			"document_id", changed.DocumentID,
			"transition_id", changed.TransitionID,
			"from", changed.FromStatus,
			"to", changed.ToStatus,
			"actor_id", changed.ActorID)
		return nil
	}
}
