package internal_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestInternal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal Suite")
}

func validConfig() internal.Config {
	return internal.Config{
		Server:   internal.ServerConfig{Port: 8080, AllowedOrigins: "*", ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second},
		Database: internal.DatabaseConfig{Source: "sqlite::memory:", MaxOpenConns: 2, MaxIdleConns: 1},
		Security: internal.SecurityConfig{JWTSecret: "0123456789abcdef0123456789abcdef"},
		Observability: internal.ObservabilityConfig{
			Logging: internal.LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

var _ = Describe("Config.Validate", func() {
	It("accepts a complete configuration", func() {
		cfg := validConfig()
		Expect(cfg.Validate()).To(Succeed())
	})

	It("reports every broken section at once", func() {
		cfg := validConfig()
		cfg.Database.Source = ""
		cfg.Security.JWTSecret = "short"
		cfg.Observability.Logging.Level = "verbose"

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("database config"))
		Expect(err.Error()).To(ContainSubstring("security config"))
		Expect(err.Error()).To(ContainSubstring("logging config"))
	})

	It("rejects more idle than open connections", func() {
		cfg := validConfig()
		cfg.Database.MaxIdleConns = 5
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("max_idle_conns")))
	})

	It("rejects negative audit sizing", func() {
		cfg := validConfig()
		cfg.Audit.Workers = -1
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("audit config")))
	})
})

var _ = Describe("ClassifyStoreError", func() {
	It("passes app errors through", func() {
		err := internal.ClassifyStoreError("load", fmt.Errorf("wrapped: %w", internal.ErrDocumentNotFound))
		Expect(err).To(Equal(internal.ErrDocumentNotFound))
	})

	It("marks lock contention as retryable", func() {
		err := internal.ClassifyStoreError("save", &pgconn.PgError{Code: "40P01"})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Retryable).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeStoreBusy))
		Expect(appErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})

	It("treats sqlite lock errors and deadlines as busy", func() {
		Expect(internal.IsBusy(errors.New("database is locked"))).To(BeTrue())
		Expect(internal.IsBusy(context.DeadlineExceeded)).To(BeTrue())
	})

	It("treats other failures as unavailable", func() {
		err := internal.ClassifyStoreError("save", &pgconn.PgError{Code: "23505"})
		appErr, _ := internal.IsAppError(err)
		Expect(appErr.Retryable).To(BeFalse())
		Expect(appErr.Code).To(Equal(internal.ErrCodeStoreUnavailable))
		Expect(errors.Unwrap(appErr)).NotTo(BeNil())
	})

	It("returns nil for nil", func() {
		Expect(internal.ClassifyStoreError("noop", nil)).To(BeNil())
	})
})

var _ = Describe("actor context", func() {
	It("round-trips a positive actor id", func() {
		id, ok := internal.ActorIDFromContext(internal.ContextWithActorID(context.Background(), 9))
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(int64(9)))
	})

	It("treats zero as anonymous", func() {
		_, ok := internal.ActorIDFromContext(internal.ContextWithActorID(context.Background(), 0))
		Expect(ok).To(BeFalse())
	})
})
