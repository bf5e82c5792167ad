package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/platform/database"
	"github.com/frahmantamala/docflow/internal/transport/rest"
	"github.com/frahmantamala/docflow/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Router Suite")
}

var _ = Describe("RegisterAllRoutes", func() {
	var (
		db     *database.DB
		router *chi.Mux
	)

	BeforeEach(func() {
		var err error
		db, err = database.Open(context.Background(), internal.DatabaseConfig{Source: "sqlite::memory:", MaxOpenConns: 1}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, db, rest.Handlers{}, rest.RouterOptions{AllowedOrigins: "https://docs.example.com"}, logger.Nop())
	})

	AfterEach(func() {
		_ = db.Close()
	})

	get := func(path string, header ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for i := 0; i+1 < len(header); i += 2 {
			req.Header.Set(header[i], header[i+1])
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("answers ping", func() {
		rec := get("/api/v1/ping")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("OK"))
	})

	It("reports the database as healthy", func() {
		rec := get("/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body rest.Readiness
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(rest.ReadinessReady))
		Expect(body.Store.Backend).To(Equal("sqlite3"))
		Expect(body.Store.Reachable).To(BeTrue())
		Expect(body.Store.Error).To(BeEmpty())
	})

	It("reports unavailable once the database is gone", func() {
		Expect(db.Close()).To(Succeed())
		rec := get("/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		var body rest.Readiness
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(rest.ReadinessUnavailable))
		Expect(body.Store.Backend).To(Equal("sqlite3"))
		Expect(body.Store.Reachable).To(BeFalse())
		Expect(body.Store.Error).NotTo(BeEmpty())
	})

	It("reports an unconfigured store as unavailable", func() {
		bare := chi.NewRouter()
		rest.RegisterAllRoutes(bare, nil, rest.Handlers{}, rest.RouterOptions{}, logger.Nop())
		rec := httptest.NewRecorder()
		bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("echoes a caller request id", func() {
		rec := get("/api/v1/ping", "X-Request-ID", "req-123")
		Expect(rec.Header().Get("X-Request-ID")).To(Equal("req-123"))
	})

	It("mints a request id when none is given", func() {
		rec := get("/api/v1/ping")
		Expect(rec.Header().Get("X-Request-ID")).NotTo(BeEmpty())
	})

	It("allows configured origins only", func() {
		rec := get("/api/v1/ping", "Origin", "https://docs.example.com")
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://docs.example.com"))

		rec = get("/api/v1/ping", "Origin", "https://evil.example.com")
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("does not mount protected routes without an authenticator", func() {
		Expect(get("/api/v1/documents").Code).To(Equal(http.StatusNotFound))
	})
})
