package openapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/frahmantamala/docflow/internal/transport/openapi"
	"github.com/frahmantamala/docflow/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOpenAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OpenAPI Suite")
}

const specPath = "../../../api/openapi.yml"

var _ = Describe("API description", func() {
	var doc *openapi.Document

	BeforeEach(func() {
		var err error
		doc, err = openapi.Load(context.Background(), specPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("documents every workflow and authorization route", func() {
		Expect(doc.Operations()).To(ContainElements(
			"POST /api/v1/authz/check",
			"GET /api/v1/authz/effective",
			"GET /api/v1/documents/{id}/transitions",
			"POST /api/v1/documents/{id}/transitions",
			"GET /api/v1/documents/{id}/history",
			"GET /api/v1/audit",
		))
	})

	It("fails to load a missing file", func() {
		_, err := openapi.Load(context.Background(), "does-not-exist.yml")
		Expect(err).To(HaveOccurred())
	})

	Describe("Middleware", func() {
		var (
			reached bool
			handler http.Handler
		)

		BeforeEach(func() {
			reached = false
			handler = openapi.Middleware(doc, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))
		})

		serve := func(method, target, body string) *httptest.ResponseRecorder {
			var req *http.Request
			if body != "" {
				req = httptest.NewRequest(method, target, strings.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(method, target, nil)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		It("passes a well-formed transition request", func() {
			rec := serve(http.MethodPost, "/api/v1/documents/12/transitions", `{"new_status":"review"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(reached).To(BeTrue())
		})

		It("rejects a transition request without a target status", func() {
			rec := serve(http.MethodPost, "/api/v1/documents/12/transitions", `{"comment":"hi"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("VALIDATION_FAILED"))
			Expect(reached).To(BeFalse())
		})

		It("rejects a non-numeric document id", func() {
			rec := serve(http.MethodGet, "/api/v1/documents/abc/history", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring(`parameter \"id\"`))
		})

		It("rejects an unknown outcome filter", func() {
			rec := serve(http.MethodGet, "/api/v1/audit?outcome=maybe", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("matches the static users/me route ahead of users/{id}", func() {
			rec := serve(http.MethodGet, "/api/v1/users/me", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("leaves undocumented routes alone", func() {
			rec := serve(http.MethodGet, "/swagger/index.html", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(reached).To(BeTrue())
		})
	})
})
