package workflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/transport"
	"github.com/frahmantamala/docflow/internal/workflow"
	pkglogger "github.com/frahmantamala/docflow/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubService struct {
	lastRequest workflow.TransitionRequest
	err         error
}

func (s *stubService) GetAvailableTransitions(_ context.Context, documentID, actorID int64) ([]workflow.AvailableTransition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []workflow.AvailableTransition{{ToStatus: "review", Label: "Submit for review", Allowed: true, Reason: "Document author"}}, nil
}

func (s *stubService) TransitionStatus(_ context.Context, req workflow.TransitionRequest) (*workflow.TransitionResult, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return &workflow.TransitionResult{TransitionID: "t-1", FromStatus: "draft", ToStatus: req.NewStatus, Reason: "Document author"}, nil
}

func (s *stubService) GetWorkflowHistory(_ context.Context, documentID, actorID int64) ([]*workflow.Transition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*workflow.Transition{{ID: "t-1", DocumentID: documentID, FromStatus: "draft", ToStatus: "review", ActorID: actorID}}, nil
}

var _ = Describe("Workflow Handler", func() {
	var (
		svc    *stubService
		router *chi.Mux
	)

	BeforeEach(func() {
		svc = &stubService{}
		handler := workflow.NewHandler(transport.NewBaseHandler(pkglogger.Nop()), svc)
		router = chi.NewRouter()
		router.Get("/documents/{id}/transitions", handler.AvailableTransitions)
		router.Post("/documents/{id}/transitions", handler.Transition)
		router.Get("/documents/{id}/history", handler.History)
	})

	serve := func(method, target, body string, actorID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if actorID > 0 {
			req = req.WithContext(internal.ContextWithActorID(req.Context(), actorID))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("takes the document id from the path and the actor from the context", func() {
		rec := serve(http.MethodPost, "/documents/42/transitions", `{"new_status":"review","document_id":7,"comment":"ready"}`, 5)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(svc.lastRequest.DocumentID).To(Equal(int64(42)))
		Expect(svc.lastRequest.ActorID).To(Equal(int64(5)))
		Expect(svc.lastRequest.Comment).To(Equal("ready"))

		var result workflow.TransitionResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		Expect(result.ToStatus).To(Equal("review"))
	})

	It("ignores an actor id smuggled in the body", func() {
		serve(http.MethodPost, "/documents/42/transitions", `{"new_status":"review","ActorID":1}`, 5)
		Expect(svc.lastRequest.ActorID).To(Equal(int64(5)))
	})

	It("maps service errors to their status codes", func() {
		svc.err = internal.NewForbiddenError("Designated reviewer required", internal.ErrCodeAccessDenied)
		rec := serve(http.MethodPost, "/documents/42/transitions", `{"new_status":"published"}`, 5)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("ACCESS_DENIED"))

		svc.err = internal.ErrStatusConflict
		rec = serve(http.MethodPost, "/documents/42/transitions", `{"new_status":"published"}`, 5)
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("asks a retry after busy store errors", func() {
		svc.err = internal.NewPersistenceError("store busy", nil, true)
		rec := serve(http.MethodGet, "/documents/42/history", "", 5)
		Expect(rec.Header().Get("Retry-After")).To(Equal("1"))
	})

	It("requires an authenticated actor", func() {
		rec := serve(http.MethodGet, "/documents/42/transitions", "", 0)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a malformed document id", func() {
		rec := serve(http.MethodGet, "/documents/abc/history", "", 5)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("wraps lists in named envelopes", func() {
		rec := serve(http.MethodGet, "/documents/42/transitions", "", 5)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"transitions"`))

		rec = serve(http.MethodGet, "/documents/42/history", "", 5)
		Expect(rec.Body.String()).To(ContainSubstring(`"history"`))
	})
})
