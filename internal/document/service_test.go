package document_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	"github.com/frahmantamala/docflow/internal/authz"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	"github.com/frahmantamala/docflow/internal/document"
	"github.com/frahmantamala/docflow/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDocument(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Service Suite")
}

type MockRepository struct {
	docs       map[int64]*documentDatamodel.Document
	grants     map[int64]*documentDatamodel.PermissionGrant
	nextID     int64
	shouldFail bool
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		docs:   map[int64]*documentDatamodel.Document{},
		grants: map[int64]*documentDatamodel.PermissionGrant{},
	}
}

func (m *MockRepository) Create(_ context.Context, doc *documentDatamodel.Document) error {
	if m.shouldFail {
		return internal.NewPersistenceError("store down", errors.New("boom"), false)
	}
	m.nextID++
	doc.ID = m.nextID
	m.docs[doc.ID] = doc
	return nil
}

func (m *MockRepository) GetByID(_ context.Context, id int64) (*documentDatamodel.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, internal.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MockRepository) Update(_ context.Context, doc *documentDatamodel.Document, from documentDatamodel.Status) error {
	stored, ok := m.docs[doc.ID]
	if !ok {
		return internal.ErrDocumentNotFound
	}
	if stored.Status != from {
		return internal.ErrStatusConflict
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id int64, from documentDatamodel.Status) error {
	stored, ok := m.docs[id]
	if !ok {
		return internal.ErrDocumentNotFound
	}
	if stored.Status != from {
		return internal.ErrStatusConflict
	}
	delete(m.docs, id)
	return nil
}

func (m *MockRepository) List(_ context.Context, _ document.ListFilter) ([]*documentDatamodel.Document, error) {
	var out []*documentDatamodel.Document
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *MockRepository) CreateGrant(_ context.Context, g *documentDatamodel.PermissionGrant) error {
	m.nextID++
	g.ID = m.nextID
	m.grants[g.ID] = g
	return nil
}

func (m *MockRepository) GetGrant(_ context.Context, id int64) (*documentDatamodel.PermissionGrant, error) {
	g, ok := m.grants[id]
	if !ok {
		return nil, internal.ErrGrantNotFound
	}
	return g, nil
}

func (m *MockRepository) RevokeGrant(_ context.Context, id int64, at time.Time) error {
	g := m.grants[id]
	g.Active = false
	g.ExpiresAt = &at
	return nil
}

func (m *MockRepository) ListByDocument(_ context.Context, documentID int64, includeInactive bool) ([]*documentDatamodel.PermissionGrant, error) {
	var out []*documentDatamodel.PermissionGrant
	for _, g := range m.grants {
		if g.DocumentID == documentID && (includeInactive || g.Active) {
			out = append(out, g)
		}
	}
	return out, nil
}

// MockAuthorizer allows everything except the listed action names.
// afterCheck, when set, runs once the decision is made.
type MockAuthorizer struct {
	denied     map[string]string
	requests   []authz.Request
	afterCheck func(req authz.Request)
}

func (m *MockAuthorizer) CheckPermission(_ context.Context, req authz.Request) authz.Decision {
	m.requests = append(m.requests, req)
	if m.afterCheck != nil {
		defer m.afterCheck(req)
	}
	if reason, ok := m.denied[req.Action]; ok {
		return authz.Decision{Allowed: false, Reason: reason}
	}
	return authz.Decision{Allowed: true, Reason: "test"}
}

type MockRecorder struct {
	entries []audit.Entry
}

func (m *MockRecorder) Append(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func validCreate() document.CreateDocumentDTO {
	return document.CreateDocumentDTO{
		Title:      "Line clearance SOP",
		Type:       "SOP",
		Department: "qc",
	}
}

var _ = Describe("Document Service", func() {
	var (
		repo       *MockRepository
		authorizer *MockAuthorizer
		recorder   *MockRecorder
		service    *document.Service
		ctx        context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		authorizer = &MockAuthorizer{denied: map[string]string{}}
		recorder = &MockRecorder{}
		service = document.NewService(repo, authorizer, recorder, logger.Nop())
	})

	Describe("CreateDocument", func() {
		It("creates a draft authored by the actor with defaults", func() {
			doc, err := service.CreateDocument(ctx, 7, validCreate())
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal("draft"))
			Expect(doc.AuthorID).To(Equal(int64(7)))
			Expect(doc.Department).To(Equal("QC"))
			Expect(doc.SecurityLevel).To(Equal("internal"))
			Expect(doc.ReviewCycle).To(Equal(document.DefaultReviewCycleDays))
			Expect(doc.RetentionPeriod).To(Equal(document.DefaultRetentionPeriodDays))
			Expect(recorder.entries).To(HaveLen(1))
			Expect(recorder.entries[0].Action).To(Equal(audit.ActionDocumentCreated))
		})

		It("rejects an unknown document type", func() {
			dto := validCreate()
			dto.Type = "MEMO"
			_, err := service.CreateDocument(ctx, 7, dto)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("returns a forbidden error when the role may not create", func() {
			authorizer.denied["CREATE_DOCUMENT"] = "Insufficient role permissions"
			_, err := service.CreateDocument(ctx, 9, validCreate())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
			Expect(appErr.Message).To(ContainSubstring("Insufficient role permissions"))
		})
	})

	Describe("GetDocument", func() {
		It("returns not found before checking access", func() {
			_, err := service.GetDocument(ctx, 7, 404)
			Expect(errors.Is(err, internal.ErrDocumentNotFound)).To(BeTrue())
			Expect(authorizer.requests).To(BeEmpty())
		})

		It("checks VIEW_DOCUMENT against the document", func() {
			created, err := service.CreateDocument(ctx, 7, validCreate())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GetDocument(ctx, 8, created.ID)
			Expect(err).NotTo(HaveOccurred())
			last := authorizer.requests[len(authorizer.requests)-1]
			Expect(last.Action).To(Equal("VIEW_DOCUMENT"))
			Expect(*last.ResourceID).To(Equal(created.ID))
		})
	})

	Describe("UpdateDocument", func() {
		It("applies only the provided fields", func() {
			created, _ := service.CreateDocument(ctx, 7, validCreate())
			title := "Line clearance SOP v2"
			doc, err := service.UpdateDocument(ctx, 7, created.ID, document.UpdateDocumentDTO{Title: &title})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Title).To(Equal(title))
			Expect(doc.Type).To(Equal("SOP"))
		})

		It("refuses edits the resolver denies", func() {
			created, _ := service.CreateDocument(ctx, 7, validCreate())
			authorizer.denied["EDIT_DOCUMENT"] = "Published documents cannot be modified"
			title := "x"
			_, err := service.UpdateDocument(ctx, 7, created.ID, document.UpdateDocumentDTO{Title: &title})
			Expect(err).To(MatchError(ContainSubstring("Published")))
		})

		It("does not write when the status moves after the edit was allowed", func() {
			created, _ := service.CreateDocument(ctx, 7, validCreate())
			authorizer.afterCheck = func(req authz.Request) {
				if req.Action == "EDIT_DOCUMENT" {
					repo.docs[created.ID].Status = documentDatamodel.StatusDisposed
				}
			}
			title := "edited after disposal"
			_, err := service.UpdateDocument(ctx, 7, created.ID, document.UpdateDocumentDTO{Title: &title})
			Expect(errors.Is(err, internal.ErrStatusConflict)).To(BeTrue())

			stored := repo.docs[created.ID]
			Expect(stored.Status).To(Equal(documentDatamodel.StatusDisposed))
			Expect(stored.Title).To(Equal("Line clearance SOP"))
			Expect(recorder.entries[len(recorder.entries)-1].Action).NotTo(Equal(audit.ActionDocumentUpdated))
		})
	})

	Describe("DeleteDocument", func() {
		It("soft deletes and audits", func() {
			created, _ := service.CreateDocument(ctx, 7, validCreate())
			Expect(service.DeleteDocument(ctx, 7, created.ID)).To(Succeed())
			Expect(repo.docs).NotTo(HaveKey(created.ID))
			Expect(recorder.entries[len(recorder.entries)-1].Action).To(Equal(audit.ActionDocumentDeleted))
		})

		It("keeps a document that left draft after the delete was allowed", func() {
			created, _ := service.CreateDocument(ctx, 7, validCreate())
			authorizer.afterCheck = func(req authz.Request) {
				if req.Action == "DELETE_DOCUMENT" {
					repo.docs[created.ID].Status = documentDatamodel.StatusReview
				}
			}
			err := service.DeleteDocument(ctx, 7, created.ID)
			Expect(errors.Is(err, internal.ErrStatusConflict)).To(BeTrue())
			Expect(repo.docs).To(HaveKey(created.ID))
		})
	})
})

var _ = Describe("Grant Service", func() {
	var (
		repo       *MockRepository
		authorizer *MockAuthorizer
		recorder   *MockRecorder
		service    *document.GrantService
		ctx        context.Context
		docID      int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		authorizer = &MockAuthorizer{denied: map[string]string{}}
		recorder = &MockRecorder{}
		service = document.NewGrantService(repo, repo, authorizer, recorder, logger.Nop())

		doc := &documentDatamodel.Document{Title: "t", Type: documentDatamodel.TypeTD, Department: "QC", Status: documentDatamodel.StatusDraft}
		Expect(repo.Create(ctx, doc)).To(Succeed())
		docID = doc.ID
	})

	It("requires exactly one target", func() {
		dept := "HR"
		user := int64(3)
		_, err := service.GrantPermission(ctx, 1, docID, document.GrantPermissionDTO{UserID: &user, Department: &dept, PermissionType: "read"})
		Expect(err).To(MatchError(ContainSubstring("exactly one")))

		_, err = service.GrantPermission(ctx, 1, docID, document.GrantPermissionDTO{PermissionType: "read"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an expiry in the past", func() {
		user := int64(3)
		past := time.Now().Add(-time.Hour)
		_, err := service.GrantPermission(ctx, 1, docID, document.GrantPermissionDTO{UserID: &user, PermissionType: "write", ExpiresAt: &past})
		Expect(err).To(HaveOccurred())
	})

	It("grants, lists and revokes with audit entries", func() {
		user := int64(3)
		grant, err := service.GrantPermission(ctx, 1, docID, document.GrantPermissionDTO{UserID: &user, PermissionType: "write"})
		Expect(err).NotTo(HaveOccurred())
		Expect(grant.Active).To(BeTrue())
		Expect(grant.GrantedBy).To(Equal(int64(1)))

		grants, err := service.ListGrants(ctx, 1, docID, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(HaveLen(1))

		Expect(service.RevokePermission(ctx, 1, docID, grant.ID)).To(Succeed())
		revoked := repo.grants[grant.ID]
		Expect(revoked.Active).To(BeFalse())
		Expect(revoked.ExpiresAt).NotTo(BeNil())

		grants, err = service.ListGrants(ctx, 1, docID, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(BeEmpty())

		var actions []string
		for _, e := range recorder.entries {
			actions = append(actions, e.Action)
		}
		Expect(actions).To(Equal([]string{audit.ActionPermissionGranted, audit.ActionPermissionRevoked}))
	})

	It("requires MANAGE_PERMISSIONS on the document", func() {
		authorizer.denied["MANAGE_PERMISSIONS"] = "No grant or default access permits MANAGE_PERMISSIONS"
		user := int64(3)
		_, err := service.GrantPermission(ctx, 2, docID, document.GrantPermissionDTO{UserID: &user, PermissionType: "read"})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
	})

	It("does not revoke a grant through another document", func() {
		user := int64(3)
		grant, err := service.GrantPermission(ctx, 1, docID, document.GrantPermissionDTO{UserID: &user, PermissionType: "read"})
		Expect(err).NotTo(HaveOccurred())

		other := &documentDatamodel.Document{Title: "o", Type: documentDatamodel.TypeSOP, Department: "QC"}
		Expect(repo.Create(ctx, other)).To(Succeed())

		err = service.RevokePermission(ctx, 1, other.ID, grant.ID)
		Expect(errors.Is(err, internal.ErrGrantNotFound)).To(BeTrue())
	})
})
