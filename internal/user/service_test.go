package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	"github.com/frahmantamala/docflow/internal/authz"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	"github.com/frahmantamala/docflow/internal/user"
	"github.com/frahmantamala/docflow/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

type MockRepository struct {
	users  map[int64]*userDatamodel.User
	nextID int64
}

func (m *MockRepository) Create(_ context.Context, u *userDatamodel.User) error {
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	return nil
}

func (m *MockRepository) GetByID(_ context.Context, id int64) (*userDatamodel.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *MockRepository) GetByEmail(_ context.Context, email string) (*userDatamodel.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, internal.ErrUserNotFound
}

func (m *MockRepository) Deactivate(_ context.Context, id int64) error {
	m.users[id].Active = false
	return nil
}

// MockAuthorizer allows MANAGE_USERS for the listed actors only.
type MockAuthorizer struct {
	admins map[int64]bool
}

func (m *MockAuthorizer) CheckPermission(_ context.Context, req authz.Request) authz.Decision {
	if m.admins[req.ActorID] {
		return authz.Decision{Allowed: true, Reason: "Admin access"}
	}
	return authz.Decision{Allowed: false, Reason: "Insufficient role permissions"}
}

type MockRecorder struct {
	entries []audit.Entry
}

func (m *MockRecorder) Append(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

var _ = Describe("User Service", func() {
	var (
		repo     *MockRepository
		recorder *MockRecorder
		service  *user.Service
		ctx      context.Context
	)

	const adminID = int64(1)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &MockRepository{users: map[int64]*userDatamodel.User{}}
		recorder = &MockRecorder{}
		Expect(repo.Create(ctx, &userDatamodel.User{Email: "root@example.com", Role: userDatamodel.RoleAdmin, Active: true})).To(Succeed())
		service = user.NewService(repo, &MockAuthorizer{admins: map[int64]bool{adminID: true}}, recorder, logger.Nop())
	})

	Describe("CreateUser", func() {
		It("creates an active user with normalised fields", func() {
			u, err := service.CreateUser(ctx, adminID, user.CreateUserDTO{
				Email:      " Ana@Example.com ",
				Name:       "Ana",
				Department: "qc",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("ana@example.com"))
			Expect(u.Department).To(Equal("QC"))
			Expect(u.Role).To(Equal("user"))
			Expect(u.Active).To(BeTrue())
			Expect(recorder.entries).To(HaveLen(1))
			Expect(recorder.entries[0].Action).To(Equal(audit.ActionUserCreated))
		})

		It("requires MANAGE_USERS", func() {
			_, err := service.CreateUser(ctx, 42, user.CreateUserDTO{Email: "x@example.com", Name: "X", Department: "HR"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("rejects a duplicate email", func() {
			_, err := service.CreateUser(ctx, adminID, user.CreateUserDTO{Email: "root@example.com", Name: "Dup", Department: "IT"})
			Expect(errors.Is(err, internal.ErrEmailTaken)).To(BeTrue())
		})

		It("validates the payload", func() {
			_, err := service.CreateUser(ctx, adminID, user.CreateUserDTO{Email: "not-an-address", Name: "N", Department: "IT", Role: "owner"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("email must be a valid address"))
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("role must be one of"))
		})
	})

	Describe("GetUser", func() {
		It("lets anyone read their own record", func() {
			created, err := service.CreateUser(ctx, adminID, user.CreateUserDTO{Email: "b@example.com", Name: "B", Department: "RND"})
			Expect(err).NotTo(HaveOccurred())

			u, err := service.GetUser(ctx, created.ID, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("b@example.com"))
		})

		It("hides other users from non-admins", func() {
			_, err := service.GetUser(ctx, 42, adminID)
			Expect(err).To(MatchError(ContainSubstring("Insufficient role permissions")))
		})
	})

	Describe("DeactivateUser", func() {
		It("soft deletes and audits", func() {
			created, _ := service.CreateUser(ctx, adminID, user.CreateUserDTO{Email: "c@example.com", Name: "C", Department: "HR"})
			Expect(service.DeactivateUser(ctx, adminID, created.ID)).To(Succeed())
			Expect(repo.users[created.ID].Active).To(BeFalse())
			Expect(recorder.entries[len(recorder.entries)-1].Action).To(Equal(audit.ActionUserDeactivated))
		})

		It("refuses self-deactivation", func() {
			err := service.DeactivateUser(ctx, adminID, adminID)
			Expect(err).To(MatchError(ContainSubstring("own account")))
		})

		It("returns not found for unknown users", func() {
			err := service.DeactivateUser(ctx, adminID, 99)
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})
	})
})
