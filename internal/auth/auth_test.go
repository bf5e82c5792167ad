package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/auth"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	"github.com/frahmantamala/docflow/internal/transport"
	"github.com/frahmantamala/docflow/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Module Suite")
}

const secret = "0123456789abcdef0123456789abcdef"

type mockUsers map[int64]*userDatamodel.User

func (m mockUsers) GetUser(_ context.Context, id int64) (*userDatamodel.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

var _ = Describe("JWTValidator", func() {
	var validator *auth.JWTValidator

	BeforeEach(func() {
		validator = auth.NewJWTValidator(secret, "docflow")
	})

	It("round-trips a signed token", func() {
		token, err := validator.Sign(7, time.Hour)
		Expect(err).NotTo(HaveOccurred())

		claims, err := validator.ValidateToken(token)
		Expect(err).NotTo(HaveOccurred())
		id, err := claims.ActorID()
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(int64(7)))
	})

	It("reports expiry distinctly", func() {
		token, err := validator.Sign(7, -time.Minute)
		Expect(err).NotTo(HaveOccurred())
		_, err = validator.ValidateToken(token)
		Expect(err).To(Equal(internal.ErrTokenExpired))
	})

	It("rejects a token signed with another secret", func() {
		other := auth.NewJWTValidator("ffffffffffffffffffffffffffffffff", "docflow")
		token, err := other.Sign(7, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		_, err = validator.ValidateToken(token)
		Expect(err).To(Equal(internal.ErrInvalidToken))
	})

	It("rejects a token from another issuer", func() {
		other := auth.NewJWTValidator(secret, "someone-else")
		token, _ := other.Sign(7, time.Hour)
		_, err := validator.ValidateToken(token)
		Expect(err).To(Equal(internal.ErrInvalidToken))
	})

	It("rejects the none algorithm", func() {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).NotTo(HaveOccurred())
		_, err = validator.ValidateToken(raw)
		Expect(err).To(Equal(internal.ErrInvalidToken))
	})
})

var _ = Describe("Authenticate middleware", func() {
	var (
		validator  *auth.JWTValidator
		middleware *auth.Middleware
		seen       int64
		handler    http.Handler
	)

	BeforeEach(func() {
		validator = auth.NewJWTValidator(secret, "")
		users := mockUsers{
			1: {ID: 1, Role: userDatamodel.RoleUser, Active: true},
			2: {ID: 2, Role: userDatamodel.RoleUser, Active: false},
		}
		middleware = auth.NewMiddleware(transport.NewBaseHandler(logger.Nop()), validator, users)
		seen = 0
		handler = middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = internal.ActorIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
	})

	serve := func(userID int64, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		if header == "" && userID > 0 {
			token, err := validator.Sign(userID, time.Hour)
			Expect(err).NotTo(HaveOccurred())
			header = "Bearer " + token
		}
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("puts the actor id in the context", func() {
		rec := serve(1, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(seen).To(Equal(int64(1)))
	})

	It("requires a token", func() {
		Expect(serve(0, "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects garbage", func() {
		Expect(serve(0, "Bearer not.a.jwt").Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects unknown users", func() {
		Expect(serve(99, "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects inactive users", func() {
		Expect(serve(2, "").Code).To(Equal(http.StatusForbidden))
		Expect(seen).To(BeZero())
	})
})
