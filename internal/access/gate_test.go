package access_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/marketplace/internal/access"
	"github.com/frahmantamala/marketplace/internal/auth"
	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/role"
)

type errorBody struct {
	Error struct {
		Type    string            `json:"type"`
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeError(rec *httptest.ResponseRecorder) errorBody {
	var body errorBody
	Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
	return body
}

// stubChecker answers every check with a fixed decision.
type stubChecker struct {
	decision access.Decision
	err      error
	calls    int
}

func (s *stubChecker) Check(ctx context.Context, r *role.Role, moduleName, action, subModuleName string) (access.Decision, error) {
	s.calls++
	return s.decision, s.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	w.Header().Set("X-Principal", string(p.Type))
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("Gate", func() {
	var (
		clock    *clockwork.FakeClock
		codec    *auth.TokenCodec
		resolver *MockResolver
		checker  *stubChecker
		gate     *access.Gate

		staff  *principal.Principal
		vendor *principal.Principal
	)

	issue := func(p *principal.Principal) string {
		token, _, err := codec.Issue(p)
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	BeforeEach(func() {
		clock = clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
		codec = auth.NewTokenCodec("gate-spec-secret-that-is-long-enough!!", time.Hour, clock)
		resolver = NewMockResolver()
		checker = &stubChecker{decision: access.Decision{Allowed: true, Reason: access.ReasonGranted}}
		gate = access.NewGate(codec, resolver, checker, access.GateOptions{})

		staff = &principal.Principal{ID: 1, Type: principal.TypeUser, IsActive: true,
			Role: &role.Role{ID: 2, Code: "manager", Level: 5}}
		vendor = &principal.Principal{ID: 1, Type: principal.TypeVendorB2C, IsActive: true,
			Role: &role.Role{ID: 3, Code: "vendorb2c", Level: 1}}
		resolver.add(staff)
		resolver.add(vendor)
	})

	Describe("Authenticate", func() {
		It("rejects a missing header", func() {
			rec := serve(gate.AuthenticateAny()(okHandler), "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal("MISSING_TOKEN"))
		})

		It("rejects a header without the bearer prefix", func() {
			req := httptest.NewRequest(http.MethodGet, "/resource", nil)
			req.Header.Set("Authorization", issue(staff))
			rec := httptest.NewRecorder()
			gate.AuthenticateAny()(okHandler).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(resolver.calls).To(Equal(0))
		})

		It("rejects a token signed with another secret", func() {
			foreign := auth.NewTokenCodec("some-other-secret-that-is-long-enough!", time.Hour, clock)
			token, _, err := foreign.Issue(staff)
			Expect(err).NotTo(HaveOccurred())

			rec := serve(gate.AuthenticateAny()(okHandler), token)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal("INVALID_TOKEN"))
		})

		It("rejects an expired vendorb2c token without any lookup", func() {
			// Given
			token := issue(vendor)
			clock.Advance(2 * time.Hour)

			// When
			rec := serve(gate.AuthenticateVendorB2C()(okHandler), token)

			// Then
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal("TOKEN_EXPIRED"))
			Expect(resolver.calls).To(Equal(0))
		})

		It("rejects a token of another principal type before resolving", func() {
			rec := serve(gate.AuthenticateUser()(okHandler), issue(vendor))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal("INVALID_TOKEN_TYPE"))
			Expect(resolver.calls).To(Equal(0))
		})

		It("dispatches any type on the token tag", func() {
			rec := serve(gate.AuthenticateAny()(okHandler), issue(vendor))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("X-Principal")).To(Equal("vendorb2c"))
		})

		It("rejects a principal that can no longer be resolved", func() {
			resolver.err = principal.ErrPrincipalInactive
			rec := serve(gate.AuthenticateUser()(okHandler), issue(staff))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal("PRINCIPAL_INACTIVE"))
		})

		It("reports resolver infrastructure failures as internal", func() {
			resolver.err = errors.New("db down")
			rec := serve(gate.AuthenticateUser()(okHandler), issue(staff))
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Authorize", func() {
		chain := func(opts access.AuthorizeOptions) http.Handler {
			return gate.AuthenticateAny()(gate.Authorize(opts)(okHandler))
		}

		It("passes any principal when nothing is configured", func() {
			Expect(serve(chain(access.AuthorizeOptions{}), issue(vendor)).Code).To(Equal(http.StatusOK))
		})

		It("passes on level alone", func() {
			Expect(serve(chain(access.AuthorizeOptions{MinLevel: 5, Roles: []string{"auditor"}}), issue(staff)).Code).To(Equal(http.StatusOK))
		})

		It("passes on role code alone", func() {
			Expect(serve(chain(access.AuthorizeOptions{MinLevel: 9, Roles: []string{"VendorB2C"}}), issue(vendor)).Code).To(Equal(http.StatusOK))
		})

		It("forbids when neither condition holds", func() {
			rec := serve(chain(access.AuthorizeOptions{MinLevel: 9, Roles: []string{"auditor"}}), issue(staff))
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(rec).Error.Code).To(Equal("INSUFFICIENT_ROLE"))
		})

		It("always passes a super admin", func() {
			staff.Role = &role.Role{ID: 1, Code: "root", Level: 0, IsSuperAdmin: true}
			Expect(serve(chain(access.AuthorizeOptions{MinLevel: 99}), issue(staff)).Code).To(Equal(http.StatusOK))
		})

		It("is unauthorized without an authenticated principal", func() {
			rec := serve(gate.Authorize(access.AuthorizeOptions{})(okHandler), "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal("NOT_AUTHENTICATED"))
		})
	})

	Describe("CheckPermission", func() {
		It("answers a denial with an opaque forbidden", func() {
			checker.decision = access.Decision{Reason: access.ReasonNoPermissionRow}

			rec := serve(gate.AuthenticateAny()(gate.CheckPermission("Catalog", "edit", "Products")(okHandler)), issue(staff))

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			body := decodeError(rec)
			Expect(body.Error.Code).To(Equal("ACCESS_DENIED"))
			Expect(body.Error.Message).To(ContainSubstring("edit on Catalog/Products"))
			Expect(body.Error.Details).To(BeEmpty())
		})

		It("adds the reason when configured to", func() {
			gate = access.NewGate(codec, resolver, checker, access.GateOptions{ExposeDenialReason: true})
			checker.decision = access.Decision{Reason: access.ReasonNotGranted}

			rec := serve(gate.AuthenticateAny()(gate.CheckPermission("Catalog", "edit")(okHandler)), issue(staff))

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(rec).Error.Details).To(HaveKeyWithValue("reason", "capability_not_granted"))
		})

		It("renders evaluator failures as internal errors", func() {
			checker.err = errors.New("redis down")
			rec := serve(gate.AuthenticateAny()(gate.CheckPermission("Catalog", "view")(okHandler)), issue(staff))
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
