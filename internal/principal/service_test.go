package principal_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/marketplace/internal"
	principalDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/principal"
	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
	"github.com/frahmantamala/marketplace/internal/principal"
)

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainHasher) Compare(hash, plain string) bool { return hash == "hashed:"+plain }

func strPtr(s string) *string { return &s }

var _ = Describe("Principal Service", func() {
	var (
		ctx      context.Context
		accounts *MockAccounts
		roles    *mockRoles
		service  *principal.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		accounts = NewMockAccounts()
		roles = &mockRoles{roles: map[int64]*roleDatamodel.Role{
			1: {ID: 1, Code: "customer", Level: 1},
			2: {ID: 2, Code: "retired", IsDeleted: true},
		}}
		service = principal.NewService(accounts, roles, plainHasher{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	register := func(email string) *principal.Principal {
		p, err := service.Create(ctx, principal.TypeCustomer, principal.NewAccount{
			Email:    email,
			Name:     "Ann",
			Password: "secret-pass",
			RoleID:   1,
		})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("Create", func() {
		It("normalizes the email and hides the hash", func() {
			p := register("  Ann@Example.COM ")

			Expect(p.Email).To(Equal("ann@example.com"))
			Expect(p.PasswordHash).To(BeEmpty())
			Expect(p.IsActive).To(BeTrue())

			stored := accounts.tables[principalDatamodel.TableCustomers][p.ID]
			Expect(stored.PasswordHash).To(Equal("hashed:secret-pass"))
		})

		It("rejects an email already registered for the type", func() {
			register("ann@example.com")

			_, err := service.Create(ctx, principal.TypeCustomer, principal.NewAccount{Email: "ANN@example.com", RoleID: 1})
			Expect(err).To(Equal(principal.ErrEmailTaken))
		})

		It("allows the same email under another type", func() {
			register("ann@example.com")

			_, err := service.Create(ctx, principal.TypeFreelancer, principal.NewAccount{Email: "ann@example.com", RoleID: 1})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a missing or deleted role", func() {
			_, err := service.Create(ctx, principal.TypeCustomer, principal.NewAccount{Email: "a@b.co", RoleID: 2})
			Expect(err).To(Equal(principal.ErrInvalidRole))

			_, err = service.Create(ctx, principal.TypeCustomer, principal.NewAccount{Email: "a@b.co", RoleID: 9})
			Expect(err).To(Equal(principal.ErrInvalidRole))
		})

		It("rejects an unknown type", func() {
			_, err := service.Create(ctx, principal.Type("admin"), principal.NewAccount{Email: "a@b.co", RoleID: 1})
			Expect(err).To(Equal(principal.ErrInvalidType))
		})
	})

	Describe("FindForLogin", func() {
		It("returns the hash and live role", func() {
			register("ann@example.com")

			p, err := service.FindForLogin(ctx, principal.TypeCustomer, "ANN@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PasswordHash).To(Equal("hashed:secret-pass"))
			Expect(p.Role.Code).To(Equal("customer"))
		})

		It("returns nil for an unknown email", func() {
			p, err := service.FindForLogin(ctx, principal.TypeCustomer, "nobody@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeNil())
		})

		It("treats a deleted role as an inactive account", func() {
			p := register("ann@example.com")
			accounts.tables[principalDatamodel.TableCustomers][p.ID].RoleID = 2

			_, err := service.FindForLogin(ctx, principal.TypeCustomer, "ann@example.com")
			Expect(err).To(Equal(internal.ErrPrincipalInactive))
		})
	})

	Describe("status changes", func() {
		It("deactivates and keeps the credential", func() {
			p := register("ann@example.com")

			updated, err := service.SetActive(ctx, principal.TypeCustomer, p.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.IsActive).To(BeFalse())

			stored := accounts.tables[principalDatamodel.TableCustomers][p.ID]
			Expect(stored.IsActive).To(BeFalse())
			Expect(stored.PasswordHash).To(Equal("hashed:secret-pass"))
		})

		It("soft deletes once", func() {
			p := register("ann@example.com")

			Expect(service.SoftDelete(ctx, principal.TypeCustomer, p.ID)).To(Succeed())
			stored := accounts.tables[principalDatamodel.TableCustomers][p.ID]
			Expect(stored.IsDeleted).To(BeTrue())
			Expect(stored.DeletedAt).NotTo(BeNil())

			Expect(service.SoftDelete(ctx, principal.TypeCustomer, p.ID)).To(Equal(principal.ErrAccountNotFound))
		})

		It("wraps storage failures", func() {
			accounts.shouldFail = true
			accounts.failError = errors.New("timeout")

			_, err := service.SetActive(ctx, principal.TypeCustomer, 1, true)
			appErr, ok := internal.AsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
		})
	})

	Describe("UpdateProfile", func() {
		It("edits contact fields and keeps the credential", func() {
			p := register("ann@example.com")

			updated, err := service.UpdateProfile(ctx, principal.TypeCustomer, p.ID, principal.UpdateProfileRequest{
				Name:  strPtr("  Ann Lee "),
				Phone: strPtr("0800"),
				Email: strPtr("Lee@Example.com"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Ann Lee"))
			Expect(updated.Email).To(Equal("lee@example.com"))
			Expect(updated.PasswordHash).To(BeEmpty())

			stored := accounts.tables[principalDatamodel.TableCustomers][p.ID]
			Expect(stored.Phone).To(Equal("0800"))
			Expect(stored.PasswordHash).To(Equal("hashed:secret-pass"))
		})

		It("rejects an email held by another account of the type", func() {
			register("ann@example.com")
			bob := register("bob@example.com")

			_, err := service.UpdateProfile(ctx, principal.TypeCustomer, bob.ID, principal.UpdateProfileRequest{Email: strPtr("ANN@example.com")})
			Expect(err).To(Equal(principal.ErrEmailTaken))
		})

		It("accepts the account's own email", func() {
			p := register("ann@example.com")

			_, err := service.UpdateProfile(ctx, principal.TypeCustomer, p.ID, principal.UpdateProfileRequest{Email: strPtr("Ann@example.com")})
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses a deleted account", func() {
			p := register("ann@example.com")
			Expect(service.SoftDelete(ctx, principal.TypeCustomer, p.ID)).To(Succeed())

			_, err := service.UpdateProfile(ctx, principal.TypeCustomer, p.ID, principal.UpdateProfileRequest{Name: strPtr("x")})
			Expect(err).To(Equal(principal.ErrAccountNotFound))
		})
	})

	Describe("ChangePassword", func() {
		It("rehashes after verifying the current password", func() {
			p := register("ann@example.com")

			Expect(service.ChangePassword(ctx, principal.TypeCustomer, p.ID, "secret-pass", "fresh-pass")).To(Succeed())

			stored := accounts.tables[principalDatamodel.TableCustomers][p.ID]
			Expect(stored.PasswordHash).To(Equal("hashed:fresh-pass"))
		})

		It("refuses a wrong current password and keeps the old hash", func() {
			p := register("ann@example.com")

			err := service.ChangePassword(ctx, principal.TypeCustomer, p.ID, "guess", "fresh-pass")
			Expect(err).To(Equal(principal.ErrWrongPassword))

			stored := accounts.tables[principalDatamodel.TableCustomers][p.ID]
			Expect(stored.PasswordHash).To(Equal("hashed:secret-pass"))
		})

		It("refuses an unknown account", func() {
			err := service.ChangePassword(ctx, principal.TypeCustomer, 99, "secret-pass", "fresh-pass")
			Expect(err).To(Equal(principal.ErrAccountNotFound))
		})
	})

	Describe("List and Get", func() {
		It("lists live accounts of one type without hashes", func() {
			ann := register("ann@example.com")
			bob := register("bob@example.com")
			Expect(service.SoftDelete(ctx, principal.TypeCustomer, bob.ID)).To(Succeed())
			_, err := service.Create(ctx, principal.TypeFreelancer, principal.NewAccount{Email: "fred@example.com", RoleID: 1})
			Expect(err).NotTo(HaveOccurred())

			result, err := service.List(ctx, principal.TypeCustomer, principal.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Accounts).To(HaveLen(1))
			Expect(result.Accounts[0].ID).To(Equal(ann.ID))
			Expect(result.Accounts[0].PasswordHash).To(BeEmpty())
			Expect(result.Meta.Total).To(BeEquivalentTo(1))
		})

		It("gets one account and hides deleted ones", func() {
			p := register("ann@example.com")

			got, err := service.Get(ctx, principal.TypeCustomer, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("ann@example.com"))

			_, err = service.Get(ctx, principal.TypeBusiness, p.ID)
			Expect(err).To(Equal(principal.ErrAccountNotFound))
		})
	})
})
