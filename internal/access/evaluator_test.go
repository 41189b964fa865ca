package access_test

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/marketplace/internal/access"
	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
	permissionDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/permission"
	"github.com/frahmantamala/marketplace/internal/role"
)

func int64Ptr(v int64) *int64 { return &v }

var _ = Describe("Evaluator", func() {
	var (
		ctx       context.Context
		source    *MockModuleSource
		perms     *MockPermissionSource
		evaluator *access.Evaluator
		editor    *role.Role
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = NewMockModuleSource()
		source.put(&moduleDatamodel.Module{
			ID:       10,
			Name:     "Catalog",
			IsActive: true,
			SubModules: []moduleDatamodel.SubModule{
				{ModuleID: 10, ID: 1, Name: "Products", IsActive: true},
				{ModuleID: 10, ID: 2, Name: "Brands", IsActive: false},
				{ModuleID: 10, ID: 3, Name: "Materials", IsActive: true, IsDeleted: true},
			},
		})
		perms = &MockPermissionSource{rows: []*permissionDatamodel.Permission{
			{ID: 1, RoleID: 5, ModuleID: 10, CanView: true, CanEdit: true, IsActive: true},
			{ID: 2, RoleID: 5, ModuleID: 10, SubModuleID: int64Ptr(1), CanAdd: true, CanDelete: true, CanViewAll: true, IsActive: true},
			{ID: 3, RoleID: 6, ModuleID: 10, CanView: true, IsActive: false},
			{ID: 4, RoleID: 8, ModuleID: 10, CanView: true, IsActive: true},
		}}

		store, err := access.NewMemoryStore(16, clockwork.NewFakeClock())
		Expect(err).NotTo(HaveOccurred())
		directory, err := access.NewModuleDirectory(source, access.DirectoryOptions{TTL: time.Minute, Store: store})
		Expect(err).NotTo(HaveOccurred())

		evaluator = access.NewEvaluator(directory, perms, nil, nil, nil)
		editor = &role.Role{ID: 5, Code: "editor", Level: 3}
	})

	Context("for a super admin", func() {
		It("allows anything without touching storage", func() {
			admin := &role.Role{ID: 1, Code: "superadmin", IsSuperAdmin: true}

			d, err := evaluator.Check(ctx, admin, "DoesNotExist", "frobnicate", "Nope")

			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(access.Decision{Allowed: true, Reason: access.ReasonSuperAdmin}))
			Expect(source.Calls()).To(Equal(0))
			Expect(perms.calls).To(Equal(0))
		})
	})

	DescribeTable("action synonyms on a module grant",
		func(action string, allowed bool) {
			d, err := evaluator.Check(ctx, editor, "Catalog", action, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Allowed).To(Equal(allowed))
		},
		Entry("view", "view", true),
		Entry("VIEW", "VIEW", true),
		Entry("edit", "edit", true),
		Entry("update", "Update", true),
		Entry("add", "add", false),
		Entry("create", "create", false),
		Entry("delete", "delete", false),
		Entry("remove", "REMOVE", false),
		Entry("viewall", "viewAll", false),
	)

	DescribeTable("action synonyms on a submodule grant",
		func(action string, allowed bool) {
			d, err := evaluator.Check(ctx, editor, "Catalog", action, "Products")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Allowed).To(Equal(allowed))
		},
		Entry("view", "view", false),
		Entry("add", "add", true),
		Entry("create", "Create", true),
		Entry("edit", "edit", false),
		Entry("delete", "delete", true),
		Entry("remove", "remove", true),
		Entry("viewall", "VIEWALL", true),
	)

	DescribeTable("deny reasons",
		func(r *role.Role, moduleName, action, sub string, reason access.Reason) {
			d, err := evaluator.Check(ctx, r, moduleName, action, sub)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal(reason))
		},
		Entry("unknown module", &role.Role{ID: 5}, "Ghost", "view", "", access.ReasonModuleNotFound),
		Entry("inactive submodule", &role.Role{ID: 5}, "Catalog", "view", "Brands", access.ReasonSubModuleNotFound),
		Entry("deleted submodule", &role.Role{ID: 5}, "Catalog", "view", "Materials", access.ReasonSubModuleNotFound),
		Entry("no row for the role", &role.Role{ID: 9}, "Catalog", "view", "", access.ReasonNoPermissionRow),
		Entry("inactive row", &role.Role{ID: 6}, "Catalog", "view", "", access.ReasonNoPermissionRow),
		Entry("unknown action", &role.Role{ID: 5}, "Catalog", "publish", "", access.ReasonUnknownAction),
		Entry("flag not granted", &role.Role{ID: 5}, "Catalog", "delete", "", access.ReasonNotGranted),
	)

	It("matches a submodule name without case", func() {
		d, err := evaluator.Check(ctx, editor, "Catalog", "add", "PRODUCTS")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Allowed).To(BeTrue())
	})

	It("does not fall back to the module row for a submodule check", func() {
		d, err := evaluator.Check(ctx, &role.Role{ID: 8}, "Catalog", "view", "Products")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Reason).To(Equal(access.ReasonNoPermissionRow))
	})

	It("returns storage failures as errors rather than denials", func() {
		perms.err = errors.New("timeout")
		d, err := evaluator.Check(ctx, editor, "Catalog", "view", "")
		Expect(err).To(HaveOccurred())
		Expect(d.Allowed).To(BeFalse())
	})
})
