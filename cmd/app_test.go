package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/core/datamodel/datamodeltest"
	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
	"github.com/frahmantamala/marketplace/pkg/observability"
)

const (
	adminEmail    = "root@marketplace.test"
	adminPassword = "root-password"
)

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

var _ = Describe("Marketplace API", func() {
	var (
		ctx context.Context
		db  *gorm.DB
		app *App
		lg  *slog.Logger
	)

	do := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		return rec
	}

	login := func(principalType, email, password string) string {
		rec := do(http.MethodPost, "/api/v1/auth/"+principalType+"/login", "", map[string]string{
			"email":    email,
			"password": password,
		})
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		var session struct {
			Token string `json:"token"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &session)).To(Succeed())
		return session.Token
	}

	errorCode := func(rec *httptest.ResponseRecorder) errorEnvelope {
		var body errorEnvelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body
	}

	roleID := func(code string) int64 {
		var r roleDatamodel.Role
		Expect(db.Where("code = ?", code).First(&r).Error).To(Succeed())
		return r.ID
	}

	// provision creates a platform user through the API and logs it in.
	provision := func(root, email, password, roleCode string) string {
		rec := do(http.MethodPost, "/api/v1/platform/users", root, map[string]any{
			"email":    email,
			"name":     roleCode,
			"password": password,
			"role_id":  roleID(roleCode),
		})
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		return login("user", email, password)
	}

	BeforeEach(func() {
		ctx = context.Background()
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))

		var err error
		db, err = datamodeltest.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		sqlxDB, err := datamodeltest.SQLX(db)
		Expect(err).NotTo(HaveOccurred())

		Expect(newSeeder(db, 4, lg).Run(ctx, SeedAccount{Email: adminEmail, Password: adminPassword})).To(Succeed())

		cfg := &internal.Config{}
		cfg.Security.JWTSecret = "end-to-end-secret-0123456789abcdef"
		cfg.Security.BCryptCost = 4
		cfg.Access.ExposeDenialReason = true
		cfg.Observability.Metrics.Enabled = true
		cfg.ApplyDefaults()

		app, err = newApp(appDeps{
			Config:   cfg,
			DB:       db,
			SQLX:     sqlxDB,
			Registry: observability.NewRegistry(),
			Logger:   lg,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		_ = sqlDB.Close()
	})

	Describe("seed", func() {
		It("is idempotent", func() {
			// When
			Expect(newSeeder(db, 4, lg).Run(ctx, SeedAccount{Email: adminEmail, Password: adminPassword})).To(Succeed())

			// Then
			var roles int64
			Expect(db.Model(&roleDatamodel.Role{}).Count(&roles).Error).To(Succeed())
			Expect(roles).To(BeEquivalentTo(len(seedRoles)))
		})

		It("refuses a weak superadmin password", func() {
			err := newSeeder(db, 4, lg).Run(ctx, SeedAccount{Email: "x@y.z", Password: "short"})
			Expect(err).To(MatchError(ContainSubstring("8 characters")))
		})
	})

	Describe("superadmin", func() {
		var token string

		BeforeEach(func() {
			token = login("user", adminEmail, adminPassword)
		})

		It("reaches every management surface", func() {
			Expect(do(http.MethodGet, "/api/v1/roles", token, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/v1/modules", token, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/v1/permissions", token, nil).Code).To(Equal(http.StatusOK))
		})

		It("sees every active module on the menu", func() {
			rec := do(http.MethodGet, "/api/v1/modules/menu", token, nil)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body struct {
				Menu []map[string]any `json:"menu"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Menu).To(HaveLen(len(seedModules)))
		})

		It("is refused by a per-type gate for another type", func() {
			rec := do(http.MethodGet, "/api/v1/customer/profile", token, nil)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(rec).Error.Code).To(Equal(string(internal.ErrCodeInvalidTokenType)))
		})
	})

	Describe("staff provisioned by the superadmin", func() {
		var token string

		BeforeEach(func() {
			root := login("user", adminEmail, adminPassword)
			token = provision(root, "staff@marketplace.test", "staff-password", roleStaff)
		})

		It("reads what the staff role grants", func() {
			Expect(do(http.MethodGet, "/api/v1/permissions", token, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/v1/roles", token, nil).Code).To(Equal(http.StatusOK))
		})

		It("is denied a capability the row does not grant", func() {
			rec := do(http.MethodPost, "/api/v1/permissions", token, map[string]any{
				"role_id":   roleID(roleStaff),
				"module_id": 1,
				"can_add":   true,
			})

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			body := errorCode(rec)
			Expect(body.Error.Code).To(Equal(string(internal.ErrCodeAccessDenied)))
			Expect(body.Error.Details).To(HaveKeyWithValue("reason", "capability_not_granted"))
		})

		It("is held below the write level for roles", func() {
			rec := do(http.MethodPost, "/api/v1/roles", token, map[string]any{"code": "intern", "name": "Intern"})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("loses access once deactivated", func() {
			root := login("user", adminEmail, adminPassword)
			var staffID int64
			Expect(db.Table("platform_users").Select("id").Where("email = ?", "staff@marketplace.test").Scan(&staffID).Error).To(Succeed())

			rec := do(http.MethodPatch, "/api/v1/platform/users/"+strconv.FormatInt(staffID, 10)+"/status", root, map[string]any{"is_active": false})
			Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())

			Expect(do(http.MethodGet, "/api/v1/me", token, nil).Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("administrator provisioned by the superadmin", func() {
		var root, token string

		BeforeEach(func() {
			root = login("user", adminEmail, adminPassword)
			token = provision(root, "admin@marketplace.test", "admin-password", roleAdmin)
		})

		It("cannot edit roles once its grant on Roles is revoked", func() {
			adminRole := "/api/v1/roles/" + strconv.FormatInt(roleID(roleAdmin), 10)
			Expect(do(http.MethodGet, adminRole, token, nil).Code).To(Equal(http.StatusOK))

			var grantID int64
			Expect(db.Table("permissions").
				Select("permissions.id").
				Joins("JOIN modules ON modules.id = permissions.module_id").
				Where("permissions.role_id = ? AND modules.name = ? AND permissions.is_deleted = ?", roleID(roleAdmin), "Roles", false).
				Scan(&grantID).Error).To(Succeed())
			Expect(grantID).NotTo(BeZero())
			rec := do(http.MethodDelete, "/api/v1/permissions/"+strconv.FormatInt(grantID, 10), root, nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent), rec.Body.String())

			rec = do(http.MethodPut, adminRole, token, map[string]any{"is_super_admin": true})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			body := errorCode(rec)
			Expect(body.Error.Code).To(Equal(string(internal.ErrCodeAccessDenied)))
			Expect(body.Error.Details).To(HaveKeyWithValue("reason", "no_permission_row"))

			var superAdmin bool
			Expect(db.Table("roles").Select("is_super_admin").Where("code = ?", roleAdmin).Scan(&superAdmin).Error).To(Succeed())
			Expect(superAdmin).To(BeFalse())
		})
	})

	Describe("self registration", func() {
		It("signs a customer up with the default role", func() {
			rec := do(http.MethodPost, "/api/v1/auth/customer/register", "", map[string]string{
				"email":    "Buyer@Example.com",
				"name":     "Buyer",
				"password": "buyer-password",
			})
			Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())

			token := login("customer", "buyer@example.com", "buyer-password")

			me := do(http.MethodGet, "/api/v1/me", token, nil)
			Expect(me.Code).To(Equal(http.StatusOK))
			Expect(me.Body.String()).To(ContainSubstring(`"code":"customer"`))

			Expect(do(http.MethodGet, "/api/v1/customer/profile", token, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/v1/freelancer/profile", token, nil).Code).To(Equal(http.StatusUnauthorized))
			Expect(do(http.MethodGet, "/api/v1/permissions/my", token, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/v1/roles", token, nil).Code).To(Equal(http.StatusUnauthorized))
		})

		It("is closed to platform users", func() {
			rec := do(http.MethodPost, "/api/v1/auth/user/register", "", map[string]string{
				"email":    "sneaky@example.com",
				"name":     "Sneaky",
				"password": "sneaky-password",
			})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("account self service", func() {
		var token string

		BeforeEach(func() {
			rec := do(http.MethodPost, "/api/v1/auth/freelancer/register", "", map[string]string{
				"email":    "fred@example.com",
				"name":     "Fred",
				"password": "fred-password",
			})
			Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
			token = login("freelancer", "fred@example.com", "fred-password")
		})

		It("updates the caller's own profile", func() {
			rec := do(http.MethodPut, "/api/v1/freelancer/profile", token, map[string]any{"name": "Fred Stone", "phone": "0800"})
			Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
			Expect(rec.Body.String()).To(ContainSubstring(`"name":"Fred Stone"`))

			Expect(do(http.MethodPut, "/api/v1/customer/profile", token, map[string]any{"name": "x"}).Code).To(Equal(http.StatusUnauthorized))
		})

		It("changes the password only with the current one", func() {
			rec := do(http.MethodPut, "/api/v1/freelancer/change-password", token, map[string]any{
				"current_password": "wrong-password",
				"new_password":     "fresh-password",
				"confirm_password": "fresh-password",
			})
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))

			rec = do(http.MethodPut, "/api/v1/freelancer/change-password", token, map[string]any{
				"current_password": "fred-password",
				"new_password":     "fresh-password",
				"confirm_password": "other-password",
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			rec = do(http.MethodPut, "/api/v1/freelancer/change-password", token, map[string]any{
				"current_password": "fred-password",
				"new_password":     "fresh-password",
				"confirm_password": "fresh-password",
			})
			Expect(rec.Code).To(Equal(http.StatusNoContent), rec.Body.String())

			old := do(http.MethodPost, "/api/v1/auth/freelancer/login", "", map[string]string{"email": "fred@example.com", "password": "fred-password"})
			Expect(old.Code).To(Equal(http.StatusUnauthorized))
			login("freelancer", "fred@example.com", "fresh-password")
		})
	})

	Describe("account administration", func() {
		var root, admin, vendor string

		BeforeEach(func() {
			root = login("user", adminEmail, adminPassword)
			admin = provision(root, "admin@marketplace.test", "admin-password", roleAdmin)

			for _, t := range []string{"vendorb2b", "vendorb2c"} {
				rec := do(http.MethodPost, "/api/v1/auth/"+t+"/register", "", map[string]string{
					"email":    t + "@example.com",
					"name":     t,
					"password": "vendor-password",
				})
				Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
			}
			vendor = login("vendorb2b", "vendorb2b@example.com", "vendor-password")
		})

		accountID := func(table, email string) string {
			var id int64
			Expect(db.Table(table).Select("id").Where("email = ?", email).Scan(&id).Error).To(Succeed())
			return strconv.FormatInt(id, 10)
		}

		It("lists, suspends and deletes vendors through the submodule grants", func() {
			rec := do(http.MethodGet, "/api/v1/vendors/b2b", admin, nil)
			Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
			Expect(rec.Body.String()).To(ContainSubstring("vendorb2b@example.com"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("password"))

			id := accountID("vendors_b2b", "vendorb2b@example.com")
			rec = do(http.MethodPatch, "/api/v1/vendors/b2b/"+id+"/status", admin, map[string]any{"is_active": false})
			Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
			Expect(do(http.MethodGet, "/api/v1/vendor/b2b/profile", vendor, nil).Code).To(Equal(http.StatusUnauthorized))

			other := accountID("vendors_b2c", "vendorb2c@example.com")
			Expect(do(http.MethodDelete, "/api/v1/vendors/b2c/"+other, admin, nil).Code).To(Equal(http.StatusNoContent))
			Expect(do(http.MethodGet, "/api/v1/vendors/b2c/"+other, admin, nil).Code).To(Equal(http.StatusNotFound))
		})

		It("gates each vendor type on its own submodule", func() {
			var grantID int64
			Expect(db.Table("permissions").
				Select("permissions.id").
				Joins("JOIN modules ON modules.id = permissions.module_id").
				Joins("JOIN sub_modules ON sub_modules.module_id = permissions.module_id AND sub_modules.id = permissions.sub_module_id").
				Where("permissions.role_id = ? AND modules.name = ? AND sub_modules.name = ? AND permissions.is_deleted = ?", roleID(roleAdmin), "Vendors", "B2B", false).
				Scan(&grantID).Error).To(Succeed())
			Expect(grantID).NotTo(BeZero())
			Expect(do(http.MethodDelete, "/api/v1/permissions/"+strconv.FormatInt(grantID, 10), root, nil).Code).To(Equal(http.StatusNoContent))

			rec := do(http.MethodGet, "/api/v1/vendors/b2b", admin, nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(rec).Error.Details).To(HaveKeyWithValue("reason", "no_permission_row"))
			Expect(do(http.MethodGet, "/api/v1/vendors/b2c", admin, nil).Code).To(Equal(http.StatusOK))
		})

		It("edits a customer profile", func() {
			rec := do(http.MethodPost, "/api/v1/auth/customer/register", "", map[string]string{
				"email":    "buyer@example.com",
				"name":     "Buyer",
				"password": "buyer-password",
			})
			Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())

			id := accountID("customers", "buyer@example.com")
			rec = do(http.MethodPut, "/api/v1/customers/"+id, admin, map[string]any{"name": "Renamed Buyer"})
			Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
			Expect(rec.Body.String()).To(ContainSubstring("Renamed Buyer"))
		})

		It("is closed to staff without a grant and to marketplace accounts", func() {
			staff := provision(root, "staff@marketplace.test", "staff-password", roleStaff)

			rec := do(http.MethodGet, "/api/v1/customers", staff, nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(do(http.MethodGet, "/api/v1/customers", vendor, nil).Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("operations", func() {
		It("serves the OpenAPI document", func() {
			rec := do(http.MethodGet, "/openapi.yml", "", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("openapi: 3.0.3"))
		})

		It("exports access metrics", func() {
			login("user", adminEmail, adminPassword)
			do(http.MethodGet, "/api/v1/roles", "", nil)

			rec := do(http.MethodGet, "/metrics", "", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("marketplace_access_gate_rejections_total"))
			Expect(rec.Body.String()).To(ContainSubstring("http_requests_total"))
		})
	})
})
