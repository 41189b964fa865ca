package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HealthHandler", func() {
	var (
		db      *sql.DB
		mock    sqlmock.Sqlmock
		handler *HealthHandler
	)

	BeforeEach(func() {
		var err error
		db, mock, err = sqlmock.New(sqlmock.MonitorPingsOption(true))
		Expect(err).NotTo(HaveOccurred())
		handler = NewHealthHandler(db, nil)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		_ = db.Close()
	})

	check := func() (*httptest.ResponseRecorder, HealthResponse) {
		rec := httptest.NewRecorder()
		handler.healthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		var body HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return rec, body
	}

	It("reports healthy when the database answers", func() {
		mock.ExpectPing()

		rec, body := check()

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(body.Status).To(Equal(HealthHealthy))
		Expect(body.Components).To(HaveKey("database"))
	})

	It("reports unhealthy without echoing the driver error", func() {
		mock.ExpectPing().WillReturnError(errors.New("dial tcp 10.0.0.1:5432: password=hunter2"))

		rec, body := check()

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(body.Status).To(Equal(HealthUnhealthy))
		Expect(body.Components["database"].Message).To(Equal("database unreachable"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("hunter2"))
	})

	It("fails the whole check when an extra component is down", func() {
		mock.ExpectPing()
		handler = NewHealthHandler(db, map[string]Probe{
			"cache": func(ctx context.Context) error { return errors.New("dial tcp: connection refused") },
		})

		rec, body := check()

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(body.Components["database"].Status).To(Equal(HealthHealthy))
		Expect(body.Components["cache"].Message).To(Equal("cache unreachable"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("refused"))
	})

	It("answers ping without touching the database", func() {
		rec := httptest.NewRecorder()
		handler.pingHandler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"status":"OK"`))
	})
})
