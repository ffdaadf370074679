package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
)

type pingerFunc func() error

func (f pingerFunc) Ping(_ context.Context) error {
	return f()
}

type panickingLister struct{}

func (panickingLister) ListTenants(_ context.Context, _ string) ([]directory.Tenant, error) {
	panic("listing exploded")
}

type recordingGauge struct {
	up []bool
}

func (g *recordingGauge) SetStoreUp(up bool) {
	g.up = append(g.up, up)
}

func TestHealth(t *testing.T) {
	gomega.RegisterTestingT(t)
	store := directory.NewMemoryStore()
	handler := newTestHandler(store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
	gomega.Expect(rec.Body.String()).To(gomega.Equal("{}"))
}

func TestHealthStoreDown(t *testing.T) {
	gomega.RegisterTestingT(t)
	store := directory.NewMemoryStore()
	store.PingErr = errors.New("server selection timeout")
	handler := newTestHandler(store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
	var checks map[string]string
	gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &checks)).To(gomega.Succeed())
	gomega.Expect(checks).To(gomega.HaveKeyWithValue(storeCheckName, "server selection timeout"))
}

func TestHealthRegistryRecordsGauge(t *testing.T) {
	gomega.RegisterTestingT(t)
	store := directory.NewMemoryStore()
	gauge := &recordingGauge{}
	registry := NewHealthRegistry(pingerFunc(func() error { return store.PingErr }), 0, 0, gauge)

	gomega.Expect(registry.CheckStatus()).To(gomega.BeEmpty())
	store.PingErr = errors.New("down")
	gomega.Expect(registry.CheckStatus()).To(gomega.HaveLen(1))
	gomega.Expect(gauge.up).To(gomega.Equal([]bool{true, false}))
}

func TestPeriodicHealthReportsStoreDownBeforeFirstTick(t *testing.T) {
	gomega.RegisterTestingT(t)
	gauge := &recordingGauge{}
	registry := NewHealthRegistry(pingerFunc(func() error { return errors.New("down") }), time.Hour, time.Second, gauge)
	handler := SetupRoutes(NewTenantHandler(nil, nil, nil, 0, nil), registry)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
	var checks map[string]string
	gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &checks)).To(gomega.Succeed())
	gomega.Expect(checks).To(gomega.HaveKeyWithValue(storeCheckName, "down"))
	gomega.Expect(gauge.up).To(gomega.Equal([]bool{false}))
}

func TestNotFound(t *testing.T) {
	gomega.RegisterTestingT(t)
	handler := newTestHandler(directory.NewMemoryStore())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
	var resp Response
	gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
	gomega.Expect(resp.Reason).To(gomega.Equal("not_found"))
}

func TestMethodNotAllowed(t *testing.T) {
	gomega.RegisterTestingT(t)
	handler := newTestHandler(directory.NewMemoryStore())

	for _, path := range []string{"/create", "/delete"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusMethodNotAllowed), path)
	}
}

func TestCORSPreflight(t *testing.T) {
	gomega.RegisterTestingT(t)
	handler := newTestHandler(directory.NewMemoryStore())

	req := httptest.NewRequest(http.MethodOptions, "/create", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
	gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).ToNot(gomega.BeEmpty())
}

func TestRecoveryFromPanic(t *testing.T) {
	gomega.RegisterTestingT(t)
	tenantHandler := NewTenantHandler(nil, nil, panickingLister{}, 0, nil)
	handler := SetupRoutes(tenantHandler, NewHealthRegistry(pingerFunc(func() error { return nil }), 0, 0, nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants", nil))

	gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
}
