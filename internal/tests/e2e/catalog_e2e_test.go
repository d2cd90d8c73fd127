// Package e2e provides end-to-end tests for the product catalog.
// The suite runs the real HTTP handler in an httptest.Server on top of a file backed
// store in a temporary directory, so every request goes through the router, the service,
// the store and the collection file on disk.
//
// Each test starts from an empty collection file.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abgdnv/fscatalog/internal/app"
	"github.com/abgdnv/fscatalog/internal/config"
	"github.com/abgdnv/fscatalog/internal/store"
	pkgconfig "github.com/abgdnv/fscatalog/pkg/config"
	"github.com/abgdnv/fscatalog/pkg/messaging"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "CATALOG_SKIP_E2E_TESTS"

// productURL is the base URL for the catalog API.
const productURL = "/api/v1/products"

// capturingPublisher records every published event subject.
type capturingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *capturingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, event.Subject())
	return nil
}

func (p *capturingPublisher) taken() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.subjects
	p.subjects = nil
	return out
}

// CatalogE2ESuite is a test suite for end-to-end tests of the catalog.
type CatalogE2ESuite struct {
	suite.Suite
	dir        string
	path       string
	server     *httptest.Server
	httpClient *http.Client
	publisher  *capturingPublisher
	logger     *slog.Logger
}

// testConfig creates a configuration for the catalog backed by a file in dir.
func testConfig(path string) *config.Config {
	var cfg config.Config
	cfg.Store.Backend = pkgconfig.StoreBackendFile
	cfg.Store.Path = path
	cfg.Store.ReadPolicy = string(store.ReadLenient)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.NATS.Subject = "catalog.products"
	return &cfg
}

func (s *CatalogE2ESuite) SetupSuite() {
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// SetupTest starts a fresh server on an empty collection.
func (s *CatalogE2ESuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.path = filepath.Join(s.dir, "products.json")
	cfg := testConfig(s.path)

	productStore, err := app.NewStore(cfg.Store, s.logger)
	require.NoError(s.T(), err)
	s.publisher = &capturingPublisher{}
	deps := app.SetupDependencies(productStore, s.publisher, cfg, s.logger)

	s.server = httptest.NewServer(app.SetupHttpHandler(deps, cfg.Metrics))
	s.httpClient = s.server.Client()
}

func (s *CatalogE2ESuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func TestCatalogE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(CatalogE2ESuite))
}

func widgetPayload(code string) map[string]any {
	return map[string]any{
		"title":       "Widget " + code,
		"description": "A widget",
		"code":        code,
		"price":       9.99,
		"stock":       5,
		"category":    "tools",
	}
}

// do sends payload as JSON and returns status and raw body.
func (s *CatalogE2ESuite) do(method, path string, payload any) (int, []byte) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, body)
	require.NoError(s.T(), err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return resp.StatusCode, out
}

func (s *CatalogE2ESuite) collection(raw []byte) store.Collection {
	s.T().Helper()
	var c store.Collection
	require.NoError(s.T(), json.Unmarshal(raw, &c))
	return c
}

func (s *CatalogE2ESuite) onDisk() store.Collection {
	s.T().Helper()
	raw, err := os.ReadFile(s.path)
	require.NoError(s.T(), err)
	return s.collection(raw)
}

func (s *CatalogE2ESuite) TestLifecycle() {
	// empty catalog
	status, body := s.do(http.MethodGet, productURL, nil)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`[]`, string(body))

	// create two products
	status, body = s.do(http.MethodPost, productURL, widgetPayload("W1"))
	s.Require().Equal(http.StatusCreated, status, string(body))
	status, body = s.do(http.MethodPost, productURL, widgetPayload("W2"))
	s.Require().Equal(http.StatusCreated, status, string(body))
	created := s.collection(body)
	s.Require().Len(created, 2)
	s.Equal(1, created[0].ID)
	s.Equal(2, created[1].ID)
	s.True(created[1].Status)
	s.Equal(store.DefaultThumbnail, created[1].Thumbnails)
	s.Equal(created, s.onDisk())

	// lookup by code
	status, body = s.do(http.MethodGet, productURL+"/lookup?code=W2", nil)
	s.Equal(http.StatusOK, status)
	var found store.Product
	s.Require().NoError(json.Unmarshal(body, &found))
	s.Equal(2, found.ID)

	// update one field
	status, body = s.do(http.MethodPut, productURL+"/1", map[string]any{"stock": 0})
	s.Require().Equal(http.StatusOK, status, string(body))
	updated := s.collection(body)
	s.Equal(0, updated[0].Stock)
	s.Equal("Widget W1", updated[0].Title)

	// remove a non-last product, its id is not reused
	status, _ = s.do(http.MethodDelete, productURL+"/1", nil)
	s.Equal(http.StatusNoContent, status)
	status, body = s.do(http.MethodPost, productURL, widgetPayload("W3"))
	s.Require().Equal(http.StatusCreated, status)
	after := s.collection(body)
	s.Require().Len(after, 2)
	s.Equal(2, after[0].ID)
	s.Equal(3, after[1].ID)

	s.Equal([]string{
		"catalog.products.created",
		"catalog.products.created",
		"catalog.products.updated",
		"catalog.products.removed",
		"catalog.products.created",
	}, s.publisher.taken())
}

func (s *CatalogE2ESuite) TestErrors() {
	status, _ := s.do(http.MethodPost, productURL, widgetPayload("W1"))
	s.Require().Equal(http.StatusCreated, status)

	testCases := []struct {
		name         string
		method       string
		path         string
		payload      any
		expectedCode int
	}{
		{name: "duplicate code", method: http.MethodPost, path: productURL, payload: widgetPayload("W1"), expectedCode: http.StatusConflict},
		{name: "missing fields", method: http.MethodPost, path: productURL, payload: map[string]any{"title": "x"}, expectedCode: http.StatusBadRequest},
		{name: "negative price", method: http.MethodPost, path: productURL, payload: func() map[string]any {
			p := widgetPayload("W9")
			p["price"] = -1
			return p
		}(), expectedCode: http.StatusBadRequest},
		{name: "unknown id", method: http.MethodGet, path: productURL + "/42", expectedCode: http.StatusNotFound},
		{name: "update unknown id", method: http.MethodPut, path: productURL + "/42", payload: map[string]any{"title": "x"}, expectedCode: http.StatusNotFound},
		{name: "create unknown field", method: http.MethodPost, path: productURL, payload: func() map[string]any {
			p := widgetPayload("W9")
			p["colour"] = "red"
			return p
		}(), expectedCode: http.StatusBadRequest},
		{name: "update unknown field", method: http.MethodPut, path: productURL + "/1", payload: map[string]any{"colour": "red"}, expectedCode: http.StatusBadRequest},
		{name: "remove unknown id", method: http.MethodDelete, path: productURL + "/42", expectedCode: http.StatusNotFound},
		{name: "lookup without match", method: http.MethodGet, path: productURL + "/lookup?code=nope", expectedCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			status, body := s.do(tc.method, tc.path, tc.payload)
			s.Equal(tc.expectedCode, status, string(body))
		})
	}

	s.Len(s.onDisk(), 1, "failed requests leave the collection untouched")
}

func (s *CatalogE2ESuite) TestConcurrentCreates() {
	const n = 16
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := s.do(http.MethodPost, productURL, widgetPayload(fmt.Sprintf("C%02d", i)))
			codes <- status
		}()
	}
	wg.Wait()
	close(codes)
	for status := range codes {
		s.Equal(http.StatusCreated, status)
	}

	c := s.onDisk()
	s.Require().Len(c, n)
	for i, p := range c {
		s.Equal(i+1, p.ID)
	}
}

func (s *CatalogE2ESuite) TestCorruptFileIsReadAsEmpty() {
	corrupt := []byte("{not json")
	s.Require().NoError(os.WriteFile(s.path, corrupt, 0o644))

	status, body := s.do(http.MethodGet, productURL, nil)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`[]`, string(body))

	status, _ = s.do(http.MethodGet, "/readyz", nil)
	s.Equal(http.StatusServiceUnavailable, status)

	status, _ = s.do(http.MethodPost, productURL, widgetPayload("W1"))
	s.Equal(http.StatusInternalServerError, status)
	raw, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(corrupt, raw, "a failed create leaves the damaged file in place")
	s.Empty(s.publisher.taken())
}

func (s *CatalogE2ESuite) TestMetricsEndpoint() {
	s.do(http.MethodGet, productURL, nil)

	status, body := s.do(http.MethodGet, "/metrics", nil)

	s.Equal(http.StatusOK, status)
	s.Contains(string(body), `catalog_store_operations_total{op="get_all",result="ok"} 1`)
}
