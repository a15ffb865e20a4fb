// Package testutil provides testing utilities for the catalog client and the
// paginated loader.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Product is the wire form of a catalog product served by MockCatalog.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
	Price       float64 `json:"price"`
}

// MockResponse overrides the answer for one skip offset.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable in-process catalog serving GET /products.
type MockCatalog struct {
	server *httptest.Server

	mu        sync.RWMutex
	products  []Product
	overrides map[int]MockResponse
	etags     bool
	cacheCtl  string

	// Tracking
	requestCount     int
	conditionalCount int
	skips            []int
	lastHeader       http.Header
}

// NewMockCatalog creates a catalog holding n generated products.
func NewMockCatalog(n int) *MockCatalog {
	mock := &MockCatalog{
		products:  GenerateProducts(n),
		overrides: make(map[int]MockResponse),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// GenerateProducts returns n products with ids 1..n.
func GenerateProducts(n int) []Product {
	products := make([]Product, n)
	for i := range products {
		id := i + 1
		products[i] = Product{
			ID:          id,
			Title:       fmt.Sprintf("Product %d", id),
			Description: fmt.Sprintf("Description of product %d", id),
			Thumbnail:   fmt.Sprintf("https://cdn.example.com/products/%d/thumbnail.webp", id),
			Price:       float64(id) + 0.99,
		}
	}
	return products
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// EnableETags makes the catalog send ETags and answer matching
// If-None-Match requests with 304.
func (m *MockCatalog) EnableETags() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etags = true
}

// SetCacheControl makes the catalog send the given Cache-Control header on
// product pages and 304 answers. Empty removes it.
func (m *MockCatalog) SetCacheControl(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheCtl = value
}

// SetResponse overrides the response for requests at the given skip.
func (m *MockCatalog) SetResponse(skip int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[skip] = resp
}

// ClearResponse removes an override.
func (m *MockCatalog) ClearResponse(skip int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, skip)
}

// GetRequestCount returns the number of requests served.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// RequestedSkips returns the skip parameter of every request, in order.
func (m *MockCatalog) RequestedSkips() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.skips...)
}

// LastRequestHeader returns the headers of the latest request.
func (m *MockCatalog) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

func (m *MockCatalog) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/products" {
		http.NotFound(w, r)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

	m.mu.Lock()
	m.requestCount++
	m.skips = append(m.skips, skip)
	m.lastHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.conditionalCount++
	}
	override, hasOverride := m.overrides[skip]
	etags := m.etags
	cacheCtl := m.cacheCtl
	m.mu.Unlock()

	if hasOverride {
		if override.Delay > 0 {
			time.Sleep(override.Delay)
		}
		for key, value := range override.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if cacheCtl != "" {
		w.Header().Set("Cache-Control", cacheCtl)
	}

	etag := fmt.Sprintf(`W/"products-%d-%d"`, skip, limit)
	if etags {
		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	body, err := json.Marshal(m.page(skip, limit))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

type pageBody struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

func (m *MockCatalog) page(skip, limit int) pageBody {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := pageBody{Products: []Product{}, Total: len(m.products), Skip: skip, Limit: limit}
	if skip < 0 || skip >= len(m.products) || limit <= 0 {
		return out
	}
	end := skip + limit
	if end > len(m.products) {
		end = len(m.products)
	}
	out.Products = append(out.Products, m.products[skip:end]...)
	return out
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>upstream exploded</html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Too many requests"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "10",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}
