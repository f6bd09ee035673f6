package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// FakeAPI is an aggregation API double. Register routes on Engine before the
// first call to URL, which starts the server.
type FakeAPI struct {
	Engine *gin.Engine

	t       *testing.T
	once    sync.Once
	server  *httptest.Server
	mu      sync.Mutex
	hits    map[string]int
	queries map[string][]url.Values
	headers map[string][]http.Header
}

// NewFakeAPI creates a FakeAPI that records every request it receives.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		Engine:  gin.New(),
		t:       t,
		hits:    make(map[string]int),
		queries: make(map[string][]url.Values),
		headers: make(map[string][]http.Header),
	}
	f.Engine.Use(func(c *gin.Context) {
		key := c.Request.Method + " " + c.Request.URL.Path
		f.mu.Lock()
		f.hits[key]++
		f.queries[key] = append(f.queries[key], c.Request.URL.Query())
		f.headers[key] = append(f.headers[key], c.Request.Header.Clone())
		f.mu.Unlock()
		c.Next()
	})
	return f
}

// URL starts the server if needed and returns its base URL with a trailing slash.
func (f *FakeAPI) URL() string {
	f.once.Do(func() {
		f.server = httptest.NewServer(f.Engine)
		f.t.Cleanup(f.server.Close)
	})
	return f.server.URL + "/"
}

// Hits returns how many requests matched method and path.
func (f *FakeAPI) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// Queries returns the query strings of requests matching method and path.
func (f *FakeAPI) Queries(method, path string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.queries[method+" "+path]...)
}

// Headers returns the headers of requests matching method and path.
func (f *FakeAPI) Headers(method, path string) []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]http.Header(nil), f.headers[method+" "+path]...)
}

// Paginate answers with pages[page-1], where page comes from the "page" query
// parameter (default 1), and links the next page while one exists.
func Paginate[T any](c *gin.Context, pages [][]T) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 || page > len(pages) {
		c.JSON(http.StatusOK, []T{})
		return
	}
	if page < len(pages) {
		next := *c.Request.URL
		q := next.Query()
		q.Set("page", strconv.Itoa(page+1))
		next.RawQuery = q.Encode()
		next.Scheme = "http"
		next.Host = c.Request.Host
		c.Header("Link", `<`+next.String()+`>; rel="next"`)
	}
	c.JSON(http.StatusOK, pages[page-1])
}

// APIError writes an error body in the host's format.
func APIError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "type": "api", "subtype": "", "message": message}})
}
