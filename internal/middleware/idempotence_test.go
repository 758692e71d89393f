package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements redisCommands in memory. TTLs are ignored; keys
// live for the duration of the test.
type fakeRedis struct {
	mu   sync.Mutex
	vals map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{vals: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.vals[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.vals[key]; ok {
			delete(f.vals, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newIdempotenceRouter(rdb redisCommands) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v2")
	api.Use(Idempotence(rdb))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	api.POST("/subscribe", ok)
	api.POST("/unsubscribe", ok)
	api.POST("/unsubscribe/one-click", ok)
	api.POST("/posts", ok)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotenceAllowsLifecycleReplays(t *testing.T) {
	r := newIdempotenceRouter(newFakeRedis())

	// Replaying an identical lifecycle request must keep succeeding.
	cases := []struct {
		path string
		body string
	}{
		{"/api/v2/subscribe", `{"email":"reader@example.com"}`},
		{"/api/v2/unsubscribe", `{"email":"reader@example.com"}`},
		{"/api/v2/unsubscribe/one-click", `{"recipient":"reader@example.com"}`},
	}
	for _, tc := range cases {
		for i := 0; i < 3; i++ {
			w := postJSON(r, tc.path, tc.body)
			assert.Equal(t, http.StatusOK, w.Code, "%s replay %d", tc.path, i+1)
		}
	}
}

func TestIdempotenceBlocksOtherDuplicates(t *testing.T) {
	r := newIdempotenceRouter(newFakeRedis())

	w := postJSON(r, "/api/v2/posts", `{"title":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/api/v2/posts", `{"title":"hello"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// A different body is a different request.
	w = postJSON(r, "/api/v2/posts", `{"title":"other"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShouldSkipIdempotence(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v2/subscribe", true},
		{http.MethodPost, "/api/v2/unsubscribe", true},
		{http.MethodPost, "/api/v2/unsubscribe/", true},
		{http.MethodPost, "/api/v2/unsubscribe/one-click", true},
		{http.MethodPost, "/api/v2/auth/login", true},
		{http.MethodPost, "/api/v2/posts", false},
		{http.MethodPut, "/api/v2/posts/42", false},
		{http.MethodDelete, "/api/v2/subscribe", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, shouldSkipIdempotence(tc.method, tc.path),
			"%s %s", tc.method, tc.path)
	}
}
