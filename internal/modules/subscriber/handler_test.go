package subscriber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thekandidedit/core/internal/config"
	"github.com/thekandidedit/core/internal/pkg/emailtoken"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, store *memStore, mailer *captureMailer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := emailtoken.New("lifecycle-test-secret")
	require.NoError(t, err)

	cfg := &config.AppConfig{
		Env:  "development",
		Site: config.SiteConfig{Name: "The Kandid Edit", URL: "https://example.com"},
	}
	svc := NewService(store, mailer, codec, Site{
		Name:    cfg.SiteName(),
		BaseURL: cfg.BaseURL(),
	}, zap.NewNop())

	r := gin.New()
	api := r.Group("/api/v2")
	NewHandler(svc, cfg).RegisterRoutes(api, func(c *gin.Context) { c.Next() })
	return r
}

func doRequest(r *gin.Engine, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubscribeEndpoint(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, &captureMailer{})

	w := doRequest(r, http.MethodPost, "/api/v2/subscribe", "application/json", `{"email":"reader@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["sent"])
	assert.Contains(t, body["confirmUrl"], "token=")

	store.row(t, "reader@example.com")
}

func TestSubscribeEndpointRejectsBadEmail(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &captureMailer{})

	for _, payload := range []string{`{}`, `{"email":"not-an-email"}`, `bogus`} {
		w := doRequest(r, http.MethodPost, "/api/v2/subscribe", "application/json", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %s", payload)
	}
}

func TestSubscribeEndpointAlreadyActive(t *testing.T) {
	store := newMemStore()
	mailer := &captureMailer{}
	r := newTestRouter(t, store, mailer)

	doRequest(r, http.MethodPost, "/api/v2/subscribe", "application/json", `{"email":"reader@example.com"}`)
	token := confirmTokenFromURL(t, mailer.lastConfirm.ConfirmURL)
	w := doRequest(r, http.MethodGet, "/api/v2/subscribe/confirm?token="+token, "", "")
	require.Equal(t, http.StatusFound, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v2/subscribe", "application/json", `{"email":"reader@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["alreadyActive"])
	assert.Len(t, mailer.confirmations, 1)
}

func TestConfirmEndpointRedirects(t *testing.T) {
	store := newMemStore()
	mailer := &captureMailer{}
	r := newTestRouter(t, store, mailer)

	doRequest(r, http.MethodPost, "/api/v2/subscribe", "application/json", `{"email":"reader@example.com"}`)
	token := confirmTokenFromURL(t, mailer.lastConfirm.ConfirmURL)

	w := doRequest(r, http.MethodGet, "/api/v2/subscribe/confirm?token="+token, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.Contains(t, loc, "https://example.com/auth/confirm?")
	assert.Contains(t, loc, "status=ok")
	assert.Contains(t, loc, "email=reader%40example.com")
}

func TestConfirmEndpointErrorRedirects(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &captureMailer{})

	cases := []struct {
		name   string
		path   string
		reason string
	}{
		{"missing token", "/api/v2/subscribe/confirm", "missing_token"},
		{"garbage token", "/api/v2/subscribe/confirm?token=garbage", "invalid_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, tc.path, "", "")
			require.Equal(t, http.StatusFound, w.Code)
			loc := w.Header().Get("Location")
			assert.Contains(t, loc, "status=error")
			assert.Contains(t, loc, "reason="+tc.reason)
		})
	}
}

func TestUnsubscribeEndpoint(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, &captureMailer{})

	doRequest(r, http.MethodPost, "/api/v2/subscribe", "application/json", `{"email":"reader@example.com"}`)

	w := doRequest(r, http.MethodPost, "/api/v2/unsubscribe", "application/json", `{"email":"reader@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	// Idempotent at HTTP level as well.
	w = doRequest(r, http.MethodPost, "/api/v2/unsubscribe", "application/json", `{"email":"reader@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOneClickEndpoint(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, &captureMailer{})
	require.NoError(t, store.InsertPending(context.Background(), "reader@example.com", "tok"))

	t.Run("missing recipient json", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v2/unsubscribe/one-click", "application/json", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing recipient form", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v2/unsubscribe/one-click",
			"application/x-www-form-urlencoded", "other=1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v2/unsubscribe/one-click", "application/json", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("json recipient", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v2/unsubscribe/one-click",
			"application/json", `{"recipient":"reader@example.com"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"accepted":true}`, w.Body.String())
	})

	t.Run("form recipient", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v2/unsubscribe/one-click",
			"application/x-www-form-urlencoded", "recipient=reader%40example.com")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"accepted":true}`, w.Body.String())
	})

	t.Run("store failure still accepted", func(t *testing.T) {
		store.failUpdates = true
		defer func() { store.failUpdates = false }()
		w := doRequest(r, http.MethodPost, "/api/v2/unsubscribe/one-click",
			"application/json", `{"recipient":"reader@example.com"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"accepted":true}`, w.Body.String())
	})

	t.Run("get probe", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v2/unsubscribe/one-click", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestUnsubscribeByTokenEndpoint(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, &captureMailer{})
	require.NoError(t, store.InsertPending(context.Background(), "reader@example.com", "tok"))

	codec, err := emailtoken.New("lifecycle-test-secret")
	require.NoError(t, err)
	token, err := codec.Issue("reader@example.com", emailtoken.PurposeUnsubscribe)
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/api/v2/unsubscribe?token="+token, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.Contains(t, loc, "https://example.com/unsubscribe?")
	assert.Contains(t, loc, "status=ok")

	w = doRequest(r, http.MethodGet, "/api/v2/unsubscribe", "", "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "reason=missing_token")
}
