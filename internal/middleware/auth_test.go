package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey    = "test-key"
	testAPISecret = "test-secret"
)

func signedRequest(t *testing.T, body []byte, timestamp string, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sign-transaction", bytes.NewReader(body))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	req.Header.Set(apiKeyHeader, testAPIKey)
	req.Header.Set(timestampHeader, timestamp)
	req.Header.Set(signatureHeader, hex.EncodeToString(mac.Sum(nil)))
	return req
}

func wrapEcho(t *testing.T) http.Handler {
	t.Helper()
	m := NewAuthMiddleware(testAPIKey, testAPISecret)
	return m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The body must survive the middleware's signature check.
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write(body)
	}))
}

func now() string { return strconv.FormatInt(time.Now().Unix(), 10) }

func TestAuthAcceptsValidSignature(t *testing.T) {
	h := wrapEcho(t)
	body := []byte(`{"from":"0x01"}`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, signedRequest(t, body, now(), testAPISecret))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.Bytes())
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	h := wrapEcho(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, signedRequest(t, []byte("{}"), now(), "wrong-secret"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsWrongAPIKey(t *testing.T) {
	h := wrapEcho(t)
	req := signedRequest(t, []byte("{}"), now(), testAPISecret)
	req.Header.Set(apiKeyHeader, "other-key")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsStaleTimestamp(t *testing.T) {
	h := wrapEcho(t)
	stale := strconv.FormatInt(time.Now().Add(-5*time.Minute).Unix(), 10)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, signedRequest(t, []byte("{}"), stale, testAPISecret))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsMissingHeaders(t *testing.T) {
	h := wrapEcho(t)
	req := httptest.NewRequest(http.MethodPost, "/sign-transaction", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsTamperedBody(t *testing.T) {
	h := wrapEcho(t)
	req := signedRequest(t, []byte(`{"value":1}`), now(), testAPISecret)
	req.Body = io.NopCloser(bytes.NewReader([]byte(`{"value":2}`)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
