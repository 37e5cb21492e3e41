package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "middleware")

const (
	apiKeyHeader    = "X-API-Key"
	signatureHeader = "X-Signature"
	timestampHeader = "X-Timestamp"
	maxTimeSkew     = 60 * time.Second
)

// AuthMiddleware authenticates requests with an HMAC-SHA256 signature over
// the timestamp and body.
type AuthMiddleware struct {
	apiKey    string
	apiSecret string
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(apiKey, apiSecret string) *AuthMiddleware {
	return &AuthMiddleware{apiKey: apiKey, apiSecret: apiSecret}
}

// Wrap wraps an http.Handler with authentication.
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !subtleEquals(r.Header.Get(apiKeyHeader), m.apiKey) {
			unauthorized(w, "invalid API key")
			return
		}

		timestampStr := r.Header.Get(timestampHeader)
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			unauthorized(w, "missing or invalid timestamp header")
			return
		}
		if skew := time.Since(time.Unix(timestamp, 0)); skew > maxTimeSkew || skew < -maxTimeSkew {
			unauthorized(w, "timestamp outside accepted window")
			return
		}

		requestSignature := r.Header.Get(signatureHeader)
		if requestSignature == "" {
			unauthorized(w, "missing signature header")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusInternalServerError)
			return
		}
		// Restore the body so the next handler can read it.
		r.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(m.apiSecret))
		mac.Write([]byte(timestampStr))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(requestSignature), []byte(expected)) {
			log.WithField("path", r.URL.Path).Warn("Rejected request with invalid signature")
			unauthorized(w, "invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusUnauthorized)
}

func subtleEquals(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
