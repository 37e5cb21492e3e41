package server

import (
	"net/http"
	"time"
)

// NewServer creates and configures an HTTP server. The generous write
// timeout leaves room for scrypt derivation at standard cost.
func NewServer(handler http.Handler, port string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
