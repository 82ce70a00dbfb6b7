package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Timeouts are generous enough to cover an
// argon2 verification under load but still bound a stuck client.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
