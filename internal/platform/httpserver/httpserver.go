package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the sale API. Write and idle timeouts are
// generous because purchase calls hold a store transaction; the router
// applies its own per-request timeout below these.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
