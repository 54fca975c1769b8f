package httpserver

import (
	"net/http"
	"time"
)

// New builds the introspection HTTP server with sane defaults. The surface is
// read-only and node-local, so timeouts are short.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
