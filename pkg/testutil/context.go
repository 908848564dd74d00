package testutil

import (
	"net/http"
	"time"

	id "salegate/pkg/domain"
	"salegate/pkg/requestcontext"
)

// WithCaller adds a caller account to the request context. This simulates
// what the auth middleware would do for authenticated requests. An invalid
// account is silently skipped so unauthenticated paths can be exercised too.
func WithCaller(req *http.Request, account string) *http.Request {
	parsed, err := id.ParseAccount(account)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
}

// WithTime pins the request-scoped clock, standing in for the request-time
// middleware.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
