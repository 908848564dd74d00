// Package request assigns every inbound request an id for log and audit
// correlation, honoring an X-Request-ID set by an upstream proxy.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"salegate/pkg/requestcontext"
)

const Header = "X-Request-ID"

// Middleware stores the request id in the context and echoes it on the
// response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
