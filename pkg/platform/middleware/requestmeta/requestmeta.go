// Package requestmeta provides middleware for request-scoped metadata.
// Every request gets a request ID (propagated from X-Request-ID or freshly
// generated), a pinned request time, and the calling system tag so audit
// records and logs stay consistent within one request.
package requestmeta

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"scorewise/pkg/requestcontext"
)

// HeaderRequestID is the inbound/outbound request correlation header.
const HeaderRequestID = "X-Request-ID"

// HeaderSourceSystem identifies the calling system (onboarding, loan flow).
const HeaderSourceSystem = "X-Source-System"

// Middleware captures request metadata into the context and echoes the
// request ID back to the caller.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		if source := r.Header.Get(HeaderSourceSystem); source != "" {
			ctx = requestcontext.WithSourceSystem(ctx, source)
		}

		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
