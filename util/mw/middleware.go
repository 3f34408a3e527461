package mw

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wkalt/colq/util/log"
)

/*
mw contains http middlewares.
*/

////////////////////////////////////////////////////////////////////////////////

// RequestIDHeader carries the request ID on responses, and on requests that
// arrive with one already assigned.
const RequestIDHeader = "X-Request-ID"

// WithRequestID is a middleware that tags the context of each request with a
// request ID. An ID supplied by the client is reused; otherwise a new one is
// generated.
func WithRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := log.AddTags(r.Context(), "request_id", id)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRequestLogging logs the method, path, and duration of each request.
func WithRequestLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		log.Debugw(r.Context(), "request complete",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed", time.Since(start),
		)
	})
}
