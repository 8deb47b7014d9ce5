// Package requesttime captures one "now" per request so that match creation,
// audit entries and notification timestamps written by the same request agree.
package requesttime

import (
	"net/http"
	"time"

	"kitmatch/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
