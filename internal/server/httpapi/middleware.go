package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	opsVariant    = models.VariantOps
	clientVariant = models.VariantClient
)

// requireSession rejects requests without a live session of variant and
// injects the caller's principal into the request context.
func (h *Handler) requireSession(variant models.Variant) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
			ctx, err := h.guard.Require(r.Context(), token, variant)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger logs one line per request. The path is logged without the
// capability segment of /download and /client/verify links.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.log.Info(r.Context(), "http request",
			"method", r.Method,
			"path", redactPath(r.URL.Path),
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func redactPath(p string) string {
	for _, prefix := range []string{"/download/", "/client/verify/"} {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			return prefix + "[redacted]"
		}
	}
	return p
}
