package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fileshare/internal/common"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const contentTypeProblemJSON = "application/problem+json"

// tokenProblemDetail is the single message for every bad signed token, so
// callers cannot tell a forged link from a stale one.
const tokenProblemDetail = "invalid or expired token"

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", contentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps service errors to an HTTP status and a client-safe detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrMissingCredentials):
		return http.StatusBadRequest, "missing credentials"
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, common.ErrEmailNotVerified):
		return http.StatusForbidden, "email not verified"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrInvalidSignature):
		return http.StatusBadRequest, tokenProblemDetail
	case errors.Is(err, common.ErrDuplicateIdentifier):
		return http.StatusConflict, "already registered"
	case errors.Is(err, common.ErrFileNotFound):
		return http.StatusNotFound, "file not found"
	case errors.Is(err, common.ErrFileTypeNotAllowed):
		return http.StatusUnsupportedMediaType, "only pptx, docx and xlsx files are accepted"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="fileshare"`)
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", redactPath(r.URL.Path), "error", err)
	}
	writeProblem(w, status, detail)
}
