// Package httpapi exposes the fileshare services over HTTP with a chi
// router.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
)

const maxJSONBody = 64 << 10

// Options carries the services and limits the router is built from.
type Options struct {
	Auth     *services.AuthService
	Signup   *services.SignupService
	Download *services.DownloadService
	Files    *services.FileService

	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	MaxUploadBytes  int64
	LoginRatePerMin int
	Logger          logging.Logger
}

// Handler holds the HTTP handlers. Build it with NewRouter.
type Handler struct {
	auth      *services.AuthService
	signup    *services.SignupService
	download  *services.DownloadService
	files     *services.FileService
	guard     *auth.Guard
	maxUpload int64
	log       logging.Logger
}

// NewRouter wires every route, its guard and the shared middleware.
func NewRouter(o Options) http.Handler {
	h := &Handler{
		auth:      o.Auth,
		signup:    o.Signup,
		download:  o.Download,
		files:     o.Files,
		guard:     auth.NewGuard(o.Auth),
		maxUpload: o.MaxUploadBytes,
		log:       o.Logger.With("module", "http"),
	}

	rate := o.LoginRatePerMin
	if rate <= 0 {
		rate = 10
	}
	limiter := httprate.Limit(rate, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusTooManyRequests, "too many attempts, try again later")
		}),
	)

	headers := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(headers.Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "")
	})

	r.Get("/", h.index)
	r.Get("/healthz", h.healthz)
	if o.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/ops", func(r chi.Router) {
		r.With(limiter).Post("/login", h.opsLogin)
		r.Group(func(r chi.Router) {
			r.Use(h.requireSession(opsVariant))
			r.Post("/logout", h.logout(opsVariant))
			r.Post("/upload", h.upload)
			r.Delete("/files/{id}", h.deleteFile)
		})
	})

	r.Route("/client", func(r chi.Router) {
		r.With(limiter).Post("/signup", h.clientSignup)
		r.With(limiter).Post("/login", h.clientLogin)
		r.Get("/verify/{token}", h.verifyEmail)
		r.Group(func(r chi.Router) {
			r.Use(h.requireSession(clientVariant))
			r.Post("/logout", h.logout(clientVariant))
			r.Get("/files", h.listFiles)
			r.Get("/download-link/{id}", h.downloadLink)
		})
	})

	r.Get("/download/{token}", h.serveDownload)

	return r
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "File Sharing API",
		"endpoints": map[string]string{
			"ops_login":     "POST /ops/login",
			"ops_logout":    "POST /ops/logout (ops token required)",
			"upload_file":   "POST /ops/upload (ops token required)",
			"delete_file":   "DELETE /ops/files/{id} (ops token required)",
			"client_signup": "POST /client/signup",
			"verify_email":  "GET /client/verify/{token}",
			"client_login":  "POST /client/login",
			"client_logout": "POST /client/logout (client token required)",
			"list_files":    "GET /client/files (client token required)",
			"download_link": "GET /client/download-link/{id} (client token required)",
			"download":      "GET /download/{token}",
		},
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are
// ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return common.ErrMissingCredentials
		}
		return fmt.Errorf("%w: malformed JSON body", common.ErrValidation)
	}
	return nil
}
