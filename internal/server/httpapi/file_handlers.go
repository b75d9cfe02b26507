package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the allowance for multipart framing on top of the
// file size limit.
const multipartOverhead = 1 << 20

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	src, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeProblem(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
		case errors.Is(err, http.ErrMissingFile):
			writeProblem(w, http.StatusBadRequest, `no "file" part in request`)
		default:
			writeProblem(w, http.StatusBadRequest, "malformed multipart body")
		}
		return
	}
	defer src.Close()

	f, err := h.files.Upload(r.Context(), p.ID, hdr.Filename, src)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *Handler) downloadLink(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())

	link, err := h.download.RequestDownloadLink(r.Context(), p.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// serveDownload streams the file granted by a download token. No session
// is required.
func (h *Handler) serveDownload(w http.ResponseWriter, r *http.Request) {
	f, err := h.download.RedeemDownloadLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rc, err := h.files.Open(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename}))
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn(r.Context(), "download interrupted", "file_id", f.ID, "error", err)
	}
}
