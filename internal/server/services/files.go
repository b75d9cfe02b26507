package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/blobstore"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// allowedTypes maps each accepted extension to the content type the file is
// stored and served with. All three are OOXML zip containers.
var allowedTypes = map[string]string{
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// FileService stores uploaded documents and serves their bytes.
type FileService struct {
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	maxBytes    int64
	log         logging.Logger
}

func NewFileService(rm repomanager.RepositoryManager, blobs blobstore.Store, maxBytes int64, l logging.Logger) *FileService {
	return &FileService{
		repomanager: rm,
		blobs:       blobs,
		maxBytes:    maxBytes,
		log:         l.With("module", "files"),
	}
}

// Upload stores body as filename on behalf of ops principal opsID.
//
// Only docx, xlsx and pptx files are accepted, and their content must be a
// zip container; anything else fails with common.ErrFileTypeNotAllowed.
// The metadata row and the blob are written in one transaction: if the blob
// write fails the row is removed.
func (s *FileService) Upload(ctx context.Context, opsID, filename string, body io.Reader) (*models.File, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return nil, fmt.Errorf("%w: missing filename", common.ErrValidation)
	}

	contentType, ok := allowedTypes[extension(name)]
	if !ok {
		return nil, common.ErrFileTypeNotAllowed
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, s.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrValidation)
	}

	if !isZip(mimetype.Detect(data)) {
		return nil, common.ErrFileTypeNotAllowed
	}

	id := uuid.NewString()
	f := &models.File{
		ID:          id,
		Filename:    name,
		StorageKey:  "files/" + id,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedBy:  opsID,
	}

	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)
		if err := repo.Create(ctx, f); err != nil {
			return err
		}
		if err := s.blobs.Put(ctx, f.StorageKey, bytes.NewReader(data), f.Size, f.ContentType); err != nil {
			if derr := repo.Delete(ctx, f.ID); derr != nil && !errors.Is(derr, common.ErrFileNotFound) {
				s.log.Warn(ctx, "removing orphaned file row failed", "file_id", f.ID, "error", derr)
			}
			return fmt.Errorf("storing blob: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "upload failed", "filename", name, "principal_id", opsID, "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "file uploaded", "file_id", f.ID, "filename", f.Filename, "size", f.Size, "principal_id", opsID)
	return f, nil
}

// List returns every uploaded file, newest first.
func (s *FileService) List(ctx context.Context) ([]*models.File, error) {
	files, err := s.repomanager.Files(s.repomanager.Conn()).List(ctx)
	if err != nil {
		s.log.Error(ctx, "listing files failed", "error", err)
		return nil, common.ErrorInternal
	}
	return files, nil
}

// Open returns the bytes of f. A metadata row whose blob is gone reports
// common.ErrFileNotFound.
func (s *FileService) Open(ctx context.Context, f *models.File) (io.ReadCloser, error) {
	rc, err := s.blobs.Open(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "file row without blob", "file_id", f.ID)
			return nil, common.ErrFileNotFound
		}
		s.log.Error(ctx, "opening blob failed", "file_id", f.ID, "error", err)
		return nil, common.ErrorInternal
	}
	return rc, nil
}

// Delete removes the file row and then its blob. Outstanding download links
// for the file stop working.
func (s *FileService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Files(s.repomanager.Conn())

	f, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrFileNotFound) {
			return err
		}
		s.log.Error(ctx, "file lookup failed", "file_id", id, "error", err)
		return common.ErrorInternal
	}

	if err := repo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrFileNotFound) {
			return err
		}
		s.log.Error(ctx, "deleting file row failed", "file_id", id, "error", err)
		return common.ErrorInternal
	}

	if err := s.blobs.Delete(ctx, f.StorageKey); err != nil {
		s.log.Warn(ctx, "deleting blob failed", "file_id", id, "error", err)
	}

	s.log.Info(ctx, "file deleted", "file_id", id)
	return nil
}

// SanitizeFilename reduces name to a safe base name: directory parts are
// dropped, whitespace becomes "_", and only ASCII letters, digits, ".", "-"
// and "_" are kept. Leading dots are stripped.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "._")
}

func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func isZip(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}
