package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
)

// DownloadLink is a time-limited capability for one file.
type DownloadLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"download_link"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn string    `json:"expires_in"`
}

// DownloadService issues and redeems signed download links.
type DownloadService struct {
	repomanager repomanager.RepositoryManager
	signer      *auth.Signer
	baseURL     string
	metrics     *metrics.Metrics
	log         logging.Logger
}

func NewDownloadService(rm repomanager.RepositoryManager, signer *auth.Signer, baseURL string, m *metrics.Metrics, l logging.Logger) *DownloadService {
	return &DownloadService{
		repomanager: rm,
		signer:      signer,
		baseURL:     strings.TrimRight(baseURL, "/"),
		metrics:     m,
		log:         l.With("module", "download"),
	}
}

// RequestDownloadLink mints a link to fileID for an already authorized
// client. The link is valid for auth.SecureDownloadMaxAge.
func (s *DownloadService) RequestDownloadLink(ctx context.Context, clientID, fileID string) (*DownloadLink, error) {
	if fileID == "" {
		return nil, common.ErrFileNotFound
	}

	repo := s.repomanager.Files(s.repomanager.Conn())
	f, err := repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrFileNotFound) {
			s.metrics.Download("request", outcomeNotFound)
			return nil, err
		}
		s.log.Error(ctx, "file lookup failed", "file_id", fileID, "error", err)
		s.metrics.Download("request", outcomeError)
		return nil, common.ErrorInternal
	}

	now := s.signer.Now()
	token, err := s.signer.Encode(auth.Payload{"file_id": f.ID, "user_id": clientID}, auth.PurposeSecureDownload, now)
	if err != nil {
		s.log.Error(ctx, "download token encode failed", "file_id", f.ID, "error", err)
		s.metrics.Download("request", outcomeError)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "download link issued", "file_id", f.ID, "principal_id", clientID)
	s.metrics.Download("request", outcomeSuccess)

	return &DownloadLink{
		Token:     token,
		URL:       s.baseURL + "/download/" + token,
		ExpiresAt: now.Add(auth.SecureDownloadMaxAge).UTC(),
		ExpiresIn: "30 minutes",
	}, nil
}

// RedeemDownloadLink checks token and returns the file it grants. No session
// is needed; the token is the capability. A file deleted after the link was
// issued yields common.ErrFileNotFound.
func (s *DownloadService) RedeemDownloadLink(ctx context.Context, token string) (*models.File, error) {
	payload, err := s.signer.Decode(token, auth.PurposeSecureDownload, auth.SecureDownloadMaxAge)
	s.metrics.TokenDecode(auth.PurposeSecureDownload, decodeOutcome(err))
	if err != nil {
		s.metrics.Download("redeem", decodeOutcome(err))
		return nil, err
	}

	fileID := payload["file_id"]
	if fileID == "" {
		s.metrics.Download("redeem", outcomeInvalid)
		return nil, common.ErrInvalidSignature
	}

	repo := s.repomanager.Files(s.repomanager.Conn())
	f, err := repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrFileNotFound) {
			s.metrics.Download("redeem", outcomeNotFound)
			return nil, err
		}
		s.log.Error(ctx, "file lookup failed", "file_id", fileID, "error", err)
		s.metrics.Download("redeem", outcomeError)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "download link redeemed", "file_id", f.ID, "principal_id", payload["user_id"])
	s.metrics.Download("redeem", outcomeSuccess)
	return f, nil
}
