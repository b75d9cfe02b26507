package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/cryptox"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fileshare/internal/server/sessions"
)

// Login outcomes recorded in metrics.
const (
	outcomeSuccess    = "success"
	outcomeMissing    = "missing"
	outcomeInvalid    = "invalid"
	outcomeUnverified = "unverified"
	outcomeExpired    = "expired"
	outcomeNotFound   = "not_found"
	outcomeError      = "error"
)

// AuthService checks credentials and manages bearer sessions for both
// principal variants.
type AuthService struct {
	repomanager repomanager.RepositoryManager
	sessions    *sessions.Registry
	hasher      *cryptox.Hasher
	metrics     *metrics.Metrics
	log         logging.Logger
}

func NewAuthService(rm repomanager.RepositoryManager, reg *sessions.Registry, h *cryptox.Hasher, m *metrics.Metrics, l logging.Logger) *AuthService {
	return &AuthService{
		repomanager: rm,
		sessions:    reg,
		hasher:      h,
		metrics:     m,
		log:         l.With("module", "auth"),
	}
}

// Login verifies identifier and password within variant's namespace and
// opens a session. Unknown identifiers and wrong passwords both yield
// common.ErrInvalidCredentials after the same amount of hashing work. An
// unverified client with the right password gets common.ErrEmailNotVerified.
func (s *AuthService) Login(ctx context.Context, variant models.Variant, identifier, password string) (string, error) {
	if !variant.Valid() {
		return "", common.ErrValidation
	}

	identifier = models.NormalizeIdentifier(variant, identifier)
	if identifier == "" || password == "" {
		s.metrics.Login(variant.String(), outcomeMissing)
		return "", common.ErrMissingCredentials
	}

	repo := s.repomanager.Users(s.repomanager.Conn())

	p, err := repo.FindByIdentifier(ctx, variant, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(password)
			s.metrics.Login(variant.String(), outcomeInvalid)
			return "", common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "credential lookup failed", "variant", variant, "error", err)
		s.metrics.Login(variant.String(), outcomeError)
		return "", common.ErrorInternal
	}

	ok, err := s.hasher.Verify(password, p.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash unusable", "variant", variant, "principal_id", p.ID, "error", err)
		s.metrics.Login(variant.String(), outcomeError)
		return "", common.ErrorInternal
	}
	if !ok {
		s.metrics.Login(variant.String(), outcomeInvalid)
		return "", common.ErrInvalidCredentials
	}

	if variant == models.VariantClient && !p.Verified {
		s.metrics.Login(variant.String(), outcomeUnverified)
		return "", common.ErrEmailNotVerified
	}

	token, err := s.sessions.Create(ctx, p.ID, variant)
	if err != nil {
		s.log.Error(ctx, "session create failed", "variant", variant, "principal_id", p.ID, "error", err)
		s.metrics.Login(variant.String(), outcomeError)
		return "", common.ErrorInternal
	}

	s.log.Info(ctx, "login succeeded", "variant", variant, "principal_id", p.ID)
	s.metrics.Login(variant.String(), outcomeSuccess)
	return token, nil
}

// Authorize resolves a bearer token within variant's namespace. It
// satisfies auth.Authorizer.
func (s *AuthService) Authorize(ctx context.Context, token string, variant models.Variant) (string, error) {
	id, err := s.sessions.Resolve(ctx, token, variant)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return "", common.ErrorUnauthorized
		}
		s.log.Error(ctx, "session lookup failed", "variant", variant, "error", err)
		return "", common.ErrorInternal
	}
	return id, nil
}

// Logout revokes token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string, variant models.Variant) error {
	if err := s.sessions.Revoke(ctx, token, variant); err != nil {
		s.log.Error(ctx, "session revoke failed", "variant", variant, "error", err)
		return common.ErrorInternal
	}
	return nil
}

// CreateOpsUser provisions an ops account. Ops principals cannot sign up
// themselves; this is reached from the admin CLI only.
func (s *AuthService) CreateOpsUser(ctx context.Context, username, password string) (*models.Principal, error) {
	username = models.NormalizeIdentifier(models.VariantOps, username)
	if username == "" || password == "" {
		return nil, common.ErrMissingCredentials
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	p := &models.Principal{
		Variant:      models.VariantOps,
		Identifier:   username,
		PasswordHash: hash,
	}

	repo := s.repomanager.Users(s.repomanager.Conn())
	if _, err := repo.InsertIfAbsent(ctx, p); err != nil {
		if errors.Is(err, common.ErrDuplicateIdentifier) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating ops user: %w", err)
	}

	s.log.Info(ctx, "ops user created", "principal_id", p.ID, "username", p.Identifier)
	p.PasswordHash = ""
	return p, nil
}
