package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/cryptox"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/notify"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

const verifySubject = "Verify your email"

type signupInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=256"`
}

// SignupService registers client accounts and confirms their email
// addresses with signed links.
type SignupService struct {
	repomanager repomanager.RepositoryManager
	signer      *auth.Signer
	hasher      *cryptox.Hasher
	notifier    notify.Notifier
	validate    *validator.Validate
	baseURL     string
	metrics     *metrics.Metrics
	log         logging.Logger
}

func NewSignupService(rm repomanager.RepositoryManager, signer *auth.Signer, h *cryptox.Hasher,
	n notify.Notifier, baseURL string, m *metrics.Metrics, l logging.Logger) *SignupService {
	return &SignupService{
		repomanager: rm,
		signer:      signer,
		hasher:      h,
		notifier:    n,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		baseURL:     strings.TrimRight(baseURL, "/"),
		metrics:     m,
		log:         l.With("module", "signup"),
	}
}

// RequestSignup creates an unverified client account and mails a
// verification link. A second signup for the same email fails with
// common.ErrDuplicateIdentifier. Mail delivery failures are logged; the
// account is kept either way.
func (s *SignupService) RequestSignup(ctx context.Context, email, password string) (*models.Principal, error) {
	email = models.NormalizeIdentifier(models.VariantClient, email)
	if email == "" || password == "" {
		s.metrics.Signup("request", outcomeMissing)
		return nil, common.ErrMissingCredentials
	}

	if err := s.validate.Struct(signupInput{Email: email, Password: password}); err != nil {
		s.metrics.Signup("request", outcomeInvalid)
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, describeValidation(err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	p := &models.Principal{
		Variant:      models.VariantClient,
		Identifier:   email,
		PasswordHash: hash,
	}

	repo := s.repomanager.Users(s.repomanager.Conn())
	if _, err := repo.InsertIfAbsent(ctx, p); err != nil {
		if errors.Is(err, common.ErrDuplicateIdentifier) {
			s.metrics.Signup("request", "duplicate")
			return nil, err
		}
		s.log.Error(ctx, "client insert failed", "error", err)
		s.metrics.Signup("request", outcomeError)
		return nil, common.ErrorInternal
	}
	p.PasswordHash = ""

	token, err := s.signer.Encode(auth.Payload{"email": email}, auth.PurposeEmailVerify, s.signer.Now())
	if err != nil {
		s.log.Error(ctx, "verification token encode failed", "principal_id", p.ID, "error", err)
		s.metrics.Signup("request", outcomeError)
		return nil, common.ErrorInternal
	}

	link := s.baseURL + "/client/verify/" + token
	body := "Welcome!\r\n\r\nConfirm your email address by opening the link below within one hour:\r\n\r\n" + link + "\r\n"
	if err := s.notifier.Send(ctx, email, verifySubject, body); err != nil {
		s.log.Warn(ctx, "verification email not sent", "principal_id", p.ID, "error", err)
	}

	s.log.Info(ctx, "client signed up", "principal_id", p.ID)
	s.metrics.Signup("request", outcomeSuccess)
	return p, nil
}

// RedeemVerification marks the client named by a verification token as
// verified. Redeeming a token twice is harmless.
func (s *SignupService) RedeemVerification(ctx context.Context, token string) error {
	payload, err := s.signer.Decode(token, auth.PurposeEmailVerify, auth.EmailVerifyMaxAge)
	s.metrics.TokenDecode(auth.PurposeEmailVerify, decodeOutcome(err))
	if err != nil {
		s.metrics.Signup("verify", decodeOutcome(err))
		return err
	}

	email := payload["email"]
	if email == "" {
		return common.ErrInvalidSignature
	}

	repo := s.repomanager.Users(s.repomanager.Conn())
	p, err := repo.FindByIdentifier(ctx, models.VariantClient, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Signup("verify", outcomeNotFound)
			return common.ErrInvalidSignature
		}
		s.log.Error(ctx, "client lookup failed", "error", err)
		return common.ErrorInternal
	}

	if p.Verified {
		return nil
	}

	if err := repo.SetVerified(ctx, p.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidSignature
		}
		s.log.Error(ctx, "set verified failed", "principal_id", p.ID, "error", err)
		return common.ErrorInternal
	}

	s.log.Info(ctx, "client email verified", "principal_id", p.ID)
	s.metrics.Signup("verify", outcomeSuccess)
	return nil
}

func decodeOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, common.ErrTokenExpired):
		return outcomeExpired
	default:
		return outcomeInvalid
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, field+" must be at least "+fe.Param()+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
