package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/blogkit/blog-service/internal/auth"
	"github.com/blogkit/blog-service/internal/config"
	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/ratelimit"
	"github.com/blogkit/blog-service/internal/repository"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// TokenPair bundles the freshly issued access and refresh tokens.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RegisterInput carries validated-at-the-boundary registration fields.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService coordinates registration, login and token lifecycle flows.
// Component-level errors (hasher, verifier, store) are translated here into
// the client-visible taxonomy; driver detail never crosses this boundary.
type AuthService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	limiter    *ratelimit.LoginLimiter
	bcryptCost int
	minPwLen   int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	AccountRepo  repository.AccountRepository
	LoginLimiter *ratelimit.LoginLimiter
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL()),
		limiter:    deps.LoginLimiter,
		bcryptCost: cfg.Auth.BcryptCost,
		minPwLen:   cfg.Auth.MinPasswordLength,
	}
}

// Register creates a new account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, *TokenPair, error) {
	if err := s.validateRegistration(in); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         domain.RoleUser,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	pair, err := s.issuePair(account.ID)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

// Login authenticates by username or email. Unknown identifier and wrong
// password produce the same error so callers cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.Account, *TokenPair, error) {
	if identifier == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("identifier and password required", nil)
	}
	if err := s.limiter.Allow(ctx, identifier); err != nil {
		return nil, nil, err
	}

	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.limiter.RecordFailure(ctx, identifier)
			return nil, nil, apperrors.NewInvalidCredentials()
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		s.limiter.RecordFailure(ctx, identifier)
		return nil, nil, apperrors.NewInvalidCredentials()
	}
	if !account.Active {
		return nil, nil, apperrors.NewAccountInactive()
	}

	now := time.Now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	account.LastLogin = &now
	s.limiter.Reset(ctx, identifier)

	pair, err := s.issuePair(account.ID)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	subject, err := s.tokenMgr.Verify(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid refresh token")
	}

	account, err := s.accounts.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, apperrors.NewUnauthorized("account not found")
		}
		return "", time.Time{}, apperrors.MapError(err)
	}
	if !account.Active {
		return "", time.Time{}, apperrors.NewUnauthorized("account is deactivated")
	}

	token, exp, err := s.tokenMgr.IssueAccess(account.ID)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

// ChangePassword verifies the current password before storing the new hash.
// Previously issued tokens stay valid until natural expiry.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("current and new password required", nil)
	}
	if len(newPassword) < s.minPwLen {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", s.minPwLen), nil)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return apperrors.NewInvalidCredentials()
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return apperrors.MapError(s.accounts.UpdatePasswordHash(ctx, account.ID, hash))
}

// Logout is a no-op for stateless tokens; clients discard their pair. No
// blacklist is kept, so outstanding tokens stay valid until expiry.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issuePair(accountID string) (*TokenPair, error) {
	access, accessExp, err := s.tokenMgr.IssueAccess(accountID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, refreshExp, err := s.tokenMgr.IssueRefresh(accountID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) validateRegistration(in RegisterInput) error {
	details := map[string]any{}
	if strings.TrimSpace(in.Username) == "" {
		details["username"] = "required"
	}
	if strings.TrimSpace(in.Email) == "" {
		details["email"] = "required"
	} else if !emailPattern.MatchString(in.Email) {
		details["email"] = "invalid format"
	}
	if in.Password == "" {
		details["password"] = "required"
	} else if len(in.Password) < s.minPwLen {
		details["password"] = fmt.Sprintf("must be at least %d characters", s.minPwLen)
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration payload", details)
	}
	return nil
}
