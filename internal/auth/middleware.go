package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/repository"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer access tokens and loads the caller account.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Handle enforces authentication for protected routes. Every failure here is
// a 401; role checks downstream answer with 403 instead.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}

	account, err := m.resolve(c, raw)
	if err != nil {
		return err
	}

	c.Locals(principalKey, account)
	return c.Next()
}

// Optional resolves the caller when a valid bearer token is present but lets
// anonymous requests through. Used for endpoints like comment creation where
// a logged-in author is attributed but not required.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return c.Next()
	}

	raw, err := bearerToken(c)
	if err != nil {
		return c.Next()
	}
	if account, err := m.resolve(c, raw); err == nil {
		c.Locals(principalKey, account)
	}
	return c.Next()
}

func (m *AuthMiddleware) resolve(c *fiber.Ctx, raw string) (*domain.Account, error) {
	subject, err := m.tokens.Verify(raw, domain.TokenTypeAccess)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return nil, apperrors.NewUnauthorized("token expired")
		case errors.Is(err, ErrWrongTokenType):
			return nil, apperrors.NewUnauthorized("access token required")
		default:
			return nil, apperrors.NewUnauthorized("invalid token")
		}
	}

	account, err := m.accounts.GetByID(c.Context(), subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("account not found")
		}
		return nil, apperrors.MapError(err)
	}
	if !account.Active {
		return nil, apperrors.NewUnauthorized("account is deactivated")
	}
	return account, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}

// AccountFromContext retrieves the authenticated account, if any.
func AccountFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}
