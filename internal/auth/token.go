package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/blogkit/blog-service/internal/domain"
)

// Verification failures surfaced by TokenManager.Verify.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenManager issues and validates the signed access/refresh token pair.
// The signing secret and both lifetimes are fixed at construction; the clock
// is injectable so expiry behavior is testable.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Claims describes the JWT payload. The typ claim is the discriminator that
// keeps refresh tokens out of access-token slots and vice versa.
type Claims struct {
	TokenType domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// IssueAccess signs a short-lived access token for the account.
func (tm *TokenManager) IssueAccess(accountID string) (string, time.Time, error) {
	return tm.issue(accountID, domain.TokenTypeAccess, tm.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the account.
func (tm *TokenManager) IssueRefresh(accountID string) (string, time.Time, error) {
	return tm.issue(accountID, domain.TokenTypeRefresh, tm.refreshTTL)
}

func (tm *TokenManager) issue(accountID string, tokenType domain.TokenType, ttl time.Duration) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// A fresh jti guarantees two tokens for the same subject are
			// never byte-identical, even within the same second.
			ID:        uuid.NewString(),
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify validates signature, expiry and token type, returning the subject
// account id. Errors: ErrMalformedToken, ErrTokenExpired, ErrWrongTokenType.
func (tm *TokenManager) Verify(tokenStr string, expected domain.TokenType) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrMalformedToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrMalformedToken
	}
	if claims.TokenType != expected {
		return "", ErrWrongTokenType
	}
	if claims.Subject == "" {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}
