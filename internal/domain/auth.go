package domain

// TokenType discriminates access tokens from refresh tokens. The claim is
// checked on every verification so a leaked refresh token cannot stand in
// for an access token, and vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Role identifies the capability level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)
