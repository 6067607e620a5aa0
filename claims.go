package authbridge

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set carried by issued tokens. Subject is
// always the session id; UID is present only for tokens minted against
// an authenticated session.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// SessionID returns the session identifier the token was minted for.
func (c *TokenClaims) SessionID() string {
	return c.RegisteredClaims.Subject
}

// IsAnonymous reports whether the token carries no user binding.
func (c *TokenClaims) IsAnonymous() bool {
	return c.UID == ""
}
