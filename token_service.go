package authbridge

import (
	"context"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserResolver resolves the user bound to a session. The sessions
// repository satisfies this; tests substitute their own.
type UserResolver interface {
	ResolveUser(ctx context.Context, sessionID uuid.UUID) (*User, error)
}

// TokenService issues and verifies JWTs with the single active SignKey.
type TokenService struct {
	key        *SignKey
	issuer     string
	defaultTTL time.Duration
	method     jwt.SigningMethod
	resolver   UserResolver
	logger     Logger
}

// NewTokenService creates a new TokenService instance bound to the
// active signing key.
func NewTokenService(key *SignKey, cfg Config, resolver UserResolver, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	ttl := time.Duration(cfg.GetTokenTTL()) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenService{
		key:        key,
		issuer:     cfg.GetIssuer(),
		defaultTTL: ttl,
		method:     jwt.GetSigningMethod(key.Algorithm),
		resolver:   resolver,
		logger:     logger,
	}
}

// IssueToken signs the claims with the active key's algorithm and
// embeds the configured kid in the token header.
func (ts *TokenService) IssueToken(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(ts.method, claims)
	token.Header["kid"] = ts.key.KID

	signed, err := token.SignedString(ts.key.Private)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	metricTokensIssued.Inc()
	return signed, nil
}

// VerifyToken verifies strictly against the active key's algorithm and
// returns nil for any failure: bad signature, expiry, malformed input.
// Failures are logged at warn level, never surfaced to callers.
func (ts *TokenService) VerifyToken(tokenString string) *TokenClaims {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		return ts.key.Public, nil
	}, jwt.WithValidMethods([]string{ts.key.Algorithm}))

	if err != nil {
		ts.logger.Warn("token verification failed: %v", err)
		metricTokenVerifyFailures.Inc()
		return nil
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Warn("token verification produced no usable claims")
		metricTokenVerifyFailures.Inc()
		return nil
	}

	return claims
}

type claimsOptions struct {
	anonymous bool
	ttl       time.Duration
	audience  string
}

// ClaimsOption customizes MakeClaims.
type ClaimsOption func(*claimsOptions)

// ForAnonymousSession skips user resolution; the token carries no uid.
func ForAnonymousSession() ClaimsOption {
	return func(o *claimsOptions) {
		o.anonymous = true
	}
}

// WithTTL overrides the configured default expiry.
func WithTTL(ttl time.Duration) ClaimsOption {
	return func(o *claimsOptions) {
		o.ttl = ttl
	}
}

// WithAudience sets the aud claim.
func WithAudience(aud string) ClaimsOption {
	return func(o *claimsOptions) {
		o.audience = aud
	}
}

// MakeClaims builds the claim set for a session: sub is the session id,
// iss/iat/exp/jti are always present, uid is resolved from the session
// unless ForAnonymousSession is given. A uid resolution failure is an
// error; it must never silently omit the binding.
func (ts *TokenService) MakeClaims(ctx context.Context, sessionID uuid.UUID, opts ...ClaimsOption) (*TokenClaims, error) {
	options := &claimsOptions{ttl: ts.defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID.String(),
			Issuer:    ts.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(options.ttl)),
			ID:        uuid.NewString(),
		},
	}

	if options.audience != "" {
		claims.Audience = jwt.ClaimStrings{options.audience}
	}

	if !options.anonymous {
		user, err := ts.resolver.ResolveUser(ctx, sessionID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve user for session").
				WithMetadata(map[string]any{"session_id": sessionID.String()})
		}
		claims.UID = user.ID.String()
	}

	return claims, nil
}

// JWKS exposes the verification key set for the active signing key.
func (ts *TokenService) JWKS() jose.JSONWebKeySet {
	return ts.key.JWKS()
}
