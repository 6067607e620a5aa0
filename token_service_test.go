package authbridge

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	user *User
	err  error
}

func (s *stubResolver) ResolveUser(ctx context.Context, sessionID uuid.UUID) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func newTestTokenService(t *testing.T, resolver UserResolver) *TokenService {
	t.Helper()
	if resolver == nil {
		resolver = &stubResolver{user: &User{ID: uuid.New()}}
	}
	return NewTokenService(newTestKey(t, "test-key"), newTestConfig(), resolver, nil)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	userID := uuid.New()
	sessionID := uuid.New()

	ts := newTestTokenService(t, &stubResolver{user: &User{ID: userID}})

	claims, err := ts.MakeClaims(context.Background(), sessionID)
	require.NoError(t, err)

	token, err := ts.IssueToken(claims)
	require.NoError(t, err)

	verified := ts.VerifyToken(token)
	require.NotNil(t, verified)

	assert.Equal(t, sessionID.String(), verified.SessionID())
	assert.Equal(t, userID.String(), verified.UID)
	assert.False(t, verified.IsAnonymous())
	assert.Equal(t, "https://broker.test", verified.Issuer)
	assert.NotEmpty(t, verified.ID)
	require.NotNil(t, verified.IssuedAt)
	require.NotNil(t, verified.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), verified.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	issuing := newTestTokenService(t, nil)
	verifying := newTestTokenService(t, nil)

	claims, err := issuing.MakeClaims(context.Background(), uuid.New())
	require.NoError(t, err)

	token, err := issuing.IssueToken(claims)
	require.NoError(t, err)

	assert.Nil(t, verifying.VerifyToken(token))
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	ts := newTestTokenService(t, nil)

	claims, err := ts.MakeClaims(context.Background(), uuid.New(), WithTTL(-time.Minute))
	require.NoError(t, err)

	token, err := ts.IssueToken(claims)
	require.NoError(t, err)

	assert.Nil(t, ts.VerifyToken(token))
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	ts := newTestTokenService(t, nil)

	assert.Nil(t, ts.VerifyToken(""))
	assert.Nil(t, ts.VerifyToken("not.a.token"))
}

func TestIssueTokenEmbedsKID(t *testing.T) {
	ts := newTestTokenService(t, nil)

	claims, err := ts.MakeClaims(context.Background(), uuid.New())
	require.NoError(t, err)

	token, err := ts.IssueToken(claims)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &TokenClaims{})
	require.NoError(t, err)

	assert.Equal(t, "test-key", parsed.Header["kid"])
	assert.Equal(t, "ES256", parsed.Header["alg"])
}

func TestMakeClaimsAnonymous(t *testing.T) {
	ts := newTestTokenService(t, &stubResolver{err: ErrSessionNotFound})

	claims, err := ts.MakeClaims(context.Background(), uuid.New(), ForAnonymousSession())
	require.NoError(t, err)

	assert.Empty(t, claims.UID)
	assert.True(t, claims.IsAnonymous())
}

func TestMakeClaimsFailsWhenResolutionFails(t *testing.T) {
	ts := newTestTokenService(t, &stubResolver{err: ErrSessionNotFound})

	_, err := ts.MakeClaims(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestMakeClaimsWithAudience(t *testing.T) {
	ts := newTestTokenService(t, nil)

	claims, err := ts.MakeClaims(context.Background(), uuid.New(), WithAudience("https://rp.test"))
	require.NoError(t, err)

	assert.Equal(t, jwt.ClaimStrings{"https://rp.test"}, claims.Audience)
}
