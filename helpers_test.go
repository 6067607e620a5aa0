package authbridge

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// newTestKey generates a P-256 signing key; EC generation is cheap
// enough to do per test.
func newTestKey(t *testing.T, kid string) *SignKey {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	key, err := AnalyzeKey(encodeECKey(t, priv))
	require.NoError(t, err)
	key.KID = kid

	return key
}

func encodeECKey(t *testing.T, priv *ecdsa.PrivateKey) []byte {
	t.Helper()

	der, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

type testConfig struct {
	issuer          string
	kid             string
	tokenTTL        int
	pendingTTL      int
	cookieMaxAge    int
	postbackTimeout int
	reauthURL       string
	initializeURL   string
	portalURL       string
	errorPageURL    string
}

func newTestConfig() *testConfig {
	return &testConfig{
		issuer:          "https://broker.test",
		kid:             "test-key",
		tokenTTL:        3600,
		pendingTTL:      600,
		cookieMaxAge:    172800,
		postbackTimeout: 5,
		reauthURL:       "https://portal.test/reauth",
		initializeURL:   "https://portal.test/initialize",
		portalURL:       "https://portal.test/",
		errorPageURL:    "https://portal.test/error",
	}
}

func (c *testConfig) GetIssuer() string          { return c.issuer }
func (c *testConfig) GetDefaultKID() string      { return c.kid }
func (c *testConfig) GetTokenTTL() int           { return c.tokenTTL }
func (c *testConfig) GetPendingRedirectTTL() int { return c.pendingTTL }
func (c *testConfig) GetCookieMaxAge() int       { return c.cookieMaxAge }
func (c *testConfig) GetPostbackTimeout() int    { return c.postbackTimeout }
func (c *testConfig) GetReauthURL() string       { return c.reauthURL }
func (c *testConfig) GetInitializeURL() string   { return c.initializeURL }
func (c *testConfig) GetPortalURL() string       { return c.portalURL }
func (c *testConfig) GetErrorPageURL() string    { return c.errorPageURL }
