package authbridge

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeRSAKey(t *testing.T, priv *rsa.PrivateKey) []byte {
	t.Helper()

	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
}

func encodePKCS8(t *testing.T, priv any) []byte {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func TestAnalyzeKeyRSA(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		wantAlg string
		wantErr error
	}{
		{name: "4096 signs RS512", bits: 4096, wantAlg: "RS512"},
		{name: "2048 signs RS256", bits: 2048, wantAlg: "RS256"},
		{name: "1024 signs RS256", bits: 1024, wantAlg: "RS256"},
		{name: "512 is rejected", bits: 512, wantErr: ErrUnsupportedKeySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priv, err := rsa.GenerateKey(rand.Reader, tt.bits)
			require.NoError(t, err)

			key, err := AnalyzeKey(encodeRSAKey(t, priv))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, KeyTypeRSA, key.Type)
			assert.Equal(t, tt.wantAlg, key.Algorithm)
			assert.Equal(t, tt.bits, key.ModulusLength)
		})
	}
}

func TestAnalyzeKeyEC(t *testing.T) {
	tests := []struct {
		name      string
		curve     elliptic.Curve
		wantCurve string
		wantAlg   string
		wantErr   error
	}{
		{name: "P-256 signs ES256", curve: elliptic.P256(), wantCurve: "P-256", wantAlg: "ES256"},
		{name: "P-384 signs ES384", curve: elliptic.P384(), wantCurve: "P-384", wantAlg: "ES384"},
		{name: "P-521 signs ES512", curve: elliptic.P521(), wantCurve: "P-521", wantAlg: "ES512"},
		{name: "P-224 is rejected", curve: elliptic.P224(), wantErr: ErrUnsupportedCurve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priv, err := ecdsa.GenerateKey(tt.curve, rand.Reader)
			require.NoError(t, err)

			key, err := AnalyzeKey(encodePKCS8(t, priv))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, KeyTypeEC, key.Type)
			assert.Equal(t, tt.wantCurve, key.Curve)
			assert.Equal(t, tt.wantAlg, key.Algorithm)
		})
	}
}

func TestAnalyzeKeyPEMFormats(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	sec1, err := AnalyzeKey(encodeECKey(t, priv))
	require.NoError(t, err)

	pkcs8, err := AnalyzeKey(encodePKCS8(t, priv))
	require.NoError(t, err)

	assert.Equal(t, sec1.Fingerprint, pkcs8.Fingerprint)
}

func TestAnalyzeKeyRejectsGarbage(t *testing.T) {
	_, err := AnalyzeKey([]byte("not a key"))
	assert.Error(t, err)

	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{0x01, 0x02}})
	_, err = AnalyzeKey(block)
	assert.Error(t, err)
}

func TestFingerprintFormat(t *testing.T) {
	key := newTestKey(t, "fp-test")

	// SHA-256 digest rendered as 32 colon-grouped uppercase hex bytes
	matched := regexp.MustCompile(`^([0-9A-F]{2}:){31}[0-9A-F]{2}$`).MatchString(key.Fingerprint)
	assert.True(t, matched, "unexpected fingerprint: %s", key.Fingerprint)
}

func TestFingerprintDeterministic(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	a, err := AnalyzeKey(encodeECKey(t, priv))
	require.NoError(t, err)

	b, err := AnalyzeKey(encodeECKey(t, priv))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	c, err := AnalyzeKey(encodeECKey(t, other))
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestJWKSShape(t *testing.T) {
	key := newTestKey(t, "jwks-test")

	raw, err := json.Marshal(key.JWKS())
	require.NoError(t, err)

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Keys, 1)

	jwk := doc.Keys[0]
	assert.Equal(t, "EC", jwk["kty"])
	assert.Equal(t, "P-256", jwk["crv"])
	assert.Equal(t, "ES256", jwk["alg"])
	assert.Equal(t, "sig", jwk["use"])
	assert.Equal(t, "jwks-test", jwk["kid"])
	assert.NotEmpty(t, jwk["x"])
	assert.NotEmpty(t, jwk["y"])
	assert.NotContains(t, jwk, "d")
}

func TestLoadSignKeyMissingFile(t *testing.T) {
	_, err := LoadSignKey("/nonexistent/key.pem", "kid")
	assert.Error(t, err)
}
