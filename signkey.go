package authbridge

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"os"
	"strings"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/goliatone/go-errors"
)

// KeyType is the asymmetric key family of the signing key.
type KeyType string

const (
	// KeyTypeRSA is an RSA keypair
	KeyTypeRSA KeyType = "rsa"
	// KeyTypeEC is an elliptic-curve keypair
	KeyTypeEC KeyType = "ec"
)

// SignKey is the analyzed signing keypair. It is built once at boot,
// treated as immutable for the process lifetime, and safe for
// concurrent reads.
type SignKey struct {
	Type          KeyType
	Algorithm     string
	ModulusLength int    // RSA only
	Curve         string // EC only
	KID           string
	Fingerprint   string
	Private       crypto.Signer
	Public        crypto.PublicKey
}

// LoadSignKey reads and analyzes the PEM keypair at path. Any failure
// is fatal to the caller: the process must not serve requests without
// a usable key.
func LoadSignKey(path, kid string) (*SignKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read signing key file").
			WithMetadata(map[string]any{"path": path})
	}

	key, err := AnalyzeKey(raw)
	if err != nil {
		return nil, err
	}

	key.KID = kid
	return key, nil
}

// AnalyzeKey parses a PEM private key and derives key family, signing
// algorithm, and public-key fingerprint from the raw key material.
//
// RSA keys select the algorithm by modulus length: >=4096 bits signs
// RS512, anything down to 1024 bits signs RS256, smaller keys are
// rejected. EC keys map P-256 to ES256, P-384 to ES384 and P-521 to
// ES512; other curves are rejected.
func AnalyzeKey(pemBytes []byte) (*SignKey, error) {
	signer, err := parsePrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}

	key := &SignKey{
		Private: signer,
		Public:  signer.Public(),
	}

	switch k := signer.(type) {
	case *rsa.PrivateKey:
		key.Type = KeyTypeRSA
		key.ModulusLength = k.N.BitLen()

		switch {
		case key.ModulusLength >= 4096:
			key.Algorithm = "RS512"
		case key.ModulusLength >= 1024:
			// 1024 is the minimum accepted size
			key.Algorithm = "RS256"
		default:
			return nil, ErrUnsupportedKeySize
		}
	case *ecdsa.PrivateKey:
		key.Type = KeyTypeEC

		switch k.Curve {
		case elliptic.P256():
			key.Curve = "P-256"
			key.Algorithm = "ES256"
		case elliptic.P384():
			key.Curve = "P-384"
			key.Algorithm = "ES384"
		case elliptic.P521():
			key.Curve = "P-521"
			key.Algorithm = "ES512"
		default:
			return nil, ErrUnsupportedCurve
		}
	default:
		return nil, ErrUnsupportedKeyType
	}

	der, err := x509.MarshalPKIXPublicKey(key.Public)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode public key")
	}
	key.Fingerprint = fingerprintDER(der)

	return key, nil
}

// JWK projects the public half of the key as a JSON Web Key with
// use:"sig", alg and kid set. RSA keys carry n/e, EC keys carry
// crv/x/y; downstream verifiers depend on this shape bit-exactly.
func (k *SignKey) JWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       k.Public,
		KeyID:     k.KID,
		Algorithm: k.Algorithm,
		Use:       "sig",
	}
}

// JWKS wraps the single active key as a key set. There is no rotation:
// one static key per process lifetime.
func (k *SignKey) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{k.JWK()}}
}

func parsePrivateKey(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in key material", errors.CategoryBadInput)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrUnsupportedKeyType
		}
		return signer, nil
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	return nil, errors.New("unable to parse private key from PEM block", errors.CategoryBadInput)
}

// fingerprintDER renders the SHA-256 digest of the DER-encoded public
// key as colon-grouped uppercase hex, e.g. "AB:CD:...".
func fingerprintDER(der []byte) string {
	sum := sha256.Sum256(der)
	hexed := strings.ToUpper(hex.EncodeToString(sum[:]))

	parts := make([]string, 0, len(hexed)/2)
	for i := 0; i < len(hexed); i += 2 {
		parts = append(parts, hexed[i:i+2])
	}
	return strings.Join(parts, ":")
}
