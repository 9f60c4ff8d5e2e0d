package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWT algorithm (string value used in JWKs and headers)
const ES256 = "ES256"

// DefaultKeyID is the kid advertised in the JWKS. The service signs with a
// single key; rotation means replacing the configured PEMs.
const DefaultKeyID = "default"

// KeyPair represents a public/private key pair for signing tokens
type KeyPair struct {
	KeyID      string
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
	Algorithm  string
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"`           // Key type (EC)
	Use string `json:"use,omitempty"` // sig or enc
	Kid string `json:"kid,omitempty"` // Key ID
	Alg string `json:"alg,omitempty"` // Algorithm
	Crv string `json:"crv,omitempty"` // Curve
	X   string `json:"x,omitempty"`   // X coordinate
	Y   string `json:"y,omitempty"`   // Y coordinate
}

// GenerateES256KeyPair generates a new P-256 key pair for ES256 signing
func GenerateES256KeyPair(keyID string) (*KeyPair, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate P-256 key: %w", err)
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  ES256,
	}, nil
}

// GetSigningMethod returns the JWT signing method for this key pair
func (kp *KeyPair) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodES256
}

// ExportPublicKeyPEM exports the public key as PEM (PKIX)
func (kp *KeyPair) ExportPublicKeyPEM() (string, error) {
	pubKeyBytes, err := x509.MarshalPKIXPublicKey(kp.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pubKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyBytes,
	})

	return string(pubKeyPEM), nil
}

// ExportPrivateKeyPEM exports the private key as PEM (PKCS#8)
func (kp *KeyPair) ExportPrivateKeyPEM() (string, error) {
	privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	return string(privateKeyPEM), nil
}

// ToJWK converts the key pair's public key to JWK format. Coordinates are
// fixed-width 32-byte big-endian values, base64url without padding.
func (kp *KeyPair) ToJWK() (*JWK, error) {
	if kp.PublicKey == nil || kp.PublicKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("unsupported public key")
	}

	x := make([]byte, 32)
	y := make([]byte, 32)
	kp.PublicKey.X.FillBytes(x)
	kp.PublicKey.Y.FillBytes(y)

	return &JWK{
		Kty: "EC",
		Use: "sig",
		Kid: kp.KeyID,
		Alg: kp.Algorithm,
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}, nil
}

// LoadECPrivateKeyFromPEM loads a P-256 private key from PEM. PKCS#8 and
// SEC 1 encodings are both accepted.
func LoadECPrivateKeyFromPEM(pemData string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not ECDSA")
		}
		return ecKey, nil
	}

	ecKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC private key: %w", err)
	}
	return ecKey, nil
}

// LoadKeyPairFromPEM loads a key pair from a PEM-encoded private key. The
// public half is derived from the private key.
func LoadKeyPairFromPEM(keyID, privateKeyPEM string) (*KeyPair, error) {
	privateKey, err := LoadECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load EC private key: %w", err)
	}
	if privateKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("private key curve is not P-256")
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  ES256,
	}, nil
}
