package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// KeyPair holds the app's signing keys. The private half signs every token;
// the public half is published for platforms to verify against.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey

	// PublicPEM is the published form, served on /public_key.
	PublicPEM string
}

// LoadKeyPair reads both halves from PEM material. Each input may be either
// an inline PEM block or a path to a PEM file.
func LoadKeyPair(privateSrc, publicSrc string) (*KeyPair, error) {
	privPEM, err := readPEM(privateSrc)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	pubPEM, err := readPEM(publicSrc)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	priv, err := jwtv5.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwtv5.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &KeyPair{Private: priv, Public: pub, PublicPEM: string(pubPEM)}, nil
}

// ParsePublicKey parses a PEM-encoded RSA public key, as stored for platforms
// or fetched from their key endpoints.
func ParsePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	pub, err := jwtv5.ParseRSAPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// Generate creates a fresh RSA key pair. Used by the authctl key tooling and
// by tests.
func Generate(bits int) (*KeyPair, error) {
	if bits == 0 {
		bits = 2048
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return &KeyPair{
		Private:   priv,
		Public:    &priv.PublicKey,
		PublicPEM: string(pubPEM),
	}, nil
}

// PrivatePEM serializes the private half in PKCS#1 PEM form.
func (k *KeyPair) PrivatePEM() string {
	der := x509.MarshalPKCS1PrivateKey(k.Private)
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}))
}

// readPEM returns src itself when it already is PEM material, otherwise
// treats it as a file path.
func readPEM(src string) ([]byte, error) {
	if strings.Contains(src, "-----BEGIN") {
		return []byte(src), nil
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return b, nil
}
