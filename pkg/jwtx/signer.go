package jwtx

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Supported JWT signing algorithms.
const (
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Public() crypto.PublicKey
}

// NewSigner builds a signer for alg from a PKCS8 PEM private key.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	switch alg {
	case AlgorithmEdDSA:
		return newEdDSASigner(kid, pemKey)
	case AlgorithmES256:
		return newES256Signer(kid, pemKey)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: ES256, EdDSA)", alg)
	}
}

func parsePKCS8(pemKey []byte) (any, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q", block.Type)
	}
	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}
	return priv, nil
}
