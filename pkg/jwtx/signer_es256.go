package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type es256Signer struct {
	kid string
	key *ecdsa.PrivateKey
}

func newES256Signer(kid string, pemKey []byte) (*es256Signer, error) {
	priv, err := parsePKCS8(pemKey)
	if err != nil {
		return nil, err
	}
	key, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not ECDSA private key")
	}
	if key.Curve != elliptic.P256() {
		return nil, errors.New("jwtx: ES256 requires a P-256 key")
	}
	return &es256Signer{kid: kid, key: key}, nil
}

func (s *es256Signer) Alg() string              { return AlgorithmES256 }
func (s *es256Signer) KID() string              { return s.kid }
func (s *es256Signer) Public() crypto.PublicKey { return &s.key.PublicKey }

func (s *es256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
