package jwtx

import (
	"crypto"
	"crypto/ed25519"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type eddsaSigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

func newEdDSASigner(kid string, pemKey []byte) (*eddsaSigner, error) {
	priv, err := parsePKCS8(pemKey)
	if err != nil {
		return nil, err
	}
	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not Ed25519 private key")
	}
	return &eddsaSigner{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

func (s *eddsaSigner) Alg() string              { return AlgorithmEdDSA }
func (s *eddsaSigner) KID() string              { return s.kid }
func (s *eddsaSigner) Public() crypto.PublicKey { return s.pub }

func (s *eddsaSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
