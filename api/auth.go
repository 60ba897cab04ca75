package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("api: missing bearer token")
	ErrInvalidToken = errors.New("api: invalid bearer token")
)

// Verifier resolves a bearer token to the caller it was issued to.
type Verifier interface {
	Verify(token string) (common.Address, error)
}

// Signer issues and verifies HS256 bearer tokens whose subject is the
// caller's hex address.
type Signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSigner creates a Signer. The secret must not be empty.
func NewSigner(secret []byte, issuer string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("api: empty signing secret")
	}
	return &Signer{secret: secret, issuer: issuer, now: time.Now}, nil
}

// Issue returns a token for addr valid for ttl.
func (s *Signer) Issue(addr common.Address, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   addr.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify implements Verifier.
func (s *Signer) Verify(token string) (common.Address, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return common.Address{}, ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !common.IsHexAddress(claims.Subject) {
		return common.Address{}, fmt.Errorf("%w: subject %q is not an address", ErrInvalidToken, claims.Subject)
	}
	addr := common.HexToAddress(claims.Subject)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero subject", ErrInvalidToken)
	}
	return addr, nil
}
