package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "tingxie"

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks
var ErrInvalidToken = errors.New("invalid session token")

// DrillClaims identify a drill session held by the server
type DrillClaims struct {
	ListName string `json:"list,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokens signs and verifies drill session cookies with HS256
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for sessionID and its expiry time
func (s *SessionTokens) Issue(sessionID, listName string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := DrillClaims{
		ListName: listName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies token and returns its claims
func (s *SessionTokens) Parse(token string) (*DrillClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &DrillClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
