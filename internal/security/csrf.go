package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNoSession is returned when a CSRF token is requested without a session
var ErrNoSession = errors.New("session ID is required")

// CSRFGenerator derives CSRF tokens from the drill session ID with
// HMAC-SHA256, so no token state is kept on the server
type CSRFGenerator struct {
	secret []byte
}

func NewCSRFGenerator(secret string) *CSRFGenerator {
	return &CSRFGenerator{secret: []byte("csrf:" + secret)}
}

// GenerateToken returns the CSRF token for sessionID
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// ValidateToken reports whether token belongs to sessionID
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if token == "" {
		return false
	}
	expected, err := g.GenerateToken(sessionID)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(token))
}
