package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DrillCookieName is the cookie carrying the signed drill session token
const DrillCookieName = "tingxie_drill"

// GenerateSessionID creates a new UUID for a drill session
func GenerateSessionID() string {
	return uuid.New().String()
}

// IsSecureRequest determines if the request is over HTTPS, directly or
// behind a reverse proxy that sets X-Forwarded-Proto
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// CreateSessionCookie creates an HttpOnly cookie. Secure is set when the
// request arrived over HTTPS.
func CreateSessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateDeleteCookie creates a cookie that clears name in the browser
func CreateDeleteCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
