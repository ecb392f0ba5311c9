package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"tingxie/internal/security"
	"tingxie/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const DrillSessionContextKey ContextKey = "drill_session"

const csrfHeader = "X-CSRF-Token"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	drillService *service.DrillService
	tokens       *security.SessionTokens
	csrf         *security.CSRFGenerator
	limiter      *security.RateLimiter
	proxies      security.TrustedProxies
	adminHash    string
}

// NewMiddleware creates a new middleware instance. Forwarding headers are
// only trusted from proxies. An empty adminHash disables the admin routes.
func NewMiddleware(drillService *service.DrillService, tokens *security.SessionTokens, csrf *security.CSRFGenerator, limiter *security.RateLimiter, proxies security.TrustedProxies, adminHash string) *Middleware {
	return &Middleware{
		drillService: drillService,
		tokens:       tokens,
		csrf:         csrf,
		limiter:      limiter,
		proxies:      proxies,
		adminHash:    adminHash,
	}
}

// sessionFromCookie returns the drill session ID carried by a valid cookie
// whose session is still held in memory
func (m *Middleware) sessionFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(security.DrillCookieName)
	if err != nil {
		return "", false
	}

	claims, err := m.tokens.Parse(cookie.Value)
	if err != nil {
		return "", false
	}

	if _, err := m.drillService.List(claims.Subject); err != nil {
		return "", false
	}
	return claims.Subject, true
}

// RequireDrillSession rejects requests without a live drill session. Page
// requests are sent back to the list picker; API requests get 401.
func (m *Middleware) RequireDrillSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := m.sessionFromCookie(r)
		if !ok {
			if _, err := r.Cookie(security.DrillCookieName); err == nil {
				http.SetCookie(w, security.CreateDeleteCookie(r, security.DrillCookieName))
			}
			if r.Method == http.MethodGet && r.URL.Path == "/drill" {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
			return
		}

		ctx := context.WithValue(r.Context(), DrillSessionContextKey, sessionID)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect checks the token bound to the drill session. It must run
// inside RequireDrillSession.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := GetDrillSessionID(r.Context())

		token := r.Header.Get(csrfHeader)
		if token == "" {
			token = r.FormValue("csrf_token")
		}

		if !m.csrf.ValidateToken(sessionID, token) {
			log.Printf("Warning: CSRF validation failed for %s %s", r.Method, r.URL.Path)
			http.Error(w, ErrInvalidCSRFToken, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// CSRFToken returns the token pages embed for sessionID
func (m *Middleware) CSRFToken(sessionID string) string {
	token, err := m.csrf.GenerateToken(sessionID)
	if err != nil {
		return ""
	}
	return token
}

// RequireAdmin checks HTTP basic auth against the configured bcrypt hash
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.adminHash == "" {
			http.NotFound(w, r)
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok || !security.CheckPassword(password, m.adminHash) {
			w.Header().Set("WWW-Authenticate", `Basic realm="tingxie admin", charset="UTF-8"`)
			http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r, m.proxies)
		if !m.limiter.Allow(ip) {
			log.Printf("Rate limit exceeded for %s on %s", ip, r.URL.Path)
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetDrillSessionID retrieves the drill session ID from the request context
func GetDrillSessionID(ctx context.Context) string {
	id, _ := ctx.Value(DrillSessionContextKey).(string)
	return id
}
