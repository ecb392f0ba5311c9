package security

import (
	"crypto/tls"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCSRFGenerator(t *testing.T) {
	g := NewCSRFGenerator("secret")
	token, err := g.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name      string
		generator *CSRFGenerator
		sessionID string
		token     string
		want      bool
	}{
		{"valid token", g, "session-1", token, true},
		{"other session", g, "session-2", token, false},
		{"empty token", g, "session-1", "", false},
		{"empty session", g, "", token, false},
		{"other secret", NewCSRFGenerator("other"), "session-1", token, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.generator.ValidateToken(tt.sessionID, tt.token); got != tt.want {
				t.Errorf("ValidateToken() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := g.GenerateToken(""); !errors.Is(err, ErrNoSession) {
		t.Errorf("GenerateToken(\"\") error = %v, want %v", err, ErrNoSession)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request within window should be rejected")
	}
	if !rl.Allow("b") {
		t.Error("other client should have its own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("request after window should be allowed")
	}

	now = now.Add(3 * time.Minute)
	rl.cleanup()
	if len(rl.visitors) != 0 {
		t.Errorf("cleanup left %d visitors, want 0", len(rl.visitors))
	}
}

func TestGetClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies("10.0.0.0/8, 192.0.2.10")
	if err != nil {
		t.Fatalf("ParseTrustedProxies() error = %v", err)
	}

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain via proxy", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.5"},
		{"spoofed hop before real client", map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5"}, "10.0.0.2:1234", "203.0.113.5"},
		{"single trusted ip", map[string]string{"X-Forwarded-For": "198.51.100.9"}, "192.0.2.10:80", "198.51.100.9"},
		{"real ip via proxy", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"forwarded from untrusted client", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "192.0.2.1:5555", "192.0.2.1"},
		{"real ip from untrusted client", map[string]string{"X-Real-IP": "198.51.100.7"}, "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr without port", nil, "192.0.2.1", "192.0.2.1"},
		{"proxy without headers", nil, "10.0.0.2:1234", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r, proxies); got != tt.want {
				t.Errorf("GetClientIP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetClientIPWithoutTrustedProxies(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.5")
	r.Header.Set("X-Real-IP", "198.51.100.7")

	if got := GetClientIP(r, nil); got != "192.0.2.1" {
		t.Errorf("GetClientIP() = %v, want 192.0.2.1", got)
	}
}

func TestParseTrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"ip and cidr", "127.0.0.1, 10.0.0.0/8", 2, false},
		{"ipv6", "::1", 1, false},
		{"invalid ip", "proxy.local", 0, true},
		{"invalid cidr", "10.0.0.0/99", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTrustedProxies(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTrustedProxies() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("ParseTrustedProxies() = %d networks, want %d", len(got), tt.want)
			}
		})
	}
}

func TestCookies(t *testing.T) {
	plain := httptest.NewRequest("GET", "/", nil)
	proxied := httptest.NewRequest("GET", "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	direct := httptest.NewRequest("GET", "/", nil)
	direct.TLS = &tls.ConnectionState{}

	if IsSecureRequest(plain) {
		t.Error("IsSecureRequest(plain) = true, want false")
	}
	if !IsSecureRequest(proxied) || !IsSecureRequest(direct) {
		t.Error("IsSecureRequest() = false for HTTPS request")
	}

	expires := time.Now().Add(time.Hour)
	c := CreateSessionCookie(proxied, DrillCookieName, "v", expires)
	if !c.HttpOnly || !c.Secure || c.Name != DrillCookieName || c.Value != "v" {
		t.Errorf("CreateSessionCookie() = %+v", c)
	}

	d := CreateDeleteCookie(plain, DrillCookieName)
	if d.MaxAge != -1 || d.Secure {
		t.Errorf("CreateDeleteCookie() = %+v", d)
	}
}

func TestSessionTokens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewSessionTokens("secret", time.Hour)
	tokens.now = func() time.Time { return now }

	token, expires, err := tokens.Issue("abc", "聽寫練習")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Errorf("Issue() expires = %v, want %v", expires, now.Add(time.Hour))
	}

	claims, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "abc" || claims.ListName != "聽寫練習" {
		t.Errorf("Parse() = %+v", claims)
	}

	other := NewSessionTokens("other", time.Hour)
	other.now = tokens.now
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse() with wrong secret error = %v, want %v", err, ErrInvalidToken)
	}

	now = now.Add(2 * time.Hour)
	if _, err := tokens.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse() expired error = %v, want %v", err, ErrInvalidToken)
	}

	if _, err := tokens.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(garbage) error = %v, want %v", err, ErrInvalidToken)
	}
}
