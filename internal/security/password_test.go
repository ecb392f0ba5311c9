package security

import (
	"testing"
)

func TestHashPassword(t *testing.T) {
	password := "testPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == password {
		t.Errorf("HashPassword() = %q, want a bcrypt hash", hash)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashPassword() should produce different hashes due to salt")
	}

	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(\"\") expected error")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "mySecurePassword"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "correct password", password: password, hash: hash, want: true},
		{name: "incorrect password", password: "wrongPassword", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "empty hash", password: password, hash: "", want: false},
		{name: "malformed hash", password: password, hash: "not-a-hash", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
