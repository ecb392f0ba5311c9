package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_TYPE", "STATIC_PATH", "AUDIO_PATH", "TTS_SPEED", "WRONG_EFFECT_LIMIT", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %v, want %v", cfg.ServerPort, "8080")
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %v, want %v", cfg.DatabaseType, "sqlite")
	}
	if cfg.AudioPath != "static/audio" {
		t.Errorf("AudioPath = %v, want %v", cfg.AudioPath, "static/audio")
	}
	if cfg.TTSSpeed != 0.8 {
		t.Errorf("TTSSpeed = %v, want %v", cfg.TTSSpeed, 0.8)
	}
	if cfg.WrongEffectLimit != time.Second {
		t.Errorf("WrongEffectLimit = %v, want %v", cfg.WrongEffectLimit, time.Second)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "Postgres")
	t.Setenv("STATIC_PATH", "/srv/static")
	t.Setenv("AUDIO_PATH", "")
	t.Setenv("SESSION_DURATION", "30m")
	t.Setenv("TTS_SPEED", "1.0")
	t.Setenv("DEBUG", "true")

	cfg := Load()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"DatabaseType", cfg.DatabaseType, "postgres"},
		{"AudioPath", cfg.AudioPath, "/srv/static/audio"},
		{"SessionDuration", cfg.SessionDuration, 30 * time.Minute},
		{"TTSSpeed", cfg.TTSSpeed, 1.0},
		{"Debug", cfg.Debug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_DURATION", "soon")
	t.Setenv("TTS_SPEED", "fast")
	t.Setenv("DEBUG", "maybe")

	cfg := Load()

	if cfg.SessionDuration != 12*time.Hour {
		t.Errorf("SessionDuration = %v, want %v", cfg.SessionDuration, 12*time.Hour)
	}
	if cfg.TTSSpeed != 0.8 {
		t.Errorf("TTSSpeed = %v, want %v", cfg.TTSSpeed, 0.8)
	}
	if cfg.Debug {
		t.Error("Debug should fall back to false")
	}
}
