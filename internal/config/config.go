package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	MigrationsPath  string
	TemplatesPath   string
	StaticFilesPath string
	AudioPath       string

	SessionSecret   string
	SessionDuration time.Duration

	// Speech and sound effects
	TTSLanguage      string
	TTSSpeed         float64
	AudioPlayer      string
	EffectCorrectURL string
	EffectWrongURL   string
	WrongEffectLimit time.Duration

	DefaultList       string
	AdminPasswordHash string
	TrustedProxies    string // comma separated IPs or CIDRs allowed to set X-Forwarded-For

	// Session report email (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	ReportEmail  string

	Debug bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	staticPath := getEnv("STATIC_PATH", "./static")

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DatabasePath:    getEnv("DB_PATH", "./tingxie.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		TemplatesPath:   getEnv("TEMPLATES_PATH", "./internal/templates"),
		StaticFilesPath: staticPath,
		AudioPath:       getEnv("AUDIO_PATH", filepath.Join(staticPath, "audio")),

		SessionSecret:   getEnv("SESSION_SECRET", "change-me-in-production"),
		SessionDuration: getEnvDuration("SESSION_DURATION", 12*time.Hour),

		TTSLanguage:      getEnv("TTS_LANGUAGE", "zh-TW"),
		TTSSpeed:         getEnvFloat("TTS_SPEED", 0.8),
		AudioPlayer:      getEnv("AUDIO_PLAYER", "mpg123"),
		EffectCorrectURL: getEnv("EFFECT_CORRECT_URL", "https://static.lumi.new/material/f5/f5901670ee5c4ee9a934c52a076ee945.mp3"),
		EffectWrongURL:   getEnv("EFFECT_WRONG_URL", "https://static.lumi.new/material/d5/d59fce81a6ec4629dca550ecc81a4892.mp3"),
		WrongEffectLimit: getEnvDuration("WRONG_EFFECT_LIMIT", time.Second),

		DefaultList:       getEnv("DEFAULT_LIST", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		TrustedProxies:    getEnv("TRUSTED_PROXIES", ""),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "聽寫練習"),
		ReportEmail:  getEnv("REPORT_EMAIL", ""),

		Debug: getEnvBool("DEBUG", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
