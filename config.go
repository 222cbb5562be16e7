package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// config holds everything the server reads from the environment.
// Loaded once in main and passed into Handler; nothing else reads os.Getenv.
type config struct {
	Port            string
	DBURL           string
	DBMaxConns      int
	JWTSecret       string
	TokenTTL        time.Duration
	CookieSecure    bool
	AllowedOrigins  []string
	AuthRatePerMin  int
	ShutdownTimeout time.Duration

	// OpenAI-compatible endpoint used by the meal estimate route.
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
}

// loadConfig reads .env (if present) and then the process environment.
// DB_URL and JWT_SECRET are required; everything else has a default.
func loadConfig() (*config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}

	cfg := &config{
		Port:            getEnv("PORT", "3000"),
		DBURL:           os.Getenv("DB_URL"),
		DBMaxConns:      getIntEnv("DB_MAX_CONNS", 5),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        getDurationEnv("TOKEN_TTL", time.Hour),
		CookieSecure:    getBoolEnv("COOKIE_SECURE", true),
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001")),
		AuthRatePerMin:  getIntEnv("AUTH_RATE_PER_MINUTE", 10),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 5*time.Second),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

// getDurationEnv accepts Go duration strings ("90s", "1h").
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
