package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr          string
	QuizFile          string
	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifeMins int

	AttemptLimit   int
	AttemptMinutes int
	Lector         string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string
	AuthTokenSecret    string
	RedisURL           string

	CORSOrigins         []string
	AuthRateLimitPerMin int
	StaticDir           string
}

// LoadConfig merges an optional .env file into the environment and reads
// the configuration from it. Variables already set win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	quizFile := envOrDefault("QUIZ_FILE", "test.json")
	return Config{
		HTTPAddr:            envOrDefault("HTTP_ADDR", ":8000"),
		QuizFile:            quizFile,
		DBDriver:            envOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:               os.Getenv("DB_DSN"),
		DBMaxOpenConns:      intOrDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:      intOrDefault("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifeMins:   intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		AttemptLimit:        intOrDefault("QUIZ_ATTEMPT_LIMIT", 3),
		AttemptMinutes:      intOrDefault("QUIZ_ATTEMPT_MINUTES", 60),
		Lector:              strings.TrimSpace(os.Getenv("LECTOR")),
		GitHubClientID:      os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret:  os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubRedirectURL:   os.Getenv("GITHUB_REDIRECT_URL"),
		AuthTokenSecret:     os.Getenv("AUTH_TOKEN_SECRET"),
		RedisURL:            os.Getenv("REDIS_URL"),
		CORSOrigins:         listOrDefault("CORS_ORIGINS", []string{"*"}),
		AuthRateLimitPerMin: intOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 60),
		StaticDir:           envOrDefault("STATIC_DIR", "static"),
	}
}

// DSN returns the configured DSN, or for SQLite a database file next to the
// quiz document when none is set.
func (c Config) DSN() string {
	if strings.TrimSpace(c.DBDSN) != "" {
		return c.DBDSN
	}
	return DefaultDBPath(c.QuizFile)
}

// DefaultDBPath swaps the quiz file extension for .db: test.json -> test.db.
func DefaultDBPath(quizFile string) string {
	ext := filepath.Ext(quizFile)
	return strings.TrimSuffix(quizFile, ext) + ".db"
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsToInt(v string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(v))
	return n
}

func intOrDefault(key string, fallback int) int {
	v := stringsToInt(os.Getenv(key))
	if v <= 0 {
		return fallback
	}
	return v
}

func listOrDefault(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
