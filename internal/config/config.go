package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	MongoURL string
	DBName   string

	JWTSecret      string
	AccessTokenTTL time.Duration

	AdminEmail    string
	AdminPassword string

	DefaultPage  int
	DefaultLimit int

	AllowedOrigins []string

	RateLimit       int
	RateLimitWindow time.Duration

	OTLPEndpoint string
}

func Load() Config {
	// .env is optional; system environment wins
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 9090)

	return Config{
		Env:             env,
		Port:            port,
		MongoURL:        getEnv("MONGO_URL", "mongodb://localhost:27017"),
		DBName:          getEnv("DB_NAME", "userhub-"+env),
		JWTSecret:       getEnv("JWT_SECRET", "37LvDSm4XvjYOh9Y"),
		AccessTokenTTL:  time.Duration(getEnvInt("TOKEN_EXPIRE_MINUTES", 1440)) * time.Minute,
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		DefaultPage:     getEnvInt("PAGINATION_DEFAULT_PAGE", 1),
		DefaultLimit:    getEnvInt("PAGINATION_DEFAULT_LIMIT", 10),
		AllowedOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimit:       getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		OTLPEndpoint:    os.Getenv("OTLP_ENDPOINT"),
	}
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
