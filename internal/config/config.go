package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string

	SendgridKey    string
	NotifyFrom     string
	NotifyFromName string
}

func Load() *Config {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "backoffice"),
		DBPassword: getEnv("DB_PASSWORD", "backoffice_dev_password"),
		DBName:     getEnv("DB_NAME", "backoffice"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),

		SendgridKey:    getEnv("SENDGRID_API_KEY", ""),
		NotifyFrom:     getEnv("NOTIFY_FROM_EMAIL", "noreply@localhost"),
		NotifyFromName: getEnv("NOTIFY_FROM_NAME", "Espace Formation"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
