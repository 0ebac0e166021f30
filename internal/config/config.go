package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	DBConn        string
	LogLevel      string
	JWTSecret     string
	CBRURL        string
	HMACSecret    string
	EncryptionKey []byte

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	GraceDays             int
	DueDatePolicy         amortization.DueDatePolicy
	ReminderCron          string
	ReminderLookaheadDays int
	CORSOrigins           []string
}

// NewConfig loads configuration from an optional .env file and environment variables
func NewConfig() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=loans sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CBRURL:       getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		HMACSecret:   getEnv("HMAC_SECRET", ""),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "25"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "loans@example.com"),
		ReminderCron: getEnv("REMINDER_CRON", "0 9 * * *"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}

	key := getEnv("ENCRYPTION_KEY", "")
	if key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	decoded, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex: %w", err)
	}
	if n := len(decoded); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24 or 32 bytes, got %d", n)
	}
	cfg.EncryptionKey = decoded

	if cfg.GraceDays, err = getEnvInt("GRACE_DAYS", 3); err != nil {
		return nil, err
	}
	if cfg.ReminderLookaheadDays, err = getEnvInt("REMINDER_LOOKAHEAD_DAYS", 3); err != nil {
		return nil, err
	}

	policy, ok := amortization.ParseDueDatePolicy(getEnv("DUE_DATE_POLICY", "calendar_month"))
	if !ok {
		return nil, fmt.Errorf("DUE_DATE_POLICY must be calendar_month or fixed_365")
	}
	cfg.DueDatePolicy = policy

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}
