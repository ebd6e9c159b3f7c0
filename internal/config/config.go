package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	RequestTimeout time.Duration
	DebugErrors    bool
	ReplyLimit     int
	Gemini         GeminiConfig
	Session        SessionConfig
}

type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

type SessionConfig struct {
	TTL           time.Duration
	CodeLength    int
	SweepInterval time.Duration
	RedisURL      string
}

// Load читает конфигурацию из окружения.
// Ключ API обязателен: без GEMINI_KEY или GOOGLE_API_KEY процесс не стартует.
func Load() (Config, error) {
	var cfg Config

	cfg.HTTPAddr = getEnv("HTTP_ADDR", "")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":" + getEnv("PORT", "8080")
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	apiKey := getEnv("GEMINI_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("GOOGLE_API_KEY", "")
	}
	if apiKey == "" {
		return Config{}, fmt.Errorf("no api key found, set GOOGLE_API_KEY or GEMINI_KEY in environment")
	}
	cfg.Gemini = GeminiConfig{
		APIKey:       apiKey,
		BaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		DefaultModel: getEnv("MODEL_NAME", "gemini-2.5-flash"),
	}

	reqTimeout, err := parseDuration(getEnv("HTTP_CLIENT_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = reqTimeout

	ttl, err := parseDuration(getEnv("SESSION_TTL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}

	sweep, err := parseDuration(getEnv("SESSION_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_SWEEP_INTERVAL: %w", err)
	}

	codeLen, err := parseIntDefault(getEnv("SESSION_CODE_LENGTH", ""), 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_CODE_LENGTH: %w", err)
	}
	// Длина кода удерживается в границах, которые принимает валидация.
	if codeLen < 3 {
		codeLen = 3
	}
	if codeLen > 6 {
		codeLen = 6
	}

	cfg.Session = SessionConfig{
		TTL:           ttl,
		CodeLength:    codeLen,
		SweepInterval: sweep,
		RedisURL:      getEnv("REDIS_URL", ""),
	}

	replyLimit, err := parseIntDefault(getEnv("REPLY_LIMIT", ""), 400)
	if err != nil {
		return Config{}, fmt.Errorf("parse REPLY_LIMIT: %w", err)
	}
	// Ноль и отрицательные значения отключили бы сокращение совсем.
	if replyLimit < 1 {
		replyLimit = 400
	}
	cfg.ReplyLimit = replyLimit

	debugErrors, err := parseBoolDefault(getEnv("DEBUG_ERRORS", ""), false)
	if err != nil {
		return Config{}, fmt.Errorf("parse DEBUG_ERRORS: %w", err)
	}
	cfg.DebugErrors = debugErrors

	return cfg, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	// Голое число трактуется как секунды, совместимо со старыми деплоями.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

// parseIntDefault parses optional integer with default value.
func parseIntDefault(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	return strconv.Atoi(value)
}

// parseBoolDefault parses optional boolean with default value.
func parseBoolDefault(value string, def bool) (bool, error) {
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}
