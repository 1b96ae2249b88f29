package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// トークン方式
const (
	TokenSchemeBase64 = "base64"
	TokenSchemeJWT    = "jwt"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	LogLevel   string

	// CORS
	CORSAllowedOrigin string

	// Token
	TokenScheme string
	TokenSecret string

	// Database (任意。未設定なら予約イベントの永続化を行わない)
	DatabaseURL string

	// AMQP (任意。未設定なら予約イベントの配信を行わない)
	AMQPURL   string
	AMQPQueue string

	// Rate Limit (1分あたりのリクエスト数)
	RateLimitGeneral int
	RateLimitBooking int
	RateLimitLogin   int

	// Event retention
	EventRetentionDays int
	CleanupInterval    time.Duration

	// Metrics
	MetricsEnabled bool
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}
	return FromEnv()
}

// FromEnv は.envを読まずに現在の環境変数だけからConfigを組み立てる。
func FromEnv() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		ServerPort:         p.str("SERVER_PORT", "3000"),
		LogLevel:           strings.ToLower(p.str("LOG_LEVEL", "info")),
		CORSAllowedOrigin:  p.str("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		TokenScheme:        strings.ToLower(p.str("TOKEN_SCHEME", TokenSchemeBase64)),
		TokenSecret:        os.Getenv("TOKEN_SECRET"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AMQPURL:            p.str("AMQP_URL", os.Getenv("RABBITMQ_URL")),
		AMQPQueue:          p.str("AMQP_QUEUE", "appointment.events"),
		RateLimitGeneral:   p.positiveInt("RATE_LIMIT_GENERAL", 120),
		RateLimitBooking:   p.positiveInt("RATE_LIMIT_BOOKING", 30),
		RateLimitLogin:     p.positiveInt("RATE_LIMIT_LOGIN", 10),
		EventRetentionDays: p.positiveInt("EVENT_RETENTION_DAYS", 90),
		CleanupInterval:    p.duration("CLEANUP_INTERVAL", 24*time.Hour),
		MetricsEnabled:     p.boolean("METRICS_ENABLED", true),
	}

	switch cfg.TokenScheme {
	case TokenSchemeBase64:
	case TokenSchemeJWT:
		if cfg.TokenSecret == "" {
			p.errs = append(p.errs, errors.New("TOKEN_SECRET is required when TOKEN_SCHEME=jwt"))
		}
	default:
		p.errs = append(p.errs, fmt.Errorf("TOKEN_SCHEME must be %q or %q, got %q", TokenSchemeBase64, TokenSchemeJWT, cfg.TokenScheme))
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		p.errs = append(p.errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel))
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parser は環境変数の変換エラーを蓄積する。
type parser struct {
	errs []error
}

func (p *parser) str(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (p *parser) positiveInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 1 {
		p.errs = append(p.errs, fmt.Errorf("%s must be a positive integer, got %q", key, v))
		return defaultVal
	}
	return i
}

func (p *parser) duration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s must be a positive duration, got %q", key, v))
		return defaultVal
	}
	return d
}

func (p *parser) boolean(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
		return defaultVal
	}
	return b
}
