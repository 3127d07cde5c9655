package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary      Primary            `koanf:"primary"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Logger       LoggerConfig       `koanf:"logger"`
	Sweeper      SweeperConfig      `koanf:"sweeper"`
	Client       ClientConfig       `koanf:"client"`
	Notify       NotifyConfig       `koanf:"notify"`
	BankRedirect BankRedirectConfig `koanf:"bank_redirect"`
	CheckoutLink CheckoutLinkConfig `koanf:"checkout_link"`
	QRPay        QRPayConfig        `koanf:"qr_pay"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type SweeperConfig struct {
	Interval time.Duration `koanf:"interval" validate:"required"`
}

// ClientConfig points at the tenant-facing frontend; redirect callbacks land
// on its payment result page.
type ClientConfig struct {
	ResultURL string `koanf:"result_url" validate:"required"`
}

// NotifyConfig targets the external notification collaborator. Disabled when
// the base URL is empty.
type NotifyConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// Provider credentials are deliberately not boot-validated: a missing
// credential only fails the request that needs that provider.
type BankRedirectConfig struct {
	MerchantCode string        `koanf:"merchant_code"`
	Secret       string        `koanf:"secret"`
	PayURL       string        `koanf:"pay_url"`
	QueryURL     string        `koanf:"query_url"`
	ReturnURL    string        `koanf:"return_url"`
	ConnTimeout  time.Duration `koanf:"conn_timeout"`
}

type CheckoutLinkConfig struct {
	ClientID    string        `koanf:"client_id"`
	APIKey      string        `koanf:"api_key"`
	ChecksumKey string        `koanf:"checksum_key"`
	BaseURL     string        `koanf:"base_url"`
	ReturnURL   string        `koanf:"return_url"`
	CancelURL   string        `koanf:"cancel_url"`
	ConnTimeout time.Duration `koanf:"conn_timeout"`
}

type QRPayConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	BaseURL      string        `koanf:"base_url"`
	ConnTimeout  time.Duration `koanf:"conn_timeout"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("SETTLEMENT_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "SETTLEMENT_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// NewLogger builds the process logger from the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
