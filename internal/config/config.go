package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server    ServerConfig
	Websocket WebsocketConfig
	Logging   LoggingConfig
	Security  SecurityConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Client    ClientConfig
}

type ServerConfig struct {
	Port string
}

type WebsocketConfig struct {
	Path       string
	SendBuffer int
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

type SecurityConfig struct {
	JWTSecret    string
	JWTPublicKey string
	AllowedRoles []string
}

type KafkaConfig struct {
	Brokers       []string
	GroupID       string
	PaymentTopics []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// ClientConfig drives the cashier and display sessions.
type ClientConfig struct {
	RelayURL             string
	ReconnectDelay       time.Duration
	ReconnectMaxAttempts int
	PingInterval         time.Duration
	QRTimeout            time.Duration
	TaxRateBps           int
}

// LoadDotEnv overloads the process environment with ./.env when present so local runs honour configuration tweaks.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Overload(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("WS_PATH", "/ws")
	v.SetDefault("WS_SEND_BUFFER", 16)
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ALLOWED_ROLES", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_ID", "pos-display-ws")
	v.SetDefault("KAFKA_PAYMENT_TOPICS", "payments.status")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "pos:display:relay")
	v.SetDefault("RELAY_URL", "ws://localhost:8080/ws")
	v.SetDefault("RECONNECT_DELAY", "3s")
	v.SetDefault("RECONNECT_MAX_ATTEMPTS", 0)
	v.SetDefault("CLIENT_PING_INTERVAL", "25s")
	v.SetDefault("QR_TIMEOUT", "5m")
	v.SetDefault("TAX_RATE_BPS", 1300)
}

// Load reads configuration from the environment on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	brokers := splitCSV(v.GetString("KAFKA_BROKERS"))
	if len(brokers) == 0 {
		brokers = splitCSV(v.GetString("KAFKA_BROKER"))
	}

	cfg := &Config{
		Server: ServerConfig{Port: strings.TrimSpace(v.GetString("PORT"))},
		Websocket: WebsocketConfig{
			Path:       strings.TrimSpace(v.GetString("WS_PATH")),
			SendBuffer: v.GetInt("WS_SEND_BUFFER"),
		},
		Logging: LoggingConfig{
			Directory: v.GetString("LOG_DIR"),
			Level:     v.GetString("LOG_LEVEL"),
			Format:    v.GetString("LOG_FORMAT"),
		},
		Security: SecurityConfig{
			JWTSecret:    v.GetString("JWT_SECRET"),
			JWTPublicKey: v.GetString("JWT_PUBLIC_KEY"),
			AllowedRoles: splitCSV(v.GetString("JWT_ALLOWED_ROLES")),
		},
		Kafka: KafkaConfig{
			Brokers:       brokers,
			GroupID:       strings.TrimSpace(v.GetString("KAFKA_GROUP_ID")),
			PaymentTopics: splitCSV(v.GetString("KAFKA_PAYMENT_TOPICS")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  strings.TrimSpace(v.GetString("REDIS_CHANNEL")),
		},
		Client: ClientConfig{
			RelayURL:             strings.TrimSpace(v.GetString("RELAY_URL")),
			ReconnectDelay:       v.GetDuration("RECONNECT_DELAY"),
			ReconnectMaxAttempts: v.GetInt("RECONNECT_MAX_ATTEMPTS"),
			PingInterval:         v.GetDuration("CLIENT_PING_INTERVAL"),
			QRTimeout:            v.GetDuration("QR_TIMEOUT"),
			TaxRateBps:           v.GetInt("TAX_RATE_BPS"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port == "":
		return fmt.Errorf("%w: PORT is empty", ErrInvalidConfig)
	case !strings.HasPrefix(c.Websocket.Path, "/"):
		return fmt.Errorf("%w: WS_PATH must start with /", ErrInvalidConfig)
	case c.Websocket.SendBuffer <= 0:
		return fmt.Errorf("%w: WS_SEND_BUFFER must be positive", ErrInvalidConfig)
	case c.Client.ReconnectDelay <= 0:
		return fmt.Errorf("%w: RECONNECT_DELAY must be positive", ErrInvalidConfig)
	case c.Client.ReconnectMaxAttempts < 0:
		return fmt.Errorf("%w: RECONNECT_MAX_ATTEMPTS must not be negative", ErrInvalidConfig)
	case c.Client.QRTimeout <= 0:
		return fmt.Errorf("%w: QR_TIMEOUT must be positive", ErrInvalidConfig)
	case c.Client.TaxRateBps < 0 || c.Client.TaxRateBps > 10000:
		return fmt.Errorf("%w: TAX_RATE_BPS must be within 0..10000", ErrInvalidConfig)
	}
	return nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
