package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/yungbote/papaya-ledger/internal/data/db"
	"github.com/yungbote/papaya-ledger/internal/realtime/bus"
)

type Config struct {
	// Server
	Port            int           `env:"PORT" envDefault:"8080"`
	LogMode         string        `env:"LOG_MODE" envDefault:"development"`
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"papaya-ledger"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	CORSOrigins     []string      `env:"CORS_ORIGIN" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`

	// Database
	DBDriver       string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	DBMaxOpenConns int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`

	// Auth
	JWTSecret string `env:"JWT_SECRET,required"`

	// Realtime
	RelayDriver  string        `env:"RELAY_DRIVER"`
	RedisURL     string        `env:"REDIS_URL"`
	RelayChannel string        `env:"RELAY_CHANNEL" envDefault:"papaya:sse"`
	KafkaBrokers []string      `env:"KAFKA_BROKERS" envSeparator:","`
	SSEHeartbeat time.Duration `env:"SSE_HEARTBEAT_INTERVAL" envDefault:"25s"`
	SSEBuffer    int           `env:"SSE_SUBSCRIBER_BUFFER" envDefault:"32"`

	// Reports
	ReportTimezone string `env:"REPORT_TIMEZONE" envDefault:"UTC"`

	// Tracing
	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLER_RATIO" envDefault:"0.1"`

	reportLocation *time.Location
}

// LoadConfig reads .env files (missing ones are skipped) and then the process environment.
// Variables already set in the environment win over .env values.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig reads only the given variables; used where the process env must not leak in.
func ParseConfig(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER: unsupported %q", c.DBDriver)
	}

	c.RelayDriver = strings.ToLower(strings.TrimSpace(c.RelayDriver))
	switch c.RelayDriver {
	case bus.DriverNone:
	case bus.DriverRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("REDIS_URL is required when RELAY_DRIVER=redis")
		}
	case bus.DriverKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when RELAY_DRIVER=kafka")
		}
	default:
		return fmt.Errorf("RELAY_DRIVER: unsupported %q", c.RelayDriver)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT: out of range %d", c.Port)
	}
	if c.SSEHeartbeat <= 0 {
		return errors.New("SSE_HEARTBEAT_INTERVAL must be positive")
	}
	if c.SSEBuffer < 1 {
		return errors.New("SSE_SUBSCRIBER_BUFFER must be at least 1")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.ReportTimezone))
	if err != nil {
		return fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}
	c.reportLocation = loc
	return nil
}

// ReportLocation is the zone salary days are cut in.
func (c Config) ReportLocation() *time.Location {
	if c.reportLocation == nil {
		return time.UTC
	}
	return c.reportLocation
}

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
