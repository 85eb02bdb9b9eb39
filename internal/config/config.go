package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values, loaded from the
// environment. Tags like `envconfig:"APP_PORT"` name the variable,
// `default:""` fills unset values and `required:"true"` makes one mandatory.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// RunMode selects the binary's behavior: "once" runs the pipeline and
	// exits, "serve" exposes the HTTP trigger endpoint.
	RunMode    string `envconfig:"RUN_MODE" default:"once" validate:"oneof=once serve"`
	HttpServer ServerConfig
	Postgres   PostgresConfig
	Source     SourceConfig
	Pipeline   PipelineConfig
}

// ServerConfig holds HTTP server-specific configurations (serve mode only).
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15m"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// PostgresConfig holds warehouse connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DBNAME" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// SourceConfig holds the catalog API client settings.
type SourceConfig struct {
	BaseURL string        `envconfig:"SOURCE_API_BASE_URL" default:"https://fakestoreapi.com" validate:"required,url"`
	Timeout time.Duration `envconfig:"SOURCE_API_TIMEOUT" default:"30s"`
}

// PipelineConfig holds the run-behavior knobs.
type PipelineConfig struct {
	// StrictFactResolution treats a fact row without a resolvable user or
	// product dimension key as a fatal integrity fault. When false such rows
	// are logged and skipped.
	StrictFactResolution bool `envconfig:"PIPELINE_STRICT_FACT_RESOLUTION" default:"true"`
	// BootstrapSchema applies the CREATE IF NOT EXISTS warehouse DDL at
	// startup.
	BootstrapSchema bool `envconfig:"DB_BOOTSTRAP_SCHEMA" default:"false"`
}

// Load initializes the configuration from environment variables and validates
// it. It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
