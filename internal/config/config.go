// Package config loads service configuration from YAML and the environment.
package config

import (
	"time"

	"github.com/ryabkov82/bulk-import/internal/ingest"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
	Import   ImportConfig   `yaml:"import"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Input    InputConfig    `yaml:"input"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"SERVER_MAX_BODY_BYTES"   env-default:"67108864"`
	QueueSize       int           `yaml:"queue_size"       env:"SERVER_QUEUE_SIZE"       env-default:"1000"`
}

// AuthConfig holds API key settings. An empty key disables auth.
type AuthConfig struct {
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	AllowedMethods string `yaml:"allowed_methods" env:"CORS_ALLOWED_METHODS" env-default:"GET,POST,OPTIONS"`
	AllowedHeaders string `yaml:"allowed_headers" env:"CORS_ALLOWED_HEADERS" env-default:"Content-Type,X-API-Key"`
	MaxAge         int    `yaml:"max_age"         env:"CORS_MAX_AGE"         env-default:"300"`
}

// ImportConfig holds pipeline defaults for requests that do not override them.
type ImportConfig struct {
	BatchSize             int           `yaml:"batch_size"              env:"IMPORT_BATCH_SIZE"              env-default:"100"`
	SendTimeout           time.Duration `yaml:"send_timeout"            env:"IMPORT_SEND_TIMEOUT"            env-default:"30s"`
	MaxRetries            int           `yaml:"max_retries"             env:"IMPORT_MAX_RETRIES"             env-default:"3"`
	DelayTime             time.Duration `yaml:"delay_time"              env:"IMPORT_DELAY_TIME"              env-default:"1s"`
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" env:"IMPORT_MAX_CONCURRENT_REQUESTS" env-default:"5"`
}

// DeliveryConfig holds submission transport settings shared by all imports.
type DeliveryConfig struct {
	Gzip           bool          `yaml:"gzip"            env:"DELIVERY_GZIP"            env-default:"false"`
	BasicUser      string        `yaml:"basic_user"      env:"DELIVERY_BASIC_USER"`
	BasicPass      string        `yaml:"basic_pass"      env:"DELIVERY_BASIC_PASS"`
	RefreshURL     string        `yaml:"refresh_url"     env:"DELIVERY_REFRESH_URL"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"DELIVERY_REFRESH_TIMEOUT" env-default:"10s"`
}

// InputConfig holds file input settings.
type InputConfig struct {
	AllowedBaseDir string `yaml:"allowed_base_dir" env:"ALLOWED_BASE_DIR" env-default:"/data/incoming"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
	Caller bool   `yaml:"caller" env:"LOG_CALLER" env-default:"false"`
}

// Defaults returns the import defaults as a pipeline config
func (c ImportConfig) Defaults() ingest.Config {
	return ingest.Config{
		BatchSize:             c.BatchSize,
		SendTimeout:           c.SendTimeout,
		MaxRetries:            c.MaxRetries,
		DelayTime:             c.DelayTime,
		MaxConcurrentRequests: c.MaxConcurrentRequests,
	}
}
