package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Medical  UpstreamConfig `mapstructure:"medical"`
	Planning UpstreamConfig `mapstructure:"planning"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Events   EventsConfig   `mapstructure:"events"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"` // debug, info, warn, error
	Development bool   `mapstructure:"development"`
}

// UpstreamConfig describes a collaborator service reached over HTTP.
type UpstreamConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ServiceToken string        `mapstructure:"service_token"`
}

// CacheConfig selects the cache backend and the TTL of each cached view.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"` // memory or mongo
	Collection      string        `mapstructure:"collection"`
	ComplianceTTL   time.Duration `mapstructure:"compliance_ttl"`
	AlternativesTTL time.Duration `mapstructure:"alternatives_ttl"`
	PhaseTTL        time.Duration `mapstructure:"phase_ttl"`
	PlanTTL         time.Duration `mapstructure:"plan_ttl"`
	StaleTTL        time.Duration `mapstructure:"stale_ttl"`
	AssignmentsTTL  time.Duration `mapstructure:"assignments_ttl"`
}

type EventsConfig struct {
	Source        string        `mapstructure:"source"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "training_service")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("medical.base_url", "http://localhost:3005")
	v.SetDefault("medical.timeout", "10s")
	v.SetDefault("planning.base_url", "http://localhost:3006")
	v.SetDefault("planning.timeout", "10s")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.collection", "cache_entries")
	v.SetDefault("cache.compliance_ttl", "5m")
	v.SetDefault("cache.alternatives_ttl", "10m")
	v.SetDefault("cache.phase_ttl", "1h")
	v.SetDefault("cache.plan_ttl", "2h")
	v.SetDefault("cache.stale_ttl", "24h")
	v.SetDefault("cache.assignments_ttl", "5m")

	v.SetDefault("events.source", "training-service")
	v.SetDefault("events.retry_attempts", 3)
	v.SetDefault("events.retry_delay", "500ms")
}

// LoadConfig reads configuration from file or environment variables.
// Nested keys map to env vars with '.' replaced by '_', e.g. MEDICAL_BASE_URL.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// No file; defaults and env vars only.
		err = nil
	} else if err != nil {
		return
	}

	// Viper parses duration strings ("5m", "1h") straight into time.Duration fields.
	err = v.Unmarshal(&config)
	return
}
