package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	BucketScans string
	UseSSL      bool
	Region      string
}

// TokenLifetime is the only accepted session.lifetime. Issued tokens always
// carry exp = iat + 86400.
const TokenLifetime = 24 * time.Hour

type SessionConfig struct {
	// StorageKey is the fixed durable key; the origin is appended per browser.
	StorageKey   string
	Lifetime     time.Duration
	Backend      string
	Signing      string
	Secret       string
	OriginCookie string
	SecureCookie bool
	IdleEviction time.Duration
	SweepSpec    string
}

type GuardConfig struct {
	// DeniedPath is where an authenticated user lacking the route's role is sent.
	DeniedPath string
}

type Credential struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     string
}

type AnalysisConfig struct {
	Endpoint       string
	Timeout        time.Duration
	MaxUploadBytes int64
}

type EventsConfig struct {
	Stream string
	MaxLen int64
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Session          SessionConfig
	Guard            GuardConfig
	Credentials      []Credential
	Analysis         AnalysisConfig
	Events           EventsConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

type QueueConfig struct {
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type WorkerConfig struct {
	Environment string
	Postgres    PostgresConfig
	Redis       RedisConfig
	Events      EventsConfig
	Queue       QueueConfig
	Logging     LoggingConfig
}

func Load() (*AppConfig, error) {
	v := newViper("config", "MEDPORTAL")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func LoadWorker() (*WorkerConfig, error) {
	v := newViper("worker", "MEDPORTAL_WORKER")
	setWorkerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &cfg, nil
}

func newViper(name string, envPrefix string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "mapstructure"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func (c *AppConfig) validate() error {
	switch c.Session.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("session.backend: unsupported value %q", c.Session.Backend)
	}

	switch c.Session.Signing {
	case "none":
	case "hs256":
		if c.Session.Secret == "" {
			return fmt.Errorf("session.secret is required when session.signing is hs256")
		}
	default:
		return fmt.Errorf("session.signing: unsupported value %q", c.Session.Signing)
	}

	if c.Session.Lifetime != TokenLifetime {
		return fmt.Errorf("session.lifetime: tokens are valid for exactly %s, got %s", TokenLifetime, c.Session.Lifetime)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 4)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketscans", "medical-scans")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("session.storagekey", "medical_auth_token")
	v.SetDefault("session.lifetime", "24h")
	v.SetDefault("session.backend", "redis")
	v.SetDefault("session.signing", "none")
	v.SetDefault("session.origincookie", "medical_origin")
	v.SetDefault("session.securecookie", false)
	v.SetDefault("session.idleeviction", "30m")
	v.SetDefault("session.sweepspec", "0 */5 * * * *")

	v.SetDefault("guard.deniedpath", "/")

	v.SetDefault("credentials", []map[string]any{
		{"id": "1", "email": "admin@example.com", "password": "admin123", "name": "Admin User", "role": "admin"},
		{"id": "2", "email": "user@example.com", "password": "user123", "name": "Demo User", "role": "user"},
	})

	v.SetDefault("analysis.timeout", "60s")
	v.SetDefault("analysis.maxuploadbytes", 64<<20)

	v.SetDefault("events.stream", "portal:events")
	v.SetDefault("events.maxlen", 10000)

	v.SetDefault("logging.level", "")
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("postgres.maxopen", 5)
	v.SetDefault("postgres.maxidle", 1)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("events.stream", "portal:events")
	v.SetDefault("events.maxlen", 10000)

	v.SetDefault("queue.group", "notification-workers")
	v.SetDefault("queue.consumer", "worker-1")
	v.SetDefault("queue.claiminterval", "30s")

	v.SetDefault("logging.level", "info")
}
