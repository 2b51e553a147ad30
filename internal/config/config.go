package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Loader        LoaderConfig        `mapstructure:"loader"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Pending       PendingConfig       `mapstructure:"pending"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

// CheckoutConfig drives the widget configuration surface.
type CheckoutConfig struct {
	DisplayName        string        `mapstructure:"display_name"`
	Description        string        `mapstructure:"description"`
	ThemeColor         string        `mapstructure:"theme_color"`
	Currency           string        `mapstructure:"currency"`
	CallbackURL        string        `mapstructure:"callback_url"`
	PaymentMethods     []string      `mapstructure:"payment_methods"`
	ProviderRetryCount int           `mapstructure:"provider_retry_count"`
	WidgetTimeout      time.Duration `mapstructure:"widget_timeout"`
}

// LoaderConfig drives provider script loading. Embedded runtimes resolve
// resources slower than browser tabs, so they get the longer timeout.
type LoaderConfig struct {
	ScriptURL        string        `mapstructure:"script_url"`
	BrowserTimeout   time.Duration `mapstructure:"browser_timeout"`
	EmbeddedTimeout  time.Duration `mapstructure:"embedded_timeout"`
	PollAttempts     uint          `mapstructure:"poll_attempts"`
	PollInitialDelay time.Duration `mapstructure:"poll_initial_delay"`
	PollMaxDelay     time.Duration `mapstructure:"poll_max_delay"`
}

type BackendConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	OrderPath          string        `mapstructure:"order_path"`
	VerifyPath         string        `mapstructure:"verify_path"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	VerifyTimeout      time.Duration `mapstructure:"verify_timeout"`
	BreakerMaxRequests uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval    time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

// PendingConfig selects the durable store for pending payment records.
type PendingConfig struct {
	Store string `mapstructure:"store"` // memory, redis or postgres
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

// ServerConfig configures the simulated gateway binary.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	KeySecret       string        `mapstructure:"key_secret"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CHECKOUT")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/checkout")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if len(c.Checkout.Currency) != 3 {
		errs = append(errs, fmt.Errorf("checkout.currency must be a 3-letter ISO code, got %q", c.Checkout.Currency))
	}
	if c.Checkout.ProviderRetryCount < 0 {
		errs = append(errs, fmt.Errorf("checkout.provider_retry_count must not be negative"))
	}
	if c.Loader.ScriptURL == "" {
		errs = append(errs, fmt.Errorf("loader.script_url is required"))
	}
	if c.Loader.BrowserTimeout <= 0 || c.Loader.EmbeddedTimeout <= 0 {
		errs = append(errs, fmt.Errorf("loader timeouts must be positive"))
	}
	if c.Loader.PollAttempts == 0 {
		errs = append(errs, fmt.Errorf("loader.poll_attempts must be positive"))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	}
	if c.Backend.RequestTimeout <= 0 || c.Backend.VerifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("backend timeouts must be positive"))
	}
	switch c.Pending.Store {
	case "memory", "redis", "postgres":
	default:
		errs = append(errs, fmt.Errorf("pending.store must be memory, redis or postgres, got %q", c.Pending.Store))
	}
	if c.Pending.Store == "redis" && c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Pending.Store == "postgres" {
		if c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required"))
		}
		if c.Database.Port <= 0 {
			errs = append(errs, fmt.Errorf("database.port must be positive"))
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Checkout defaults
	v.SetDefault("checkout.display_name", "Rentflow")
	v.SetDefault("checkout.description", "Car rental booking payment")
	v.SetDefault("checkout.theme_color", "#528FF0")
	v.SetDefault("checkout.currency", "INR")
	v.SetDefault("checkout.callback_url", "http://localhost:3000/payment/callback")
	v.SetDefault("checkout.payment_methods", []string{"card", "upi", "netbanking"})
	v.SetDefault("checkout.provider_retry_count", 2)
	v.SetDefault("checkout.widget_timeout", "15m")

	// Loader defaults
	v.SetDefault("loader.script_url", "https://checkout.razorpay.com/v1/checkout.js")
	v.SetDefault("loader.browser_timeout", "8s")
	v.SetDefault("loader.embedded_timeout", "12s")
	v.SetDefault("loader.poll_attempts", 20)
	v.SetDefault("loader.poll_initial_delay", "50ms")
	v.SetDefault("loader.poll_max_delay", "500ms")

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.order_path", "/api/payments/order")
	v.SetDefault("backend.verify_path", "/api/payments/verify")
	v.SetDefault("backend.request_timeout", "15s")
	v.SetDefault("backend.verify_timeout", "20s")
	v.SetDefault("backend.breaker_max_requests", 10)
	v.SetDefault("backend.breaker_interval", "60s")
	v.SetDefault("backend.breaker_timeout", "30s")

	// Pending store defaults
	v.SetDefault("pending.store", "memory")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "checkout")
	v.SetDefault("database.database", "checkout")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Server (gateway sim) defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.key_secret", "sim_test_secret")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Instance ID
	v.SetDefault("instance_id", "checkout-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ScriptTimeout returns the load timeout for the given runtime: embedded
// runtimes get the longer one.
func (c *LoaderConfig) ScriptTimeout(embedded bool) time.Duration {
	if embedded {
		return c.EmbeddedTimeout
	}
	return c.BrowserTimeout
}

// OrderURL is the absolute order-creation endpoint.
func (c *BackendConfig) OrderURL() string {
	return c.BaseURL + c.OrderPath
}

// VerifyURL is the absolute verification endpoint.
func (c *BackendConfig) VerifyURL() string {
	return c.BaseURL + c.VerifyPath
}
