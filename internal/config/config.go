package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hoc_companion/internal/pricing"
	"hoc_companion/internal/utils"
)

// Config holds configuration for the companion service. It is built once at
// startup and passed to constructors.
type Config struct {
	HTTPPort      string              `yaml:"http_port"`
	Environment   string              `yaml:"environment"`
	LogLevel      string              `yaml:"log_level"`
	LogDir        string              `yaml:"log_dir"`
	Database      DatabaseConfig      `yaml:"database"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Context       ContextConfig       `yaml:"context"`
	Redis         RedisConfig         `yaml:"redis"`
	Billing       BillingConfig       `yaml:"billing"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	RequestLogger RequestLoggerConfig `yaml:"request_logger"`
	LoggingSink   LoggingSinkConfig   `yaml:"logging_sink"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// DatabaseConfig holds the marketing database connection settings
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// OpenAIConfig holds the model provider settings
type OpenAIConfig struct {
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestLimit   int           `yaml:"request_limit"` // model round-trips allowed per question
}

// ContextConfig bounds the database snapshot loaded into the prompt
type ContextConfig struct {
	MaxAssetChars    int `yaml:"max_asset_chars"`
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BillingConfig controls spend tracking
type BillingConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MonthlyBudgetUSD float64 `yaml:"monthly_budget_usd"` // 0 = unlimited
}

// LedgerConfig controls the local usage ledger
type LedgerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Path           string        `yaml:"path"`
	Retention      time.Duration `yaml:"retention"`
	PruneSchedule  string        `yaml:"prune_schedule"` // cron expression
	QueueBatchSize int           `yaml:"queue_batch_size"`
}

type RequestLoggerConfig struct {
	FilePathTemplate string        `yaml:"file_path_template"`
	MaxSize          int64         `yaml:"max_size"`
	MaxFiles         int           `yaml:"max_files"`
	BufferSize       int           `yaml:"buffer_size"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
}

// LoggingSinkConfig holds configuration for the S3-based logging sink
type LoggingSinkConfig struct {
	Enabled       bool          `yaml:"enabled"`        // Whether to enable S3 logging
	BufferSize    int           `yaml:"buffer_size"`    // In-memory queue size
	FlushSize     int           `yaml:"flush_size"`     // Flush to S3 after this many records
	FlushInterval time.Duration `yaml:"flush_interval"` // Flush to S3 after this duration
	S3Bucket      string        `yaml:"s3_bucket"`      // S3 bucket name
	S3Region      string        `yaml:"s3_region"`      // AWS region
	S3Prefix      string        `yaml:"s3_prefix"`      // Prefix for S3 keys (e.g., "logs/")
	S3Endpoint    string        `yaml:"s3_endpoint"`    // Custom endpoint (MinIO); path-style addressing
	PodName       string        `yaml:"pod_name"`       // Pod identifier for multi-pod deployments
}

// MetricsConfig controls the Prometheus collector
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		HTTPPort:    "8000",
		Environment: "dev",
		LogLevel:    "INFO",
		LogDir:      "logs",
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "aldi_hoc_companion",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 1 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Model:          "gpt-4o-mini",
			RequestTimeout: 60 * time.Second,
			RequestLimit:   2,
		},
		Context: ContextConfig{
			MaxAssetChars:    600,
			MaxContextTokens: 100_000,
		},
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Ledger: LedgerConfig{
			Enabled:        true,
			Path:           "companion-usage.db",
			Retention:      90 * 24 * time.Hour,
			PruneSchedule:  "0 3 * * *",
			QueueBatchSize: 50,
		},
		RequestLogger: RequestLoggerConfig{
			MaxSize:       10_485_760, // 10 MB
			MaxFiles:      30,
			BufferSize:    100,
			FlushInterval: 10 * time.Second,
		},
		LoggingSink: LoggingSinkConfig{
			BufferSize:    10000,
			FlushSize:     1000,
			FlushInterval: 5 * time.Minute,
			S3Region:      "us-east-1",
			S3Prefix:      "logs/",
			PodName:       "companion-0",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "hoc_companion",
		},
	}
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvFloat(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}

// Load builds the configuration from defaults, the optional YAML file named
// by COMPANION_CONFIG, and environment variables, in that order of
// precedence (env wins), then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("COMPANION_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if cfg.RequestLogger.FilePathTemplate == "" {
		cfg.RequestLogger.FilePathTemplate = filepath.Join(cfg.LogDir, "requests-%s.jsonl")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = getEnvString("HTTP_PORT", cfg.HTTPPort)
	cfg.Environment = getEnvString("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnvString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogDir = getEnvString("LOG_DIR", cfg.LogDir)

	db := &cfg.Database
	db.Host = getEnvString("DB_HOST", db.Host)
	db.Port = getEnvInt("DB_PORT", db.Port)
	db.Name = getEnvString("DB_NAME", db.Name)
	db.User = getEnvString("DB_USER", db.User)
	db.Password = getEnvString("DB_PASSWORD", db.Password)
	db.SSLMode = getEnvString("DB_SSLMODE", db.SSLMode)
	db.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", db.ConnMaxLifetime)
	db.ConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", db.ConnMaxIdleTime)
	db.QueryTimeout = getEnvDuration("DB_QUERY_TIMEOUT", db.QueryTimeout)

	ai := &cfg.OpenAI
	ai.APIKey = getEnvString("OPENAI_API_KEY", ai.APIKey)
	ai.Model = getEnvString("OPENAI_MODEL", ai.Model)
	ai.BaseURL = getEnvString("OPENAI_BASE_URL", ai.BaseURL)
	ai.RequestTimeout = getEnvDuration("OPENAI_REQUEST_TIMEOUT", ai.RequestTimeout)
	ai.RequestLimit = getEnvInt("OPENAI_REQUEST_LIMIT", ai.RequestLimit)

	cfg.Context.MaxAssetChars = getEnvInt("CONTEXT_MAX_ASSET_CHARS", cfg.Context.MaxAssetChars)
	cfg.Context.MaxContextTokens = getEnvInt("CONTEXT_MAX_TOKENS", cfg.Context.MaxContextTokens)

	r := &cfg.Redis
	r.Enabled = getEnvBool("REDIS_ENABLED", r.Enabled)
	r.Address = getEnvString("REDIS_ADDRESS", r.Address)
	r.Password = getEnvString("REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("REDIS_DB", r.DB)
	r.PoolSize = getEnvInt("REDIS_POOL_SIZE", r.PoolSize)
	r.MinIdleConns = getEnvInt("REDIS_MIN_IDLE_CONNS", r.MinIdleConns)
	r.DialTimeout = getEnvDuration("REDIS_DIAL_TIMEOUT", r.DialTimeout)
	r.ReadTimeout = getEnvDuration("REDIS_READ_TIMEOUT", r.ReadTimeout)
	r.WriteTimeout = getEnvDuration("REDIS_WRITE_TIMEOUT", r.WriteTimeout)

	cfg.Billing.Enabled = getEnvBool("BILLING_ENABLED", cfg.Billing.Enabled)
	cfg.Billing.MonthlyBudgetUSD = getEnvFloat("BILLING_MONTHLY_BUDGET_USD", cfg.Billing.MonthlyBudgetUSD)

	l := &cfg.Ledger
	l.Enabled = getEnvBool("LEDGER_ENABLED", l.Enabled)
	l.Path = getEnvString("LEDGER_PATH", l.Path)
	l.Retention = getEnvDuration("LEDGER_RETENTION", l.Retention)
	l.PruneSchedule = getEnvString("LEDGER_PRUNE_SCHEDULE", l.PruneSchedule)
	l.QueueBatchSize = getEnvInt("LEDGER_QUEUE_BATCH_SIZE", l.QueueBatchSize)

	rl := &cfg.RequestLogger
	rl.FilePathTemplate = getEnvString("REQUEST_LOGGER_FILE_PATH_TEMPLATE", rl.FilePathTemplate)
	rl.MaxSize = getEnvInt64("REQUEST_LOGGER_MAX_SIZE", rl.MaxSize)
	rl.MaxFiles = getEnvInt("REQUEST_LOGGER_MAX_FILES", rl.MaxFiles)
	rl.BufferSize = getEnvInt("REQUEST_LOGGER_BUFFER_SIZE", rl.BufferSize)
	rl.FlushInterval = getEnvDuration("REQUEST_LOGGER_FLUSH_INTERVAL", rl.FlushInterval)

	s := &cfg.LoggingSink
	s.Enabled = getEnvBool("LOGGING_SINK_ENABLED", s.Enabled)
	s.BufferSize = getEnvInt("LOGGING_SINK_BUFFER_SIZE", s.BufferSize)
	s.FlushSize = getEnvInt("LOGGING_SINK_FLUSH_SIZE", s.FlushSize)
	s.FlushInterval = getEnvDuration("LOGGING_SINK_FLUSH_INTERVAL", s.FlushInterval)
	s.S3Bucket = getEnvString("LOGGING_SINK_S3_BUCKET", s.S3Bucket)
	s.S3Region = getEnvString("LOGGING_SINK_S3_REGION", s.S3Region)
	s.S3Prefix = getEnvString("LOGGING_SINK_S3_PREFIX", s.S3Prefix)
	s.S3Endpoint = getEnvString("LOGGING_SINK_S3_ENDPOINT", s.S3Endpoint)
	s.PodName = getEnvString("POD_NAME", s.PodName)

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Namespace = getEnvString("METRICS_NAMESPACE", cfg.Metrics.Namespace)
}

// Validate checks required fields and normalises the log level.
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	if _, err := utils.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))

	if _, err := pricing.PriceFor(c.OpenAI.Model); err != nil {
		return fmt.Errorf("invalid OPENAI_MODEL: %w", err)
	}
	if c.OpenAI.RequestLimit < 1 {
		return fmt.Errorf("OPENAI_REQUEST_LIMIT must be at least 1, got %d", c.OpenAI.RequestLimit)
	}
	if c.Context.MaxAssetChars < 0 || c.Context.MaxContextTokens < 0 {
		return fmt.Errorf("context limits must not be negative")
	}
	if c.RequestLogger.BufferSize < 0 {
		return fmt.Errorf("REQUEST_LOGGER_BUFFER_SIZE must not be negative, got %d", c.RequestLogger.BufferSize)
	}
	if c.RequestLogger.FlushInterval <= 0 {
		return fmt.Errorf("REQUEST_LOGGER_FLUSH_INTERVAL must be positive, got %s", c.RequestLogger.FlushInterval)
	}
	if c.LoggingSink.Enabled && c.LoggingSink.S3Bucket == "" {
		return fmt.Errorf("LOGGING_SINK_S3_BUCKET is required when the logging sink is enabled")
	}
	return nil
}

// LogLevelValue returns the parsed log level.
func (c *Config) LogLevelValue() utils.LogLevel {
	level, err := utils.ParseLogLevel(c.LogLevel)
	if err != nil {
		return utils.Info
	}
	return level
}
