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

const (
	HistoryBackendMemory   = "memory"
	HistoryBackendPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	History    HistoryConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	S3         S3Config
	Dynamo     DynamoConfig
	CloudWatch CloudWatchConfig
	NATS       NATSConfig
	Analysis   AnalysisConfig
	Security   SecurityConfig
	Readiness  ReadinessConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type HistoryConfig struct {
	Backend    string
	MaxEntries int
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Namespace    string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type DynamoConfig struct {
	Enabled             bool
	TableName           string
	Region              string
	Endpoint            string
	AccessKeyID         string
	SecretAccessKey     string
	StrongReads         bool
	Retention           time.Duration
	FallbackToS3OnError bool
}

type CloudWatchConfig struct {
	MetricsEnabled  bool
	LogsEnabled     bool
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Namespace       string
	LogGroup        string
	LogStream       string
	FlushInterval   time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
	MaxAge  time.Duration
}

type AnalysisConfig struct {
	MaxFiles        int
	MaxFileBytes    int64
	DefaultLanguage string
	// Seed fixes the fallback sampler; zero seeds from the clock.
	Seed int64
}

type SecurityConfig struct {
	AllowedOrigins     []string
	AuthEnabled        bool
	AuthToken          string
	RateLimitPerMinute int
	RateLimitBurst     int
}

type ReadinessConfig struct {
	Timeout          time.Duration
	MaxMemoryPercent float64
	MinFreeDiskMB    int
	TempDir          string
}

// envReader collects parse errors so Load reports every invalid variable at once.
type envReader struct {
	errs []error
}

func (r *envReader) duration(key, defaultValue string) time.Duration {
	raw := getEnv(key, defaultValue)
	value, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return value
}

func (r *envReader) int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return value
}

func (r *envReader) int64(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return value
}

func (r *envReader) float(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return value
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv читает конфигурацию только из переменных окружения
func FromEnv() (*Config, error) {
	env := &envReader{}

	awsRegion := getEnv("AWS_REGION", "us-east-1")
	awsEndpoint := getEnv("AWS_ENDPOINT", "")
	awsAccessKey := getEnv("AWS_ACCESS_KEY_ID", "")
	awsSecretKey := getEnv("AWS_SECRET_ACCESS_KEY", "")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     env.duration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout:    env.duration("SERVER_WRITE_TIMEOUT", "60s"),
			IdleTimeout:     env.duration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: env.duration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		History: HistoryConfig{
			Backend:    strings.ToLower(getEnv("HISTORY_BACKEND", HistoryBackendMemory)),
			MaxEntries: env.int("HISTORY_MAX_ENTRIES", 500),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "fastqc"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
			MaxOpenConns:    env.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", "5m"),
			ConnMaxIdleTime: env.duration("DB_CONN_MAX_IDLE_TIME", "10m"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           env.int("REDIS_DB", 0),
			TTL:          env.duration("REDIS_TTL", "10m"),
			PoolSize:     env.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", "5s"),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", "3s"),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", "3s"),
			Namespace:    getEnv("REDIS_NAMESPACE", "fastqc"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", awsRegion),
			Endpoint:        getEnv("S3_ENDPOINT", awsEndpoint),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", awsAccessKey),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", awsSecretKey),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "reports"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    env.duration("S3_PRESIGNED_TTL", "15m"),
		},
		Dynamo: DynamoConfig{
			Enabled:             getEnvBool("DYNAMODB_ENABLED", false),
			TableName:           getEnv("DYNAMODB_TABLE", "fastqc-report-metadata"),
			Region:              getEnv("DYNAMODB_REGION", awsRegion),
			Endpoint:            getEnv("DYNAMODB_ENDPOINT", awsEndpoint),
			AccessKeyID:         getEnv("DYNAMODB_ACCESS_KEY_ID", awsAccessKey),
			SecretAccessKey:     getEnv("DYNAMODB_SECRET_ACCESS_KEY", awsSecretKey),
			StrongReads:         getEnvBool("DYNAMODB_STRONG_READS", false),
			Retention:           env.duration("DYNAMODB_RETENTION", "0s"),
			FallbackToS3OnError: getEnvBool("DYNAMODB_FALLBACK_TO_S3", true),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:  getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:     getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:          getEnv("CLOUDWATCH_REGION", awsRegion),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", awsEndpoint),
			AccessKeyID:     awsAccessKey,
			SecretAccessKey: awsSecretKey,
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "FastQCAnalyzer/Reports"),
			LogGroup:        getEnv("CLOUDWATCH_LOG_GROUP", "/fastqc-analyzer/api"),
			LogStream:       getEnv("CLOUDWATCH_LOG_STREAM", defaultLogStream()),
			FlushInterval:   env.duration("CLOUDWATCH_FLUSH_INTERVAL", "10s"),
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "FASTQC"),
			MaxAge:  env.duration("NATS_STREAM_MAX_AGE", "168h"),
		},
		Analysis: AnalysisConfig{
			MaxFiles:        env.int("ANALYSIS_MAX_FILES", 20),
			MaxFileBytes:    int64(env.int("ANALYSIS_MAX_FILE_MB", 50)) << 20,
			DefaultLanguage: getEnv("ANALYSIS_DEFAULT_LANGUAGE", "fr"),
			Seed:            env.int64("ANALYSIS_SEED", 0),
		},
		Security: SecurityConfig{
			AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
			AuthToken:          getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitPerMinute: env.int("ANALYSIS_RATE_LIMIT_PER_MINUTE", 30),
			RateLimitBurst:     env.int("ANALYSIS_RATE_LIMIT_BURST", 5),
		},
		Readiness: ReadinessConfig{
			Timeout:          env.duration("READINESS_TIMEOUT", "2s"),
			MaxMemoryPercent: env.float("READINESS_MAX_MEMORY_PERCENT", 95),
			MinFreeDiskMB:    env.int("READINESS_MIN_FREE_DISK_MB", 256),
			TempDir:          getEnv("READINESS_TEMP_DIR", os.TempDir()),
		},
	}

	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error

	switch c.History.Backend {
	case HistoryBackendMemory, HistoryBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("HISTORY_BACKEND must be %q or %q, got %q",
			HistoryBackendMemory, HistoryBackendPostgres, c.History.Backend))
	}
	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		errs = append(errs, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true"))
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true"))
	}
	if c.Dynamo.Enabled && !c.S3.Enabled {
		errs = append(errs, fmt.Errorf("DYNAMODB_ENABLED requires S3_ENABLED=true"))
	}
	if c.Analysis.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_MAX_FILES must be positive"))
	}
	if c.Analysis.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_MAX_FILE_MB must be positive"))
	}
	if c.Security.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_RATE_LIMIT_PER_MINUTE must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func defaultLogStream() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "fastqc-analyzer"
	}
	return host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
