package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Valkey   ValkeyConfig
	MinIO    MinIOConfig
	S3       S3Config
	Records  RecordsConfig
	MCP      MCPConfig
	Auth     AuthConfig
	Evaluate EvaluateConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ValkeyConfig struct {
	Addr      string
	Password  string
	DB        int
	SchemaTTL time.Duration // VALKEY_SCHEMA_TTL, 0 disables the schema cache
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type S3Config struct {
	Region   string // S3_REGION
	Bucket   string // S3_BUCKET
	Prefix   string // S3_PREFIX (optional default prefix)
	Endpoint string // S3_ENDPOINT (for MinIO/LocalStack compatibility)
}

// Record sinks.
const (
	SinkNone  = "none"
	SinkMinIO = "minio"
	SinkS3    = "s3"
)

type RecordsConfig struct {
	Sink   string // RECORDS_SINK: none, minio or s3
	Prefix string // RECORDS_PREFIX, object key prefix
}

type MCPConfig struct {
	Addr    string
	BaseURL string // MCP_BASE_URL, public URL used for RFC 9728 resource metadata
}

type AuthConfig struct {
	Enabled      bool   // AUTH_ENABLED
	IssuerURL    string // AUTH_ISSUER_URL, OIDC discovery URL
	PublicIssuer string // AUTH_PUBLIC_ISSUER, iss claim when it differs from the discovery URL
	Audience     string // AUTH_AUDIENCE
}

type EvaluateConfig struct {
	Concurrency  int
	ExecMatch    bool
	IgnoreValues bool
	PGCheck      bool // run the PostgreSQL grammar check on every pair, not only pgsql-looking ones
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECS", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "sqlshape"),
			Password: getEnv("DB_PASSWORD", "sqlshape"),
			Name:     getEnv("DB_NAME", "sqlshape"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Valkey: ValkeyConfig{
			Addr:      getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:  getEnv("VALKEY_PASSWORD", ""),
			DB:        getEnvInt("VALKEY_DB", 0),
			SchemaTTL: getEnvDuration("VALKEY_SCHEMA_TTL", 10*time.Minute),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "sqlshape"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "sqlshape123"),
			Bucket:    getEnv("MINIO_BUCKET", "sqlshape"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		S3: S3Config{
			Region:   getEnv("S3_REGION", ""),
			Bucket:   getEnv("S3_BUCKET", ""),
			Prefix:   getEnv("S3_PREFIX", ""),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Records: RecordsConfig{
			Sink:   getEnv("RECORDS_SINK", SinkNone),
			Prefix: getEnv("RECORDS_PREFIX", "records"),
		},
		MCP: MCPConfig{
			Addr:    getEnv("MCP_ADDR", ":8090"),
			BaseURL: getEnv("MCP_BASE_URL", ""),
		},
		Auth: AuthConfig{
			Enabled:      getEnvBool("AUTH_ENABLED", false),
			IssuerURL:    getEnv("AUTH_ISSUER_URL", ""),
			PublicIssuer: getEnv("AUTH_PUBLIC_ISSUER", ""),
			Audience:     getEnv("AUTH_AUDIENCE", "sqlshape"),
		},
		Evaluate: EvaluateConfig{
			Concurrency:  getEnvInt("EVALUATE_CONCURRENCY", 8),
			ExecMatch:    getEnvBool("EVALUATE_EXEC_MATCH", false),
			IgnoreValues: getEnvBool("EVALUATE_IGNORE_VALUES", false),
			PGCheck:      getEnvBool("EVALUATE_PG_CHECK", false),
		},
	}

	switch cfg.Records.Sink {
	case SinkNone, SinkMinIO, SinkS3:
	default:
		return nil, fmt.Errorf("RECORDS_SINK must be one of none, minio, s3; got %q", cfg.Records.Sink)
	}
	if cfg.Records.Sink == SinkS3 && cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("RECORDS_SINK=s3 requires S3_BUCKET")
	}
	if cfg.Auth.Enabled && cfg.Auth.IssuerURL == "" {
		return nil, fmt.Errorf("AUTH_ENABLED=true requires AUTH_ISSUER_URL")
	}
	if cfg.Evaluate.Concurrency < 1 {
		cfg.Evaluate.Concurrency = 1
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
