package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/stracscan/sentinel/internal/db"
)

// Config represents the application configuration.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	AWS         AWSConfig      `toml:"aws"`
	Database    DatabaseConfig `toml:"database"`
	Worker      WorkerConfig   `toml:"worker"`
	Detector    DetectorConfig `toml:"detector"`
	Refresh     RefreshConfig  `toml:"refresh"`
	Logging     LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// AWSConfig holds the region and the two external-collaborator
// endpoints: the message bus queue URL and the durable-loop executor's
// ARN. An empty StepFunctionArn means "no external driver configured",
// which is the Job Orchestrator's signal to fall back to synchronous
// listing+enqueue.
type AWSConfig struct {
	Region          string `toml:"region"`
	SQSQueueURL     string `toml:"sqs_queue_url"`
	StepFunctionArn string `toml:"step_function_arn"`
}

type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
	MinConns int32  `toml:"min_conns"`
	MaxConns int32  `toml:"max_conns"`
}

// ToDBConfig adapts the configured database settings into the shape
// internal/db.Open expects.
func (c DatabaseConfig) ToDBConfig() db.Config {
	return db.Config{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Name,
		User:     c.User,
		Password: c.Password,
		SSLMode:  c.SSLMode,
		MinConns: c.MinConns,
		MaxConns: c.MaxConns,
	}
}

type WorkerConfig struct {
	BatchSize           int `toml:"batch_size"`
	MaxWorkers          int `toml:"max_workers"`
	MaxFileSizeMB       int `toml:"max_file_size_mb"`
	WaitSeconds         int `toml:"wait_seconds"`
	S3RequestsPerSecond int `toml:"s3_requests_per_second"`
}

type DetectorConfig struct {
	MaxPerKind   int `toml:"max_per_kind"`
	ContextChars int `toml:"context_chars"`
}

// RefreshConfig configures the Progress Cache Refresher's cron
// schedule for long-running deployments.
type RefreshConfig struct {
	Schedule string `toml:"schedule"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
}

// NewDefaultConfig returns a configuration with every field set to the
// spec's documented defaults. Callers still need AWS/Database
// credentials supplied from a file or the environment.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Database: DatabaseConfig{
			Port:     5432,
			Name:     "scanner_db",
			User:     "scanner_admin",
			SSLMode:  "require",
			MinConns: 2,
			MaxConns: 10,
		},
		Worker: WorkerConfig{
			BatchSize:           10,
			MaxWorkers:          20,
			MaxFileSizeMB:       100,
			WaitSeconds:         20,
			S3RequestsPerSecond: 0,
		},
		Detector: DetectorConfig{
			MaxPerKind:   10,
			ContextChars: 50,
		},
		Refresh: RefreshConfig{
			Schedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 ->
// file2 -> ... -> env. Later files override earlier files; empty paths
// are skipped so callers can pass an optional override path
// unconditionally.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("common: read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("common: parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies the environment-scoped keys, overriding
// anything set by file or default.
func applyEnvOverrides(config *Config) {
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.AWS.Region = region
	}
	if queueURL := os.Getenv("SQS_QUEUE_URL"); queueURL != "" {
		config.AWS.SQSQueueURL = queueURL
	}
	if arn := os.Getenv("STEP_FUNCTION_ARN"); arn != "" {
		config.AWS.StepFunctionArn = arn
	}

	if host := os.Getenv("RDS_PROXY_ENDPOINT"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("RDS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if name := os.Getenv("RDS_DBNAME"); name != "" {
		config.Database.Name = name
	}
	if user := os.Getenv("RDS_USERNAME"); user != "" {
		config.Database.User = user
	}
	if password := os.Getenv("RDS_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	if batchSize := os.Getenv("BATCH_SIZE"); batchSize != "" {
		if b, err := strconv.Atoi(batchSize); err == nil {
			config.Worker.BatchSize = b
		}
	}
	if maxWorkers := os.Getenv("MAX_WORKERS"); maxWorkers != "" {
		if m, err := strconv.Atoi(maxWorkers); err == nil {
			config.Worker.MaxWorkers = m
		}
	}
	if maxFileSizeMB := os.Getenv("MAX_FILE_SIZE_MB"); maxFileSizeMB != "" {
		if m, err := strconv.Atoi(maxFileSizeMB); err == nil {
			config.Worker.MaxFileSizeMB = m
		}
	}

	if env := os.Getenv("SCANNER_ENV"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("SCANNER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides; these take
// highest priority over file and environment configuration.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
