package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	API      APIConfig      `mapstructure:"api"`
	Email    EmailConfig    `mapstructure:"email"`
	Database DatabaseConfig `mapstructure:"database"`
	LogStore LogStoreConfig `mapstructure:"log_store"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// APIConfig holds HTTP server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// EmailConfig selects the active provider and carries both adapters' settings.
type EmailConfig struct {
	Provider string         `mapstructure:"provider"` // sendgrid or smtp
	SendGrid SendGridConfig `mapstructure:"sendgrid"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

// SendGridConfig holds hosted-API credentials and sender identity.
type SendGridConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Endpoint  string        `mapstructure:"endpoint"`
	FromEmail string        `mapstructure:"from_email"`
	FromName  string        `mapstructure:"from_name"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SMTPConfig holds relay connection settings and sender identity.
type SMTPConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Secure    bool          `mapstructure:"secure"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	FromEmail string        `mapstructure:"from_email"`
	FromName  string        `mapstructure:"from_name"`
	Timeout   time.Duration `mapstructure:"timeout"`
	LocalName string        `mapstructure:"local_name"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
}

// LogStoreConfig sizes the in-memory delivery log.
type LogStoreConfig struct {
	MemoryCapacity int `mapstructure:"memory_capacity"`
}

// QueueConfig holds the optional ingestion consumer configuration.
type QueueConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Type            string        `mapstructure:"type"` // redis or sqs
	Broker          string        `mapstructure:"broker"`
	Password        string        `mapstructure:"password"`
	Topic           string        `mapstructure:"topic"`
	GroupID         string        `mapstructure:"group_id"`
	Workers         int           `mapstructure:"workers"`
	BlockTimeout    time.Duration `mapstructure:"block_timeout"`
	ProcessTimeout  time.Duration `mapstructure:"process_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SQSQueueURL     string        `mapstructure:"sqs_queue_url"`
	SQSRegion       string        `mapstructure:"sqs_region"`
	SQSWaitTime     int32         `mapstructure:"sqs_wait_time"`
}

// ArchiveConfig holds the rendered-content archive configuration.
// An empty Type disables the archive.
type ArchiveConfig struct {
	Type       string `mapstructure:"type"` // "", local, s3
	Path       string `mapstructure:"path"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Region   string `mapstructure:"s3_region"`
}

// AuthConfig enables API authentication when either field is set.
type AuthConfig struct {
	SigningKey   string   `mapstructure:"signing_key"`
	Issuer       string   `mapstructure:"issuer"`
	Audience     string   `mapstructure:"audience"`
	APIKeyHashes []string `mapstructure:"api_key_hashes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// Load reads configuration from config.yaml in configPath, falling back to
// built-in defaults when the file is absent. A .env file in the working
// directory is loaded into the process environment first. Environment
// variables prefixed with EMAIL_SERVICE_ override file values, e.g.
// EMAIL_SERVICE_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("EMAIL_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applySenderFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects option values the service cannot start with.
func (c *Config) Validate() error {
	switch c.Email.Provider {
	case "sendgrid", "smtp":
	default:
		return fmt.Errorf("email.provider must be sendgrid or smtp, got %q", c.Email.Provider)
	}
	if c.LogStore.MemoryCapacity <= 0 {
		return errors.New("log_store.memory_capacity must be positive")
	}
	if c.Queue.Enabled {
		switch c.Queue.Type {
		case "redis", "":
			if c.Queue.Topic == "" || c.Queue.GroupID == "" {
				return errors.New("queue.topic and queue.group_id are required for redis")
			}
		case "sqs":
			if c.Queue.SQSQueueURL == "" {
				return errors.New("queue.sqs_queue_url is required for sqs")
			}
		default:
			return fmt.Errorf("unknown queue.type %q", c.Queue.Type)
		}
	}
	return nil
}

// applySenderFallbacks fills sender identity gaps: the SMTP from address
// defaults to the SMTP username and the SendGrid sender defaults to the
// SMTP sender.
func (c *Config) applySenderFallbacks() {
	if c.Email.SMTP.FromEmail == "" {
		c.Email.SMTP.FromEmail = c.Email.SMTP.Username
	}
	if c.Email.SendGrid.FromEmail == "" {
		c.Email.SendGrid.FromEmail = c.Email.SMTP.FromEmail
	}
	if c.Email.SendGrid.FromEmail == "" {
		c.Email.SendGrid.FromEmail = "noreply@example.com"
	}
	if c.Email.SendGrid.FromName == "" {
		c.Email.SendGrid.FromName = c.Email.SMTP.FromName
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "email-service")
	v.SetDefault("service.environment", "development")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8003)
	v.SetDefault("api.read_timeout", 10*time.Second)
	v.SetDefault("api.write_timeout", 60*time.Second)

	v.SetDefault("email.provider", "sendgrid")
	v.SetDefault("email.sendgrid.api_key", "")
	v.SetDefault("email.sendgrid.endpoint", "")
	v.SetDefault("email.sendgrid.from_email", "")
	v.SetDefault("email.sendgrid.from_name", "")
	v.SetDefault("email.sendgrid.timeout", 30*time.Second)
	v.SetDefault("email.smtp.host", "smtp.gmail.com")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.secure", false)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from_email", "")
	v.SetDefault("email.smtp.from_name", "Email Service")
	v.SetDefault("email.smtp.timeout", 30*time.Second)
	v.SetDefault("email.smtp.local_name", "localhost")

	v.SetDefault("database.url", "")
	v.SetDefault("database.pool_min", 0)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.query_timeout", 10*time.Second)

	v.SetDefault("log_store.memory_capacity", 1000)

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.broker", "localhost:6379")
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.topic", "emails")
	v.SetDefault("queue.group_id", "email-service-group")
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.block_timeout", 5*time.Second)
	v.SetDefault("queue.process_timeout", 60*time.Second)
	v.SetDefault("queue.shutdown_timeout", 30*time.Second)
	v.SetDefault("queue.sqs_queue_url", "")
	v.SetDefault("queue.sqs_region", "")
	v.SetDefault("queue.sqs_wait_time", 20)

	v.SetDefault("archive.type", "")
	v.SetDefault("archive.path", "./data/archive")
	v.SetDefault("archive.s3_bucket", "")
	v.SetDefault("archive.s3_prefix", "emails/")
	v.SetDefault("archive.s3_endpoint", "")
	v.SetDefault("archive.s3_region", "")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.api_key_hashes", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "./logs/email-service.log")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_files", 5)
}
