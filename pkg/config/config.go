package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"

	NotifierLog   = "log"
	NotifierKafka = "kafka"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StoreDriver      string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"orders.db"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	OrderTableName   string `envconfig:"ORDER_TABLE_NAME" default:"orders"`
	CatalogTableName string `envconfig:"CATALOG_TABLE_NAME" default:"catalog"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT" default:""` // DynamoDB Local endpoint

	KafkaBrokers      string `envconfig:"KAFKA_BROKERS" default:""`
	OrderEventsTopic  string `envconfig:"ORDER_EVENTS_TOPIC" default:"order-events"`
	NotificationTopic string `envconfig:"NOTIFICATION_TOPIC" default:"order-notifications"`

	Notifier      string        `envconfig:"NOTIFIER" default:"log"`
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`

	MaxCommitAttempts  int           `envconfig:"MAX_COMMIT_ATTEMPTS" default:"5"`
	CommitRetryBackoff time.Duration `envconfig:"COMMIT_RETRY_BACKOFF" default:"10ms"`

	OtelEndpoint string `envconfig:"OTEL_ENDPOINT" default:""`
	OtelInsecure bool   `envconfig:"OTEL_INSECURE" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite, StoreDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.Notifier {
	case NotifierLog:
	case NotifierKafka:
		if c.KafkaBrokers == "" {
			return fmt.Errorf("NOTIFIER=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", c.NotifyTimeout)
	}
	if c.MaxCommitAttempts < 1 {
		return fmt.Errorf("MAX_COMMIT_ATTEMPTS must be at least 1, got %d", c.MaxCommitAttempts)
	}
	if c.CommitRetryBackoff < 0 {
		return fmt.Errorf("COMMIT_RETRY_BACKOFF must not be negative")
	}
	return nil
}
