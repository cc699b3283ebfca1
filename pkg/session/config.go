package session

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the search layer and its
// DynamoDB-backed store.
type Config struct {
	Region   string
	Endpoint string // local endpoint override, e.g. DynamoDB Local

	MaxRetries int

	// CacheTTL is the lifetime of cached first-page results.
	CacheTTL time.Duration

	// DefaultLimit is the page size for callers with no preference.
	DefaultLimit int

	// Tables maps collection names to their DynamoDB key schemas.
	Tables map[string]TableKeys

	// Programmatic-only knobs, not represented in config files.
	CredentialsProvider aws.CredentialsProvider
	AWSConfigOptions    []func(*config.LoadOptions) error
	DynamoDBOptions     []func(*dynamodb.Options)
}

// TableKeys is the key schema of one collection's backing table.
type TableKeys struct {
	PartitionKey string `yaml:"pk"`
	SortKey      string `yaml:"sk,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Region:       "us-east-1",
		MaxRetries:   3,
		CacheTTL:     5 * time.Minute,
		DefaultLimit: 20,
	}
}

// fileConfig mirrors Config for YAML decoding. Durations are spelled
// as strings ("30s", "5m") rather than raw nanoseconds.
type fileConfig struct {
	Region       string               `yaml:"region"`
	Endpoint     string               `yaml:"endpoint"`
	MaxRetries   *int                 `yaml:"maxRetries"`
	CacheTTL     string               `yaml:"cacheTTL"`
	DefaultLimit *int                 `yaml:"defaultLimit"`
	Tables       map[string]TableKeys `yaml:"tables"`
}

// LoadConfigFile reads a YAML configuration file, layered over
// DefaultConfig.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if fc.Region != "" {
		cfg.Region = fc.Region
	}
	if fc.Endpoint != "" {
		cfg.Endpoint = fc.Endpoint
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.CacheTTL != "" {
		ttl, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: cacheTTL: %w", path, err)
		}
		cfg.CacheTTL = ttl
	}
	if fc.DefaultLimit != nil {
		cfg.DefaultLimit = *fc.DefaultLimit
	}
	if fc.Tables != nil {
		cfg.Tables = fc.Tables
	}
	return cfg, nil
}
