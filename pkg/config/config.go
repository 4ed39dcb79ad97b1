package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingTopic   = errors.New("config: topic is required")
	ErrMissingBrokers = errors.New("config: at least one seed broker is required")
)

type Config struct {
	KafkaConfig        *KafkaConfig `yaml:"kafka"`
	Topic              string       `yaml:"topic"`
	ConsumerGroup      string       `yaml:"consumer_group"`
	TopicPartitions    int32        `yaml:"topic_partitions"`
	ReplicationFactor  int16        `yaml:"replication_factor"`
	WindowSeconds      int          `yaml:"window_seconds"`
	PublishFrequencyMs int          `yaml:"publish_frequency_ms"`
}

type KafkaConfig struct {
	SeedBrokers []string `yaml:"seed_brokers"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Topic == "" {
		return ErrMissingTopic
	}
	if c.KafkaConfig == nil || len(c.KafkaConfig.SeedBrokers) == 0 {
		return ErrMissingBrokers
	}
	return nil
}

// GetWindowSeconds returns how long a value stays in the median window. A
// negative value disables expiry.
func (c *Config) GetWindowSeconds() int {
	if c.WindowSeconds == 0 {
		return 300
	}
	return c.WindowSeconds
}

func (c *Config) GetPublishFrequencyMs() int {
	if c.PublishFrequencyMs <= 0 {
		return 1000
	}
	return c.PublishFrequencyMs
}

func (c *Config) GetTopicPartitions() int32 {
	if c.TopicPartitions <= 0 {
		return 1
	}
	return c.TopicPartitions
}

func (c *Config) GetReplicationFactor() int16 {
	if c.ReplicationFactor <= 0 {
		return 1
	}
	return c.ReplicationFactor
}
