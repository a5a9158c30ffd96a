package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"vaaniagent/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	AgentID          string         `json:"AgentID"`
	ServerURL        string         `json:"ServerURL"`
	TokenPath        string         `json:"TokenPath"`
	PollInterval     string         `json:"PollInterval"`
	RequestTimeout   string         `json:"RequestTimeout"`
	MaxLoginAttempts int            `json:"MaxLoginAttempts"`
	SyncOnStart      bool           `json:"SyncOnStart"`
	SOCKSProxy       SOCKSConfig    `json:"SocksProxy"`
	Commands         CommandsConfig `json:"Commands"`
	Journal          rawJournal     `json:"Journal"`
}

type rawJournal struct {
	Type  string             `json:"Type"`
	File  JournalFileConfig  `json:"File"`
	Redis JournalRedisConfig `json:"Redis"`
	Kafka rawKafkaConfig     `json:"Kafka"`
}

type rawKafkaConfig struct {
	Brokers       []string `json:"Brokers"`
	Topic         string   `json:"Topic"`
	Compression   string   `json:"Compression"`
	RequiredAcks  int      `json:"RequiredAcks"`
	MaxRetries    int      `json:"MaxRetries"`
	Timeout       string   `json:"Timeout"`
	EnableTLS     bool     `json:"EnableTLS"`
	TLSCertFile   string   `json:"TLSCertFile"`
	TLSKeyFile    string   `json:"TLSKeyFile"`
	TLSCAFile     string   `json:"TLSCAFile"`
	SASLEnabled   bool     `json:"SASLEnabled"`
	SASLMechanism string   `json:"SASLMechanism"`
	SASLUser      string   `json:"SASLUser"`
	SASLPassword  string   `json:"SASLPassword"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   *bool  `json:"Compress"`
	Console    *bool  `json:"Console"`
}

// Load reads configuration from the specified file path. A missing file is
// not an error: the agent runs on defaults when started with no arguments.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from JSON bytes.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	parsed, err := convertRawConfig(&raw)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Merge(parsed)
	return cfg, nil
}

func convertRawConfig(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		AgentID:          raw.AgentID,
		ServerURL:        raw.ServerURL,
		TokenPath:        raw.TokenPath,
		MaxLoginAttempts: raw.MaxLoginAttempts,
		SyncOnStart:      raw.SyncOnStart,
		SOCKSProxy:       raw.SOCKSProxy,
		Commands:         raw.Commands,
		Journal: JournalConfig{
			Type:  raw.Journal.Type,
			File:  raw.Journal.File,
			Redis: raw.Journal.Redis,
		},
	}

	var err error
	if cfg.PollInterval, err = parseDuration("PollInterval", raw.PollInterval); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseDuration("RequestTimeout", raw.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.PollInterval < 0 || cfg.RequestTimeout < 0 {
		return nil, fmt.Errorf("PollInterval and RequestTimeout must not be negative")
	}
	if cfg.MaxLoginAttempts < 0 {
		return nil, fmt.Errorf("MaxLoginAttempts must not be negative, got %d", cfg.MaxLoginAttempts)
	}

	kafka, err := convertRawKafka(&raw.Journal.Kafka)
	if err != nil {
		return nil, err
	}
	cfg.Journal.Kafka = *kafka

	return cfg, nil
}

func convertRawKafka(raw *rawKafkaConfig) (*KafkaConfig, error) {
	kafka := &KafkaConfig{
		Brokers:       raw.Brokers,
		Topic:         raw.Topic,
		Compression:   raw.Compression,
		RequiredAcks:  raw.RequiredAcks,
		MaxRetries:    raw.MaxRetries,
		EnableTLS:     raw.EnableTLS,
		TLSCertFile:   raw.TLSCertFile,
		TLSKeyFile:    raw.TLSKeyFile,
		TLSCAFile:     raw.TLSCAFile,
		SASLEnabled:   raw.SASLEnabled,
		SASLMechanism: raw.SASLMechanism,
		SASLUser:      raw.SASLUser,
		SASLPassword:  raw.SASLPassword,
	}

	d, err := parseDuration("Kafka.Timeout", raw.Timeout)
	if err != nil {
		return nil, err
	}
	kafka.Timeout = d
	return kafka, nil
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", name, err)
	}
	return d, nil
}

// LoadLogging reads logging configuration from the specified file path.
// A missing file yields logger.DefaultConfig().
func LoadLogging(path string) (*logger.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		def := logger.DefaultConfig()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read logging config file: %w", err)
	}
	return ParseLogging(data)
}

// ParseLogging parses logging configuration from JSON bytes.
func ParseLogging(data []byte) (*logger.Config, error) {
	var raw rawLoggingConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse logging config JSON: %w", err)
	}

	def := logger.DefaultConfig()
	if raw.Level != "" {
		def.Level = raw.Level
	}
	if raw.FilePath != "" {
		def.FilePath = raw.FilePath
	}
	if raw.MaxSizeMB != 0 {
		def.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups != 0 {
		def.MaxBackups = raw.MaxBackups
	}
	if raw.MaxAgeDays != 0 {
		def.MaxAgeDays = raw.MaxAgeDays
	}
	if raw.Compress != nil {
		def.Compress = *raw.Compress
	}
	if raw.Console != nil {
		def.Console = *raw.Console
	}

	return &def, nil
}

// LoadAll loads VaaniAgent.json and Logging.json.
func LoadAll(configPath, loggingPath string) (*Config, *logger.Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lc, err := LoadLogging(loggingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load logging config: %w", err)
	}

	return cfg, lc, nil
}
