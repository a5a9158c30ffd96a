// Package config provides configuration management for the VaaniAgent.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for the remote service and the credential location.
const (
	DefaultServerURL     = "http://127.0.0.1:5000"
	DefaultTokenDir      = "Vaani Virtual Assistant"
	DefaultTokenFile     = "user_token.json"
	DefaultReadLogBytes  = 4096
	DefaultJournalMaxLen = 1000
)

// Config is the root configuration structure (VaaniAgent.json).
type Config struct {
	AgentID          string         `json:"AgentID"`
	ServerURL        string         `json:"ServerURL"`
	TokenPath        string         `json:"TokenPath"`
	PollInterval     time.Duration  `json:"PollInterval"`
	RequestTimeout   time.Duration  `json:"RequestTimeout"`
	MaxLoginAttempts int            `json:"MaxLoginAttempts"`
	SyncOnStart      bool           `json:"SyncOnStart"`
	SOCKSProxy       SOCKSConfig    `json:"SocksProxy"`
	Commands         CommandsConfig `json:"Commands"`
	Journal          JournalConfig  `json:"Journal"`
}

// SOCKSConfig contains SOCKS5 proxy settings for the HTTP client.
type SOCKSConfig struct {
	Host string `json:"Host"`
	Port int    `json:"Port"`
}

// Enabled reports whether a proxy is configured.
func (s SOCKSConfig) Enabled() bool {
	return s.Host != "" && s.Port > 0
}

// CommandsConfig configures the local actions the dispatcher can run.
type CommandsConfig struct {
	StartApp StartAppConfig `json:"StartApp"`
	ReadLog  ReadLogConfig  `json:"ReadLog"`
}

// StartAppConfig names the application launched by "start_app".
type StartAppConfig struct {
	Path string   `json:"Path"`
	Args []string `json:"Args,omitempty"`
}

// ReadLogConfig names the log file read by "read_log".
type ReadLogConfig struct {
	Path     string `json:"Path"`
	MaxBytes int64  `json:"MaxBytes"`
}

// JournalConfig selects where agent activity events are recorded.
type JournalConfig struct {
	Type  string             `json:"Type"` // "none", "file", "redis" or "kafka"
	File  JournalFileConfig  `json:"File"`
	Redis JournalRedisConfig `json:"Redis"`
	Kafka KafkaConfig        `json:"Kafka"`
}

// JournalFileConfig contains settings for the JSONL journal file.
type JournalFileConfig struct {
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
}

// JournalRedisConfig contains Redis connection settings for the journal.
type JournalRedisConfig struct {
	Address  string `json:"Address"`
	Password string `json:"Password"`
	DB       int    `json:"DB"`
	MaxLen   int64  `json:"MaxLen"`
}

// KafkaConfig contains Kafka producer settings for the journal.
type KafkaConfig struct {
	Brokers       []string      `json:"Brokers"`
	Topic         string        `json:"Topic"`
	Compression   string        `json:"Compression"`
	RequiredAcks  int           `json:"RequiredAcks"`
	MaxRetries    int           `json:"MaxRetries"`
	Timeout       time.Duration `json:"Timeout"`
	EnableTLS     bool          `json:"EnableTLS"`
	TLSCertFile   string        `json:"TLSCertFile"`
	TLSKeyFile    string        `json:"TLSKeyFile"`
	TLSCAFile     string        `json:"TLSCAFile"`
	SASLEnabled   bool          `json:"SASLEnabled"`
	SASLMechanism string        `json:"SASLMechanism"`
	SASLUser      string        `json:"SASLUser"`
	SASLPassword  string        `json:"SASLPassword"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:        DefaultServerURL,
		PollInterval:     10 * time.Second,
		RequestTimeout:   10 * time.Second,
		MaxLoginAttempts: 3,
		Commands: CommandsConfig{
			ReadLog: ReadLogConfig{MaxBytes: DefaultReadLogBytes},
		},
		Journal: JournalConfig{
			Type: "none",
			File: JournalFileConfig{
				FilePath:   "log/VaaniAgent/journal.jsonl",
				MaxSizeMB:  10,
				MaxBackups: 3,
			},
			Redis: JournalRedisConfig{
				Address: "127.0.0.1:6379",
				MaxLen:  DefaultJournalMaxLen,
			},
			Kafka: KafkaConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "vaani-agent-journal",
				Compression:  "snappy",
				RequiredAcks: 1,
				MaxRetries:   3,
				Timeout:      10 * time.Second,
			},
		},
	}
}

// Merge applies non-zero values from other to this config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.AgentID != "" {
		c.AgentID = other.AgentID
	}
	if other.ServerURL != "" {
		c.ServerURL = other.ServerURL
	}
	if other.TokenPath != "" {
		c.TokenPath = other.TokenPath
	}
	if other.PollInterval != 0 {
		c.PollInterval = other.PollInterval
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.MaxLoginAttempts != 0 {
		c.MaxLoginAttempts = other.MaxLoginAttempts
	}
	c.SyncOnStart = other.SyncOnStart

	if other.SOCKSProxy.Host != "" {
		c.SOCKSProxy.Host = other.SOCKSProxy.Host
	}
	if other.SOCKSProxy.Port != 0 {
		c.SOCKSProxy.Port = other.SOCKSProxy.Port
	}

	// Commands
	if other.Commands.StartApp.Path != "" {
		c.Commands.StartApp.Path = other.Commands.StartApp.Path
	}
	if len(other.Commands.StartApp.Args) > 0 {
		c.Commands.StartApp.Args = other.Commands.StartApp.Args
	}
	if other.Commands.ReadLog.Path != "" {
		c.Commands.ReadLog.Path = other.Commands.ReadLog.Path
	}
	if other.Commands.ReadLog.MaxBytes != 0 {
		c.Commands.ReadLog.MaxBytes = other.Commands.ReadLog.MaxBytes
	}

	c.Journal.merge(&other.Journal)
}

func (j *JournalConfig) merge(other *JournalConfig) {
	if other.Type != "" {
		j.Type = other.Type
	}

	if other.File.FilePath != "" {
		j.File.FilePath = other.File.FilePath
	}
	if other.File.MaxSizeMB != 0 {
		j.File.MaxSizeMB = other.File.MaxSizeMB
	}
	if other.File.MaxBackups != 0 {
		j.File.MaxBackups = other.File.MaxBackups
	}

	if other.Redis.Address != "" {
		j.Redis.Address = other.Redis.Address
	}
	if other.Redis.Password != "" {
		j.Redis.Password = other.Redis.Password
	}
	if other.Redis.DB != 0 {
		j.Redis.DB = other.Redis.DB
	}
	if other.Redis.MaxLen != 0 {
		j.Redis.MaxLen = other.Redis.MaxLen
	}

	k, o := &j.Kafka, &other.Kafka
	if len(o.Brokers) > 0 {
		k.Brokers = o.Brokers
	}
	if o.Topic != "" {
		k.Topic = o.Topic
	}
	if o.Compression != "" {
		k.Compression = o.Compression
	}
	if o.RequiredAcks != 0 {
		k.RequiredAcks = o.RequiredAcks
	}
	if o.MaxRetries != 0 {
		k.MaxRetries = o.MaxRetries
	}
	if o.Timeout != 0 {
		k.Timeout = o.Timeout
	}
	k.EnableTLS = o.EnableTLS
	if o.TLSCertFile != "" {
		k.TLSCertFile = o.TLSCertFile
	}
	if o.TLSKeyFile != "" {
		k.TLSKeyFile = o.TLSKeyFile
	}
	if o.TLSCAFile != "" {
		k.TLSCAFile = o.TLSCAFile
	}
	k.SASLEnabled = o.SASLEnabled
	if o.SASLMechanism != "" {
		k.SASLMechanism = o.SASLMechanism
	}
	if o.SASLUser != "" {
		k.SASLUser = o.SASLUser
	}
	if o.SASLPassword != "" {
		k.SASLPassword = o.SASLPassword
	}
}

// ResolveTokenPath returns the configured token path, or
// <home>/Vaani Virtual Assistant/user_token.json when none is set.
func ResolveTokenPath(cfg *Config) (string, error) {
	if cfg.TokenPath != "" {
		return cfg.TokenPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultTokenDir, DefaultTokenFile), nil
}

// GetAgentID returns the configured agent ID or the system hostname.
func GetAgentID(cfg *Config) string {
	if cfg.AgentID != "" {
		return cfg.AgentID
	}
	return GetHostname()
}

// GetHostname returns the system hostname, or "unknown".
func GetHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
