package journal

import (
	"fmt"
	"strings"

	"vaaniagent/internal/config"
)

// NewSink creates a Sink for the configured journal type.
func NewSink(cfg config.JournalConfig, agentID string) (Sink, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return NopSink{}, nil
	case "file":
		return NewFileSink(cfg.File)
	case "redis":
		return NewRedisSink(cfg.Redis, agentID), nil
	case "kafka":
		return NewKafkaSink(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported journal type %q: must be \"none\", \"file\", \"redis\" or \"kafka\"", cfg.Type)
	}
}
