package bus

import (
	"fmt"
	"strings"

	"github.com/yungbote/papaya-ledger/internal/platform/logger"
	"github.com/yungbote/papaya-ledger/internal/realtime"
)

const (
	DriverNone  = ""
	DriverRedis = "redis"
	DriverKafka = "kafka"

	DefaultChannel = "papaya:sse"
)

type Options struct {
	Driver       string
	RedisURL     string
	Channel      string
	KafkaBrokers []string
}

// New returns the configured relay, or nil when cross-process fanout is disabled.
func New(log *logger.Logger, opts Options) (realtime.Relay, error) {
	if strings.TrimSpace(opts.Channel) == "" {
		opts.Channel = DefaultChannel
	}
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverNone:
		return nil, nil
	case DriverRedis:
		return NewRedisBus(log, opts.RedisURL, opts.Channel)
	case DriverKafka:
		return NewKafkaBus(log, opts.KafkaBrokers, opts.Channel)
	default:
		return nil, fmt.Errorf("unknown relay driver %q", opts.Driver)
	}
}
