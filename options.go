package mqttsn

import (
	"fmt"
	"time"

	"github.com/golang-io/requests"
)

// Config holds the connection parameters that are immutable once a
// session starts (spec.md §3).
type Config struct {
	BrokerAddr string // host:port, default port DefaultPort
	ClientID   string
	KeepAlive  time.Duration

	WillTopic   string
	WillMessage []byte

	Retry          int
	RetryPing      int
	TimeoutConnect time.Duration
	Timeout        time.Duration
	MaxQueue       int
	MaxTopicUsed   int
	AutoReconnect  bool
}

// Option configures a Config built by NewConfig.
type Option func(*Config)

// NewConfig applies opts over a set of defaults matching spec.md §6.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		BrokerAddr:     fmt.Sprintf(":%d", DefaultPort),
		ClientID:       "mqttsn-" + requests.GenId(),
		KeepAlive:      60 * time.Second,
		Retry:          DefaultRetry,
		RetryPing:      DefaultRetryPing,
		TimeoutConnect: DefaultTimeoutConnect,
		Timeout:        DefaultTimeout,
		MaxQueue:       DefaultMaxQueue,
		MaxTopicUsed:   DefaultMaxTopicUsed,
		AutoReconnect:  true,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// WithBroker sets the broker's host:port.
func WithBroker(addr string) Option {
	return func(c *Config) { c.BrokerAddr = addr }
}

// WithClientID overrides the generated default client id. Must be
// 1..23 ASCII bytes (spec.md §3); validated at session-create time.
func WithClientID(id string) Option {
	return func(c *Config) { c.ClientID = id }
}

// WithKeepAlive sets the keep-alive interval driving the ping subsystem
// (spec.md §4.4).
func WithKeepAlive(d time.Duration) Option {
	return func(c *Config) { c.KeepAlive = d }
}

// WithWill configures the Last Will and Testament announced during
// CONNECT (spec.md §4.5 WAITING_WILLTOPICREQ/WAITING_WILLMSGREQ).
func WithWill(topic string, message []byte) Option {
	return func(c *Config) {
		c.WillTopic = topic
		c.WillMessage = message
	}
}

// WithAutoReconnect toggles the reconnect-on-ping-timeout behaviour
// (spec.md §4.5 ping_timeout, default on).
func WithAutoReconnect(enabled bool) Option {
	return func(c *Config) { c.AutoReconnect = enabled }
}

// WithRetry overrides the per-operation and keep-alive retry ceilings.
func WithRetry(retry, retryPing int) Option {
	return func(c *Config) {
		c.Retry = retry
		c.RetryPing = retryPing
	}
}
