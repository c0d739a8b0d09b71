package wirehttp

import (
	"crypto/tls"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the tunables shared by connections and listeners. It can be
// read from the environment with ParseConfig.
type Config struct {
	MaxLineLength         int           `env:"WIREHTTP_MAX_LINE_LENGTH" envDefault:"8192"`
	StrictContentEncoding bool          `env:"WIREHTTP_STRICT_CONTENT_ENCODING" envDefault:"false"`
	PollInterval          time.Duration `env:"WIREHTTP_POLL_INTERVAL" envDefault:"50ms"`
	BusyPoll              bool          `env:"WIREHTTP_BUSY_POLL" envDefault:"false"`
	DialTimeout           time.Duration `env:"WIREHTTP_DIAL_TIMEOUT" envDefault:"10s"`
	LogLevel              zapcore.Level `env:"WIREHTTP_LOG_LEVEL" envDefault:"info"`
}

func DefaultConfig() Config {
	return Config{
		MaxLineLength: defaultMaxLineLength,
		PollInterval:  50 * time.Millisecond,
		DialTimeout:   10 * time.Second,
		LogLevel:      zapcore.InfoLevel,
	}
}

// ParseConfig reads Config from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse environment")
	}
	return cfg, nil
}

func (c Config) ParserConfig() ParserConfig {
	return ParserConfig{
		MaxLineLength:         c.MaxLineLength,
		StrictContentEncoding: c.StrictContentEncoding,
	}
}

// NewLogger builds a production zap logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(c.LogLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// HandlerFunc receives every parsed message. It is called from one
// goroutine per connection and must be safe for concurrent use.
type HandlerFunc func(m Message)

// Dispatch returns a HandlerFunc routing requests and responses to
// separate callbacks. Either callback may be nil.
func Dispatch(onRequest func(*Request), onResponse func(*Response)) HandlerFunc {
	return func(m Message) {
		switch msg := m.(type) {
		case *Request:
			if onRequest != nil {
				onRequest(msg)
			}
		case *Response:
			if onResponse != nil {
				onResponse(msg)
			}
		}
	}
}

type options struct {
	config    Config
	logger    *zap.Logger
	handler   HandlerFunc
	tlsConfig *tls.Config
}

// Option configures a Connection or a Listener.
type Option func(*options)

func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithHandler(h HandlerFunc) Option {
	return func(o *options) { o.handler = h }
}

// WithTLSConfig enables TLS: Connect performs a client handshake, Listen
// serves TLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) { o.tlsConfig = cfg }
}

func buildOptions(opts []Option) options {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.logger = o.logger.Named("wirehttp")
	return o
}
