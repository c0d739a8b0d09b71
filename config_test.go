package wirehttp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfig_FromEnvironment(t *testing.T) {
	t.Setenv("WIREHTTP_MAX_LINE_LENGTH", "1024")
	t.Setenv("WIREHTTP_STRICT_CONTENT_ENCODING", "true")
	t.Setenv("WIREHTTP_POLL_INTERVAL", "5ms")
	t.Setenv("WIREHTTP_BUSY_POLL", "true")
	t.Setenv("WIREHTTP_DIAL_TIMEOUT", "2s")
	t.Setenv("WIREHTTP_LOG_LEVEL", "debug")

	cfg, err := ParseConfig()
	require.NoError(t, err)
	assert.Equal(t, Config{
		MaxLineLength:         1024,
		StrictContentEncoding: true,
		PollInterval:          5 * time.Millisecond,
		BusyPoll:              true,
		DialTimeout:           2 * time.Second,
		LogLevel:              zapcore.DebugLevel,
	}, cfg)
	assert.Equal(t, ParserConfig{MaxLineLength: 1024, StrictContentEncoding: true}, cfg.ParserConfig())
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Setenv("WIREHTTP_POLL_INTERVAL", "soon")
	_, err := ParseConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse environment")
}

func TestConfig_NewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = zapcore.WarnLevel
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestDispatch(t *testing.T) {
	var requests, responses int
	h := Dispatch(func(*Request) { requests++ }, func(*Response) { responses++ })
	h(NewRequest("GET", "/", RequestConfig{}))
	h(NewResponse("204 No Content"))
	h(NewResponse("200 OK"))
	assert.Equal(t, 1, requests)
	assert.Equal(t, 2, responses)

	assert.NotPanics(t, func() {
		Dispatch(nil, nil)(NewRequest("GET", "/", RequestConfig{}))
	})
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "request", KindRequest.String())
	assert.Equal(t, "response", KindResponse.String())
}
