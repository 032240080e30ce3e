package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fathima-sithara/conversation-service/internal/config"
)

func TestNewIsSingleton(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "development"

	a, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, a)

	b, err := New(cfg)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestDevelopmentEnablesDebug(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "development"

	l, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
}
