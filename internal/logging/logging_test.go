package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level  string
		enable zap.AtomicLevel
		want   bool
	}{
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel), true},
		{"warn", zap.NewAtomicLevelAt(zap.InfoLevel), false},
		{"", zap.NewAtomicLevelAt(zap.InfoLevel), true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level, "production")
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Core().Enabled(tt.enable.Level()))
		})
	}
}

func TestDevelopmentConsole(t *testing.T) {
	l, err := New("info", "development")
	require.NoError(t, err)
	l.Info("test message", zap.String("key", "value"))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}
