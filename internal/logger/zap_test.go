package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug":   zap.NewAtomicLevelAt(zap.DebugLevel),
		"warn":    zap.NewAtomicLevelAt(zap.WarnLevel),
		"error":   zap.NewAtomicLevelAt(zap.ErrorLevel),
		"unknown": zap.NewAtomicLevelAt(zap.InfoLevel),
	}

	for level, want := range cases {
		l, err := New("prod", level)
		require.NoError(t, err, level)
		assert.True(t, l.Core().Enabled(want.Level()), level)
		if want.Level() > zap.DebugLevel {
			assert.False(t, l.Core().Enabled(want.Level()-1), level)
		}
	}
}
