package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "defaults", want: zapcore.InfoLevel},
		{name: "json debug", level: "debug", format: "json", want: zapcore.DebugLevel},
		{name: "console warn", level: "warn", format: "console", want: zapcore.WarnLevel},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, atom, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Equal(t, tt.want, atom.Level())
		})
	}
}

func TestSetLevel(t *testing.T) {
	_, atom, err := New("info", "json")
	require.NoError(t, err)

	require.NoError(t, SetLevel(atom, "error"))
	assert.Equal(t, zapcore.ErrorLevel, atom.Level())

	assert.Error(t, SetLevel(atom, "nope"))
	assert.Equal(t, zapcore.ErrorLevel, atom.Level(), "invalid level leaves the current one")
}
