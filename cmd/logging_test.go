package cmd

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	}()

	tests := []struct {
		name      string
		level     string
		format    string
		wantErr   bool
		wantLevel log.Level
		wantJSON  bool
	}{
		{name: "defaults", level: "info", format: "text", wantLevel: log.InfoLevel},
		{name: "json debug", level: "debug", format: "JSON", wantLevel: log.DebugLevel, wantJSON: true},
		{name: "empty format is text", level: "warn", format: "", wantLevel: log.WarnLevel},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := configureLogging(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, log.GetLevel())
			_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}
