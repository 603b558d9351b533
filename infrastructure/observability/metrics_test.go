package observability

import (
	"context"
	"testing"
	"time"

	"dkpauction/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsProvider_Initialize(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *config.Config)
		wantErr     bool
		wantEnabled bool
	}{
		{
			name:   "disabled",
			mutate: func(cfg *config.Config) { cfg.OTelEnabled = false },
		},
		{
			name: "exporter none",
			mutate: func(cfg *config.Config) {
				cfg.OTelEnabled = true
				cfg.OTelExporterType = "none"
			},
		},
		{
			name: "console exporter",
			mutate: func(cfg *config.Config) {
				cfg.OTelEnabled = true
				cfg.OTelExporterType = "console"
				cfg.OTelExportIntervalMillis = 60000
			},
			wantEnabled: true,
		},
		{
			name: "unknown exporter",
			mutate: func(cfg *config.Config) {
				cfg.OTelEnabled = true
				cfg.OTelExporterType = "carrier-pigeon"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewTestConfig()
			tt.mutate(cfg)

			mp := NewMetricsProvider(cfg)
			err := mp.Initialize(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

			assert.Equal(t, tt.wantEnabled, mp.isEnabled())

			// Recording is safe whether or not instruments exist
			mp.RecordBid("OK")
			mp.RecordSnipeExtension()
			mp.RecordSettlement("completed", 12*time.Millisecond)
			mp.UpdateActiveAuctions(1)
			mp.RecordNATSMessagePublished("bid_placed")
		})
	}
}
