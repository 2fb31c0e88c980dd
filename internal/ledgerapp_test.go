package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/config"
	"github.com/kij-exe/hypr-ledger/internal/clients"
)

func TestLedgerApp_NewBuilderService(t *testing.T) {
	opts := clients.HTTPOptions{Timeout: time.Second, MaxRetries: 1, RetryDelay: time.Millisecond}

	tests := []struct {
		name        string
		conf        config.Config
		wantBuilder bool
		wantClosers int
	}{
		{
			name: "no target builder",
			conf: config.Default(),
		},
		{
			name: "memory only",
			conf: func() config.Config {
				c := config.Default()
				c.TargetBuilder = "0xabcdef0123456789abcdef0123456789abcdef01"
				return c
			}(),
			wantBuilder: true,
		},
		{
			name: "persistent days",
			conf: func() config.Config {
				c := config.Default()
				c.TargetBuilder = "0xabcdef0123456789abcdef0123456789abcdef01"
				c.BuilderCacheDir = t.TempDir()
				return c
			}(),
			wantBuilder: true,
			wantClosers: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &LedgerApp{Config: tt.conf, l: zap.NewNop()}
			svc, err := app.newBuilderService(opts)
			require.NoError(t, err)
			defer app.Close()

			if !tt.wantBuilder {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.conf.TargetBuilder, svc.Builder())
			assert.Len(t, app.closers, tt.wantClosers)
		})
	}
}
