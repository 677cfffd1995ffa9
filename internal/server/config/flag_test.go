package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret",
			"-t", "5", "-m", ":9100", "-l", "5",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrGRPC:            "127.0.0.1:9090",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 5 * time.Minute,
				MetricsAddr:                 ":9100",
				MaxFailedLogins:             5,
			}},
		{name: "tls flags", args: []string{"cmd",
			"-tls-cert", "/etc/ih/cert.pem", "-tls-key", "/etc/ih/key.pem",
		}, expectPanic: false,
			expected: &Config{
				TLSCertFile: "/etc/ih/cert.pem",
				TLSKeyFile:  "/etc/ih/key.pem",
			}},
		{name: "insecure opt-out", args: []string{"cmd", "-insecure", "-a", ":2"}, expectPanic: false,
			expected: &Config{EndpointAddrGRPC: ":2", Insecure: true}},
		{name: "unknown flags are filtered out", args: []string{"cmd",
			"-c", "cfg.json", "-a", ":1", "-x", "y",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrGRPC: ":1",
			}},
		{name: "bad integer", args: []string{"cmd", "-l", "many"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
