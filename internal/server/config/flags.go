package config

import (
	"flag"
	"os"
	"time"

	"github.com/intelliworks/intellihome/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-m string   metrics bind address (empty disables /metrics)
//	-l int      failed logins before an account is locked
//	-tls-cert string  PEM certificate of the gRPC endpoint
//	-tls-key string   PEM private key of the gRPC endpoint
//	-insecure         serve gRPC without TLS
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so the -c/-config flag of the JSON loader does not
// collide with it.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-m", "-l", "-tls-cert", "-tls-key", "-insecure"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address")
	fs.IntVar(&config.MaxFailedLogins, "l", config.MaxFailedLogins, "failed logins before lockout")
	fs.StringVar(&config.TLSCertFile, "tls-cert", config.TLSCertFile, "TLS certificate file")
	fs.StringVar(&config.TLSKeyFile, "tls-key", config.TLSKeyFile, "TLS key file")
	fs.BoolVar(&config.Insecure, "insecure", config.Insecure, "serve without TLS")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
