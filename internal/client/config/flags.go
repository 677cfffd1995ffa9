package config

import (
	"flag"
	"os"
	"time"

	"github.com/intelliworks/intellihome/internal/flagx"
)

// parseFlags overlays Config with command-line flags:
//
//	-a string   address and port of the identity server
//	-d string   path of the local SQLite database
//	-k string   key store alias of the biometric login key
//	-e string   biometric enrollment identifier
//	-t int      request timeout in seconds
//	-ca string  PEM CA bundle for verifying the server
//	-insecure   connect without TLS
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-e", "-t", "-ca", "-insecure"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.KeyAlias, "k", cfg.KeyAlias, "biometric key alias")
	fs.StringVar(&cfg.EnrollmentID, "e", cfg.EnrollmentID, "biometric enrollment id")
	fs.StringVar(&cfg.TLSCAFile, "ca", cfg.TLSCAFile, "CA bundle for server verification")
	fs.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "disable TLS")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
