package config

import (
	"encoding/json"
	"os"

	"github.com/intelliworks/intellihome/internal/flagx"
	"github.com/intelliworks/intellihome/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. timex.Duration accepts both "15m" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	MetricsAddr                 *string        `json:"metrics_addr"`
	MaxFailedLogins             int            `json:"max_failed_logins"`
	TLSCertFile                 string         `json:"tls_cert_file"`
	TLSKeyFile                  string         `json:"tls_key_file"`
	Insecure                    *bool          `json:"insecure"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without the flag nothing is loaded. Fields missing from the
// file keep their current value; metrics_addr may be set to "" explicitly to
// disable the metrics endpoint.
//
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddrGRPC != "" {
		config.EndpointAddrGRPC = c.EndpointAddrGRPC
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	if c.MaxFailedLogins > 0 {
		config.MaxFailedLogins = c.MaxFailedLogins
	}
	if c.TLSCertFile != "" {
		config.TLSCertFile = c.TLSCertFile
	}
	if c.TLSKeyFile != "" {
		config.TLSKeyFile = c.TLSKeyFile
	}
	if c.Insecure != nil {
		config.Insecure = *c.Insecure
	}
}
