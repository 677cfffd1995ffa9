package config

import "time"

// Config holds runtime settings of the IntelliHome CLI.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	// KeyAlias names the biometric login key in the key store.
	KeyAlias string
	// EnrollmentID identifies the biometric credentials enrolled on this
	// machine. Changing it invalidates the biometric login key.
	EnrollmentID   string
	RequestTimeout time.Duration
	// TLSCAFile is a PEM bundle used to verify the server. Empty means
	// the system roots.
	TLSCAFile string
	// Insecure turns off TLS towards the server.
	Insecure bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "intellihome.db"
	c.KeyAlias = "biometric_key"
	c.EnrollmentID = "default"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig applies defaults, then the JSON file, then flags. Later
// sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
