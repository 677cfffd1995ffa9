package config

import (
	"encoding/json"
	"os"

	"github.com/intelliworks/intellihome/internal/flagx"
	"github.com/intelliworks/intellihome/internal/timex"
)

// JsonConfig is the on-disk form of Config. Absent fields leave the
// current value untouched.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DatabasePath       string         `json:"database_path"`
	KeyAlias           string         `json:"key_alias"`
	EnrollmentID       string         `json:"enrollment_id"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	TLSCAFile          string         `json:"tls_ca_file"`
	Insecure           *bool          `json:"insecure"`
}

// parseJson overlays Config with the file named by -c or -config.
// It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.KeyAlias, jc.KeyAlias)
	setString(&cfg.EnrollmentID, jc.EnrollmentID)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	setString(&cfg.TLSCAFile, jc.TLSCAFile)
	if jc.Insecure != nil {
		cfg.Insecure = *jc.Insecure
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
