// Package config loads runtime configuration for the IntelliHome CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations accept strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "intellihome.db",
//	  "key_alias": "biometric_key",
//	  "enrollment_id": "default",
//	  "request_timeout": "10s",
//	  "tls_ca_file": "ca.pem",
//	  "insecure": false
//	}
package config
