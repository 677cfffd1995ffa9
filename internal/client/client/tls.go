package client

import (
	"crypto/tls"

	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TransportCredentials selects the channel security of the identity
// connection. caFile pins the CA bundle used to verify the server; without
// it the system roots are used. Plaintext is only chosen when
// insecureTransport is set.
func TransportCredentials(caFile string, insecureTransport bool) (credentials.TransportCredentials, error) {
	if insecureTransport {
		return insecure.NewCredentials(), nil
	}
	if caFile == "" {
		return credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12}), nil
	}
	return credentials.NewClientTLSFromFile(caFile, "")
}
