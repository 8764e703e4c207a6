package utils

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
)

func decodeAndWriteToFile(envVar, destPath string) error {
	b64 := os.Getenv(envVar)
	if b64 == "" {
		return fmt.Errorf("missing env var: %s", envVar)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", envVar, err)
	}
	return os.WriteFile(destPath, data, 0600)
}

// Decode materializes the TLS client cert/key/CA bundle from the
// SERVICE_CERT_BASE64/SERVICE_KEY_BASE64/CA_PEM_BASE64 env vars onto
// disk and loads them. Adapted from the teacher's Decode, which
// log.Fatal'd on every failure; this version returns the error instead,
// matching database.InitDB's fail-fast-without-killing-the-process
// convention.
func Decode() (tls.Certificate, *x509.CertPool, error) {
	if err := decodeAndWriteToFile("SERVICE_CERT_BASE64", "/tmp/service.cert"); err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("cert write error: %w", err)
	}
	if err := decodeAndWriteToFile("SERVICE_KEY_BASE64", "/tmp/service.key"); err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("key write error: %w", err)
	}
	if err := decodeAndWriteToFile("CA_PEM_BASE64", "/tmp/ca.pem"); err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("ca write error: %w", err)
	}

	keypair, err := tls.LoadX509KeyPair("/tmp/service.cert", "/tmp/service.key")
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to load TLS keypair: %w", err)
	}

	caCert, err := os.ReadFile("/tmp/ca.pem")
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return tls.Certificate{}, nil, fmt.Errorf("failed to parse CA PEM")
	}
	return keypair, caCertPool, nil
} 