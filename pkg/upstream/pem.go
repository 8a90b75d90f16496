package upstream

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// parseCertificateChain extracts every CERTIFICATE block from a PEM bundle
// as raw DER, leaf first.
func parseCertificateChain(pemBytes []byte) ([][]byte, error) {
	var chain [][]byte
	for {
		var block *pem.Block
		block, pemBytes = pem.Decode(pemBytes)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return nil, fmt.Errorf("invalid certificate in chain: %w", err)
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates found in PEM data")
	}
	return chain, nil
}

// parsePrivateKey parses a PEM private key, trying PKCS#8 first and falling
// back to PKCS#1 RSA.
func parsePrivateKey(pemBytes []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in key data")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("key is neither PKCS#8 nor PKCS#1 RSA: %w", err)
	}
	return key, nil
}
