package signer

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/open-edge-platform/firmware-packager/internal/utils/security"
)

// ParsePrivateKey decodes an RSA private key from PEM data. Both PKCS#1 and
// PKCS#8 encodings are accepted.
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, &KeyError{Reason: "no PEM block found"}
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &KeyError{Reason: "parsing private key (tried PKCS#1 and PKCS#8)", Err: err}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, &KeyError{Reason: fmt.Sprintf("unsupported private key type %T, want RSA", parsed)}
	}
	return key, nil
}

// ParsePublicKey decodes an RSA public key from PEM data. Both PKIX and
// PKCS#1 encodings are accepted.
func ParsePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, &KeyError{Reason: "no PEM block found"}
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, &KeyError{Reason: "parsing public key (tried PKCS#1 and PKIX)", Err: err}
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, &KeyError{Reason: fmt.Sprintf("unsupported public key type %T, want RSA", parsed)}
	}
	return key, nil
}

// LoadPrivateKey reads and parses an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := security.SafeReadFile(path, security.RejectSymlinks)
	if err != nil {
		return nil, &KeyError{Reason: "reading private key file", Err: err}
	}
	return ParsePrivateKey(data)
}

// LoadPublicKey reads and parses an RSA public key from a PEM file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := security.SafeReadFile(path, security.RejectSymlinks)
	if err != nil {
		return nil, &KeyError{Reason: "reading public key file", Err: err}
	}
	return ParsePublicKey(data)
}
