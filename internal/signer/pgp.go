package signer

import (
	"bytes"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
)

// VerifyVendorSignature checks a detached OpenPGP signature that the build
// system may publish alongside the raw firmware binary. Both armored and
// binary keyrings and signatures are accepted.
func VerifyVendorSignature(binary, signature, keyringData []byte) (bool, error) {
	log := logger.Logger()

	if len(binary) == 0 || len(signature) == 0 || len(keyringData) == 0 {
		return false, fmt.Errorf("vendor verification requires binary, signature and keyring")
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(keyringData))
	if err != nil {
		log.Debugf("keyring is not armored, trying binary format: %v", err)
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(keyringData))
		if err != nil {
			return false, fmt.Errorf("parsing vendor keyring (tried armored and binary): %w", err)
		}
	}

	_, err = openpgp.CheckArmoredDetachedSignature(
		keyring,
		bytes.NewReader(binary),
		bytes.NewReader(signature),
		&packet.Config{},
	)
	if err == nil {
		return true, nil
	}
	log.Debugf("signature is not armored, trying binary format: %v", err)

	_, err = openpgp.CheckDetachedSignature(
		keyring,
		bytes.NewReader(binary),
		bytes.NewReader(signature),
		&packet.Config{},
	)
	if err != nil {
		return false, fmt.Errorf("vendor signature verification failed: %w", err)
	}
	return true, nil
}
