package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
)

// devSalt is the fixed salt mixed into development-mode signatures. A
// development signature carries no production trust and is rejected by the
// strict validation policy.
const devSalt = "firmware-packager-dev-signature-v1"

// ErrEmptyBinary is returned when signing is attempted over zero bytes.
var ErrEmptyBinary = errors.New("binary is empty")

// KeyError reports a malformed or absent signing key.
type KeyError struct {
	Reason string
	Err    error
}

func (e *KeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing key: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signing key: %s", e.Reason)
}

func (e *KeyError) Unwrap() error { return e.Err }

// Mode selects the trust model used to produce a signature.
type Mode struct {
	Algorithm string
	Key       *rsa.PrivateKey
}

// Production signs with RSA-PSS over the binary's SHA-256 digest using the
// supplied private key.
func Production(key *rsa.PrivateKey) Mode {
	return Mode{Algorithm: artifact.AlgRSAPSSSHA256, Key: key}
}

// Development derives the signature deterministically from the digest alone;
// no key material is required.
func Development() Mode {
	return Mode{Algorithm: artifact.AlgDevDeterministic}
}

// Sign computes the SHA-256 digest of binary and produces a signature over
// it in the given mode. Pure computation, no I/O.
func Sign(binary []byte, mode Mode) (*artifact.Signature, error) {
	if len(binary) == 0 {
		return nil, ErrEmptyBinary
	}

	digest := sha256.Sum256(binary)
	sig := &artifact.Signature{
		Algorithm: mode.Algorithm,
		Digest:    fmt.Sprintf("%x", digest),
		SignedAt:  time.Now().UTC(),
	}

	switch mode.Algorithm {
	case artifact.AlgRSAPSSSHA256:
		if mode.Key == nil {
			return nil, &KeyError{Reason: "production mode requires a private key"}
		}
		if err := mode.Key.Validate(); err != nil {
			return nil, &KeyError{Reason: "private key failed validation", Err: err}
		}
		value, err := rsa.SignPSS(rand.Reader, mode.Key, crypto.SHA256, digest[:], nil)
		if err != nil {
			return nil, &KeyError{Reason: "RSA-PSS signing failed", Err: err}
		}
		sig.Value = value
	case artifact.AlgDevDeterministic:
		sig.Value = deriveDevSignature(digest[:])
	default:
		return nil, fmt.Errorf("unknown signing algorithm %q", mode.Algorithm)
	}

	logger.Logger().Debugf("signed %d bytes with %s", len(binary), sig.Algorithm)
	return sig, nil
}

// Verify checks sig against binary. For RSA-PSS-SHA256 a public key is
// required; for DEV-DETERMINISTIC the derivation is recomputed and compared.
// Verification fails closed: any malformed input yields false, never an
// error or a panic.
func Verify(binary []byte, sig *artifact.Signature, pub *rsa.PublicKey) bool {
	if sig == nil || len(binary) == 0 || len(sig.Value) == 0 {
		return false
	}

	digest := sha256.Sum256(binary)
	if sig.Digest != fmt.Sprintf("%x", digest) {
		return false
	}

	switch sig.Algorithm {
	case artifact.AlgRSAPSSSHA256:
		if pub == nil {
			return false
		}
		return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig.Value, nil) == nil
	case artifact.AlgDevDeterministic:
		expected := deriveDevSignature(digest[:])
		return subtle.ConstantTimeCompare(sig.Value, expected) == 1
	default:
		return false
	}
}

// deriveDevSignature re-hashes the digest with the fixed development salt.
// Deterministic: the same binary always yields the same signature bytes.
func deriveDevSignature(digest []byte) []byte {
	h := sha256.New()
	h.Write([]byte(devSalt))
	h.Write(digest)
	return h.Sum(nil)
}
