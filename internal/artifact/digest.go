package artifact

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// ReleaseID reduces a semantic version string to the release identifier the
// version-consistency check compares: the core major.minor.patch with any
// pre-release or build suffix stripped. "1.0.0-test+b12" -> "1.0.0".
func ReleaseID(version string) string {
	v := version
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	return v
}

// ShortHash returns the first eight hex characters of the SHA-256 digest of
// s, used to derive reproducible package versions from a source revision.
func ShortHash(s string) string {
	return SHA256Hex([]byte(s))[:8]
}
