package packager

import (
	"fmt"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
)

// PackageVersion derives the package version from build provenance: the
// binary's semantic version suffixed with a short content hash of the source
// revision. The same inputs always produce the same version string.
func PackageVersion(binaryVersion, revision string) string {
	return fmt.Sprintf("%s-%s", artifact.ReleaseID(binaryVersion), artifact.ShortHash(revision))
}
