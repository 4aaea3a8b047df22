package packager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
)

// ErrEmptyPackage is returned when no binary is supplied to Build.
var ErrEmptyPackage = errors.New("package has no firmware binary")

// DuplicateProgramError reports two programs sharing one identifier.
type DuplicateProgramError struct {
	ID string
}

func (e *DuplicateProgramError) Error() string {
	return fmt.Sprintf("duplicate program identifier %q", e.ID)
}

// IntegrityError reports a digest or signature mismatch detected at build
// time. It is fatal and never silently corrected.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s", e.Detail)
}

// Options tunes package assembly.
type Options struct {
	// PackageName defaults to "firmware-package".
	PackageName string
	// OutputDir is where the archive file is written. Defaults to ".".
	OutputDir string
	// Compression is one of "gz" (default), "xz", "zst".
	Compression string
	// MinRuntimeVersion is the oldest device runtime the firmware supports.
	MinRuntimeVersion string
	// Description is a human-readable summary recorded in the firmware
	// metadata.
	Description string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PackageName == "" {
		out.PackageName = "firmware-package"
	}
	if out.OutputDir == "" {
		out.OutputDir = "."
	}
	if out.Compression == "" {
		out.Compression = CompressionGzip
	}
	return out
}

// Build assembles a manifest and a single archive from the signed binary and
// the program set. Rebuilding from the same inputs yields byte-identical
// manifest content except for the created_at field, which is excluded from
// the aggregate package digest.
func Build(binary *artifact.Binary, sig *artifact.Signature, programs []artifact.Program,
	depCtx artifact.DeploymentContext, opts Options) (*artifact.Manifest, string, error) {
	log := logger.Logger()
	opts = opts.withDefaults()

	if binary == nil || len(binary.Data) == 0 {
		return nil, "", ErrEmptyPackage
	}
	if sig == nil || len(sig.Value) == 0 {
		return nil, "", fmt.Errorf("package requires a signature over the binary")
	}
	if !artifact.ValidEnvironment(depCtx.Environment) {
		return nil, "", fmt.Errorf("unknown deployment environment %q", depCtx.Environment)
	}
	if depCtx.Revision == "" {
		return nil, "", fmt.Errorf("deployment context requires a source revision")
	}

	binaryChecksum := binary.Checksum()
	if sig.Digest != binaryChecksum {
		return nil, "", &IntegrityError{Detail: fmt.Sprintf(
			"signature covers digest %s but binary digest is %s", sig.Digest, binaryChecksum)}
	}

	seen := make(map[string]bool, len(programs))
	for _, p := range programs {
		if seen[p.ID] {
			return nil, "", &DuplicateProgramError{ID: p.ID}
		}
		seen[p.ID] = true
	}

	sigJSON, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshaling signature: %w", err)
	}

	meta := artifact.FirmwareMetadata{
		Target:         depCtx.TargetPlatform,
		Version:        binary.Version,
		SizeBytes:      binary.Size(),
		Checksum:       binaryChecksum,
		SourceRevision: depCtx.Revision,
		BuiltAt:        sig.SignedAt,

		MinRuntimeVersion: opts.MinRuntimeVersion,
		Description:       opts.Description,
	}
	metaJSON, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshaling firmware metadata: %w", err)
	}

	contents := artifact.Contents{
		FirmwareBinary: artifact.ContentRef{
			Path:     artifact.BinaryPath,
			Size:     binary.Size(),
			Checksum: binaryChecksum,
		},
		Signature: artifact.ContentRef{
			Path:     artifact.SignaturePath,
			Size:     int64(len(sigJSON)),
			Checksum: artifact.SHA256Hex(sigJSON),
		},
		FirmwareMetadata: artifact.ContentRef{
			Path:     artifact.FirmwareMetadataPath,
			Size:     int64(len(metaJSON)),
			Checksum: artifact.SHA256Hex(metaJSON),
		},
		Programs: make([]artifact.ProgramRef, 0, len(programs)),
	}

	programFiles := make(map[string][]byte, len(programs))
	for _, p := range programs {
		progJSON, err := json.MarshalIndent(&p, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshaling program %s: %w", p.ID, err)
		}
		path := artifact.ProgramPath(p.ID)
		programFiles[path] = progJSON
		contents.Programs = append(contents.Programs, artifact.ProgramRef{
			ID:       p.ID,
			Path:     path,
			Size:     int64(len(progJSON)),
			Checksum: artifact.SHA256Hex(progJSON),
		})
	}

	var packageSize int64
	for _, ref := range contents.Refs() {
		packageSize += ref.Size
	}

	manifest := &artifact.Manifest{
		PackageName:     opts.PackageName,
		PackageVersion:  PackageVersion(binary.Version, depCtx.Revision),
		PackageSize:     packageSize,
		PackageChecksum: contents.AggregateChecksum(),
		CreatedAt:       time.Now().UTC(),
		Contents:        contents,
		DeploymentInfo: artifact.DeploymentInfo{
			TargetPlatform:  depCtx.TargetPlatform,
			DeploymentStage: depCtx.Environment,
			SourceRevision:  depCtx.Revision,
		},
	}

	manifestJSON, err := manifest.MarshalIndent()
	if err != nil {
		return nil, "", err
	}

	members := map[string][]byte{
		artifact.ManifestPath:         manifestJSON,
		artifact.BinaryPath:           binary.Data,
		artifact.SignaturePath:        sigJSON,
		artifact.FirmwareMetadataPath: metaJSON,
	}
	for path, data := range programFiles {
		members[path] = data
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating output directory: %w", err)
	}
	archiveName := fmt.Sprintf("%s-%s.tar.%s", opts.PackageName, manifest.PackageVersion, opts.Compression)
	archivePath := filepath.Join(opts.OutputDir, archiveName)
	if err := WriteArchive(archivePath, opts.Compression, members); err != nil {
		return nil, "", err
	}

	log.Infof("built package %s version %s (%d programs, %d bytes of content)",
		manifest.PackageName, manifest.PackageVersion, len(programs), packageSize)
	return manifest, archivePath, nil
}
