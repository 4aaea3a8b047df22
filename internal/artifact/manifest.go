package artifact

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Fixed member paths inside the package archive. The manifest is the root of
// trust: every other file's presence and digest is derivable from it.
const (
	ManifestPath         = "manifest.json"
	BinaryPath           = "firmware/firmware.bin"
	SignaturePath        = "firmware/firmware.sig"
	FirmwareMetadataPath = "firmware/metadata.json"
	ProgramsDir          = "programs"
)

// ProgramPath returns the archive path of the metadata file for program id.
func ProgramPath(id string) string {
	return fmt.Sprintf("%s/%s.json", ProgramsDir, id)
}

// ContentRef pins one archive member to its recorded size and digest.
type ContentRef struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// ProgramRef is a ContentRef keyed by program identifier.
type ProgramRef struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Contents enumerates every file the archive must carry besides the
// manifest itself.
type Contents struct {
	FirmwareBinary   ContentRef   `json:"firmware_binary"`
	Signature        ContentRef   `json:"signature"`
	FirmwareMetadata ContentRef   `json:"firmware_metadata"`
	Programs         []ProgramRef `json:"programs"`
}

// DeploymentInfo records where the package is meant to go.
type DeploymentInfo struct {
	TargetPlatform  string `json:"target_platform"`
	DeploymentStage string `json:"deployment_stage"`
	SourceRevision  string `json:"source_revision"`
}

// Manifest is the authoritative description of one release unit. It is
// created once and never mutated; a changed artifact produces a new version.
type Manifest struct {
	PackageName     string         `json:"package_name"`
	PackageVersion  string         `json:"package_version"`
	PackageSize     int64          `json:"package_size"`
	PackageChecksum string         `json:"package_checksum"`
	CreatedAt       time.Time      `json:"created_at"`
	Contents        Contents       `json:"contents"`
	DeploymentInfo  DeploymentInfo `json:"deployment_info"`
}

// MarshalIndent renders the manifest the way it is stored in the archive.
func (m *Manifest) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return data, nil
}

// ParseManifest decodes manifest JSON. Schema-level validation is the
// validator's job; this only requires well-formed JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// AggregateChecksum computes the package digest: SHA-256 over the
// concatenation of all member digests in canonical order (binary, signature,
// firmware metadata, programs sorted by identifier). The creation timestamp
// is deliberately not an input so rebuilds from identical inputs reproduce
// the same digest.
func (c *Contents) AggregateChecksum() string {
	h := sha256.New()
	h.Write([]byte(c.FirmwareBinary.Checksum))
	h.Write([]byte(c.Signature.Checksum))
	h.Write([]byte(c.FirmwareMetadata.Checksum))

	progs := make([]ProgramRef, len(c.Programs))
	copy(progs, c.Programs)
	sort.Slice(progs, func(i, j int) bool { return progs[i].ID < progs[j].ID })
	for _, p := range progs {
		h.Write([]byte(p.Checksum))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Refs returns every content reference in canonical order, programs last
// sorted by identifier.
func (c *Contents) Refs() []ContentRef {
	refs := []ContentRef{c.FirmwareBinary, c.Signature, c.FirmwareMetadata}
	progs := make([]ProgramRef, len(c.Programs))
	copy(progs, c.Programs)
	sort.Slice(progs, func(i, j int) bool { return progs[i].ID < progs[j].ID })
	for _, p := range progs {
		refs = append(refs, ContentRef{Path: p.Path, Size: p.Size, Checksum: p.Checksum})
	}
	return refs
}
