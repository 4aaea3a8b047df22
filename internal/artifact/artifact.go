package artifact

import (
	"fmt"
	"time"
)

// Signature algorithm identifiers recorded in signature files and manifests.
const (
	AlgRSAPSSSHA256     = "RSA-PSS-SHA256"
	AlgDevDeterministic = "DEV-DETERMINISTIC"
)

// HashAlg is the only digest algorithm the pipeline produces or accepts.
const HashAlg = "sha256"

// Deployment stages a package can be targeted at.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// ValidEnvironment reports whether env names a known deployment stage.
func ValidEnvironment(env string) bool {
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	}
	return false
}

// Binary is the raw firmware image handed over by the build system.
// It is immutable once produced; a changed image is a new version.
type Binary struct {
	Data    []byte
	Target  string
	Version string
}

// Size returns the image size in bytes.
func (b *Binary) Size() int64 {
	return int64(len(b.Data))
}

// Checksum returns the hex SHA-256 digest of the image.
func (b *Binary) Checksum() string {
	return SHA256Hex(b.Data)
}

// Signature covers exactly one binary digest. Any mutation of the binary
// invalidates it.
type Signature struct {
	Algorithm string    `json:"algorithm"`
	Value     []byte    `json:"signature"`
	Digest    string    `json:"digest"`
	SignedAt  time.Time `json:"signed_at"`
}

// Restart policies a program may declare.
const (
	RestartNever     = "never"
	RestartOnFailure = "on-failure"
	RestartAlways    = "always"
)

// Priority classes a program may declare.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Program is one interpreted program shipped alongside the firmware,
// together with its deployment metadata.
type Program struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	Author         string    `json:"author,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Source         string    `json:"source"`
	SourceChecksum string    `json:"source_checksum"`
	MemoryBytes    int64     `json:"memory_requirement_bytes"`
	TimeoutSeconds int64     `json:"execution_timeout_seconds"`
	RestartPolicy  string    `json:"restart_policy"`
	Priority       string    `json:"priority"`
}

// ProgramID derives the stable program identifier from name and version.
func ProgramID(name, version string) string {
	return fmt.Sprintf("%s-%s", name, version)
}

// DeploymentContext is the build-provenance context supplied by the build
// system along with the binary and the program set.
type DeploymentContext struct {
	TargetPlatform string
	Environment    string
	Revision       string
}

// FirmwareMetadata is the build-provenance document stored in the archive
// next to the binary.
type FirmwareMetadata struct {
	Target            string    `json:"target"`
	Version           string    `json:"version"`
	SizeBytes         int64     `json:"size_bytes"`
	Checksum          string    `json:"checksum"`
	SourceRevision    string    `json:"source_revision"`
	BuiltAt           time.Time `json:"built_at"`
	MinRuntimeVersion string    `json:"min_runtime_version,omitempty"`
	Description       string    `json:"description,omitempty"`
}
