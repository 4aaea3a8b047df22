package validate

import (
	"crypto/rsa"
	"encoding/json"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/config"
	"github.com/open-edge-platform/firmware-packager/internal/packager"
	"github.com/open-edge-platform/firmware-packager/internal/signer"
	"github.com/open-edge-platform/firmware-packager/schema"
)

// Params configures one validation run. The bounds normally come from the
// global config; they are explicit here so the run stays a pure function of
// its inputs.
type Params struct {
	Policy   Policy
	Firmware config.FirmwareBounds
	Programs config.ProgramBounds
	// PublicKey verifies RSA-PSS-SHA256 signatures. Without it a
	// production-signed package cannot pass.
	PublicKey *rsa.PublicKey
}

// Run executes every check in order against the manifest/archive pair and
// returns the full report. Checks never short-circuit: a failing package
// still yields an itemized report. The run is deterministic and touches no
// external state.
func Run(manifest *artifact.Manifest, ar *packager.Archive, params Params) *Report {
	report := &Report{Policy: params.Policy}

	checkSchema(report, manifest, ar)
	checkIntegrity(report, manifest, ar)
	meta := checkFirmwareMetadata(report, manifest, ar, params.Firmware)
	sig := checkSignature(report, manifest, ar, params)
	checkPrograms(report, manifest, ar, params.Programs)
	checkSecrets(report, ar)
	checkVersionConsistency(report, manifest, meta, ar)
	checkStageTrust(report, manifest, sig)

	report.finalize()
	return report
}

// checkSchema validates the manifest document against the embedded JSON
// schema. The archived manifest bytes are preferred so the check covers what
// was actually shipped.
func checkSchema(report *Report, manifest *artifact.Manifest, ar *packager.Archive) {
	data, ok := ar.Member(artifact.ManifestPath)
	if !ok {
		var err error
		data, err = manifest.MarshalIndent()
		if err != nil {
			report.add(SeverityError, CategorySchema, "manifest cannot be serialized: %v", err)
			return
		}
	}
	if err := schema.ValidateManifestJSON(data); err != nil {
		report.add(SeverityError, CategorySchema, "manifest is not well-formed: %v", err)
	}
}

// checkIntegrity verifies that every manifest content reference resolves to
// an archive member with the recorded size and digest, that the manifest
// itself is present, and that the aggregate package digest matches.
func checkIntegrity(report *Report, manifest *artifact.Manifest, ar *packager.Archive) {
	if _, ok := ar.Member(artifact.ManifestPath); !ok {
		report.add(SeverityError, CategoryIntegrity, "archive is missing %s", artifact.ManifestPath)
	}

	referenced := map[string]bool{artifact.ManifestPath: true}
	for _, ref := range manifest.Contents.Refs() {
		referenced[ref.Path] = true

		data, ok := ar.Member(ref.Path)
		if !ok {
			report.add(SeverityError, CategoryIntegrity,
				"manifest references %s which is not in the archive", ref.Path)
			continue
		}
		if int64(len(data)) != ref.Size {
			report.add(SeverityError, CategoryIntegrity,
				"%s: size %d does not match recorded size %d", ref.Path, len(data), ref.Size)
		}
		if actual := artifact.SHA256Hex(data); actual != ref.Checksum {
			report.add(SeverityError, CategoryIntegrity,
				"%s: digest %s does not match recorded digest %s", ref.Path, actual, ref.Checksum)
		}
	}

	for path := range ar.Files {
		if !referenced[path] {
			report.add(SeverityWarning, CategoryIntegrity,
				"archive member %s is not referenced by the manifest", path)
		}
	}

	if expected := manifest.Contents.AggregateChecksum(); manifest.PackageChecksum != expected {
		report.add(SeverityError, CategoryIntegrity,
			"package digest %s does not match aggregate of member digests %s",
			manifest.PackageChecksum, expected)
	}
}

// checkFirmwareMetadata verifies the build-provenance document: required
// fields, the configured size window, and agreement with the binary
// reference. Missing optional fields only warn.
func checkFirmwareMetadata(report *Report, manifest *artifact.Manifest, ar *packager.Archive,
	bounds config.FirmwareBounds) *artifact.FirmwareMetadata {
	data, ok := ar.Member(artifact.FirmwareMetadataPath)
	if !ok {
		report.add(SeverityError, CategoryFirmware, "archive is missing %s", artifact.FirmwareMetadataPath)
		return nil
	}

	var meta artifact.FirmwareMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		report.add(SeverityError, CategoryFirmware, "firmware metadata is not valid JSON: %v", err)
		return nil
	}

	if meta.Target == "" {
		report.add(SeverityError, CategoryFirmware, "firmware metadata is missing the target field")
	}
	if meta.Version == "" {
		report.add(SeverityError, CategoryFirmware, "firmware metadata is missing the version field")
	}
	if meta.SourceRevision == "" {
		report.add(SeverityError, CategoryFirmware, "firmware metadata is missing the source revision")
	}
	if meta.SizeBytes < bounds.MinSizeBytes || meta.SizeBytes > bounds.MaxSizeBytes {
		report.add(SeverityError, CategoryFirmware,
			"firmware size %d bytes is outside the accepted range [%d, %d]",
			meta.SizeBytes, bounds.MinSizeBytes, bounds.MaxSizeBytes)
	}
	if meta.Checksum != "" && meta.Checksum != manifest.Contents.FirmwareBinary.Checksum {
		report.add(SeverityError, CategoryFirmware,
			"firmware metadata digest %s disagrees with the manifest binary digest %s",
			meta.Checksum, manifest.Contents.FirmwareBinary.Checksum)
	}
	if meta.MinRuntimeVersion == "" {
		report.add(SeverityWarning, CategoryFirmware, "firmware metadata has no minimum runtime version")
	}
	if meta.Description == "" {
		report.add(SeverityWarning, CategoryFirmware, "firmware metadata has no description")
	}
	return &meta
}

// checkSignature re-runs signature verification over the archived binary.
// A development signature's severity comes from the policy lookup table; a
// failed verification is always an error.
func checkSignature(report *Report, manifest *artifact.Manifest, ar *packager.Archive,
	params Params) *artifact.Signature {
	sigData, ok := ar.Member(artifact.SignaturePath)
	if !ok {
		report.add(SeverityError, CategorySignature, "archive is missing %s", artifact.SignaturePath)
		return nil
	}
	binary, ok := ar.Member(artifact.BinaryPath)
	if !ok {
		report.add(SeverityError, CategorySignature,
			"archive is missing %s, signature cannot be verified", artifact.BinaryPath)
		return nil
	}

	var sig artifact.Signature
	if err := json.Unmarshal(sigData, &sig); err != nil {
		report.add(SeverityError, CategorySignature, "signature file is not valid JSON: %v", err)
		return nil
	}

	switch sig.Algorithm {
	case artifact.AlgRSAPSSSHA256:
		if params.PublicKey == nil {
			report.add(SeverityError, CategorySignature,
				"signature algorithm %s requires a public key for verification", sig.Algorithm)
			return &sig
		}
	case artifact.AlgDevDeterministic:
		report.add(devSignatureSeverity[params.Policy], CategorySignature,
			"package is signed with a development signature (%s)", sig.Algorithm)
	default:
		report.add(SeverityError, CategorySignature, "unknown signature algorithm %q", sig.Algorithm)
		return &sig
	}

	if !signer.Verify(binary, &sig, params.PublicKey) {
		report.add(SeverityError, CategorySignature,
			"signature verification failed for algorithm %s", sig.Algorithm)
	}
	return &sig
}

// checkPrograms validates every program package: required fields, identifier
// derivation, declared source digest, and resource limits against the
// configured bounds.
func checkPrograms(report *Report, manifest *artifact.Manifest, ar *packager.Archive,
	bounds config.ProgramBounds) {
	for _, ref := range manifest.Contents.Programs {
		data, ok := ar.Member(ref.Path)
		if !ok {
			// Already reported by the integrity check.
			continue
		}

		var prog artifact.Program
		if err := json.Unmarshal(data, &prog); err != nil {
			report.add(SeverityError, CategoryProgram,
				"program %s: metadata is not valid JSON: %v", ref.ID, err)
			continue
		}

		if prog.Name == "" || prog.Version == "" {
			report.add(SeverityError, CategoryProgram,
				"program %s: name and version are required", ref.ID)
		} else if derived := artifact.ProgramID(prog.Name, prog.Version); derived != prog.ID {
			report.add(SeverityError, CategoryProgram,
				"program %s: identifier does not derive from name and version (want %s)",
				prog.ID, derived)
		}
		if prog.Source == "" {
			report.add(SeverityError, CategoryProgram, "program %s: source text is empty", ref.ID)
		}

		if actual := artifact.SHA256Hex([]byte(prog.Source)); actual != prog.SourceChecksum {
			report.add(SeverityError, CategoryProgramIntegrity,
				"program %s: source digest %s does not match declared digest %s",
				ref.ID, actual, prog.SourceChecksum)
		}

		if prog.MemoryBytes > bounds.MaxMemoryBytes {
			report.add(SeverityError, CategoryProgram,
				"program %s: memory requirement %d bytes exceeds the limit of %d",
				ref.ID, prog.MemoryBytes, bounds.MaxMemoryBytes)
		}
		if prog.TimeoutSeconds > bounds.MaxTimeoutSeconds {
			report.add(SeverityError, CategoryProgram,
				"program %s: execution timeout %ds exceeds the limit of %ds",
				ref.ID, prog.TimeoutSeconds, bounds.MaxTimeoutSeconds)
		}

		switch prog.RestartPolicy {
		case "":
			report.add(SeverityWarning, CategoryProgram,
				"program %s: no restart policy declared", ref.ID)
		case artifact.RestartNever, artifact.RestartOnFailure, artifact.RestartAlways:
		default:
			report.add(SeverityError, CategoryProgram,
				"program %s: unknown restart policy %q", ref.ID, prog.RestartPolicy)
		}
		switch prog.Priority {
		case "":
			report.add(SeverityWarning, CategoryProgram,
				"program %s: no priority class declared", ref.ID)
		case artifact.PriorityLow, artifact.PriorityNormal, artifact.PriorityHigh, artifact.PriorityCritical:
		default:
			report.add(SeverityError, CategoryProgram,
				"program %s: unknown priority class %q", ref.ID, prog.Priority)
		}
		if prog.Author == "" {
			report.add(SeverityWarning, CategoryProgram, "program %s: no author declared", ref.ID)
		}
	}
}

// checkVersionConsistency requires the binary version, the package version
// and every program version to agree on one release identifier.
func checkVersionConsistency(report *Report, manifest *artifact.Manifest,
	meta *artifact.FirmwareMetadata, ar *packager.Archive) {
	if meta == nil {
		// The firmware metadata check already reported why.
		return
	}

	release := artifact.ReleaseID(meta.Version)
	if pkgRelease := artifact.ReleaseID(manifest.PackageVersion); pkgRelease != release {
		report.add(SeverityError, CategoryVersion,
			"package version %s does not share the binary release identifier %s",
			manifest.PackageVersion, release)
	}

	for _, ref := range manifest.Contents.Programs {
		data, ok := ar.Member(ref.Path)
		if !ok {
			continue
		}
		var prog artifact.Program
		if err := json.Unmarshal(data, &prog); err != nil {
			continue
		}
		if progRelease := artifact.ReleaseID(prog.Version); progRelease != release {
			report.add(SeverityError, CategoryVersion,
				"program %s version %s does not share the binary release identifier %s",
				prog.ID, prog.Version, release)
		}
	}
}

// checkStageTrust is a consistency check across the signature and the
// manifest's declared deployment stage: a development signature must never
// target production, whatever the policy says about development signatures
// in general.
func checkStageTrust(report *Report, manifest *artifact.Manifest, sig *artifact.Signature) {
	if sig == nil {
		return
	}
	if sig.Algorithm == artifact.AlgDevDeterministic &&
		manifest.DeploymentInfo.DeploymentStage == artifact.EnvProduction {
		report.add(SeverityError, CategoryStageTrust,
			"development signature on a package targeting the production stage")
	}
}
