package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
	"github.com/open-edge-platform/firmware-packager/internal/validate"
)

// ErrUnvalidatedPublish indicates a caller bug: publishing a package whose
// validation report is missing or failing. No upload is attempted.
var ErrUnvalidatedPublish = errors.New("publish requires a passing validation report")

// Phase names the sub-operation a publish failed in, to support safe retry.
type Phase string

const (
	PhaseStore   Phase = "store"
	PhaseTrigger Phase = "trigger"
)

// PhaseError wraps a store or trigger failure with the phase it occurred in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("publish failed in %s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Result describes a completed publication.
type Result struct {
	DeploymentID   string
	Environment    string
	PackageVersion string
	ArchiveKey     string
	ManifestKey    string
	TriggerKey     string
}

// Publisher uploads validated packages to a BlobStore and signals the
// downstream pipeline. Publication is a two-phase sequence: the package
// objects first, the trigger record only after the store fully acknowledged
// them. The manifest object doubles as the commit marker: a version exists
// downstream only once its manifest key is readable.
type Publisher struct {
	store       BlobStore
	maxAttempts int
}

// New builds a Publisher. maxAttempts bounds the retry loop each phase runs
// under for transient store errors.
func New(store BlobStore, maxAttempts int) *Publisher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Publisher{store: store, maxAttempts: maxAttempts}
}

// Publish uploads the archive and manifest under
// `<environment>/<package_version>/` and then writes the trigger record.
// Re-publishing the same version overwrites the same keys; earlier versions
// stay reachable under theirs.
func (p *Publisher) Publish(ctx context.Context, manifest *artifact.Manifest, archivePath string,
	report *validate.Report, environment string) (*Result, error) {
	log := logger.Logger()

	if report == nil || !report.Pass {
		return nil, ErrUnvalidatedPublish
	}
	if !artifact.ValidEnvironment(environment) {
		return nil, fmt.Errorf("unknown environment %q", environment)
	}
	if stage := manifest.DeploymentInfo.DeploymentStage; stage != environment {
		log.Warnf("publishing to %s but the manifest declares deployment stage %s", environment, stage)
	}

	archiveData, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	manifestData, err := manifest.MarshalIndent()
	if err != nil {
		return nil, err
	}

	version := manifest.PackageVersion
	archiveKey := path.Join(environment, version, filepath.Base(archivePath))
	manifestKey := path.Join(environment, version, artifact.ManifestPath)
	triggerKey := path.Join(environment, "triggers", version+".json")

	// Phase 1: package objects. The manifest goes last as the commit marker.
	if err := p.putWithRetry(ctx, archiveKey, archiveData); err != nil {
		return nil, &PhaseError{Phase: PhaseStore, Err: err}
	}
	if err := p.putWithRetry(ctx, manifestKey, manifestData); err != nil {
		return nil, &PhaseError{Phase: PhaseStore, Err: err}
	}
	log.Infof("stored package %s version %s under %s/%s", manifest.PackageName, version, environment, version)

	// Phase 2: trigger record, only after phase 1 is fully acknowledged.
	record := &TriggerRecord{
		DeploymentID:    uuid.New().String(),
		PackageVersion:  version,
		PackageChecksum: manifest.PackageChecksum,
		Environment:     environment,
		Timestamp:       time.Now().UTC(),
		ArtifactLocations: map[string]string{
			"archive":  archiveKey,
			"manifest": manifestKey,
		},
	}
	recordData, err := record.Marshal()
	if err != nil {
		return nil, &PhaseError{Phase: PhaseTrigger, Err: err}
	}
	if err := p.putWithRetry(ctx, triggerKey, recordData); err != nil {
		return nil, &PhaseError{Phase: PhaseTrigger, Err: err}
	}
	log.Infof("wrote deployment trigger %s for version %s", record.DeploymentID, version)

	return &Result{
		DeploymentID:   record.DeploymentID,
		Environment:    environment,
		PackageVersion: version,
		ArchiveKey:     archiveKey,
		ManifestKey:    manifestKey,
		TriggerKey:     triggerKey,
	}, nil
}

// putWithRetry retries transient store errors with exponential backoff,
// bounded by maxAttempts.
func (p *Publisher) putWithRetry(ctx context.Context, key string, data []byte) error {
	operation := func() error {
		return p.store.Put(ctx, key, data)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.maxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("storing %s after %d attempts: %w", key, p.maxAttempts, err)
	}
	return nil
}
