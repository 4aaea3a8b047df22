package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/validate"
)

// fakeStore records puts in order and can fail selected keys.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putOrder []string
	failKeys map[string]int // key -> remaining failures
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string][]byte),
		failKeys: make(map[string]int),
	}
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.failKeys[key]; n != 0 {
		if n > 0 {
			s.failKeys[key] = n - 1
		}
		return fmt.Errorf("injected failure for %s", key)
	}
	s.putOrder = append(s.putOrder, key)
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object at %s", key)
	}
	return data, nil
}

func (s *fakeStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func testManifest() *artifact.Manifest {
	return &artifact.Manifest{
		PackageName:     "firmware-package",
		PackageVersion:  "1.2.0-a1b2c3d4",
		PackageChecksum: strings.Repeat("a", 64),
		DeploymentInfo: artifact.DeploymentInfo{
			TargetPlatform:  "esp32-c3",
			DeploymentStage: artifact.EnvStaging,
			SourceRevision:  "a1b2c3d",
		},
	}
}

func testArchiveFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firmware-package-1.2.0-a1b2c3d4.tar.gz")
	if err := os.WriteFile(path, []byte("archive bytes"), 0o644); err != nil {
		t.Fatalf("writing archive file: %v", err)
	}
	return path
}

func passingReport() *validate.Report {
	return &validate.Report{Policy: validate.PolicyStrict, Pass: true}
}

func TestPublishRequiresPassingReport(t *testing.T) {
	store := newFakeStore()
	p := New(store, 3)
	archive := testArchiveFile(t)

	for _, report := range []*validate.Report{
		nil,
		{Policy: validate.PolicyStrict, Pass: false},
	} {
		_, err := p.Publish(context.Background(), testManifest(), archive, report, artifact.EnvStaging)
		if !errors.Is(err, ErrUnvalidatedPublish) {
			t.Errorf("expected ErrUnvalidatedPublish, got %v", err)
		}
	}
	if len(store.putOrder) != 0 {
		t.Errorf("refused publish still wrote %d objects", len(store.putOrder))
	}
}

func TestPublishRejectsUnknownEnvironment(t *testing.T) {
	p := New(newFakeStore(), 3)
	_, err := p.Publish(context.Background(), testManifest(), testArchiveFile(t),
		passingReport(), "canary")
	if err == nil {
		t.Fatalf("expected an error for an unknown environment")
	}
}

func TestPublishWritesInOrder(t *testing.T) {
	store := newFakeStore()
	p := New(store, 3)
	manifest := testManifest()
	archive := testArchiveFile(t)

	result, err := p.Publish(context.Background(), manifest, archive, passingReport(), artifact.EnvStaging)
	if err != nil {
		t.Fatalf("publishing: %v", err)
	}

	wantOrder := []string{
		"staging/1.2.0-a1b2c3d4/" + filepath.Base(archive),
		"staging/1.2.0-a1b2c3d4/" + artifact.ManifestPath,
		"staging/triggers/1.2.0-a1b2c3d4.json",
	}
	if len(store.putOrder) != len(wantOrder) {
		t.Fatalf("expected %d puts, got %d: %v", len(wantOrder), len(store.putOrder), store.putOrder)
	}
	for i, want := range wantOrder {
		if store.putOrder[i] != want {
			t.Errorf("put[%d] = %s, want %s", i, store.putOrder[i], want)
		}
	}

	if result.ArchiveKey != wantOrder[0] || result.ManifestKey != wantOrder[1] || result.TriggerKey != wantOrder[2] {
		t.Errorf("result keys do not match the stored keys: %+v", result)
	}

	// The trigger record must reference the stored artifacts and carry the
	// package digest.
	data, err := store.Get(context.Background(), result.TriggerKey)
	if err != nil {
		t.Fatalf("reading trigger record: %v", err)
	}
	record, err := ParseTriggerRecord(data)
	if err != nil {
		t.Fatalf("parsing trigger record: %v", err)
	}
	if record.DeploymentID == "" || record.DeploymentID != result.DeploymentID {
		t.Errorf("deployment ID %q does not match the result %q", record.DeploymentID, result.DeploymentID)
	}
	if record.PackageChecksum != manifest.PackageChecksum {
		t.Errorf("trigger digest %q, want %q", record.PackageChecksum, manifest.PackageChecksum)
	}
	if record.ArtifactLocations["archive"] != result.ArchiveKey {
		t.Errorf("trigger archive location %q, want %q",
			record.ArtifactLocations["archive"], result.ArchiveKey)
	}
}

func TestPublishNoTriggerOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	manifestKey := "staging/1.2.0-a1b2c3d4/" + artifact.ManifestPath
	store.failKeys[manifestKey] = -1 // fail forever

	p := New(store, 2)
	_, err := p.Publish(context.Background(), testManifest(), testArchiveFile(t),
		passingReport(), artifact.EnvStaging)

	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) {
		t.Fatalf("expected a *PhaseError, got %v", err)
	}
	if phaseErr.Phase != PhaseStore {
		t.Errorf("phase %s, want %s", phaseErr.Phase, PhaseStore)
	}

	keys, _ := store.List(context.Background(), "staging/triggers/")
	if len(keys) != 0 {
		t.Errorf("trigger record written despite a store failure: %v", keys)
	}
}

func TestPublishRetriesTransientFailure(t *testing.T) {
	store := newFakeStore()
	archiveKey := "staging/1.2.0-a1b2c3d4/firmware-package-1.2.0-a1b2c3d4.tar.gz"
	store.failKeys[archiveKey] = 1 // first attempt fails, second succeeds

	p := New(store, 3)
	archive := testArchiveFile(t)
	if _, err := p.Publish(context.Background(), testManifest(), archive,
		passingReport(), artifact.EnvStaging); err != nil {
		t.Fatalf("expected the transient failure to be retried, got %v", err)
	}

	if _, err := store.Get(context.Background(), archiveKey); err != nil {
		t.Errorf("archive object missing after retry: %v", err)
	}
}

func TestPublishRepublishOverwrites(t *testing.T) {
	store := newFakeStore()
	p := New(store, 3)
	archive := testArchiveFile(t)

	first, err := p.Publish(context.Background(), testManifest(), archive, passingReport(), artifact.EnvStaging)
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	second, err := p.Publish(context.Background(), testManifest(), archive, passingReport(), artifact.EnvStaging)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}

	// Same version, same keys, fresh deployment identity.
	if first.ArchiveKey != second.ArchiveKey || first.TriggerKey != second.TriggerKey {
		t.Errorf("re-publishing the same version changed its keys")
	}
	if first.DeploymentID == second.DeploymentID {
		t.Errorf("re-publishing reused the deployment ID")
	}
}

func TestTriggerRecordRoundTrip(t *testing.T) {
	record := &TriggerRecord{
		DeploymentID:    "0f4b1c1e-8a77-4a5d-9c9f-2f8f6f6b2a11",
		PackageVersion:  "1.2.0-a1b2c3d4",
		PackageChecksum: strings.Repeat("b", 64),
		Environment:     artifact.EnvProduction,
		ArtifactLocations: map[string]string{
			"archive":  "production/1.2.0-a1b2c3d4/pkg.tar.gz",
			"manifest": "production/1.2.0-a1b2c3d4/manifest.json",
		},
	}
	data, err := record.Marshal()
	if err != nil {
		t.Fatalf("marshaling record: %v", err)
	}
	got, err := ParseTriggerRecord(data)
	if err != nil {
		t.Fatalf("parsing record: %v", err)
	}
	if got.DeploymentID != record.DeploymentID || got.PackageVersion != record.PackageVersion {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if !strings.Contains(string(data), `"package_digest"`) {
		t.Errorf("record does not use the package_digest field name")
	}
}
