package packager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
)

func writeProgram(t *testing.T, dir, name, source, sidecar string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+SourceExt), []byte(source), 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("writing sidecar: %v", err)
	}
}

func TestLoadPrograms(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "blinker", "(define (blink) (led-toggle))", `
name: blinker
version: 1.2.0
author: embedded team
memory_requirement_bytes: 65536
execution_timeout_seconds: 30
restart_policy: on-failure
priority: normal
`)
	writeProgram(t, dir, "sensor", "(define (read) (adc-read 0))", `
name: sensor
version: 1.2.0
created_at: "2026-03-01T12:00:00Z"
restart_policy: always
priority: high
`)

	programs, err := LoadPrograms(dir)
	if err != nil {
		t.Fatalf("loading programs: %v", err)
	}
	if len(programs) != 2 {
		t.Fatalf("expected 2 programs, got %d", len(programs))
	}

	// Sorted by identifier.
	if programs[0].ID != "blinker-1.2.0" || programs[1].ID != "sensor-1.2.0" {
		t.Errorf("unexpected program order: %s, %s", programs[0].ID, programs[1].ID)
	}

	blinker := programs[0]
	if blinker.SourceChecksum != artifact.SHA256Hex([]byte(blinker.Source)) {
		t.Errorf("source digest does not match the source text")
	}
	if blinker.MemoryBytes != 65536 || blinker.TimeoutSeconds != 30 {
		t.Errorf("resource limits not carried over: %d bytes, %ds", blinker.MemoryBytes, blinker.TimeoutSeconds)
	}
	if blinker.RestartPolicy != artifact.RestartOnFailure || blinker.Priority != artifact.PriorityNormal {
		t.Errorf("scheduling metadata not carried over: %q, %q", blinker.RestartPolicy, blinker.Priority)
	}

	sensor := programs[1]
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !sensor.CreatedAt.Equal(want) {
		t.Errorf("created_at %v, want the sidecar timestamp %v", sensor.CreatedAt, want)
	}
}

func TestLoadProgramsEmptyDir(t *testing.T) {
	programs, err := LoadPrograms(t.TempDir())
	if err != nil {
		t.Fatalf("loading from empty directory: %v", err)
	}
	if len(programs) != 0 {
		t.Errorf("expected no programs, got %d", len(programs))
	}
}

func TestLoadProgramsMissingSidecar(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lonely"+SourceExt), []byte("(noop)"), 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	if _, err := LoadPrograms(dir); err == nil {
		t.Errorf("expected an error for a source without a metadata sidecar")
	}
}

func TestLoadProgramsInvalidSidecar(t *testing.T) {
	cases := []struct {
		name    string
		sidecar string
	}{
		{"missing version", "name: blinker\n"},
		{"missing name", "version: 1.0.0\n"},
		{"bad name pattern", "name: \"-leading-dash\"\nversion: 1.0.0\n"},
		{"bad restart policy", "name: blinker\nversion: 1.0.0\nrestart_policy: sometimes\n"},
		{"bad priority", "name: blinker\nversion: 1.0.0\npriority: urgent\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir := t.TempDir()
			writeProgram(t, dir, "blinker", "(noop)", c.sidecar)
			if _, err := LoadPrograms(dir); err == nil {
				t.Errorf("expected sidecar validation to fail")
			}
		})
	}
}

func TestLoadProgramsMtimeFallbackStable(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "blinker", "(noop)", "name: blinker\nversion: 1.0.0\n")

	first, err := LoadPrograms(dir)
	if err != nil {
		t.Fatalf("loading programs: %v", err)
	}
	second, err := LoadPrograms(dir)
	if err != nil {
		t.Fatalf("reloading programs: %v", err)
	}

	// Without a sidecar timestamp the source mtime is used; reloading the
	// same files must reproduce it exactly.
	if !first[0].CreatedAt.Equal(second[0].CreatedAt) {
		t.Errorf("created_at changed across reloads: %v vs %v", first[0].CreatedAt, second[0].CreatedAt)
	}
	if first[0].CreatedAt.IsZero() {
		t.Errorf("created_at was not derived from the source mtime")
	}
}
