package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestPipelineHappyPath drives the full flow through the CLI entry points:
// package a development-signed binary, validate it under the development
// policy, and publish it to a filesystem store.
func TestPipelineHappyPath(t *testing.T) {
	work := t.TempDir()

	binaryPath := filepath.Join(work, "firmware.bin")
	if err := os.WriteFile(binaryPath, bytes.Repeat([]byte{0xAB}, 4096), 0o644); err != nil {
		t.Fatalf("writing binary: %v", err)
	}

	programsDir := filepath.Join(work, "programs")
	if err := os.MkdirAll(programsDir, 0o755); err != nil {
		t.Fatalf("creating programs dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(programsDir, "blinker.steel"),
		[]byte("(define (blink) (led-toggle))"), 0o644); err != nil {
		t.Fatalf("writing program source: %v", err)
	}
	sidecar := `
name: blinker
version: 1.2.0
author: embedded team
memory_requirement_bytes: 65536
execution_timeout_seconds: 30
restart_policy: on-failure
priority: normal
`
	if err := os.WriteFile(filepath.Join(programsDir, "blinker.yaml"), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("writing program sidecar: %v", err)
	}

	outDir := filepath.Join(work, "out")
	root := createRootCommand()
	root.SetArgs([]string{
		"package", binaryPath,
		"--fw-version", "1.2.0",
		"--target", "esp32-c3",
		"--env", "development",
		"--revision", "a1b2c3d4e5f6",
		"--programs", programsDir,
		"--mode", "development",
		"--output-dir", outDir,
		"--min-runtime", "0.9.0",
		"--description", "test release",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("package command failed: %v", err)
	}

	archives, err := filepath.Glob(filepath.Join(outDir, "*.tar.gz"))
	if err != nil || len(archives) != 1 {
		t.Fatalf("expected exactly one archive in %s, got %v (%v)", outDir, archives, err)
	}
	archivePath := archives[0]

	root = createRootCommand()
	root.SetArgs([]string{
		"validate", archivePath,
		"--policy", "development",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("validate command failed: %v", err)
	}

	storeDir := filepath.Join(work, "store")
	root = createRootCommand()
	root.SetArgs([]string{
		"publish", archivePath,
		"--env", "development",
		"--policy", "development",
		"--store-dir", storeDir,
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("publish command failed: %v", err)
	}

	triggers, err := filepath.Glob(filepath.Join(storeDir, "development", "triggers", "*.json"))
	if err != nil || len(triggers) != 1 {
		t.Fatalf("expected exactly one trigger record, got %v (%v)", triggers, err)
	}
}

// TestValidateRejectsStrictDevSignature packages with a development
// signature and expects the strict policy to refuse it.
func TestValidateRejectsStrictDevSignature(t *testing.T) {
	work := t.TempDir()
	binaryPath := filepath.Join(work, "firmware.bin")
	if err := os.WriteFile(binaryPath, bytes.Repeat([]byte{0xCD}, 4096), 0o644); err != nil {
		t.Fatalf("writing binary: %v", err)
	}

	outDir := filepath.Join(work, "out")
	root := createRootCommand()
	root.SetArgs([]string{
		"package", binaryPath,
		"--fw-version", "1.0.0",
		"--target", "esp32-c3",
		"--env", "development",
		"--revision", "ffffffff",
		"--mode", "development",
		"--output-dir", outDir,
		"--min-runtime", "0.9.0",
		"--description", "test release",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("package command failed: %v", err)
	}

	archives, _ := filepath.Glob(filepath.Join(outDir, "*.tar.gz"))
	if len(archives) != 1 {
		t.Fatalf("expected one archive, got %v", archives)
	}

	root = createRootCommand()
	root.SetArgs([]string{"validate", archives[0], "--policy", "strict"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected strict validation to reject the development signature")
	}
}
