package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/config"
	"github.com/open-edge-platform/firmware-packager/internal/packager"
	"github.com/open-edge-platform/firmware-packager/internal/publish"
	"github.com/open-edge-platform/firmware-packager/internal/signer"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
	"github.com/open-edge-platform/firmware-packager/internal/validate"
)

// Manual smoke harness: packages a generated development-signed firmware
// image, validates it under the development policy, and publishes it to a
// local filesystem store under ./build.

func getCurrentDirPath() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get current directory path")
	}
	return filepath.Dir(filename), nil
}

func main() {
	log := logger.Logger()
	currentDir, err := getCurrentDirPath()
	if err != nil {
		log.Fatalf("Failed to get current directory: %v", err)
	}
	buildDir := filepath.Join(currentDir, "build")
	if _, err := os.Stat(buildDir); os.IsNotExist(err) {
		if err := os.MkdirAll(buildDir, 0755); err != nil {
			log.Fatalf("Failed to create build directory: %v", err)
		}
	}
	log.Infof("Build directory initialized at: %s", buildDir)

	binary := &artifact.Binary{
		Data:    bytes.Repeat([]byte{0x5A}, 8192),
		Target:  "esp32-c3",
		Version: "1.0.0",
	}
	sig, err := signer.Sign(binary.Data, signer.Development())
	if err != nil {
		log.Fatalf("Failed to sign binary: %v", err)
	}

	source := "(define (heartbeat) (gpio-toggle 2))"
	program := artifact.Program{
		ID:             artifact.ProgramID("heartbeat", "1.0.0"),
		Name:           "heartbeat",
		Version:        "1.0.0",
		Author:         "integration harness",
		Source:         source,
		SourceChecksum: artifact.SHA256Hex([]byte(source)),
		MemoryBytes:    32 * 1024,
		TimeoutSeconds: 10,
		RestartPolicy:  artifact.RestartAlways,
		Priority:       artifact.PriorityNormal,
	}

	manifest, archivePath, err := packager.Build(binary, sig, []artifact.Program{program},
		artifact.DeploymentContext{
			TargetPlatform: "esp32-c3",
			Environment:    artifact.EnvDevelopment,
			Revision:       "0000000000000000",
		},
		packager.Options{
			OutputDir:         buildDir,
			MinRuntimeVersion: "0.9.0",
			Description:       "integration smoke package",
		})
	if err != nil {
		log.Fatalf("Failed to build package: %v", err)
	}
	log.Infof("Built package %s at %s", manifest.PackageVersion, archivePath)

	ar, err := packager.ReadArchive(archivePath)
	if err != nil {
		log.Fatalf("Failed to read archive back: %v", err)
	}

	cfg := config.DefaultGlobalConfig()
	report := validate.Run(manifest, ar, validate.Params{
		Policy:   validate.PolicyDevelopment,
		Firmware: cfg.Firmware,
		Programs: cfg.Programs,
	})
	report.Log(manifest.PackageName)
	if !report.Pass {
		log.Fatalf("Validation failed with %d errors", report.Count(validate.SeverityError))
	}

	store, err := publish.NewFSStore(filepath.Join(buildDir, "store"))
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	result, err := publish.New(store, cfg.Publish.MaxAttempts).Publish(
		context.Background(), manifest, archivePath, report, artifact.EnvDevelopment)
	if err != nil {
		log.Fatalf("Failed to publish package: %v", err)
	}
	log.Infof("Published deployment %s: trigger at %s", result.DeploymentID, result.TriggerKey)
}
