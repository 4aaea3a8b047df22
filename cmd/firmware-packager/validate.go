package main

import (
	"crypto/rsa"
	"fmt"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/config"
	"github.com/open-edge-platform/firmware-packager/internal/packager"
	"github.com/open-edge-platform/firmware-packager/internal/signer"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
	"github.com/open-edge-platform/firmware-packager/internal/validate"
	"github.com/spf13/cobra"
)

// Validate command flags
var (
	policyName    string = "strict"
	publicKeyFile string = ""
	workers       int    = -1 // -1 means use config file value
	showPrograms  bool   = false
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] ARCHIVE_FILE",
		Short: "Validate a deployment package archive",
		Long: `Validate a deployment package archive against the selected policy.
Every check runs regardless of earlier failures, so a rejected package
still yields a complete itemized report.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeValidate,
		ValidArgsFunction: archiveFileCompletion,
	}

	// Add flags
	validateCmd.Flags().StringVar(&policyName, "policy", "strict",
		"Validation policy (strict, permissive, development)")
	validateCmd.Flags().StringVar(&publicKeyFile, "public-key", "",
		"PEM public key for verifying production signatures")
	validateCmd.Flags().IntVarP(&workers, "workers", "w", -1,
		"Number of concurrent program-verification workers")
	validateCmd.Flags().BoolVar(&showPrograms, "verify-programs", false,
		"Re-verify every program digest with a progress bar")

	return validateCmd
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	if cmd.Flags().Changed("workers") {
		currentConfig := config.Global()
		currentConfig.Workers = workers
		config.SetGlobal(currentConfig)
	}

	archivePath := args[0]
	policy, err := validate.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	var publicKey *rsa.PublicKey
	if publicKeyFile != "" {
		publicKey, err = signer.LoadPublicKey(publicKeyFile)
		if err != nil {
			return fmt.Errorf("loading public key: %v", err)
		}
	}

	log.Infof("validating package archive: %s", archivePath)

	manifest, ar, err := loadPackage(archivePath)
	if err != nil {
		return err
	}

	cfg := config.Global()
	report := validate.Run(manifest, ar, validate.Params{
		Policy:    policy,
		Firmware:  cfg.Firmware,
		Programs:  cfg.Programs,
		PublicKey: publicKey,
	})
	report.Log(manifest.PackageName)

	if showPrograms {
		results := validate.VerifyPrograms(manifest, ar, cfg.Workers)
		for _, r := range results {
			if !r.OK {
				log.Errorf("program %s: %v", r.ID, r.Error)
			}
		}
	}

	if !report.Pass {
		return fmt.Errorf("package %s rejected under %s policy (%d errors, %d warnings)",
			manifest.PackageName, policy,
			report.Count(validate.SeverityError), report.Count(validate.SeverityWarning))
	}

	log.Infof("✓ Package validation successful")
	log.Infof("  Package: %s v%s", manifest.PackageName, manifest.PackageVersion)
	log.Infof("  Target: %s (%s)", manifest.DeploymentInfo.TargetPlatform, manifest.DeploymentInfo.DeploymentStage)
	log.Infof("  Programs: %d", len(manifest.Contents.Programs))
	return nil
}

// loadPackage reads the archive and decodes the manifest it carries.
func loadPackage(archivePath string) (*artifact.Manifest, *packager.Archive, error) {
	ar, err := packager.ReadArchive(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading archive: %v", err)
	}
	data, ok := ar.Member(artifact.ManifestPath)
	if !ok {
		return nil, nil, fmt.Errorf("archive %s has no %s", archivePath, artifact.ManifestPath)
	}
	manifest, err := artifact.ParseManifest(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing manifest: %v", err)
	}
	return manifest, ar, nil
}

// archiveFileCompletion helps with suggesting package archives for the archive argument
func archiveFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"*.tar.gz", "*.tar.xz", "*.tar.zst"}, cobra.ShellCompDirectiveFilterFileExt
}
