package main

import (
	"fmt"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/config"
	"github.com/open-edge-platform/firmware-packager/internal/packager"
	"github.com/open-edge-platform/firmware-packager/internal/signer"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
	"github.com/open-edge-platform/firmware-packager/internal/utils/security"
	"github.com/spf13/cobra"
)

// Package command flags
var (
	binaryVersion  string = ""
	targetPlatform string = ""
	environment    string = ""
	revision       string = ""
	programsDir    string = ""
	signingMode    string = "production"
	keyFile        string = ""
	vendorSigFile  string = ""
	vendorKeyring  string = ""
	packageName    string = ""
	outputDir      string = "" // Empty means use config file value
	compression    string = ""
	minRuntime     string = ""
	fwDescription  string = ""
)

// createPackageCommand creates the package subcommand
func createPackageCommand() *cobra.Command {
	packageCmd := &cobra.Command{
		Use:   "package [flags] BINARY_FILE",
		Short: "Sign a firmware binary and build a deployment package",
		Long: `Sign a firmware binary and assemble it, its signature, its build
metadata and the program set into a single versioned deployment archive.
The archive and its manifest are written to the output directory.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executePackage,
		ValidArgsFunction: binaryFileCompletion,
	}

	// Add flags
	packageCmd.Flags().StringVar(&binaryVersion, "fw-version", "",
		"Firmware binary version (required)")
	packageCmd.Flags().StringVarP(&targetPlatform, "target", "t", "",
		"Target hardware platform (required)")
	packageCmd.Flags().StringVarP(&environment, "env", "e", "",
		"Deployment environment (development, staging, production)")
	packageCmd.Flags().StringVarP(&revision, "revision", "r", "",
		"Source control revision the binary was built from (required)")
	packageCmd.Flags().StringVarP(&programsDir, "programs", "p", "",
		"Directory holding program sources and metadata sidecars")
	packageCmd.Flags().StringVarP(&signingMode, "mode", "m", "production",
		"Signing mode (production, development)")
	packageCmd.Flags().StringVarP(&keyFile, "key", "k", "",
		"PEM private key for production signing")
	packageCmd.Flags().StringVar(&vendorSigFile, "vendor-sig", "",
		"Detached PGP signature to verify binary provenance against")
	packageCmd.Flags().StringVar(&vendorKeyring, "vendor-keyring", "",
		"PGP keyring used for provenance verification")
	packageCmd.Flags().StringVarP(&packageName, "name", "n", "",
		"Package name (defaults to firmware-package)")
	packageCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"Directory the archive is written to")
	packageCmd.Flags().StringVarP(&compression, "compression", "c", "",
		"Archive compression (gz, xz, zst)")
	packageCmd.Flags().StringVar(&minRuntime, "min-runtime", "",
		"Oldest device runtime version the firmware supports")
	packageCmd.Flags().StringVarP(&fwDescription, "description", "d", "",
		"Human-readable firmware description")

	if err := packageCmd.MarkFlagRequired("fw-version"); err != nil {
		panic(err)
	}
	if err := packageCmd.MarkFlagRequired("target"); err != nil {
		panic(err)
	}
	if err := packageCmd.MarkFlagRequired("revision"); err != nil {
		panic(err)
	}

	return packageCmd
}

// executePackage handles the package command execution logic
func executePackage(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	binaryPath := args[0]
	data, err := security.SafeReadFile(binaryPath, security.RejectSymlinks)
	if err != nil {
		return fmt.Errorf("reading firmware binary: %v", err)
	}

	env := environment
	if env == "" {
		env = artifact.EnvDevelopment
	}

	// Provenance check before anything is signed with our key
	if vendorSigFile != "" {
		if vendorKeyring == "" {
			return fmt.Errorf("--vendor-sig requires --vendor-keyring")
		}
		sigData, err := security.SafeReadFile(vendorSigFile, security.RejectSymlinks)
		if err != nil {
			return fmt.Errorf("reading vendor signature: %v", err)
		}
		keyringData, err := security.SafeReadFile(vendorKeyring, security.RejectSymlinks)
		if err != nil {
			return fmt.Errorf("reading vendor keyring: %v", err)
		}
		ok, err := signer.VerifyVendorSignature(data, sigData, keyringData)
		if err != nil {
			return fmt.Errorf("vendor signature verification failed: %v", err)
		}
		if !ok {
			return fmt.Errorf("vendor signature does not match binary %s", binaryPath)
		}
		log.Infof("vendor signature verified for %s", binaryPath)
	}

	mode, err := resolveSigningMode()
	if err != nil {
		return err
	}

	binary := &artifact.Binary{
		Data:    data,
		Target:  targetPlatform,
		Version: binaryVersion,
	}

	sig, err := signer.Sign(binary.Data, mode)
	if err != nil {
		return fmt.Errorf("signing firmware binary: %v", err)
	}
	log.Infof("signed %s with %s", binaryPath, sig.Algorithm)

	var programs []artifact.Program
	if programsDir != "" {
		programs, err = packager.LoadPrograms(programsDir)
		if err != nil {
			return fmt.Errorf("loading programs: %v", err)
		}
		log.Infof("loaded %d programs from %s", len(programs), programsDir)
	}

	outDir := outputDir
	if outDir == "" {
		outDir = config.Global().WorkDir
	}

	manifest, archivePath, err := packager.Build(binary, sig, programs,
		artifact.DeploymentContext{
			TargetPlatform: targetPlatform,
			Environment:    env,
			Revision:       revision,
		},
		packager.Options{
			PackageName:       packageName,
			OutputDir:         outDir,
			Compression:       compression,
			MinRuntimeVersion: minRuntime,
			Description:       fwDescription,
		})
	if err != nil {
		return fmt.Errorf("building package: %v", err)
	}

	log.Infof("✓ Package built successfully")
	log.Infof("  Archive: %s", archivePath)
	log.Infof("  Version: %s", manifest.PackageVersion)
	log.Infof("  Digest:  %s", manifest.PackageChecksum)
	return nil
}

// resolveSigningMode maps the --mode/--key flags to a signer mode.
func resolveSigningMode() (signer.Mode, error) {
	switch signingMode {
	case "production":
		if keyFile == "" {
			return signer.Mode{}, fmt.Errorf("production signing requires --key")
		}
		key, err := signer.LoadPrivateKey(keyFile)
		if err != nil {
			return signer.Mode{}, fmt.Errorf("loading signing key: %v", err)
		}
		return signer.Production(key), nil
	case "development":
		if keyFile != "" {
			return signer.Mode{}, fmt.Errorf("development signing takes no key")
		}
		return signer.Development(), nil
	default:
		return signer.Mode{}, fmt.Errorf("unknown signing mode %q", signingMode)
	}
}

// binaryFileCompletion helps with suggesting firmware images for the binary argument
func binaryFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"*.bin", "*.img"}, cobra.ShellCompDirectiveFilterFileExt
}
