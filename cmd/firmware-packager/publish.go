package main

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/open-edge-platform/firmware-packager/internal/config"
	"github.com/open-edge-platform/firmware-packager/internal/publish"
	"github.com/open-edge-platform/firmware-packager/internal/signer"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
	"github.com/open-edge-platform/firmware-packager/internal/validate"
	"github.com/spf13/cobra"
)

// Publish command flags
var (
	publishEnv       string = ""
	publishPolicy    string = "strict"
	publishPublicKey string = ""
	storeDir         string = "" // Empty means use config file value
)

// createPublishCommand creates the publish subcommand
func createPublishCommand() *cobra.Command {
	publishCmd := &cobra.Command{
		Use:   "publish [flags] ARCHIVE_FILE",
		Short: "Validate and publish a package to the artifact store",
		Long: `Validate a deployment package archive and, when it passes, upload it to
the artifact store and write the deployment trigger record. The trigger
is only written after the store acknowledged the full package, so the
downstream pipeline never observes a partially published version.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executePublish,
		ValidArgsFunction: archiveFileCompletion,
	}

	// Add flags
	publishCmd.Flags().StringVarP(&publishEnv, "env", "e", "",
		"Deployment environment (development, staging, production) (required)")
	publishCmd.Flags().StringVar(&publishPolicy, "policy", "strict",
		"Validation policy applied before publication")
	publishCmd.Flags().StringVar(&publishPublicKey, "public-key", "",
		"PEM public key for verifying production signatures")
	publishCmd.Flags().StringVar(&storeDir, "store-dir", "",
		"Filesystem store root (ignored when an S3 bucket is configured)")

	if err := publishCmd.MarkFlagRequired("env"); err != nil {
		panic(err)
	}

	return publishCmd
}

// executePublish handles the publish command logic
func executePublish(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	ctx := cmd.Context()

	if cmd.Flags().Changed("store-dir") {
		currentConfig := config.Global()
		currentConfig.StoreDir = storeDir
		config.SetGlobal(currentConfig)
	}

	archivePath := args[0]
	policy, err := validate.ParsePolicy(publishPolicy)
	if err != nil {
		return err
	}

	var publicKey *rsa.PublicKey
	if publishPublicKey != "" {
		publicKey, err = signer.LoadPublicKey(publishPublicKey)
		if err != nil {
			return fmt.Errorf("loading public key: %v", err)
		}
	}

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
	if !report.Pass {
		return fmt.Errorf("package %s rejected under %s policy, refusing to publish",
			manifest.PackageName, policy)
	}

	store, err := selectStore(ctx, cfg)
	if err != nil {
		return err
	}

	publisher := publish.New(store, cfg.Publish.MaxAttempts)
	result, err := publisher.Publish(ctx, manifest, archivePath, report, publishEnv)
	if err != nil {
		return fmt.Errorf("publishing package: %v", err)
	}

	log.Infof("✓ Package published successfully")
	log.Infof("  Deployment: %s", result.DeploymentID)
	log.Infof("  Version: %s -> %s", result.PackageVersion, result.Environment)
	log.Infof("  Archive: %s", result.ArchiveKey)
	log.Infof("  Trigger: %s", result.TriggerKey)
	return nil
}

// selectStore picks the S3 backend when a bucket is configured and falls back
// to the filesystem store otherwise.
func selectStore(ctx context.Context, cfg *config.GlobalConfig) (publish.BlobStore, error) {
	if cfg.Publish.S3Bucket != "" {
		store, err := publish.NewS3Store(ctx, cfg.Publish.S3Bucket, cfg.Publish.S3Region)
		if err != nil {
			return nil, fmt.Errorf("initializing S3 store: %v", err)
		}
		return store, nil
	}
	store, err := publish.NewFSStore(cfg.StoreDir)
	if err != nil {
		return nil, fmt.Errorf("initializing filesystem store: %v", err)
	}
	return store, nil
}
