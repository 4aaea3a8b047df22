package main

import (
	"fmt"
	"os"

	"github.com/open-edge-platform/firmware-packager/internal/config"
	"github.com/spf13/cobra"
)

// createConfigCommand creates the config command with subcommands
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage global configuration",
	}

	// Add subcommands
	configCmd.AddCommand(createConfigShowCommand())
	configCmd.AddCommand(createConfigInitCommand())

	return configCmd
}

// createConfigShowCommand creates the config show subcommand
func createConfigShowCommand() *cobra.Command {
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run:   executeConfigShow,
	}

	return configShowCmd
}

// createConfigInitCommand creates the config init subcommand
func createConfigInitCommand() *cobra.Command {
	configInitCmd := &cobra.Command{
		Use:   "init [config-file]",
		Short: "Initialize a new configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  executeConfigInit,
	}

	return configInitCmd
}

// executeConfigShow shows the current configuration
func executeConfigShow(cmd *cobra.Command, args []string) {
	if configFile != "" {
		fmt.Printf("Configuration file: %s\n", configFile)
	} else {
		fmt.Printf("Configuration file: <using defaults>\n")
	}
	fmt.Printf("Workers: %d\n", globalConfig.Workers)
	fmt.Printf("Work directory: %s\n", globalConfig.WorkDir)
	fmt.Printf("Store directory: %s\n", globalConfig.StoreDir)
	fmt.Printf("Firmware size: %d-%d bytes\n",
		globalConfig.Firmware.MinSizeBytes, globalConfig.Firmware.MaxSizeBytes)
	fmt.Printf("Program limits: %d bytes memory, %d seconds timeout\n",
		globalConfig.Programs.MaxMemoryBytes, globalConfig.Programs.MaxTimeoutSeconds)
	if globalConfig.Publish.S3Bucket != "" {
		fmt.Printf("Artifact store: s3://%s (%s)\n",
			globalConfig.Publish.S3Bucket, globalConfig.Publish.S3Region)
	} else {
		fmt.Printf("Artifact store: filesystem (%s)\n", globalConfig.StoreDir)
	}
	fmt.Printf("Log level: %s\n", globalConfig.Logging.Level)
}

// executeConfigInit creates a new configuration file
func executeConfigInit(cmd *cobra.Command, args []string) error {
	configPath := "firmware-packager.yaml"
	if len(args) > 0 {
		configPath = args[0]
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	// Create default config and save it
	defaultConfig := config.DefaultGlobalConfig()
	if err := defaultConfig.SaveGlobalConfig(configPath); err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}

	fmt.Printf("Configuration file created: %s\n", configPath)
	fmt.Printf("Edit the file to customize settings for your environment.\n")
	return nil
}
