package main

import (
	"fmt"
	"os"

	"github.com/open-edge-platform/firmware-packager/internal/config"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
	"github.com/open-edge-platform/firmware-packager/internal/utils/security"
	"github.com/spf13/cobra"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	CommitSHA = "unknown"
)

// Global configuration
var globalConfig *config.GlobalConfig

// Command-line flags that can override config file settings
var (
	configFile string = "" // Path to config file
	logLevel   string = "" // Empty means use config file value
)

func main() {
	// Initialize global configuration first
	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}

	var err error
	globalConfig, err = config.LoadGlobalConfig(configFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(globalConfig)

	// Setup logger with configured level
	_, cleanup := logger.InitWithLevel(globalConfig.Logging.Level)
	defer cleanup()

	// Create and execute root command
	rootCmd := createRootCommand()

	// Handle log level override after flag parsing
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			globalConfig.Logging.Level = logLevel
			logger.SetLogLevel(logLevel)
		}
		return nil
	}

	// Guard all string flags and arguments before any command runs.
	// Subcommands without their own hook inherit the log-level override
	// installed above through the guard.
	security.AttachRecursive(rootCmd, security.DefaultLimits())

	// Log configuration info
	log := logger.Logger()
	if configFilePath != "" {
		log.Infof("Using configuration from: %s", configFilePath)
	}
	if globalConfig.Logging.Level == "debug" {
		log.Debugf("Config: workers=%d, work_dir=%s, store_dir=%s",
			globalConfig.Workers, globalConfig.WorkDir, globalConfig.StoreDir)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// createRootCommand creates and configures the root cobra command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "firmware-packager",
		Short: "Firmware packaging and deployment pipeline for embedded targets",
		Long: `firmware-packager signs firmware images, bundles them with interpreted
program packages into versioned deployment archives, validates archives
against the deployment policy, and publishes validated packages to the
artifact store for the downstream deployment pipeline.

Use 'firmware-packager --help' to see available commands.
Use 'firmware-packager <command> --help' for more information about a command.`,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")

	// Add all subcommands
	rootCmd.AddCommand(createPackageCommand())
	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createPublishCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createInstallCompletionCommand())

	return rootCmd
}
