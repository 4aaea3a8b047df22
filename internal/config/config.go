package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/open-edge-platform/firmware-packager/internal/utils/security"
	"gopkg.in/yaml.v3"
)

// GlobalConfig holds tool-level configuration for the packaging pipeline.
type GlobalConfig struct {
	// Workers is the number of concurrent program-verification workers (1-100).
	Workers int `yaml:"workers" json:"workers"`
	// WorkDir is where package archives are assembled before publication.
	WorkDir string `yaml:"work_dir" json:"work_dir"`
	// StoreDir is the root of the filesystem-backed artifact store.
	StoreDir string `yaml:"store_dir" json:"store_dir"`

	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Firmware FirmwareBounds `yaml:"firmware" json:"firmware"`
	Programs ProgramBounds  `yaml:"programs" json:"programs"`
	Publish  PublishConfig  `yaml:"publish" json:"publish"`
}

// LoggingConfig controls basic logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// FirmwareBounds is the accepted firmware image size window enforced by the
// validator's metadata check.
type FirmwareBounds struct {
	MinSizeBytes int64 `yaml:"min_size_bytes" json:"min_size_bytes"`
	MaxSizeBytes int64 `yaml:"max_size_bytes" json:"max_size_bytes"`
}

// ProgramBounds caps the resource limits a program package may declare.
type ProgramBounds struct {
	MaxMemoryBytes    int64 `yaml:"max_memory_bytes" json:"max_memory_bytes"`
	MaxTimeoutSeconds int64 `yaml:"max_timeout_seconds" json:"max_timeout_seconds"`
}

// PublishConfig selects and tunes the artifact store backend.
type PublishConfig struct {
	// S3Bucket switches the publisher to the S3 backend when non-empty.
	S3Bucket string `yaml:"s3_bucket,omitempty" json:"s3_bucket,omitempty"`
	S3Region string `yaml:"s3_region,omitempty" json:"s3_region,omitempty"`
	// MaxAttempts bounds the per-phase retry loop for transient store errors.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults for an
// embedded firmware target.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers:  8,
		WorkDir:  "./workspace",
		StoreDir: "./store",
		Logging: LoggingConfig{
			Level: "info",
		},
		Firmware: FirmwareBounds{
			MinSizeBytes: 1024,
			MaxSizeBytes: 16 * 1024 * 1024,
		},
		Programs: ProgramBounds{
			MaxMemoryBytes:    512 * 1024,
			MaxTimeoutSeconds: 300,
		},
		Publish: PublishConfig{
			MaxAttempts: 5,
		},
	}
}

// configFileName is the canonical configuration file name.
const configFileName = "firmware-packager.yaml"

// FindConfigFile searches the working directory, ./config and the user
// config directory for the configuration file. Empty string means defaults.
func FindConfigFile() string {
	candidates := []string{
		configFileName,
		filepath.Join("config", configFileName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "firmware-packager", configFileName))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// LoadGlobalConfig reads and validates the configuration file at path.
// An empty path yields the defaults.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := security.SafeReadFile(path, security.RejectSymlinks)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveGlobalConfig writes the configuration as YAML to path.
func (c *GlobalConfig) SaveGlobalConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := security.SafeWriteFile(path, data, 0o644, security.RejectSymlinks); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects out-of-range or self-contradictory settings.
func (c *GlobalConfig) Validate() error {
	if c.Workers < 1 || c.Workers > 100 {
		return fmt.Errorf("workers must be between 1 and 100, got %d", c.Workers)
	}
	if c.Firmware.MinSizeBytes < 0 || c.Firmware.MaxSizeBytes <= 0 {
		return fmt.Errorf("firmware size bounds must be positive")
	}
	if c.Firmware.MinSizeBytes > c.Firmware.MaxSizeBytes {
		return fmt.Errorf("firmware min size %d exceeds max size %d",
			c.Firmware.MinSizeBytes, c.Firmware.MaxSizeBytes)
	}
	if c.Programs.MaxMemoryBytes <= 0 || c.Programs.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("program resource bounds must be positive")
	}
	if c.Publish.MaxAttempts < 1 {
		return fmt.Errorf("publish max_attempts must be at least 1, got %d", c.Publish.MaxAttempts)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// Global singleton, set once at startup in main.
var (
	globalInstance *GlobalConfig
	globalMutex    sync.RWMutex
	globalOnce     sync.Once
)

// SetGlobal installs the global config instance.
func SetGlobal(cfg *GlobalConfig) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalInstance = cfg
}

// Global returns the global config instance, defaulting it on first use.
func Global() *GlobalConfig {
	globalOnce.Do(func() {
		globalMutex.Lock()
		defer globalMutex.Unlock()
		if globalInstance == nil {
			globalInstance = DefaultGlobalConfig()
		}
	})

	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalInstance
}
