package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
	"github.com/open-edge-platform/firmware-packager/internal/utils/security"
	"github.com/open-edge-platform/firmware-packager/schema"
)

// SourceExt is the file extension of interpreted program sources.
const SourceExt = ".steel"

// ProgramSpec is the YAML sidecar a program author ships next to the
// source file. JSON tags double as the YAML keys via sigs.k8s.io/yaml.
type ProgramSpec struct {
	Name           string     `json:"name"`
	Version        string     `json:"version"`
	Author         string     `json:"author,omitempty"`
	Description    string     `json:"description,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	MemoryBytes    int64      `json:"memory_requirement_bytes,omitempty"`
	TimeoutSeconds int64      `json:"execution_timeout_seconds,omitempty"`
	RestartPolicy  string     `json:"restart_policy,omitempty"`
	Priority       string     `json:"priority,omitempty"`
}

// LoadPrograms reads every program source in dir together with its YAML
// sidecar, validates the sidecar against the program metadata schema, and
// returns the resulting program set sorted by identifier.
func LoadPrograms(dir string) ([]artifact.Program, error) {
	log := logger.Logger()

	sources, err := filepath.Glob(filepath.Join(dir, "*"+SourceExt))
	if err != nil {
		return nil, fmt.Errorf("scanning program directory: %w", err)
	}
	sort.Strings(sources)

	programs := make([]artifact.Program, 0, len(sources))
	for _, srcPath := range sources {
		prog, err := loadProgram(srcPath)
		if err != nil {
			return nil, fmt.Errorf("loading program %s: %w", filepath.Base(srcPath), err)
		}
		programs = append(programs, *prog)
	}

	sort.Slice(programs, func(i, j int) bool { return programs[i].ID < programs[j].ID })
	log.Debugf("loaded %d programs from %s", len(programs), dir)
	return programs, nil
}

func loadProgram(srcPath string) (*artifact.Program, error) {
	source, err := security.SafeReadFile(srcPath, security.RejectSymlinks)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	specPath := strings.TrimSuffix(srcPath, SourceExt) + ".yaml"
	specYAML, err := security.SafeReadFile(specPath, security.RejectSymlinks)
	if err != nil {
		return nil, fmt.Errorf("reading metadata sidecar %s: %w", filepath.Base(specPath), err)
	}

	specJSON, err := sigsyaml.YAMLToJSON(specYAML)
	if err != nil {
		return nil, fmt.Errorf("converting metadata sidecar to JSON: %w", err)
	}
	if err := schema.ValidateProgramJSON(specJSON); err != nil {
		return nil, err
	}

	var spec ProgramSpec
	if err := sigsyaml.Unmarshal(specYAML, &spec); err != nil {
		return nil, fmt.Errorf("parsing metadata sidecar: %w", err)
	}

	createdAt := time.Time{}
	if spec.CreatedAt != nil {
		createdAt = spec.CreatedAt.UTC()
	} else if info, err := os.Stat(srcPath); err == nil {
		// Fall back to the source mtime: stable across rebuilds of the
		// same inputs, which keeps the package digest reproducible.
		createdAt = info.ModTime().UTC().Truncate(time.Second)
	}

	return &artifact.Program{
		ID:             artifact.ProgramID(spec.Name, spec.Version),
		Name:           spec.Name,
		Version:        spec.Version,
		Author:         spec.Author,
		Description:    spec.Description,
		CreatedAt:      createdAt,
		Source:         string(source),
		SourceChecksum: artifact.SHA256Hex(source),
		MemoryBytes:    spec.MemoryBytes,
		TimeoutSeconds: spec.TimeoutSeconds,
		RestartPolicy:  spec.RestartPolicy,
		Priority:       spec.Priority,
	}, nil
}
