package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate compiles the given schema bytes and runs them against the JSON in
// data. The name only identifies the schema in error messages.
func Validate(name string, schemaBytes, data []byte) error {
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(name, bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("loading schema %q: %w", name, err)
	}
	sch, err := comp.Compile(name)
	if err != nil {
		return fmt.Errorf("compiling schema %q: %w", name, err)
	}

	// unmarshal into interface{} so the validator can walk it
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON for %q: %w", name, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %q failed: %w", name, err)
	}
	return nil
}

// ValidateManifestJSON runs the package manifest schema against data.
func ValidateManifestJSON(data []byte) error {
	return Validate("firmware-manifest.schema.json", ManifestSchema, data)
}

// ValidateProgramJSON runs the program metadata schema against data.
func ValidateProgramJSON(data []byte) error {
	return Validate("program-metadata.schema.json", ProgramSchema, data)
}
