package schema

import _ "embed"

//go:embed firmware-manifest.schema.json
var ManifestSchema []byte

//go:embed program-metadata.schema.json
var ProgramSchema []byte
