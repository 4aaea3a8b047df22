package publish

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerRecord is the small document the downstream deployment pipeline
// polls for. It is written only after the artifact store acknowledged the
// full package upload, so it never references an unwritten artifact.
type TriggerRecord struct {
	DeploymentID      string            `json:"deployment_id"`
	PackageVersion    string            `json:"package_version"`
	PackageChecksum   string            `json:"package_digest"`
	Environment       string            `json:"environment"`
	Timestamp         time.Time         `json:"timestamp"`
	ArtifactLocations map[string]string `json:"artifact_locations"`
}

// Marshal renders the record as stored.
func (t *TriggerRecord) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling trigger record: %w", err)
	}
	return data, nil
}

// ParseTriggerRecord decodes a stored trigger record.
func ParseTriggerRecord(data []byte) (*TriggerRecord, error) {
	var t TriggerRecord
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing trigger record: %w", err)
	}
	return &t, nil
}
