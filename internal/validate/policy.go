package validate

import "fmt"

// Policy selects how strictly findings escalate to failures.
type Policy string

const (
	PolicyStrict      Policy = "strict"
	PolicyPermissive  Policy = "permissive"
	PolicyDevelopment Policy = "development"
)

// ParsePolicy maps a user-supplied mode string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyStrict, PolicyPermissive, PolicyDevelopment:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown validation policy %q (want strict, permissive or development)", s)
}

// Severity of a single finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding categories.
const (
	CategorySchema           = "schema"
	CategoryIntegrity        = "integrity"
	CategoryFirmware         = "firmware-metadata"
	CategorySignature        = "signature"
	CategoryProgram          = "program"
	CategoryProgramIntegrity = "program-integrity"
	CategorySecretScan       = "secret-scan"
	CategoryVersion          = "version-consistency"
	CategoryStageTrust       = "stage-trust"
)

// devSignatureSeverity is the severity a development-mode signature receives
// under each policy. Policy differences live in this table, not in branching
// check code; the checks themselves are identical across modes.
var devSignatureSeverity = map[Policy]Severity{
	PolicyStrict:      SeverityError,
	PolicyPermissive:  SeverityWarning,
	PolicyDevelopment: SeverityInfo,
}

// failsOn reports whether a finding of the given severity fails the verdict
// under this policy. Strict fails on warnings too; the other modes only on
// errors.
func (p Policy) failsOn(sev Severity) bool {
	switch sev {
	case SeverityError:
		return true
	case SeverityWarning:
		return p == PolicyStrict
	default:
		return false
	}
}
