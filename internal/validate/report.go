package validate

import (
	"fmt"

	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
)

// Finding is one itemized validation result.
type Finding struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

// Report is the complete outcome of one validation run. It is ephemeral:
// recorded as an audit log line, never persisted as an entity.
type Report struct {
	Policy   Policy    `json:"policy"`
	Pass     bool      `json:"pass"`
	Findings []Finding `json:"findings"`
}

func (r *Report) add(sev Severity, category, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{
		Severity: sev,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Count returns the number of findings at the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// finalize computes the verdict from the findings under the report policy.
func (r *Report) finalize() {
	r.Pass = true
	for _, f := range r.Findings {
		if r.Policy.failsOn(f.Severity) {
			r.Pass = false
			return
		}
	}
}

// Log writes the audit line for this run.
func (r *Report) Log(packageName string) {
	log := logger.Logger()
	verdict := "pass"
	if !r.Pass {
		verdict = "fail"
	}
	log.Infof("validation %s: package=%s policy=%s errors=%d warnings=%d findings=%d",
		verdict, packageName, r.Policy,
		r.Count(SeverityError), r.Count(SeverityWarning), len(r.Findings))
	for _, f := range r.Findings {
		log.Debugf("  [%s] %s: %s", f.Severity, f.Category, f.Message)
	}
}
