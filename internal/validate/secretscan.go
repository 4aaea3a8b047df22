package validate

import (
	"regexp"
	"sort"

	"github.com/open-edge-platform/firmware-packager/internal/packager"
)

// secretPatterns match content resembling credentials or private key
// material. A match is always an error: no policy may downgrade it.
var secretPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"private key block", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY( BLOCK)?-----`)},
	{"AWS access key id", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"bearer token", regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._~+/=-]{20,}`)},
	{"credential assignment", regexp.MustCompile(`(?i)\b(password|passwd|secret|api[_-]?key|access[_-]?token)\b\s*[:=]\s*['"][^'"]{8,}['"]`)},
}

// checkSecrets scans every archive member for credential-like content.
func checkSecrets(report *Report, ar *packager.Archive) {
	paths := make([]string, 0, len(ar.Files))
	for p := range ar.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		data := ar.Files[path]
		for _, pat := range secretPatterns {
			if pat.re.Match(data) {
				report.add(SeverityError, CategorySecretScan,
					"%s: content matches %s pattern", path, pat.name)
			}
		}
	}
}
