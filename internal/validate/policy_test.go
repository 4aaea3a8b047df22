package validate

import "testing"

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"strict", "permissive", "development"} {
		p, err := ParsePolicy(s)
		if err != nil {
			t.Errorf("ParsePolicy(%q) errored: %v", s, err)
		}
		if string(p) != s {
			t.Errorf("ParsePolicy(%q) = %q", s, p)
		}
	}
	for _, s := range []string{"", "Strict", "dev", "lenient"} {
		if _, err := ParsePolicy(s); err == nil {
			t.Errorf("ParsePolicy(%q): expected an error", s)
		}
	}
}

func TestPolicyFailsOn(t *testing.T) {
	cases := []struct {
		policy Policy
		sev    Severity
		want   bool
	}{
		{PolicyStrict, SeverityError, true},
		{PolicyStrict, SeverityWarning, true},
		{PolicyStrict, SeverityInfo, false},
		{PolicyPermissive, SeverityError, true},
		{PolicyPermissive, SeverityWarning, false},
		{PolicyPermissive, SeverityInfo, false},
		{PolicyDevelopment, SeverityError, true},
		{PolicyDevelopment, SeverityWarning, false},
		{PolicyDevelopment, SeverityInfo, false},
	}
	for _, c := range cases {
		if got := c.policy.failsOn(c.sev); got != c.want {
			t.Errorf("%s.failsOn(%s) = %v, want %v", c.policy, c.sev, got, c.want)
		}
	}
}

func TestDevSignatureSeverityTable(t *testing.T) {
	// Every policy must have an entry; a missing one would silently map to
	// the zero severity.
	for _, p := range []Policy{PolicyStrict, PolicyPermissive, PolicyDevelopment} {
		if _, ok := devSignatureSeverity[p]; !ok {
			t.Errorf("policy %s has no development-signature severity", p)
		}
	}
}

func TestReportFinalize(t *testing.T) {
	r := &Report{Policy: PolicyPermissive}
	r.add(SeverityInfo, CategorySignature, "informational")
	r.add(SeverityWarning, CategoryProgram, "cosmetic")
	r.finalize()
	if !r.Pass {
		t.Errorf("permissive report with no errors should pass")
	}

	r.add(SeverityError, CategoryIntegrity, "fatal")
	r.finalize()
	if r.Pass {
		t.Errorf("report with an error should fail")
	}

	if r.Count(SeverityError) != 1 || r.Count(SeverityWarning) != 1 || r.Count(SeverityInfo) != 1 {
		t.Errorf("unexpected counts: %d/%d/%d",
			r.Count(SeverityError), r.Count(SeverityWarning), r.Count(SeverityInfo))
	}
}
