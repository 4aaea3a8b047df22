package security

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Limits bounds user-supplied strings before they reach the pipeline.
type Limits struct {
	MaxString int
	MaxPath   int
}

// DefaultLimits returns the limits applied to CLI flags and arguments.
func DefaultLimits() Limits {
	return Limits{
		MaxString: 4096,
		MaxPath:   4096,
	}
}

// ValidateString rejects NUL bytes, invalid UTF-8, control runes and
// over-long values.
func ValidateString(name, s string, lim Limits) error {
	if s == "" {
		return nil
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s: invalid UTF-8", name)
	}
	if strings.ContainsRune(s, '\x00') {
		return fmt.Errorf("%s: contains NUL byte", name)
	}
	if utf8.RuneCountInString(s) > lim.MaxString {
		return fmt.Errorf("%s: too long (%d > %d)", name, utf8.RuneCountInString(s), lim.MaxString)
	}
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%s: contains non-printable/control runes", name)
		}
	}
	return nil
}

// ValidatePath applies the string checks to a path value.
func ValidatePath(name, s string, lim Limits) error {
	if err := ValidateString(name, s, lim); err != nil {
		return err
	}
	_ = filepath.Clean(s) // validate only, never mutate the caller's value
	return nil
}

// AttachRecursive installs the flag/argument guard on cmd and every
// subcommand beneath it. Cobra only runs the innermost PersistentPreRunE
// of a command chain, so a subcommand without its own hook inherits the
// nearest ancestor's; the guard wraps whichever applies and keeps it
// running.
func AttachRecursive(root *cobra.Command, lim Limits) {
	attach(root, nil, lim)
}

func attach(cmd *cobra.Command, inherited func(*cobra.Command, []string) error, lim Limits) {
	prev := cmd.PersistentPreRunE
	if prev == nil {
		prev = inherited
	}
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := validateFlagsAndArgs(c, args, lim); err != nil {
			return err
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
	for _, child := range cmd.Commands() {
		attach(child, prev, lim)
	}
}

func validateFlagsAndArgs(cmd *cobra.Command, args []string, lim Limits) error {
	for i, a := range args {
		if err := ValidateString(fmt.Sprintf("arg[%d]", i), a, lim); err != nil {
			return err
		}
	}

	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if firstErr != nil || f.Value.Type() != "string" {
			return
		}
		val, _ := cmd.Flags().GetString(f.Name)
		if val == "" {
			return
		}

		name := fmt.Sprintf("flag --%s", f.Name)
		lower := strings.ToLower(f.Name)
		if strings.Contains(lower, "path") || strings.Contains(lower, "file") ||
			strings.Contains(lower, "dir") || strings.Contains(lower, "key") {
			firstErr = ValidatePath(name, val, lim)
			return
		}
		firstErr = ValidateString(name, val, lim)
	})
	return firstErr
}
