package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestValidateString(t *testing.T) {
	lim := DefaultLimits()
	cases := []struct {
		name  string
		value string
		ok    bool
	}{
		{"empty", "", true},
		{"plain", "firmware-1.2.0", true},
		{"with tab and newline", "a\tb\nc", true},
		{"NUL byte", "a\x00b", false},
		{"invalid UTF-8", string([]byte{0xff, 0xfe}), false},
		{"control rune", "a\x1bb", false},
		{"too long", strings.Repeat("x", lim.MaxString+1), false},
	}
	for _, c := range cases {
		err := ValidateString("value", c.value, lim)
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestCheckSymlinkReject(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(real, []byte("data"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := CheckSymlink(real, RejectSymlinks); err != nil {
		t.Errorf("regular file rejected: %v", err)
	}
	if _, err := CheckSymlink(link, RejectSymlinks); err == nil {
		t.Errorf("symlink accepted under RejectSymlinks")
	}
	if _, err := CheckSymlink(link, ResolveSymlinks); err != nil {
		t.Errorf("symlink rejected under ResolveSymlinks: %v", err)
	}
}

func TestSafeReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if err := SafeWriteFile(path, []byte("content"), 0o644, RejectSymlinks); err != nil {
		t.Fatalf("writing: %v", err)
	}
	data, err := SafeReadFile(path, RejectSymlinks)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("content mismatch: %s", data)
	}
}

func TestSafeReadFileRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(real, []byte("data"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := SafeReadFile(link, RejectSymlinks); err == nil {
		t.Errorf("expected the symlinked file to be rejected")
	}
}

func TestAttachRecursiveRejectsBadFlag(t *testing.T) {
	var value string
	ran := false
	cmd := &cobra.Command{
		Use:  "root",
		RunE: func(*cobra.Command, []string) error { ran = true; return nil },
	}
	cmd.Flags().StringVar(&value, "name", "", "")
	AttachRecursive(cmd, DefaultLimits())

	cmd.SetArgs([]string{"--name", "bad\x00value"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected the NUL-containing flag to be rejected")
	}
	if ran {
		t.Errorf("command ran despite the rejected flag")
	}
}

func TestAttachRecursiveAllowsCleanInput(t *testing.T) {
	var value string
	ran := false
	cmd := &cobra.Command{
		Use:  "root",
		RunE: func(*cobra.Command, []string) error { ran = true; return nil },
	}
	cmd.Flags().StringVar(&value, "name", "", "")
	AttachRecursive(cmd, DefaultLimits())

	cmd.SetArgs([]string{"--name", "fine"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("clean input rejected: %v", err)
	}
	if !ran {
		t.Errorf("command did not run")
	}
}

func TestAttachRecursiveInheritsParentHook(t *testing.T) {
	rootHookRan := false
	ran := false
	root := &cobra.Command{Use: "root"}
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		rootHookRan = true
		return nil
	}
	sub := &cobra.Command{
		Use:  "sub",
		RunE: func(*cobra.Command, []string) error { ran = true; return nil },
	}
	root.AddCommand(sub)
	AttachRecursive(root, DefaultLimits())

	root.SetArgs([]string{"sub"})
	if err := root.Execute(); err != nil {
		t.Fatalf("executing subcommand: %v", err)
	}
	if !ran {
		t.Errorf("subcommand did not run")
	}
	// Cobra only runs the innermost PersistentPreRunE, so the guard must
	// carry the root's hook down to hookless subcommands.
	if !rootHookRan {
		t.Errorf("root PersistentPreRunE did not run for the subcommand")
	}
}

func TestAttachRecursiveCoversSubcommands(t *testing.T) {
	ran := false
	root := &cobra.Command{Use: "root"}
	var flag string
	sub := &cobra.Command{
		Use:  "sub",
		RunE: func(*cobra.Command, []string) error { ran = true; return nil },
	}
	sub.Flags().StringVar(&flag, "path", "", "")
	root.AddCommand(sub)
	AttachRecursive(root, DefaultLimits())

	root.SetArgs([]string{"sub", "--path", "ok\x00"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected the subcommand flag to be rejected")
	}
	if ran {
		t.Errorf("subcommand ran despite the rejected flag")
	}
}
