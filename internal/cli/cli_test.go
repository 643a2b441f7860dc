// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckeychain.
//
// go-seckeychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.
package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so executions don't leak
// into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI against a file backend under /data.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--backend", "file", "--data-dir", "/data", "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLI_SaveLoadDelete(t *testing.T) {
	useMemFs(t)

	mustRun(t, "save", "note", "hello", "--account", "alice")
	if out := mustRun(t, "load", "note", "--account", "alice"); out != "hello\n" {
		t.Errorf("load = %q, want %q", out, "hello\n")
	}

	if _, err := run(t, "save", "note", "again", "--account", "alice"); err == nil {
		t.Error("expected duplicate save to fail")
	}
	mustRun(t, "save", "note", "again", "--account", "alice", "--update")
	if out := mustRun(t, "load", "note", "--account", "alice"); out != "again\n" {
		t.Errorf("load = %q, want %q", out, "again\n")
	}

	out := mustRun(t, "list")
	if !strings.Contains(out, "note") || !strings.Contains(out, "alice") {
		t.Errorf("list output missing item: %q", out)
	}

	mustRun(t, "delete", "note", "--account", "alice")
	if _, err := run(t, "load", "note", "--account", "alice"); err == nil {
		t.Error("expected load of deleted item to fail")
	}
}

func TestCLI_EncryptChangeDecrypt(t *testing.T) {
	useMemFs(t)

	mustRun(t, "generate", "prv", "pub", "--password", "000000")
	mustRun(t, "encrypt", "secret", "launch codes", "--key", "pub")

	out := mustRun(t, "decrypt", "secret", "--key", "prv", "--password", "000000")
	if out != "launch codes\n" {
		t.Errorf("decrypt = %q, want %q", out, "launch codes\n")
	}

	mustRun(t, "change", "secret", "--private", "prv", "--public", "pub",
		"--old-password", "000000", "--new-password", "111111")

	if _, err := run(t, "decrypt", "secret", "--key", "prv", "--password", "000000"); err == nil {
		t.Error("expected old password to be rejected after change")
	}
	out = mustRun(t, "decrypt", "secret", "--key", "prv", "--password", "111111")
	if out != "launch codes\n" {
		t.Errorf("decrypt = %q, want %q", out, "launch codes\n")
	}

	mustRun(t, "discard-backup", "secret", "--private", "prv", "--public", "pub")
	out = mustRun(t, "list", "--keys")
	if strings.Contains(out, "prv-change") {
		t.Errorf("backup keys still listed: %q", out)
	}
}

func TestCLI_Verify(t *testing.T) {
	useMemFs(t)

	out := mustRun(t, "verify", "--password", "000000")
	if !strings.Contains(out, "Secure element verified") {
		t.Errorf("verify output = %q", out)
	}
	if out := mustRun(t, "list", "--keys"); !strings.Contains(out, "No items found") {
		t.Errorf("verify left keys behind: %q", out)
	}
}

func TestCLI_ResetRequiresConfirmation(t *testing.T) {
	useMemFs(t)

	mustRun(t, "save", "note", "hello")
	if _, err := run(t, "reset"); err == nil {
		t.Error("expected reset without --yes to fail")
	}
	mustRun(t, "reset", "--yes")
	if out := mustRun(t, "list"); !strings.Contains(out, "No items found") {
		t.Errorf("reset left items behind: %q", out)
	}
}

func TestCLI_Version(t *testing.T) {
	out := mustRun(t, "version")
	for _, want := range []string{"seckeychain dev", "memory, file", "ecies-cofactor-x963-sha256-aesgcm"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q: %q", want, out)
		}
	}
}
