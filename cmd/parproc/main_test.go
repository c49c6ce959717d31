package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/azargarov/parproc"
	"github.com/azargarov/parproc/internal/blobjob"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), exitCode(err)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeSource(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestDownloadCommand(t *testing.T) {
	files := map[string]string{
		"2026/01/a.log": "alpha",
		"2026/01/b.log": "bravo",
		"2026/02/c.log": "charlie",
		"other/d.log":   "delta",
	}
	src := writeSource(t, files)
	dest := filepath.Join(t.TempDir(), "out")

	args := []string{
		"--log-format", "json",
		"download",
		"--bucket", "file://" + filepath.ToSlash(src),
		"--prefix", "2026/",
		"--dest", dest,
		"--workers", "2",
		"--report-interval", "10ms",
	}
	stdout, stderr, code := runCLI(t, args...)
	if code != ExitSuccess {
		t.Fatalf("exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	requireContains(t, stdout, "Completed")
	requireContains(t, stdout, "Attempt duration")
	requireContains(t, stderr, `"run_id"`)
	requireContains(t, stderr, "Done.")
	requireContains(t, stderr, `"msg":"Downloaded object"`)
	requireContains(t, stderr, `"key":"2026/01/a.log"`)

	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
		if strings.HasPrefix(name, "other/") {
			if err == nil {
				t.Errorf("%s outside prefix was downloaded", name)
			}
			continue
		}
		if err != nil || string(got) != want {
			t.Errorf("%s = %q, %v; want %q", name, got, err, want)
		}
	}

	// second run finds everything in place
	stdout, _, code = runCLI(t, args...)
	if code != ExitSuccess {
		t.Fatalf("second run exit code %d", code)
	}
	requireContains(t, stdout, "Skipped (existing)")
}

func TestDownloadHonorsLogLevel(t *testing.T) {
	src := writeSource(t, map[string]string{"a.log": "alpha"})
	_, stderr, code := runCLI(t,
		"--log-format", "json",
		"--log-level", "error",
		"download",
		"--bucket", "file://"+filepath.ToSlash(src),
		"--dest", filepath.Join(t.TempDir(), "out"),
	)
	if code != ExitSuccess {
		t.Fatalf("exit code %d\nstderr:\n%s", code, stderr)
	}
	if strings.Contains(stderr, "Downloaded object") || strings.Contains(stderr, "Loaded object list") {
		t.Fatalf("info entries leaked past the error level:\n%s", stderr)
	}
}

func TestDownloadRequiresBucketAndDest(t *testing.T) {
	_, _, code := runCLI(t, "download", "--dest", t.TempDir())
	if code != ExitInvalidArgs {
		t.Fatalf("exit code %d; want %d", code, ExitInvalidArgs)
	}
	_, _, code = runCLI(t, "download", "--bucket", "mem://")
	if code != ExitInvalidArgs {
		t.Fatalf("exit code %d; want %d", code, ExitInvalidArgs)
	}
}

func TestDownloadEmptyBucket(t *testing.T) {
	stdout, stderr, code := runCLI(t, "--log-format", "json", "download", "--bucket", "mem://", "--dest", t.TempDir())
	if code != ExitSuccess {
		t.Fatalf("exit code %d\nstderr:\n%s", code, stderr)
	}
	if strings.Contains(stdout, "Attempt duration") {
		t.Fatalf("empty run printed a duration table:\n%s", stdout)
	}
}

func TestConfigShowAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parproc.yaml")
	content := "workers: 3\nretry:\n  max_attempts: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, code := runCLI(t, "--config", path, "config", "show", "--format", "json")
	if code != ExitSuccess {
		t.Fatalf("config show exit code %d", code)
	}
	requireContains(t, out, `"workers": 3`)
	requireContains(t, out, `"max_attempts": 4`)

	out, _, code = runCLI(t, "--config", path, "config", "validate")
	if code != ExitSuccess {
		t.Fatalf("config validate exit code %d", code)
	}
	requireContains(t, out, "Configuration valid")

	if _, _, code = runCLI(t, "--config", path, "config", "validate", "--download"); code != ExitInvalidArgs {
		t.Fatalf("validate --download without bucket: exit code %d; want %d", code, ExitInvalidArgs)
	}
	if _, _, code = runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config", "show"); code != ExitInvalidArgs {
		t.Fatalf("missing config: exit code %d; want %d", code, ExitInvalidArgs)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{usageError{errors.New("bad flag")}, ExitInvalidArgs},
		{fmt.Errorf("%w: %w", parproc.ErrMonitorInterrupted, context.Canceled), ExitInterrupted},
		{&parproc.ItemError{Item: "x", Attempts: 3, Err: errors.New("boom")}, ExitItemsFailed},
		{fmt.Errorf("%w: denied", parproc.ErrWorkList), ExitStorageError},
		{fmt.Errorf("%w: /tmp/x", blobjob.ErrDestLocked), ExitStorageError},
		{errors.New("other"), ExitGeneralError},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d; want %d", tt.err, got, tt.want)
		}
	}
}
