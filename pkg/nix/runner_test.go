package nix

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/nixvault/pkg/errors"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "printf hello; printf oops >&2"},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if string(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
	if string(res.Stderr) != "oops" {
		t.Errorf("Stderr = %q, want oops", res.Stderr)
	}
}

func TestExecRunnerExitCode(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)

	_, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo 'evaluating' >&2; echo 'error: attribute missing' >&2; exit 3"},
	})
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", cmdErr.ExitCode)
	}
	if !strings.Contains(cmdErr.Error(), "error: attribute missing") {
		t.Errorf("Error() = %q, should contain the nix error line", cmdErr.Error())
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)

	start := time.Now()
	_, err := r.Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := NewExecRunner(nil)
	_, err := r.Run(context.Background(), Command{Name: "nixvault-definitely-not-a-binary"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		t.Error("missing binary should not be reported as an exit status")
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"error: boom", "error: boom"},
		{"warning: x\n  error: attribute 'foo' missing\n  at /x.nix:1:1", "error: attribute 'foo' missing"},
		{"first\nlast\n", "last"},
	}
	for _, tt := range tests {
		if got := summary(tt.in); got != tt.want {
			t.Errorf("summary(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFetchTree(t *testing.T) {
	var got Command
	r := RunnerFunc(func(ctx context.Context, cmd Command) (Result, error) {
		got = cmd
		return Result{Stdout: []byte("\"/nix/store/abc-source\"\n")}, nil
	})

	path, err := FetchTree(context.Background(), r, "https://github.com/NixOS/nixpkgs.git", "nixos-unstable", 0)
	if err != nil {
		t.Fatalf("FetchTree() error: %v", err)
	}
	if path != "/nix/store/abc-source" {
		t.Errorf("path = %q", path)
	}
	if got.Name != "nix-instantiate" {
		t.Errorf("command = %q, want nix-instantiate", got.Name)
	}
	wantExpr := `builtins.fetchGit { url = "https://github.com/NixOS/nixpkgs.git"; ref = "nixos-unstable"; }`
	if got.Args[len(got.Args)-1] != wantExpr {
		t.Errorf("expr = %q, want %q", got.Args[len(got.Args)-1], wantExpr)
	}
	if got.Timeout != DefaultFetchTimeout {
		t.Errorf("Timeout = %v, want default", got.Timeout)
	}
}

func TestFetchTreeErrors(t *testing.T) {
	failing := RunnerFunc(func(ctx context.Context, cmd Command) (Result, error) {
		return Result{}, &CommandError{Command: cmd.Name, ExitCode: 1}
	})
	if _, err := FetchTree(context.Background(), failing, "https://example.com/x.git", "main", 0); !errs.Is(err, errs.ErrCodeFetchFailed) {
		t.Errorf("runner failure: got %v, want FETCH_FAILED", err)
	}

	empty := RunnerFunc(func(ctx context.Context, cmd Command) (Result, error) {
		return Result{Stdout: []byte("  \n")}, nil
	})
	if _, err := FetchTree(context.Background(), empty, "https://example.com/x.git", "main", 0); !errs.Is(err, errs.ErrCodeFetchFailed) {
		t.Errorf("empty output: got %v, want FETCH_FAILED", err)
	}

	never := RunnerFunc(func(ctx context.Context, cmd Command) (Result, error) {
		t.Fatal("runner must not be called for invalid input")
		return Result{}, nil
	})
	if _, err := FetchTree(context.Background(), never, `https://x"; evil`, "main", 0); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("invalid url: got %v, want INVALID_INPUT", err)
	}
}

func TestValidateTree(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateTree(dir); !errs.Is(err, errs.ErrCodeInvalidTree) {
		t.Errorf("empty dir: got %v, want INVALID_TREE", err)
	}

	if err := os.Mkdir(filepath.Join(dir, "pkgs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ValidateTree(dir); err != nil {
		t.Errorf("valid tree: %v", err)
	}
}

func TestTreeURL(t *testing.T) {
	got := TreeURL("https://github.com/NixOS/nixpkgs.git", "nixos-unstable")
	want := "https://github.com/NixOS/nixpkgs/tree/nixos-unstable"
	if got != want {
		t.Errorf("TreeURL() = %q, want %q", got, want)
	}
}
