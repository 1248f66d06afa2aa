package nix

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	errs "github.com/matzehuels/nixvault/pkg/errors"
)

// DefaultFetchTimeout bounds the fetchGit evaluation. Cloning nixpkgs on a
// slow link takes several minutes.
const DefaultFetchTimeout = 30 * time.Minute

// FetchTree fetches revision of the git repository at gitURL into the store
// with builtins.fetchGit and returns the resulting store path.
func FetchTree(ctx context.Context, r Runner, gitURL, revision string, timeout time.Duration) (string, error) {
	if err := errs.ValidateGitURL(gitURL); err != nil {
		return "", err
	}
	if err := errs.ValidateRevision(revision); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	expr := fmt.Sprintf(`builtins.fetchGit { url = "%s"; ref = "%s"; }`, gitURL, revision)
	res, err := r.Run(ctx, Command{
		Name:    "nix-instantiate",
		Args:    []string{"--eval", "--json", "--expr", expr},
		Timeout: timeout,
	})
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeFetchFailed, err, "nix-instantiate failed")
	}

	path, err := parseStorePath(res.Stdout)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeFetchFailed, err, "unexpected nix-instantiate output")
	}
	return path, nil
}

// parseStorePath decodes the JSON string printed by nix-instantiate --json.
func parseStorePath(out []byte) (string, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return "", fmt.Errorf("empty output")
	}
	var path string
	if err := json.Unmarshal([]byte(trimmed), &path); err != nil {
		// Older nix versions print the bare path.
		path = strings.Trim(trimmed, `"`)
	}
	if path == "" {
		return "", fmt.Errorf("empty store path")
	}
	return path, nil
}

// ValidateTree checks that path looks like a nixpkgs checkout.
func ValidateTree(path string) error {
	info, err := os.Stat(filepath.Join(path, "pkgs"))
	if err != nil || !info.IsDir() {
		return errs.New(errs.ErrCodeInvalidTree, "invalid nixpkgs repository: %s", path)
	}
	return nil
}

// TreeURL returns the web URL of revision for display.
func TreeURL(gitURL, revision string) string {
	return fmt.Sprintf("%s/tree/%s", strings.TrimSuffix(gitURL, ".git"), revision)
}
