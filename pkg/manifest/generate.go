package manifest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	errs "github.com/matzehuels/nixvault/pkg/errors"
	"github.com/matzehuels/nixvault/pkg/nix"
)

// DefaultTimeout bounds the nix-env evaluation of the whole package set.
const DefaultTimeout = 30 * time.Minute

// Path returns the manifest location inside outDir.
func Path(outDir string) string {
	return filepath.Join(outDir, FileName)
}

// Generate writes the manifest for the tree at repoPath to
// <outDir>/packages.json using nix-env. An existing manifest is kept unless
// force is set; the returned bool reports whether nix-env ran.
func Generate(ctx context.Context, r nix.Runner, repoPath, outDir string, force bool, timeout time.Duration) (string, bool, error) {
	path := Path(outDir)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, false, nil
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res, err := r.Run(ctx, nix.Command{
		Name:    "nix-env",
		Args:    []string{"-f", repoPath, "-qaP", "--json", "--meta"},
		Timeout: timeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, errs.Wrap(errs.ErrCodeManifestFailed, err, "nix-env failed")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", false, errs.Wrap(errs.ErrCodeManifestFailed, err, "create %s", outDir)
	}
	if err := writeFileAtomic(path, res.Stdout); err != nil {
		return "", false, errs.Wrap(errs.ErrCodeManifestFailed, err, "write %s", path)
	}
	return path, true, nil
}

// writeFileAtomic writes data next to path and renames it into place, so an
// interrupted run never leaves a truncated manifest that later runs would
// skip regeneration for.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".packages-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
