package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nixvault/pkg/manifest"
	"github.com/matzehuels/nixvault/pkg/nix"
)

// generateCommand creates the generate command, which is also what the root
// command runs.
func (c *CLI) generateCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fetch nixpkgs and build the vault",
		Long: `Fetch a nixpkgs revision, list its packages with nix-env and write one
markdown document per package into <outdir>/packages.

An existing packages.json in the output directory is reused unless
--force-manifest is given.`,
		Example: `  nixvault generate -o vault
  nixvault generate -r nixos-24.05 --limit 100
  nixvault generate --only hello,jq --graph`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), cmd, opts)
		},
	}
	opts.addRunFlags(cmd.Flags())
	opts.addFetchFlags(cmd.Flags())
	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	cfg, err := opts.resolve(cmd.Flags())
	if err != nil {
		return err
	}
	logger := loggerFromContext(ctx)

	printInfo("Fetching %s", StyleLink.Render(nix.TreeURL(cfg.GitURL, cfg.Revision)))
	spinner := newSpinner(ctx, "Fetching nixpkgs tree...")
	spinner.Start()
	repo, err := nix.FetchTree(ctx, c.Runner, cfg.GitURL, cfg.Revision, cfg.FetchTimeout)
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return err
	}
	spinner.StopWithSuccess("Fetched %s", repo)

	if err := nix.ValidateTree(repo); err != nil {
		return err
	}

	if !opts.yes {
		ok, err := confirmOutDir(ctx, cfg.OutDir)
		if err != nil {
			return err
		}
		if !ok {
			printWarning("Aborted, nothing written")
			return nil
		}
	}

	spinner = newSpinner(ctx, "Generating package manifest (nix-env)...")
	spinner.Start()
	path, ran, err := manifest.Generate(ctx, c.Runner, repo, cfg.OutDir, opts.forceManifest, cfg.ManifestTimeout)
	if err != nil {
		spinner.StopWithError("Manifest generation failed")
		return err
	}
	if ran {
		spinner.StopWithSuccess("Generated %s", path)
	} else {
		spinner.Stop()
		printInfo("Using existing %s", path)
		logger.Debug("manifest exists, skipping nix-env", "path", path)
	}

	return c.runVault(ctx, cfg, opts, repo, path)
}

// confirmOutDir asks before writing into an existing output directory. It
// proceeds without asking when the directory is new or stdin is not a
// terminal.
func confirmOutDir(ctx context.Context, outDir string) (bool, error) {
	if _, err := os.Stat(outDir); errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if !isInteractive() {
		loggerFromContext(ctx).Debug("stdin is not a terminal, not prompting", "outdir", outDir)
		return true, nil
	}
	return promptConfirm(ctx, "Output directory "+StyleValue.Render(outDir)+" exists. Update it?")
}
