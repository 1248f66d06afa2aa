package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nixvault/pkg/config"
	"github.com/matzehuels/nixvault/pkg/depgraph"
	"github.com/matzehuels/nixvault/pkg/manifest"
	"github.com/matzehuels/nixvault/pkg/nix"
	"github.com/matzehuels/nixvault/pkg/pipeline"
	"github.com/matzehuels/nixvault/pkg/status"
)

// Graph output file names, relative to the output directory.
const (
	graphDOTFile = "graph.dot"
	graphSVGFile = "graph.svg"
)

// docsCommand creates the docs command, which runs the document pipeline
// against a tree and manifest that already exist.
func (c *CLI) docsCommand() *cobra.Command {
	opts := &runOptions{}
	var repo, manifestPath string

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Write documents from an existing tree and packages.json",
		Long: `Introspect every package listed in a packages.json and write its
document, without fetching nixpkgs or running nix-env.

The manifest defaults to <outdir>/packages.json.`,
		Example: `  nixvault docs --repo /nix/store/...-source -o vault
  nixvault docs --repo ~/src/nixpkgs --manifest packages.json --only hello`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := opts.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if err := nix.ValidateTree(repo); err != nil {
				return err
			}
			if manifestPath == "" {
				manifestPath = manifest.Path(cfg.OutDir)
			}
			return c.runVault(ctx, cfg, opts, repo, manifestPath)
		},
	}

	opts.addRunFlags(cmd.Flags())
	cmd.Flags().StringVar(&repo, "repo", "", "path to the nixpkgs tree")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "packages.json to read (default <outdir>/packages.json)")
	_ = cmd.MarkFlagRequired("repo")

	return cmd
}

// runVault loads the manifest and runs the pipeline with progress output,
// the optional status server and graph output.
func (c *CLI) runVault(ctx context.Context, cfg config.Config, opts *runOptions, repo, manifestPath string) error {
	logger := loggerFromContext(ctx)

	prog := newProgress(logger)
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded manifest with %d packages", m.Len()))

	in, closeCache, err := c.newIntrospector(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Debug("close cache", "err", err)
		}
	}()

	runner := pipeline.NewRunner(in, nil, logger)
	if opts.graph || opts.graphSVG {
		runner.Graph = depgraph.New()
	}

	bar := newBarReporter(os.Stderr)
	popts := pipeline.Options{
		RepoPath:   repo,
		OutDir:     cfg.OutDir,
		Workers:    cfg.Workers,
		Limit:      opts.limit,
		Only:       opts.only,
		Logger:     logger,
		OnProgress: bar.update,
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		srv := status.NewServer(popts.RunID, popts.Progress, logger)
		if err := srv.Start(cfg.StatusAddr); err != nil {
			return err
		}
		printInfo("Status at %s", StyleLink.Render("http://"+srv.Addr()+"/status"))
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Debug("status server shutdown", "err", err)
			}
		}()
	}

	summary, err := runner.Run(ctx, m, popts)
	bar.finish()
	if err != nil {
		if summary != nil {
			printSummary(summary, cfg.OutDir)
		}
		return err
	}

	if runner.Graph != nil {
		if err := writeGraph(ctx, runner.Graph, cfg.OutDir, opts.graphSVG); err != nil {
			return err
		}
	}

	printSummary(summary, cfg.OutDir)
	return nil
}

// writeGraph writes graph.dot, and graph.svg when svg is set, into outDir.
func writeGraph(ctx context.Context, g *depgraph.Graph, outDir string, svg bool) error {
	dot := g.ToDOT()
	dotPath := filepath.Join(outDir, graphDOTFile)
	if err := os.WriteFile(dotPath, []byte(dot), 0644); err != nil {
		return fmt.Errorf("write %s: %w", dotPath, err)
	}
	printFile(dotPath)

	if !svg {
		return nil
	}
	data, err := depgraph.RenderSVG(ctx, dot)
	if err != nil {
		return fmt.Errorf("render graph: %w", err)
	}
	svgPath := filepath.Join(outDir, graphSVGFile)
	if err := os.WriteFile(svgPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", svgPath, err)
	}
	printFile(svgPath)
	return nil
}
