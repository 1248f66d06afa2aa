// Package cli implements the nixvault command-line interface.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nixvault/pkg/buildinfo"
	"github.com/matzehuels/nixvault/pkg/cache"
	"github.com/matzehuels/nixvault/pkg/config"
	"github.com/matzehuels/nixvault/pkg/introspect"
	"github.com/matzehuels/nixvault/pkg/nix"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	// statusShutdownTimeout bounds the status server drain after a run.
	statusShutdownTimeout = 2 * time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Runner executes nix commands. Tests replace it with a fake.
	Runner nix.Runner
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	logger := newLogger(w, level)
	return &CLI{
		Logger: logger,
		Runner: nix.NewExecRunner(logger),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// Running the root command without a subcommand performs "generate".
func (c *CLI) RootCommand() *cobra.Command {
	opts := &runOptions{}
	root := &cobra.Command{
		Use:   "nixvault",
		Short: "nixvault builds a markdown knowledge base from nixpkgs",
		Long: `nixvault fetches a pinned nixpkgs revision, evaluates every package's
derivation and writes one cross-linked markdown note per package, ready to
open as an Obsidian-style vault.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), cmd, opts)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	opts.addRunFlags(root.Flags())
	opts.addFetchFlags(root.Flags())

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.docsCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Introspector Factory
// =============================================================================

// newIntrospector creates the nix introspector, wrapped in the configured
// cache unless noCache is set. The returned close func releases the cache.
func (c *CLI) newIntrospector(ctx context.Context, cfg config.Config, noCache bool) (introspect.Introspector, func() error, error) {
	client := introspect.NewNixClient(c.Runner, cfg.IntrospectTimeout)
	if noCache || !cfg.Cache.Enabled {
		return client, func() error { return nil }, nil
	}

	store, err := newCache(ctx, cfg, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	var keyer cache.Keyer = cache.NewDefaultKeyer()
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Cache.Prefix)
	}
	return introspect.NewCachingIntrospector(client, store, keyer, cfg.Cache.TTL, c.Logger), store.Close, nil
}

// newCache selects Redis when a URL is configured, else the file cache.
// A file cache that cannot be created degrades to no caching.
func newCache(ctx context.Context, cfg config.Config, logger *log.Logger) (cache.Cache, error) {
	if cfg.Cache.RedisURL != "" {
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		logger.Warn("cache disabled", "dir", dir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}
