package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nixvault/pkg/document"
	errs "github.com/matzehuels/nixvault/pkg/errors"
	"github.com/matzehuels/nixvault/pkg/manifest"
	"github.com/matzehuels/nixvault/pkg/record"
)

// inspectCommand creates the inspect command, which prints the document of
// a single package without writing anything.
func (c *CLI) inspectCommand() *cobra.Command {
	opts := &runOptions{}
	var repo, manifestPath string

	cmd := &cobra.Command{
		Use:   "inspect <package>",
		Short: "Print the document of one package",
		Long: `Introspect one package and print its rendered document to stdout.

Metadata is read from --manifest when given; otherwise only the derivation
information is shown.`,
		Example: `  nixvault inspect hello --repo ~/src/nixpkgs
  nixvault inspect python3Packages.requests --repo ~/src/nixpkgs --manifest vault/packages.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			if err := errs.ValidateAttrPath(name); err != nil {
				return err
			}
			cfg, err := opts.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			logger := loggerFromContext(ctx)

			r, err := inspectRecord(name, manifestPath)
			if err != nil {
				return err
			}

			in, closeCache, err := c.newIntrospector(ctx, cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			drv, err := in.Introspect(ctx, name, repo)
			if err != nil {
				return err
			}
			if err := r.Enrich(drv); err != nil {
				return errs.Wrap(errs.ErrCodeMalformedDerivation, err, "%s", name)
			}
			logger.Debug("introspected", "package", name, "id", r.ID(), "deps", len(r.Dependencies))

			_, err = cmd.OutOrStdout().Write(document.Render(r, time.Now()))
			return err
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/nixvault/config.toml)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "introspection timeout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the derivation cache")
	cmd.Flags().StringVar(&repo, "repo", "", "path to the nixpkgs tree")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "packages.json to read metadata from")
	_ = cmd.MarkFlagRequired("repo")

	return cmd
}

// inspectRecord builds the record for name from the manifest, or a bare
// record when no manifest is given.
func inspectRecord(name, manifestPath string) (*record.Record, error) {
	if manifestPath == "" {
		r, _ := record.FromManifest(name, nil)
		return r, nil
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	raw, ok := m.Entry(name)
	if !ok {
		return nil, errs.New(errs.ErrCodeInvalidPackage, "package %s not in %s", name, manifestPath)
	}
	r, _ := record.FromManifest(name, raw)
	return r, nil
}
