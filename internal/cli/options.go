package cli

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/matzehuels/nixvault/pkg/config"
)

// runOptions holds the flags shared by generate and docs. Flag values only
// override the config file when the flag was set explicitly.
type runOptions struct {
	configPath string

	outDir     string
	workers    int
	limit      int
	only       []string
	timeout    time.Duration
	noCache    bool
	statusAddr string
	graph      bool
	graphSVG   bool

	// generate only
	revision      string
	gitURL        string
	forceManifest bool
	yes           bool
}

func (o *runOptions) addRunFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/nixvault/config.toml)")
	fs.StringVarP(&o.outDir, "outdir", "o", config.DefaultOutDir, "vault output directory")
	fs.IntVarP(&o.workers, "workers", "j", 0, "concurrent packages (0 = number of CPUs)")
	fs.IntVar(&o.limit, "limit", 0, "process only the first N packages in name order")
	fs.StringSliceVar(&o.only, "only", nil, "process only these attribute names (comma-separated)")
	fs.DurationVar(&o.timeout, "timeout", config.DefaultIntrospectTimeout, "per-package introspection timeout")
	fs.BoolVar(&o.noCache, "no-cache", false, "disable the derivation cache")
	fs.StringVar(&o.statusAddr, "status-addr", "", "serve run progress over HTTP on this address (e.g. 127.0.0.1:8080)")
	fs.BoolVar(&o.graph, "graph", false, "write the dependency graph to graph.dot")
	fs.BoolVar(&o.graphSVG, "graph-svg", false, "also render the dependency graph to graph.svg")
}

func (o *runOptions) addFetchFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.revision, "revision", "r", config.DefaultRevision, "nixpkgs branch or tag to fetch")
	fs.StringVarP(&o.gitURL, "git-url", "g", config.DefaultGitURL, "nixpkgs git repository")
	fs.BoolVar(&o.forceManifest, "force-manifest", false, "regenerate packages.json even if it exists")
	fs.BoolVarP(&o.yes, "yes", "y", false, "do not ask before writing into an existing output directory")
}

// resolve loads the config file and applies explicitly set flags over it.
func (o *runOptions) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	o.apply(&cfg, fs)
	return cfg, cfg.Validate()
}

func (o *runOptions) apply(cfg *config.Config, fs *pflag.FlagSet) {
	if fs.Changed("outdir") {
		cfg.OutDir = o.outDir
	}
	if fs.Changed("workers") {
		cfg.Workers = o.workers
	}
	if fs.Changed("timeout") {
		cfg.IntrospectTimeout = o.timeout
	}
	if fs.Changed("status-addr") {
		cfg.StatusAddr = o.statusAddr
	}
	if fs.Changed("revision") {
		cfg.Revision = o.revision
	}
	if fs.Changed("git-url") {
		cfg.GitURL = o.gitURL
	}
	if o.noCache {
		cfg.Cache.Enabled = false
	}
}
