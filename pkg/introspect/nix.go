package introspect

import (
	"context"
	"errors"
	"time"

	errs "github.com/matzehuels/nixvault/pkg/errors"
	"github.com/matzehuels/nixvault/pkg/nix"
	"github.com/matzehuels/nixvault/pkg/record"
)

// DefaultTimeout bounds a single `nix derivation show` call.
const DefaultTimeout = 30 * time.Second

// NixClient introspects attributes with `nix derivation show`.
type NixClient struct {
	Runner  nix.Runner
	Timeout time.Duration // zero means DefaultTimeout
	Bin     string        // zero means "nix"
}

// NewNixClient creates a NixClient that runs commands through r.
func NewNixClient(r nix.Runner, timeout time.Duration) *NixClient {
	return &NixClient{Runner: r, Timeout: timeout}
}

// Introspect implements Introspector. A cancelled ctx is returned as-is so
// callers can tell an aborted run from a failed package.
func (c *NixClient) Introspect(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
	if err := errs.ValidateAttrPath(name); err != nil {
		return nil, errs.Wrap(errs.ErrCodeIntrospectFailed, err, "%s", name)
	}

	res, err := c.Runner.Run(ctx, c.command(name, repoPath))
	if err != nil {
		switch {
		case errors.Is(err, nix.ErrTimeout):
			return nil, errs.Wrap(errs.ErrCodeIntrospectTimeout, err, "%s", name)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, errs.Wrap(errs.ErrCodeIntrospectFailed, err, "%s", name)
		}
	}
	return Parse(res.Stdout)
}

func (c *NixClient) command(name, repoPath string) nix.Command {
	bin := c.Bin
	if bin == "" {
		bin = "nix"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return nix.Command{
		Name: bin,
		Args: []string{
			"--extra-experimental-features", "nix-command flakes",
			"derivation", "show",
			"-f", repoPath,
			name,
		},
		Timeout: timeout,
	}
}

var _ Introspector = (*NixClient)(nil)
