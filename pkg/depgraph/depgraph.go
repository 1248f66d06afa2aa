// Package depgraph collects the dependency edges of every written document
// and renders them as a Graphviz graph.
//
// Nodes are normalized identifiers, the same strings used as document
// filenames, so the graph can be cross-referenced with the vault. Edges to
// packages that were never written (failed or outside the manifest) are
// kept; those nodes are drawn dashed.
package depgraph

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/nixvault/pkg/record"
)

// Graph is a concurrency-safe set of package nodes and dependency edges.
type Graph struct {
	mu     sync.Mutex
	labels map[string]string          // written node id -> package name
	edges  map[string]map[string]bool // from -> set of to
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		labels: make(map[string]string),
		edges:  make(map[string]map[string]bool),
	}
}

// Add records r as a written package with edges to its dependencies.
func (g *Graph) Add(r *record.Record) {
	g.AddPackage(r.ID(), r.Name, r.DependencyIDs())
}

// AddPackage records node id labelled name with edges to deps. All
// identifiers are normalized.
func (g *Graph) AddPackage(id, name string, deps []string) {
	id = record.NormalizeID(id)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.labels[id] = name
	to := g.edges[id]
	if to == nil {
		to = make(map[string]bool, len(deps))
		g.edges[id] = to
	}
	for _, d := range deps {
		to[record.NormalizeID(d)] = true
	}
}

// Len returns the number of written packages.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.labels)
}

// Edge is a dependency edge between two normalized identifiers.
type Edge struct {
	From, To string
}

// Edges returns all edges sorted by (From, To).
func (g *Graph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Edge
	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		for _, to := range slices.Sorted(maps.Keys(g.edges[from])) {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// ToDOT converts the graph to Graphviz DOT format. Output is sorted and
// therefore stable across runs regardless of insertion order.
func (g *Graph) ToDOT() string {
	g.mu.Lock()
	nodes := make(map[string]bool, len(g.labels))
	for id := range g.labels {
		nodes[id] = true
	}
	for _, to := range g.edges {
		for id := range to {
			nodes[id] = true
		}
	}
	labels := maps.Clone(g.labels)
	g.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteString("digraph nixpkgs {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		if name, ok := labels[id]; ok {
			fmt.Fprintf(&buf, "  %q [label=%q, tooltip=%q];\n", id, name, id)
		} else {
			fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,dashed\"];\n", id, id)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
