package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/nixvault/pkg/depgraph"
	"github.com/matzehuels/nixvault/pkg/document"
	errs "github.com/matzehuels/nixvault/pkg/errors"
	"github.com/matzehuels/nixvault/pkg/introspect"
	"github.com/matzehuels/nixvault/pkg/manifest"
	"github.com/matzehuels/nixvault/pkg/record"
)

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func testManifest(t *testing.T, names ...string) *manifest.Manifest {
	t.Helper()
	var parts []string
	for _, n := range names {
		parts = append(parts, fmt.Sprintf(`%q: {"version": "1.0", "meta": {"available": false}}`, n))
	}
	m, err := manifest.Decode(strings.NewReader(`{"packages": {` + strings.Join(parts, ",") + `}}`))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func drvPath(name string) string {
	return "/nix/store/" + strings.Repeat("0", 32) + "-" + name + ".drv"
}

// stubIntrospector succeeds for every name except those in fail, which
// return err. deps maps a name to the names it depends on.
func stubIntrospector(fail map[string]error, deps map[string][]string) introspect.Introspector {
	return introspect.IntrospectorFunc(func(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
		if err, ok := fail[name]; ok {
			return nil, err
		}
		d := &record.Derivation{Path: drvPath(name), Outputs: []string{"out"}}
		for _, dep := range deps[name] {
			d.InputDrvs = append(d.InputDrvs, drvPath(dep))
		}
		return d, nil
	})
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"valid", Options{RepoPath: "/repo", OutDir: "/out"}, false},
		{"missing repo", Options{OutDir: "/out"}, true},
		{"missing outdir", Options{RepoPath: "/repo"}, true},
		{"negative workers", Options{RepoPath: "/repo", OutDir: "/out", Workers: -1}, true},
		{"negative limit", Options{RepoPath: "/repo", OutDir: "/out", Limit: -1}, true},
		{"invalid only", Options{RepoPath: "/repo", OutDir: "/out", Only: []string{"../x"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errs.Is(err, errs.ErrCodeInvalidInput) && !errs.Is(err, errs.ErrCodeInvalidPackage) {
					t.Errorf("unexpected error code: %v", err)
				}
				return
			}
			if tt.opts.Workers <= 0 || tt.opts.RunID == "" || tt.opts.Progress == nil || tt.opts.Logger == nil || tt.opts.Now == nil {
				t.Errorf("defaults not applied: %+v", tt.opts)
			}
		})
	}
}

func TestOptionsSelect(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	tests := []struct {
		name     string
		opts     Options
		want     []string
		wantMiss []string
	}{
		{"all", Options{}, names, nil},
		{"limit", Options{Limit: 2}, []string{"a", "b"}, nil},
		{"limit larger than set", Options{Limit: 10}, names, nil},
		{"only", Options{Only: []string{"d", "b", "b"}}, []string{"b", "d"}, nil},
		{"only missing", Options{Only: []string{"c", "zz"}}, []string{"c"}, []string{"zz"}},
		{"only and limit", Options{Only: []string{"d", "c", "a"}, Limit: 2}, []string{"a", "c"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, miss := tt.opts.Select(names)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("selected mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantMiss, miss); diff != "" {
				t.Errorf("missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunFailuresAreCountedAndIsolated(t *testing.T) {
	out := t.TempDir()
	names := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	fail := map[string]error{
		"p1": errs.New(errs.ErrCodeIntrospectTimeout, "p1"),
		"p4": errs.New(errs.ErrCodeIntrospectEmpty, "p4"),
		"p6": errs.New(errs.ErrCodeMalformedDerivation, "p6"),
	}

	var logs bytes.Buffer
	logger := log.New(&logs)
	runner := NewRunner(stubIntrospector(fail, nil), nil, logger)

	summary, err := runner.Run(context.Background(), testManifest(t, names...), Options{
		RepoPath: "/repo",
		OutDir:   out,
		Workers:  3,
		Now:      fixedNow,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Total != 8 || summary.Processed != 8 || summary.Written != 5 || summary.Failed != 3 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.IntrospectFailures != 3 || summary.SaveFailures != 0 {
		t.Errorf("unexpected failure split: %+v", summary)
	}
	if summary.Processed != summary.Written+summary.Failed {
		t.Errorf("every package must end in exactly one state: %+v", summary)
	}

	for _, name := range names {
		_, err := os.Stat(filepath.Join(out, document.PackagesDir, record.NormalizeID(drvPath(name))+document.Ext))
		_, failed := fail[name]
		if failed && err == nil {
			t.Errorf("no document should be written for failed package %s", name)
		}
		if !failed && err != nil {
			t.Errorf("document missing for %s: %v", name, err)
		}
	}

	if got := strings.Count(logs.String(), "introspect failed"); got != 3 {
		t.Errorf("logged %d introspect failures, want 3:\n%s", got, logs.String())
	}
	for name := range fail {
		if !strings.Contains(logs.String(), "package="+name) {
			t.Errorf("failure log for %s missing", name)
		}
	}
}

func TestRunDependencyFixture(t *testing.T) {
	out := t.TempDir()
	graph := depgraph.New()
	runner := NewRunner(stubIntrospector(nil, map[string][]string{"b": {"a"}}), nil, nil)
	runner.Graph = graph

	summary, err := runner.Run(context.Background(), testManifest(t, "a", "b", "c"), Options{
		RepoPath: "/repo",
		OutDir:   out,
		Now:      fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Written != 3 {
		t.Fatalf("Written = %d, want 3", summary.Written)
	}

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(out, document.PackagesDir, record.NormalizeID(drvPath(name))+document.Ext))
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	b := read("b")
	aID := record.NormalizeID(drvPath("a"))
	if strings.Count(b, "[[") != 1 || !strings.Contains(b, "- [["+aID+"]]\n") {
		t.Errorf("b should link exactly a (%s):\n%s", aID, b)
	}
	if strings.Contains(read("a"), "## Dependencies") {
		t.Error("a has no dependencies section")
	}
	// Raw available=false renders as available.
	if !strings.Contains(b, "- **Available**: ✅ Yes") {
		t.Errorf("availability not negated:\n%s", b)
	}

	if graph.Len() != 3 || len(graph.Edges()) != 1 {
		t.Errorf("graph has %d nodes and %d edges, want 3 and 1", graph.Len(), len(graph.Edges()))
	}
}

func TestRunIsRepeatable(t *testing.T) {
	out := t.TempDir()
	runner := NewRunner(stubIntrospector(nil, map[string][]string{"b": {"a"}}), nil, nil)
	path := filepath.Join(out, document.PackagesDir, record.NormalizeID(drvPath("b"))+document.Ext)

	var contents []string
	for i := 0; i < 2; i++ {
		if _, err := runner.Run(context.Background(), testManifest(t, "a", "b"), Options{RepoPath: "/repo", OutDir: out, Now: fixedNow}); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		contents = append(contents, string(data))
	}
	if contents[0] != contents[1] {
		t.Error("re-running with unchanged inputs must produce identical documents")
	}
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	const workers = 3
	var active, peak atomic.Int32
	in := introspect.IntrospectorFunc(func(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return &record.Derivation{Path: drvPath(name)}, nil
	})

	names := make([]string, 30)
	for i := range names {
		names[i] = fmt.Sprintf("pkg%02d", i)
	}

	runner := NewRunner(in, nil, nil)
	summary, err := runner.Run(context.Background(), testManifest(t, names...), Options{
		RepoPath: "/repo",
		OutDir:   t.TempDir(),
		Workers:  workers,
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Written != len(names) {
		t.Errorf("Written = %d, want %d", summary.Written, len(names))
	}
	if p := peak.Load(); p > workers {
		t.Errorf("peak concurrency %d exceeds %d workers", p, workers)
	}
}

type failingSaver struct {
	fail map[string]bool
}

func (s failingSaver) Save(r *record.Record, _ time.Time) (string, error) {
	if s.fail[r.Name] {
		return "", errs.New(errs.ErrCodeSaveFailed, "disk full")
	}
	return "/dev/null", nil
}

func TestRunSaveFailures(t *testing.T) {
	var logs bytes.Buffer
	runner := NewRunner(
		stubIntrospector(map[string]error{"a": errs.New(errs.ErrCodeIntrospectFailed, "a")}, nil),
		failingSaver{fail: map[string]bool{"b": true}},
		log.New(&logs),
	)

	summary, err := runner.Run(context.Background(), testManifest(t, "a", "b", "c"), Options{RepoPath: "/repo", OutDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{Total: 3, Processed: 3, Written: 1, Failed: 2, IntrospectFailures: 1, SaveFailures: 1}
	got := *summary
	got.RunID, got.Duration = "", 0
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "save failed") || !strings.Contains(logs.String(), "introspect failed") {
		t.Errorf("failures must be logged with distinct prefixes:\n%s", logs.String())
	}
}

func TestRunDetectsCollisions(t *testing.T) {
	// Two attributes that evaluate to the same derivation.
	in := introspect.IntrospectorFunc(func(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
		return &record.Derivation{Path: drvPath("shared")}, nil
	})

	var logs bytes.Buffer
	runner := NewRunner(in, nil, log.New(&logs))
	summary, err := runner.Run(context.Background(), testManifest(t, "x", "y"), Options{RepoPath: "/repo", OutDir: t.TempDir(), Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Collisions != 1 || summary.Written != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(logs.String(), "collision") {
		t.Errorf("collision not logged:\n%s", logs.String())
	}
}

func TestRunProgress(t *testing.T) {
	var mu sync.Mutex
	var snaps []Snapshot
	progress := NewProgress()

	runner := NewRunner(stubIntrospector(map[string]error{"b": errs.New(errs.ErrCodeIntrospectFailed, "b")}, nil), nil, nil)
	_, err := runner.Run(context.Background(), testManifest(t, "a", "b", "c", "d"), Options{
		RepoPath: "/repo",
		OutDir:   t.TempDir(),
		Workers:  2,
		Progress: progress,
		OnProgress: func(s Snapshot) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(snaps) != 4 {
		t.Fatalf("OnProgress called %d times, want 4", len(snaps))
	}
	for _, s := range snaps {
		if s.Total != 4 || s.Processed > s.Written+s.Failed || s.Processed == 0 {
			t.Errorf("inconsistent snapshot: %+v", s)
		}
	}

	final := progress.Snapshot()
	if final != (Snapshot{Processed: 4, Total: 4, Failed: 1, Written: 3, Finished: true}) || !final.Done() {
		t.Errorf("final snapshot = %+v", final)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	in := introspect.IntrospectorFunc(func(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return &record.Derivation{Path: drvPath(name)}, nil
	})

	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("pkg%02d", i)
	}

	runner := NewRunner(in, nil, nil)
	summary, err := runner.Run(ctx, testManifest(t, names...), Options{RepoPath: "/repo", OutDir: t.TempDir(), Workers: 1})
	if err != context.Canceled {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if summary == nil || summary.Processed >= len(names) {
		t.Errorf("cancellation should stop dispatching: %+v", summary)
	}
	if summary.Processed != summary.Written+summary.Failed {
		t.Errorf("every dispatched package must end in one state: %+v", summary)
	}
}

func TestRunInvalidOptions(t *testing.T) {
	runner := NewRunner(stubIntrospector(nil, nil), nil, nil)
	if _, err := runner.Run(context.Background(), testManifest(t, "a"), Options{}); err == nil {
		t.Error("Run() with empty options should fail")
	}
}

func TestRunEmptySelectionFinishes(t *testing.T) {
	progress := NewProgress()
	runner := NewRunner(stubIntrospector(nil, nil), nil, nil)
	summary, err := runner.Run(context.Background(), testManifest(t, "a"), Options{
		RepoPath: "/repo",
		OutDir:   t.TempDir(),
		Only:     []string{"missing"},
		Progress: progress,
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 0 || summary.Processed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if snap := progress.Snapshot(); !snap.Done() {
		t.Errorf("empty run should report done: %+v", snap)
	}
}

func TestNewRunnerUsesOptionsLogger(t *testing.T) {
	var logs bytes.Buffer
	fail := map[string]error{"a": errs.New(errs.ErrCodeIntrospectFailed, "a")}
	runner := NewRunner(stubIntrospector(fail, nil), nil, nil)

	_, err := runner.Run(context.Background(), testManifest(t, "a"), Options{
		RepoPath: "/repo",
		OutDir:   t.TempDir(),
		Logger:   log.New(&logs),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), "introspect failed") {
		t.Errorf("options logger did not receive run logs:\n%s", logs.String())
	}
}

func TestRunRejectsDerivationOutsideStore(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "vault")
	in := introspect.IntrospectorFunc(func(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
		return introspect.Parse([]byte(`{"/nix/store/../../../escaped.drv": {"outputs": {"out": {}}, "inputDrvs": {}, "inputSrcs": []}}`))
	})
	runner := NewRunner(in, nil, nil)

	summary, err := runner.Run(context.Background(), testManifest(t, "escaped"), Options{RepoPath: "/repo", OutDir: out})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Written != 0 || summary.Failed != 1 || summary.IntrospectFailures != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	packages := filepath.Join(out, document.PackagesDir)
	var outside []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasPrefix(path, packages+string(filepath.Separator)) {
			outside = append(outside, path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(outside) > 0 {
		t.Errorf("files written outside %s: %v", packages, outside)
	}
	if _, err := os.Stat(filepath.Join(packages, "../../../escaped"+document.Ext)); err == nil {
		t.Error("document escaped the output directory")
	}
}
