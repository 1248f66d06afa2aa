package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnRunStart(ctx, "run-1", 3)
	p.OnPackageStart(ctx, "hello")
	p.OnPackageComplete(ctx, "hello", time.Second, nil)
	p.OnPackageComplete(ctx, "broken", time.Second, errors.New("timeout"))
	p.OnRunComplete(ctx, "run-1", 3, 1, time.Minute)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "derivation")
	c.OnCacheMiss(ctx, "derivation")
	c.OnCacheSet(ctx, "derivation", 1024)

	// Command hooks
	NoopCommandHooks{}.OnCommand(ctx, "nix", time.Second, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Command().(NoopCommandHooks); !ok {
		t.Error("Command() should return NoopCommandHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customCommand := &testCommandHooks{}
	SetCommandHooks(customCommand)
	if Command() != customCommand {
		t.Error("SetCommandHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Command().(NoopCommandHooks); !ok {
		t.Error("Reset() should restore NoopCommandHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testCommandHooks struct{ NoopCommandHooks }
