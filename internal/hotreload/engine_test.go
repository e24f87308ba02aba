package hotreload_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fizz-lang/fizz/internal/hotreload"
	"github.com/fizz-lang/fizz/internal/vm"
)

// countingCompile fails for any source containing "boom" and counts
// invocations otherwise.
type countingCompile struct {
	calls int
}

func (c *countingCompile) compile(source string) (*vm.Chunk, error) {
	if strings.Contains(source, "boom") {
		return nil, errors.New("compile failed: boom")
	}
	c.calls++
	return vm.NewChunk(), nil
}

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func newEngine(t *testing.T, content string) (*hotreload.Engine, *countingCompile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.fz")
	writeSource(t, path, content)

	cc := &countingCompile{}
	engine, err := hotreload.New(path, cc.compile)
	if err != nil {
		t.Fatalf("starting engine: %v", err)
	}
	t.Cleanup(engine.Stop)
	return engine, cc, path
}

func TestReloadSuccess(t *testing.T) {
	engine, cc, _ := newEngine(t, "1 + 1")

	if engine.CurrentChunk() != nil {
		t.Fatal("expected no chunk before the first reload")
	}
	if engine.Generation() != uuid.Nil {
		t.Fatal("expected the nil generation before the first reload")
	}

	stats := engine.Reload()
	if !stats.Success {
		t.Fatalf("reload failed: %s", stats.ErrorMessage)
	}
	if stats.SourceSize != len("1 + 1") {
		t.Errorf("expected source size %d, got %d", len("1 + 1"), stats.SourceSize)
	}
	if stats.Generation == uuid.Nil {
		t.Error("expected a fresh generation")
	}
	if engine.CurrentChunk() == nil {
		t.Error("expected a current chunk after a successful reload")
	}
	if engine.Generation() != stats.Generation {
		t.Error("engine generation does not match the reported one")
	}
	if cc.calls != 1 {
		t.Errorf("expected one compile, got %d", cc.calls)
	}
}

func TestReloadKeepsPreviousChunkOnFailure(t *testing.T) {
	engine, _, path := newEngine(t, "1 + 1")

	if stats := engine.Reload(); !stats.Success {
		t.Fatalf("initial reload failed: %s", stats.ErrorMessage)
	}
	chunk := engine.CurrentChunk()
	gen := engine.Generation()

	writeSource(t, path, "boom")
	stats := engine.Reload()
	if stats.Success {
		t.Fatal("expected the reload to fail")
	}
	if stats.ErrorMessage == "" {
		t.Error("expected an error message")
	}
	if engine.CurrentChunk() != chunk {
		t.Error("failed reload replaced the current chunk")
	}
	if engine.Generation() != gen {
		t.Error("failed reload changed the generation")
	}

	// A later good save recovers.
	writeSource(t, path, "2 + 2")
	stats = engine.Reload()
	if !stats.Success {
		t.Fatalf("recovery reload failed: %s", stats.ErrorMessage)
	}
	if engine.Generation() == gen {
		t.Error("expected a new generation after recovery")
	}
}

func TestReloadMissingFile(t *testing.T) {
	engine, _, path := newEngine(t, "1 + 1")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	stats := engine.Reload()
	if stats.Success {
		t.Fatal("expected the reload to fail for a missing file")
	}
	if stats.ErrorMessage == "" {
		t.Error("expected an error message")
	}
}

func TestGenerationChangesEveryReload(t *testing.T) {
	engine, _, _ := newEngine(t, "1 + 1")

	a := engine.Reload()
	b := engine.Reload()
	if !a.Success || !b.Success {
		t.Fatal("expected both reloads to succeed")
	}
	if a.Generation == b.Generation {
		t.Error("expected distinct generations for distinct reloads")
	}
}

func TestWaitForChangeSeesWrite(t *testing.T) {
	engine, _, path := newEngine(t, "1 + 1")

	go func() {
		time.Sleep(50 * time.Millisecond)
		writeSource(t, path, "2 + 2")
	}()

	if !engine.WaitForChange(5 * time.Second) {
		t.Fatal("expected a change notification for the write")
	}
}

func TestWaitForChangeIgnoresSiblings(t *testing.T) {
	engine, _, path := newEngine(t, "1 + 1")

	writeSource(t, filepath.Join(filepath.Dir(path), "other.fz"), "3")
	if engine.WaitForChange(200 * time.Millisecond) {
		t.Error("expected writes to sibling files to be filtered out")
	}
}

func TestWaitForChangeTimesOut(t *testing.T) {
	engine, _, _ := newEngine(t, "1 + 1")

	start := time.Now()
	if engine.WaitForChange(50 * time.Millisecond) {
		t.Fatal("expected a timeout")
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("returned before the timeout elapsed")
	}
}

func TestStopUnblocksWaiters(t *testing.T) {
	engine, _, _ := newEngine(t, "1 + 1")

	done := make(chan bool, 1)
	go func() {
		done <- engine.WaitForChange(10 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	engine.Stop()

	select {
	case got := <-done:
		if got {
			t.Error("expected false from a stopped engine")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForChange did not return after Stop")
	}

	// Stop is idempotent.
	engine.Stop()
}

func TestDrainChanges(t *testing.T) {
	engine, _, _ := newEngine(t, "1 + 1")

	if n := engine.DrainChanges(); n != 0 {
		t.Errorf("expected an empty queue, got %d", n)
	}
}

func TestNewMissingDirectory(t *testing.T) {
	cc := &countingCompile{}
	_, err := hotreload.New(filepath.Join(t.TempDir(), "nope", "main.fz"), cc.compile)
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
