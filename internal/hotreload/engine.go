// Package hotreload watches a script file and recompiles it on change,
// keeping the last good chunk when a reload fails.
package hotreload

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/fizz-lang/fizz/internal/vm"
)

// CompileFunc builds a chunk from source text. The engine treats any
// error as a failed reload, never a fatal one.
type CompileFunc func(source string) (*vm.Chunk, error)

// ReloadStats describes the outcome of a single Reload call.
type ReloadStats struct {
	Generation   uuid.UUID     `yaml:"generation"`
	CompileTime  time.Duration `yaml:"compile_time"`
	ReloadTime   time.Duration `yaml:"reload_time"`
	SourceSize   int           `yaml:"source_size"`
	Success      bool          `yaml:"success"`
	ErrorMessage string        `yaml:"error_message,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueueSize bounds the pending change queue. Changes arriving while
// the queue is full are dropped; one queued change is enough to trigger
// a reload.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithLogger overrides the engine's logger.
func WithLogger(log commonlog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

const defaultQueueSize = 16

// Engine watches one script file for changes and recompiles on demand.
type Engine struct {
	path      string
	compile   CompileFunc
	log       commonlog.Logger
	queueSize int

	watcher *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once

	mu         sync.RWMutex
	chunk      *vm.Chunk
	generation uuid.UUID
}

// New starts watching path. The initial chunk is nil until the first
// successful Reload.
func New(path string, compile CompileFunc, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("hotreload: resolve %s: %w", path, err)
	}
	e := &Engine{
		path:      abs,
		compile:   compile,
		log:       commonlog.GetLogger("fizz.hotreload"),
		queueSize: defaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.changes = make(chan struct{}, e.queueSize)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hotreload: watcher: %w", err)
	}
	// Watch the directory, not the file: editors that write via
	// rename would otherwise drop the watch on every save.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("hotreload: watch %s: %w", filepath.Dir(abs), err)
	}
	e.watcher = watcher

	e.wg.Add(1)
	go e.watchLoop()
	return e, nil
}

func (e *Engine) watchLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != e.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case e.changes <- struct{}{}:
			default:
				// Queue full; a pending change already guarantees a reload.
			}
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.log.Errorf("watch error: %s", err)
		}
	}
}

// WaitForChange blocks until a change is queued, the timeout elapses,
// or the engine stops. It reports whether a change arrived.
func (e *Engine) WaitForChange(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-e.done:
		return false
	case <-e.changes:
		return true
	case <-timer.C:
		return false
	}
}

// DrainChanges discards all queued changes and returns how many there
// were. Call it after a reload to coalesce editor save bursts.
func (e *Engine) DrainChanges() int {
	n := 0
	for {
		select {
		case <-e.changes:
			n++
		default:
			return n
		}
	}
}

// Reload reads and recompiles the watched file. On success the current
// chunk is swapped and a fresh generation is assigned; on failure the
// previous chunk stays current and the error is reported only through
// the returned stats.
func (e *Engine) Reload() ReloadStats {
	start := time.Now()
	stats := ReloadStats{}

	source, err := os.ReadFile(e.path)
	if err != nil {
		stats.ReloadTime = time.Since(start)
		stats.ErrorMessage = err.Error()
		e.log.Errorf("reload %s: %s", e.path, err)
		return stats
	}
	stats.SourceSize = len(source)

	compileStart := time.Now()
	chunk, err := e.compile(string(source))
	stats.CompileTime = time.Since(compileStart)
	if err != nil {
		stats.ReloadTime = time.Since(start)
		stats.ErrorMessage = err.Error()
		e.log.Errorf("compile %s: %s", e.path, err)
		return stats
	}

	gen := uuid.New()
	e.mu.Lock()
	e.chunk = chunk
	e.generation = gen
	e.mu.Unlock()

	stats.Generation = gen
	stats.Success = true
	stats.ReloadTime = time.Since(start)
	e.log.Infof("reloaded %s (generation %s, %d bytes)", e.path, gen, stats.SourceSize)
	return stats
}

// CurrentChunk returns the last successfully compiled chunk, or nil if
// no reload has succeeded yet.
func (e *Engine) CurrentChunk() *vm.Chunk {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chunk
}

// Generation identifies the current chunk; it changes on every
// successful reload.
func (e *Engine) Generation() uuid.UUID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Path returns the absolute path of the watched file.
func (e *Engine) Path() string {
	return e.path
}

// Stop shuts the watcher down. Pending and future WaitForChange calls
// return false immediately.
func (e *Engine) Stop() {
	e.stopped.Do(func() {
		close(e.done)
		e.watcher.Close()
		e.wg.Wait()
	})
}
