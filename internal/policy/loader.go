package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PolicyFileName is the per-workspace policy document, consumed (never
// produced) by this package.
const PolicyFileName = "permissions.json"

// PolicyPath returns the policy file location inside a workspace.
func PolicyPath(workspace string) string {
	return filepath.Join(workspace, ".agentrelay", PolicyFileName)
}

// LoadWorkspace reads a workspace's policy file merged over the interactive
// preset. A missing file is not an error: the interactive preset applies
// as-is. A malformed file is an error; silently allowing on a parse failure
// would defeat the point of the policy.
func LoadWorkspace(workspace string) (*Policy, error) {
	return LoadFile(PolicyPath(workspace))
}

// LoadFile reads a policy document from an explicit path, merged over the
// interactive preset.
func LoadFile(path string) (*Policy, error) {
	return LoadFileOver(path, Preset(PresetInteractive))
}

// LoadFileOver reads a policy document merged over the given base policy.
// A missing file leaves the base in force.
func LoadFileOver(path string, base *Policy) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var loaded Policy
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return Merge(base, &loaded), nil
}

// Watcher keeps an up-to-date policy for one workspace, reloading when the
// policy file changes on disk. Current is safe for concurrent use; a reload
// swaps the pointer, it never mutates a policy in place.
type Watcher struct {
	path string
	base *Policy

	mu      sync.RWMutex
	current *Policy
}

// NewWatcher loads the initial policy for the workspace over the
// interactive preset.
func NewWatcher(workspace string) (*Watcher, error) {
	return NewWatcherOver(workspace, Preset(PresetInteractive))
}

// NewWatcherOver loads the initial policy for the workspace over an
// explicit base policy.
func NewWatcherOver(workspace string, base *Policy) (*Watcher, error) {
	path := PolicyPath(workspace)
	p, err := LoadFileOver(path, base)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, base: base, current: p}, nil
}

// Current returns the most recently loaded policy.
func (w *Watcher) Current() *Policy {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run watches the policy file's directory until the context is cancelled.
// Watching the directory rather than the file survives editors that replace
// the file by rename. Reload failures keep the previous policy in force.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create policy dir: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch policy dir: %w", err)
	}

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			p, err := LoadFileOver(w.path, w.base)
			if err != nil {
				log.Printf("[policy] reload failed, keeping previous policy: %v", err)
				continue
			}
			w.mu.Lock()
			w.current = p
			w.mu.Unlock()
			log.Printf("[policy] reloaded %s", w.path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[policy] watcher error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
