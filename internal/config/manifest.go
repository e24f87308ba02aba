package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a fizz.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Watch   Watch   `toml:"watch"`
	Host    Host    `toml:"host"`

	// Dir is the directory containing the fizz.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// Watch configures the hot-reload watcher.
type Watch struct {
	Enabled   bool `toml:"enabled"`
	QueueSize int  `toml:"queue-size"`
}

// Host restricts which host bindings a script may reference. An empty
// allow list permits everything.
type Host struct {
	Allow []string `toml:"allow"`
}

// Load parses a fizz.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Project.Entry == "" {
		m.Project.Entry = "main" + SourceExt
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a fizz.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the configured entry file.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Project.Entry)
}

// Allows reports whether the manifest permits binding name to scripts.
func (m *Manifest) Allows(name string) bool {
	if len(m.Host.Allow) == 0 {
		return true
	}
	for _, allowed := range m.Host.Allow {
		if allowed == name {
			return true
		}
	}
	return false
}
