package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Entry is one catalog file selected for a band
type Entry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// Catalog is the ordered set of captured files awaiting analysis
type Catalog struct {
	mutex sync.RWMutex
	paths []string
	index map[string]struct{}
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]struct{})}
}

// ScanDir builds a catalog from the capture files in dir
func ScanDir(dir string) (*Catalog, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	catalog := NewCatalog()
	for _, path := range matches {
		catalog.Add(path)
	}
	return catalog, nil
}

// Add appends path; a path already present is ignored
func (c *Catalog) Add(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, ok := c.index[path]; ok {
		return
	}
	c.index[path] = struct{}{}
	c.paths = append(c.paths, path)
}

// Len returns the number of files
func (c *Catalog) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.paths)
}

// Paths returns every file, sorted lexicographically
func (c *Catalog) Paths() []string {
	c.mutex.RLock()
	paths := append([]string(nil), c.paths...)
	c.mutex.RUnlock()

	sort.Strings(paths)
	return paths
}

// ForBand returns the sorted files whose name starts with prefix, labelled by gain
func (c *Catalog) ForBand(prefix string) []Entry {
	var entries []Entry
	for _, path := range c.Paths() {
		name := filepath.Base(path)
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		entries = append(entries, Entry{Path: path, Label: Label(name)})
	}
	return entries
}

// Label extracts the fem_lna_vga field of a capture name, e.g. "0_1_00"
func Label(name string) string {
	if len(name) >= 12 {
		return name[6:12]
	}
	if len(name) <= 6 {
		return ""
	}
	return strings.TrimSuffix(name[6:], ".txt")
}
