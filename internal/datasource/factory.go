package datasource

import (
	"fmt"
	"sync"
	"time"
)

// SourceType represents the type of bar source
type SourceType string

const (
	// CSVSourceType reads bars from per-symbol CSV files
	CSVSourceType SourceType = "csv"
)

// Factory creates bar sources rooted at per-symbol data directories
type Factory struct {
	defaultDir string
	cacheTTL   time.Duration

	mu      sync.Mutex
	sources map[string]BarSource
}

// NewFactory creates a factory; cacheTTL <= 0 disables caching
func NewFactory(defaultDir string, cacheTTL time.Duration) *Factory {
	return &Factory{
		defaultDir: defaultDir,
		cacheTTL:   cacheTTL,
		sources:    make(map[string]BarSource),
	}
}

// Create builds a source of the given type for a data directory
func (f *Factory) Create(sourceType SourceType, dir string) (BarSource, error) {
	if dir == "" {
		dir = f.defaultDir
	}
	switch sourceType {
	case CSVSourceType, "":
		var src BarSource = NewCSVSource(dir)
		if f.cacheTTL > 0 {
			src = NewCachedSource(src, f.cacheTTL)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown data source type: %s", sourceType)
	}
}

// ForPath returns the shared source for a data directory, creating it once
func (f *Factory) ForPath(dir string) (BarSource, error) {
	if dir == "" {
		dir = f.defaultDir
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if src, ok := f.sources[dir]; ok {
		return src, nil
	}
	src, err := f.Create(CSVSourceType, dir)
	if err != nil {
		return nil, err
	}
	f.sources[dir] = src
	return src, nil
}
