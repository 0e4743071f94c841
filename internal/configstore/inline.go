package configstore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Inline is a ConfigStore backed by a single local YAML file, watched for
// writes with fsnotify. HasChanged answers true at once when the watcher
// has seen a write or create of the file; otherwise it re-reads the file
// and compares its SHA-256 with the one recorded by the last Load.
type Inline struct {
	path            string
	refreshInterval float64
	logger          *zap.Logger

	watcher *fsnotify.Watcher

	mu          sync.Mutex
	lastSum     [32]byte
	changedFlag bool
}

// NewInline constructs an Inline ConfigStore watching the directory
// containing path.
func NewInline(path string, refreshInterval float64, logger *zap.Logger) (*Inline, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("configstore.NewInline: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("configstore.NewInline: watch dir: %w", err)
	}

	in := &Inline{path: path, refreshInterval: refreshInterval, logger: logger, watcher: watcher}
	go in.watchLoop()
	return in, nil
}

func (in *Inline) watchLoop() {
	for {
		select {
		case e, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			if e.Name != in.path {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				in.mu.Lock()
				in.changedFlag = true
				in.mu.Unlock()
			}
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			in.logger.Warn("configstore file watcher error", zap.Error(err))
		}
	}
}

func (in *Inline) Load(ctx context.Context) (*ConfigSpec, error) {
	data, err := os.ReadFile(in.path)
	if err != nil {
		return nil, fmt.Errorf("configstore.Inline.Load: read %q: %w", in.path, err)
	}

	var spec ConfigSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("configstore.Inline.Load: parse %q: %w", in.path, err)
	}
	if err := Validate(&spec); err != nil {
		return nil, err
	}

	in.mu.Lock()
	in.lastSum = sha256.Sum256(data)
	in.changedFlag = false
	in.mu.Unlock()

	return &spec, nil
}

func (in *Inline) HasChanged(ctx context.Context) (bool, error) {
	in.mu.Lock()
	flagged := in.changedFlag
	in.mu.Unlock()
	if flagged {
		return true, nil
	}

	data, err := os.ReadFile(in.path)
	if err != nil {
		return false, fmt.Errorf("configstore.Inline.HasChanged: read %q: %w", in.path, err)
	}
	sum := sha256.Sum256(data)

	in.mu.Lock()
	defer in.mu.Unlock()
	return sum != in.lastSum, nil
}

func (in *Inline) RefreshInterval() (float64, bool) {
	return in.refreshInterval, in.refreshInterval > 0
}

func (in *Inline) Close() error {
	return in.watcher.Close()
}
