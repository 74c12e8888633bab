package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
)

const fileWatchDebounce = 200 * time.Millisecond

// FileSource reads the catalog from a single YAML document with top-level
// "rules" and "actions" lists.
type FileSource struct {
	path   string
	logger logger.Logger
}

func NewFileSource(path string, log logger.Logger) *FileSource {
	return &FileSource{path: path, logger: log}
}

func (s *FileSource) Name() string { return constants.CatalogSourceFile }

func (s *FileSource) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", s.path, err)
	}

	for i := range doc.Rules {
		if doc.Rules[i].Status == "" {
			doc.Rules[i].Status = StatusActive
		}
	}
	for i := range doc.Actions {
		if doc.Actions[i].Status == "" {
			doc.Actions[i].Status = StatusActive
		}
	}
	return &doc, nil
}

// Watch calls onChange after the file is written, created or renamed into
// place. Events are debounced so an editor's save burst reloads once. The
// parent directory is watched because atomic saves replace the file inode.
func (s *FileSource) Watch(ctx context.Context, onChange func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	s.logger.InfowCtx(ctx, "Watching catalog file", "path", target)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("file watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(fileWatchDebounce, func() {
				if err := onChange(ctx); err != nil {
					s.logger.ErrorwCtx(ctx, "Catalog reload after file change failed",
						"path", target,
						"error", err,
					)
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("file watcher errors channel closed")
			}
			s.logger.WarnwCtx(ctx, "Catalog file watcher error", "error", err)
		}
	}
}
