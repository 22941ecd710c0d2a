package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
)

// fileContent is the yaml layout of a profile file
//
//	profiles:
//	  - driverId: alice
//	    drivingStyle: aggressive
type fileContent struct {
	Profiles []model.Profile `yaml:"profiles"`
}

// FileProvider serves the profiles of a yaml file.
// Watch reloads the file on changes.
type FileProvider struct {
	path     string
	log      *log.Logger
	mu       sync.RWMutex
	profiles map[string]model.Profile
	onChange func()
}

type FileOption func(f *FileProvider)

func WithLogger(l *log.Logger) FileOption {
	return func(f *FileProvider) {
		f.log = l
	}
}

// WithOnChange registers a callback invoked after a successful reload
func WithOnChange(cb func()) FileOption {
	return func(f *FileProvider) {
		f.onChange = cb
	}
}

func NewFileProvider(path string, opts ...FileOption) (*FileProvider, error) {
	f := &FileProvider{
		path: path,
		log:  log.Default().Named("profile.file"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileProvider) Load(_ context.Context, driverID string) (model.Profile, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if p, ok := f.profiles[driverID]; ok {
		return p, nil
	}
	return model.Profile{}, ErrNotFound
}

func (f *FileProvider) reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read profiles: %w", err)
	}
	var content fileContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("parse profiles %s: %w", f.path, err)
	}
	profiles := make(map[string]model.Profile, len(content.Profiles))
	for i := range content.Profiles {
		p := content.Profiles[i]
		if p.DriverID == "" {
			return fmt.Errorf("parse profiles %s: entry %d has no driverId", f.path, i)
		}
		profiles[p.DriverID] = p
	}
	f.mu.Lock()
	f.profiles = profiles
	f.mu.Unlock()
	f.log.Info("profiles loaded",
		log.String("file", f.path), log.Int("count", len(profiles)))
	return nil
}

// Watch reloads the file whenever it is written until ctx is done.
// The directory is watched so editors replacing the file are covered.
//
//nolint:cyclop // event loop
func (f *FileProvider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", f.path, err)
	}
	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			f.log.Debug("change detected", log.String("file", event.Name))
			if err := f.reload(); err != nil {
				f.log.Warn("keeping previous profiles", log.ErrorField(err))
				continue
			}
			if f.onChange != nil {
				f.onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Error("watcher error", log.ErrorField(err))
		}
	}
}
