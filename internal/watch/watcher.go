// Package watch regenerates bridge artifacts when Go sources change.
package watch

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/democracycraft/bridge/internal/logging"
	"github.com/democracycraft/bridge/internal/utils"
)

// FileWatcher reports batches of changed Go source files.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	dirs      []string
	ignore    func(string) bool
	onChange  func([]string) error
	log       *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewFileWatcher creates a watcher over dirs. Files for which ignore
// returns true, such as generated registries, never trigger onChange.
func NewFileWatcher(dirs []string, debounce time.Duration, ignore func(string) bool, onChange func([]string) error) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if ignore == nil {
		ignore = func(string) bool { return false }
	}

	fw := &FileWatcher{
		watcher:  watcher,
		dirs:     dirs,
		ignore:   ignore,
		onChange: onChange,
		log:      logging.Logger().Named("watch"),
		stopChan: make(chan struct{}),
	}
	fw.debouncer = NewDebouncer(debounce, func(files []string) {
		if err := fw.onChange(files); err != nil {
			fw.log.Warn("regeneration failed", zap.Error(err))
		}
	})
	return fw, nil
}

// Start begins watching in the background.
func (fw *FileWatcher) Start() error {
	for _, dir := range fw.dirs {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		fw.log.Debug("watching", zap.String("dir", dir))
	}

	fw.wg.Add(1)
	go fw.watch()
	return nil
}

// Stop ends watching and drops pending changes. It is safe to call more
// than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.stopChan)
		fw.wg.Wait()
		fw.debouncer.Stop()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watch() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("watch error", zap.Error(err))

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if utils.IgnoredDir(info.Name()) {
				return
			}
			if err := fw.watcher.Add(event.Name); err != nil {
				fw.log.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	if !utils.IsSourceFile(event.Name) || fw.ignore(event.Name) {
		return
	}
	// Removing or renaming a file can drop capabilities too.
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		fw.log.Debug("changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
		fw.debouncer.Add(event.Name)
	}
}

// Debouncer collects paths and hands them to its callback once no new
// path has arrived for the configured duration.
type Debouncer struct {
	duration time.Duration
	callback func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	files   map[string]struct{}
	stopped bool
}

// NewDebouncer creates a new debouncer
func NewDebouncer(duration time.Duration, callback func([]string)) *Debouncer {
	return &Debouncer{
		duration: duration,
		callback: callback,
		files:    make(map[string]struct{}),
	}
}

// Add records a path and restarts the quiet period.
func (d *Debouncer) Add(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush passes the collected paths, sorted, to the callback. The callback
// runs without the lock held so it may take as long as it needs.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mu.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(files)
	d.callback(files)
}

// Stop drops pending paths and ignores later ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.files = make(map[string]struct{})
}
