package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"github.com/capcom6/perm-keeper/internal/ignore"
)

// eventsBuffer absorbs notifications arriving while the initial sweep still
// runs, so they queue instead of blocking the notification goroutine.
const eventsBuffer = 100

type Watcher struct {
	Roots []string

	matcher   *ignore.Matcher
	fswatcher *fsnotify.Watcher
	events    chan Event
}

func New(roots []string, matcher *ignore.Matcher) *Watcher {
	return &Watcher{
		Roots:   roots,
		matcher: matcher,
	}
}

// Watch registers a recursive watch on every root and returns the merged
// event stream. Roots that can't be watched are skipped with a warning;
// Watch fails only when no root is watchable at all. The stream lives until
// ctx is done or the underlying watcher terminates, then the channel is
// closed.
func (w *Watcher) Watch(ctx context.Context, wg *sync.WaitGroup) (EventsChannel, error) {
	if w.events != nil {
		return w.events, nil
	}

	fswatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	w.fswatcher = fswatcher

	watched := 0
	for _, root := range lo.Uniq(w.Roots) {
		rootPath, rootErr := w.prepareRoot(root)
		if rootErr != nil {
			log.Printf("[WARN] skipping root %s: %s", root, rootErr)
			continue
		}

		if w.matcher.Match(rootPath) {
			log.Printf("[WARN] skipping root %s: covered by an ignore entry", rootPath)
			continue
		}

		if addErr := w.addRecursive(rootPath); addErr != nil {
			log.Printf("[WARN] skipping root %s: %s", rootPath, addErr)
			continue
		}

		log.Printf("[INFO] watching %s", rootPath)
		watched++
	}

	if watched == 0 {
		w.fswatcher.Close()
		w.fswatcher = nil

		return nil, ErrNoWatchableRoots
	}

	w.events = make(chan Event, eventsBuffer)

	wg.Add(1)
	go func() {
		defer func() {
			w.fswatcher.Close()
			close(w.events)
			w.fswatcher = nil
			w.events = nil
			wg.Done()
		}()

		for {
			select {
			case event, ok := <-w.fswatcher.Events:
				if !ok {
					return
				}

				if w.matcher.Match(event.Name) {
					log.Printf("[DEBUG] ignored event: %s", event)
					continue
				}

				if err := w.processEvent(ctx, event); err != nil {
					log.Printf("[ERROR] %s", err)
				}

			case err, ok := <-w.fswatcher.Errors:
				if !ok {
					return
				}
				log.Printf("[ERROR] watch error: %s", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return w.events, nil
}

func (w *Watcher) processEvent(ctx context.Context, source fsnotify.Event) error {
	if source.Name == "" || source.Name == "." {
		return nil
	}

	if source.Has(fsnotify.Remove) || source.Has(fsnotify.Rename) {
		w.removeRecursive(source.Name)
	} else if source.Has(fsnotify.Create) {
		if ok, _ := w.isDir(source.Name); ok {
			if err := w.addRecursive(source.Name); err != nil {
				log.Printf("[WARN] can't watch %s: %s", source.Name, err)
			}
		}
	}

	var kind EventKind
	switch {
	case source.Has(fsnotify.Remove):
		kind = EventRemoved
	case source.Has(fsnotify.Rename):
		kind = EventRenamed
	case source.Has(fsnotify.Create):
		kind = EventCreated
	case source.Has(fsnotify.Write):
		kind = EventModified
	case source.Has(fsnotify.Chmod):
		// permission drift is the whole point, deliver it
		kind = EventOther
	default:
		return nil
	}

	select {
	case w.events <- Event{AbsPath: source.Name, Kind: kind}:
	case <-ctx.Done():
	}

	return nil
}

func (w *Watcher) isDir(fullpath string) (bool, error) {
	info, err := os.Stat(fullpath)
	if err != nil {
		return false, fmt.Errorf("os.Stat: %w", err)
	}

	return info.IsDir(), nil
}

func (w *Watcher) prepareRoot(root string) (string, error) {
	rootPath, err := filepath.Abs(root)
	if err != nil {
		return rootPath, fmt.Errorf("filepath.Abs: %w", err)
	}

	if ok, err := w.isDir(rootPath); err != nil {
		return rootPath, fmt.Errorf("isDir: %w", err)
	} else if !ok {
		return rootPath, fmt.Errorf("%s is not a directory", rootPath)
	}

	return rootPath, nil
}

// addRecursive registers path and every non-ignored subdirectory. A failure
// on path itself is returned; failures further down are logged and the
// remaining siblings are still registered.
func (w *Watcher) addRecursive(path string) error {
	if w.matcher.Match(path) {
		return nil
	}

	if err := w.fswatcher.Add(path); err != nil {
		return fmt.Errorf("fswatcher.Add: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("os.ReadDir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sub := filepath.Join(path, entry.Name())
		if err := w.addRecursive(sub); err != nil {
			log.Printf("[WARN] can't watch %s: %s", sub, err)
		}
	}

	return nil
}

// removeRecursive drops stale registrations for path and everything below
// it after a remove or rename.
func (w *Watcher) removeRecursive(path string) {
	for _, entry := range w.fswatcher.WatchList() {
		if entry == path || strings.HasPrefix(entry, path+string(os.PathSeparator)) {
			// ignore error
			w.fswatcher.Remove(entry)
		}
	}
}
