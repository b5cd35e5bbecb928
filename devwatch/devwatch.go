// Package devwatch is an optional development aid that recompiles a
// template bundle whenever one of its source files changes on disk. It is
// not part of the core render path and makes no attempt at goroutine-safe
// hot-swapping under concurrent renders — it exists for local development,
// where that trade-off is the right one.
package devwatch

import (
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/robfig/miso/render"
)

// Logger prints messages about filesystem-triggered recompiles.
var Logger = log.New(os.Stderr, "[miso/devwatch] ", 0)

// Watcher recompiles on every write to one of its watched files, handing
// the result to onReload.
type Watcher struct {
	fs *fsnotify.Watcher
}

// New starts watching files for changes. recompile is invoked (from a
// background goroutine) after any watched file is written, renamed, or
// removed; if it succeeds, its result is passed to onReload. Errors from
// recompile are logged and otherwise ignored, so a transient syntax error
// while editing doesn't tear down the watcher.
func New(files []string, recompile func() (*render.Tofu, error), onReload func(*render.Tofu)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := fs.Add(f); err != nil {
			fs.Close()
			return nil, err
		}
	}
	var w = &Watcher{fs: fs}
	go w.run(recompile, onReload)
	return w, nil
}

func (w *Watcher) run(recompile func() (*render.Tofu, error), onReload func(*render.Tofu)) {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				// A rename/remove drops the watch on that path; re-add it
				// after a short delay for editors that write via
				// rename-over (vim, many IDEs).
				time.Sleep(10 * time.Millisecond)
				if err := w.fs.Add(ev.Name); err != nil {
					Logger.Println(err)
				}
			}
			tofu, err := recompile()
			if err != nil {
				Logger.Println(err)
				continue
			}
			onReload(tofu)
			Logger.Printf("reloaded after %v", ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}

// Close stops watching and releases the underlying OS resources.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
