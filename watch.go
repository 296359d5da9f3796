package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDelay = 250 * time.Millisecond

// Watch reloads the open windows when entries come or go under root.
func (u *UI) watch(ctx context.Context, root string) {
	ch := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := watchStore(ctx, root, reloadDelay, ch); err != nil {
			logger.Warn("not watching store", zap.String("root", root), zap.Error(err))
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-u.exited:
			return
		case <-ch:
			debug("store changed, reloading")
			u.reloadAll()
		}
	}
}

// WatchStore sends on out once things have been quiet for delay after a
// file under root is created, removed or renamed. Directories created later
// are watched too. Sends never block; a pending notification absorbs more.
func watchStore(ctx context.Context, root string, delay time.Duration, out chan<- struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := addTree(w, root); err != nil {
		return err
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() && !hidden(filepath.Base(ev.Name)) {
					if err := addTree(w, ev.Name); err != nil {
						logger.Warn("watch add failed", zap.String("dir", ev.Name), zap.Error(err))
					}
				}
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			fire = time.After(delay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("store watch", zap.Error(err))
		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

// AddTree watches root and the directories below it, following links to
// directories the way the store lister does.
func addTree(w *fsnotify.Watcher, root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		return err
	}
	conf := fastwalk.Config{Follow: true}
	return fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if p != root && hidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
				return nil
			}
		}
		return w.Add(p)
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
