package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// Dir lists a pass(1) store by walking its directory tree.
//
// Symbolic links are followed, so stores that link in shared subtrees list
// them, and a directory linked in under two names is listed under both. A
// link back into one of its own parent directories is not followed.
// Dot-directories (.git, .extensions) are skipped, as are dangling links.
type Dir struct {
	Root    string
	OTPGlob string
	Log     *zap.Logger
}

// List implements Lister.
func (d *Dir) List(ctx context.Context, otp bool) ([]string, error) {
	glob := "*" + Suffix
	if otp {
		glob = d.OTPGlob
		if glob == "" {
			glob = "*-otp" + Suffix
		}
	}
	if _, err := Match(glob, ""); err != nil {
		return nil, fmt.Errorf("store: glob %q: %w", glob, err)
	}
	root := filepath.Clean(d.Root)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("store: %s: not a directory", d.Root)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := walker{
		ctx:  ctx,
		log:  d.log(),
		root: root,
		glob: glob,
	}
	conf := fastwalk.Config{Follow: true}
	if err := fastwalk.Walk(&conf, root, w.visit); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	SortFold(w.out)
	return w.out, nil
}

func (d *Dir) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// Walker collects matching entries. Visit is called from several
// goroutines at once.
type walker struct {
	ctx  context.Context
	log  *zap.Logger
	root string
	glob string

	mu  sync.Mutex
	out []string
}

func (w *walker) visit(p string, e fs.DirEntry, err error) error {
	if err != nil {
		if p == w.root {
			return err
		}
		// Same as pass(1): an unreadable subtree just isn't listed.
		w.log.Warn("skipping unreadable path", zap.String("path", p), zap.Error(err))
		return nil
	}
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if p == w.root {
		return nil
	}
	name := e.Name()
	typ := e.Type()
	if typ&fs.ModeSymlink != 0 {
		fi, err := os.Stat(p)
		if err != nil {
			w.log.Debug("skipping dangling link", zap.String("path", p))
			return nil
		}
		typ = fi.Mode().Type()
	}
	switch {
	case typ.IsDir():
		if e.IsDir() && hidden(name) {
			return fs.SkipDir
		}
		return nil
	case !typ.IsRegular():
		return nil
	}

	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)
	// Linked-in dot-directories are still walked; drop what they hold.
	if hiddenDir(rel) {
		return nil
	}
	if ok, _ := Match(w.glob, name); !ok {
		return nil
	}
	w.mu.Lock()
	w.out = append(w.out, strings.TrimSuffix(rel, Suffix))
	w.mu.Unlock()
	return nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hiddenDir(rel string) bool {
	dir, _ := path.Split(rel)
	for _, el := range strings.Split(strings.TrimSuffix(dir, "/"), "/") {
		if hidden(el) {
			return true
		}
	}
	return false
}
