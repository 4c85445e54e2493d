package fsstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

// Iter yields every page stored under an Fs root. It walks the tree depth
// first, listing a directory only when the walk reaches it, and reads one
// page per Next call. An Iter is single pass; build a new one to walk again.
type Iter struct {
	fs     *Fs
	root   string
	prefix string
	keep   func(baseName string) bool
	logger interfaces.Logger

	started bool
	done    bool
	stack   []*dirFrame
}

var _ storage.Iterator = (*Iter)(nil)

type dirFrame struct {
	path    string
	entries []fs.DirEntry
	pos     int
}

type walkEntry struct {
	path string
	dir  bool
}

// NewIter returns an iterator over the pages of f.
func NewIter(f *Fs) *Iter {
	root := f.cfg.Path
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	keep := func(string) bool { return true }
	if f.cfg.IgnoreHidden {
		keep = func(baseName string) bool { return !isHidden(baseName) }
	}

	return &Iter{
		fs:     f,
		root:   root,
		prefix: prefix,
		keep:   keep,
		logger: logging.Ensure(f.logger),
	}
}

// Next returns the next page. Walk failures and read failures are returned as
// error items; the following call resumes with the remaining entries. Once
// the walk is exhausted Next returns storage.Done on every call.
func (it *Iter) Next(ctx context.Context) (*storage.Page, error) {
	for {
		if it.done {
			return nil, storage.Done
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, ok, err := it.advance()
		if !ok {
			it.finish()
			return nil, storage.Done
		}
		if err != nil {
			return nil, storage.WrapImpl(backendName, "walk", "", err)
		}
		if entry.dir {
			it.logger.Trace("storage.fs.iter.skip_dir", "path", entry.path)
			continue
		}

		name, isPage, err := it.pageName(entry.path)
		if err != nil {
			return nil, storage.WrapImpl(backendName, "iter", "", err)
		}
		if !isPage {
			it.logger.Trace("storage.fs.iter.skip_file", "path", entry.path)
			continue
		}

		return it.fs.Read(ctx, name)
	}
}

// Close stops the walk. Subsequent Next calls return storage.Done.
func (it *Iter) Close() error {
	it.finish()
	return nil
}

func (it *Iter) finish() {
	it.done = true
	it.stack = nil
}

// advance moves the walk one entry forward. ok is false once the walk is
// exhausted. Directories are listed as soon as they are reached, so a listing
// failure is reported with the directory itself.
func (it *Iter) advance() (walkEntry, bool, error) {
	if !it.started {
		it.started = true
		if err := it.push(it.root); err != nil {
			return walkEntry{}, true, err
		}
	}

	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]
		if top.pos >= len(top.entries) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		entry := top.entries[top.pos]
		top.pos++
		if !it.keep(entry.Name()) {
			continue
		}

		path := joinPath(top.path, entry.Name())
		if entry.IsDir() {
			if err := it.push(path); err != nil {
				return walkEntry{path: path, dir: true}, true, err
			}
			return walkEntry{path: path, dir: true}, true, nil
		}
		// Symlinked directories are skipped, not followed.
		if entry.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return walkEntry{path: path, dir: true}, true, nil
			}
		}
		return walkEntry{path: path}, true, nil
	}
	return walkEntry{}, false, nil
}

// joinPath appends name to dir without cleaning, so every walked path keeps
// the root as a literal prefix (filepath.Join would drop a "." root).
func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir + name
	}
	return dir + string(filepath.Separator) + name
}

func (it *Iter) push(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &WalkError{Path: dir, Err: err}
	}
	it.stack = append(it.stack, &dirFrame{path: dir, entries: entries})
	return nil
}

// pageName converts a walked file path to a page name. isPage is false for
// files that do not carry the configured extension.
func (it *Iter) pageName(path string) (string, bool, error) {
	rel, ok := strings.CutPrefix(path, it.prefix)
	if !ok || rel == "" {
		return "", false, &StripPrefixError{Path: path, Root: it.root}
	}
	if !utf8.ValidString(rel) {
		return "", false, fmt.Errorf("%w: %q", ErrPathNotValidUnicode, rel)
	}

	name := filepath.ToSlash(rel)
	ext := it.fs.cfg.Extension
	if ext == "" {
		return name, true, nil
	}

	suffix := "." + ext
	if filepath.Ext(rel) != suffix || filepath.Base(rel) == suffix {
		return "", false, nil
	}
	return strings.TrimSuffix(name, suffix), true, nil
}
