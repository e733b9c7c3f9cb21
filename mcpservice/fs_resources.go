package mcpservice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/toolgate/mcp-server-go/mcp"
)

// FSResources projects a restricted slice of a filesystem into a
// ResourceManager. It can wrap either an os dir (preferred when you need to
// defend against symlink escape) or an arbitrary fs.FS (such as embed.FS).
//
// Security: When configured with an OS directory root, FSResources prevents
// traversal outside the configured root, even through symlinks. When
// configured with a generic fs.FS, symlinks are not followed and parent
// traversal is rejected.
type FSResources struct {
	mgr *ResourceManager

	// backing filesystem. When osRoot != "", this will be os.DirFS(osRoot).
	fsys   fs.FS
	osRoot string // absolute, symlink-evaluated root on disk (if set)

	baseURI string // scheme prefix for resource URIs (e.g., "fs://workspace")
	log     *slog.Logger

	// resync debounce for bursts of fsnotify events
	debounce time.Duration
	mu       sync.Mutex
	timer    *time.Timer
}

// FSOption configures FSResources.
type FSOption func(*FSResources)

// WithOSDir sets the root to an OS directory. The path must exist. Symlinks
// are resolved and reads are constrained to the resolved root.
func WithOSDir(root string) FSOption {
	return func(r *FSResources) {
		abs := root
		if !filepath.IsAbs(abs) {
			if a, err := filepath.Abs(abs); err == nil {
				root = a
			}
		}
		if real, err := filepath.EvalSymlinks(root); err == nil {
			r.osRoot = real
			r.fsys = os.DirFS(real)
		} else {
			// Defer error to first use if root missing; keep as provided.
			r.osRoot = root
			r.fsys = os.DirFS(root)
		}
	}
}

// WithFS provides a generic fs.FS (e.g., embed.FS). Parent traversal is
// rejected and symlinks are not followed. Watching is unavailable.
func WithFS(f fs.FS) FSOption { return func(r *FSResources) { r.fsys = f; r.osRoot = "" } }

// WithBaseURI sets the URI prefix used in Resource.URI, e.g. "fs://workspace".
// Defaults to "fs://".
func WithBaseURI(base string) FSOption {
	return func(r *FSResources) { r.baseURI = strings.TrimRight(base, "/") }
}

// WithResyncDebounce configures how long to coalesce filesystem events before
// resyncing. Set to 0 to resync on every event.
func WithResyncDebounce(d time.Duration) FSOption {
	return func(r *FSResources) { r.debounce = d }
}

// WithFSLogger sets the logger used by the watch loop.
func WithFSLogger(log *slog.Logger) FSOption {
	return func(r *FSResources) { r.log = log }
}

// NewFSResources constructs a filesystem projection that publishes into mgr.
func NewFSResources(mgr *ResourceManager, opts ...FSOption) *FSResources {
	r := &FSResources{
		mgr:      mgr,
		baseURI:  "fs://",
		debounce: 250 * time.Millisecond,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Sync walks the filesystem and reconciles the ResourceManager with what it
// finds: new files are registered, changed files keep their registration, and
// files that disappeared are removed.
func (r *FSResources) Sync(ctx context.Context) error {
	if r.fsys == nil {
		return errors.New("mcpservice: no filesystem configured")
	}
	seen := make(map[string]struct{})
	err := fs.WalkDir(r.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort listing
		}
		if d.IsDir() || isSymlink(d) || !validFSPath(p) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		uri := r.relToURI(p)
		seen[uri] = struct{}{}
		r.mgr.AddResource(mcp.Resource{
			URI:      uri,
			Name:     path.Base(p),
			MimeType: mime.TypeByExtension(strings.ToLower(path.Ext(p))),
		}, r.read)
		return nil
	})
	if err != nil {
		return err
	}
	// Drop registrations for files that no longer exist under our base URI.
	for _, res := range r.mgr.ListResources() {
		if !strings.HasPrefix(res.URI, strings.TrimRight(r.baseURI, "/")+"/") {
			continue
		}
		if _, ok := seen[res.URI]; !ok {
			_, _ = r.mgr.RemoveResource(res.URI)
		}
	}
	return nil
}

// Watch runs an fsnotify loop that resyncs the ResourceManager whenever the
// directory tree changes. It requires WithOSDir configuration and blocks
// until ctx is canceled.
func (r *FSResources) Watch(ctx context.Context) error {
	if r.osRoot == "" {
		return errors.New("mcpservice: watching requires an OS directory root")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mcpservice: start watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	// Recursively add all directories under the root.
	addDirs := func() error {
		return filepath.WalkDir(r.osRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			return w.Add(p)
		})
	}
	if err := addDirs(); err != nil {
		r.log.Debug("watch add dirs failed", slog.String("err", err.Error()))
	}

	// Normalize initial state.
	if err := r.Sync(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Maintain watchers on newly created directories.
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				r.scheduleSync(ctx)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Debug("watch error", slog.String("err", err.Error()))
		}
	}
}

// scheduleSync coalesces bursts of events into a single resync.
func (r *FSResources) scheduleSync(ctx context.Context) {
	if r.debounce <= 0 {
		if err := r.Sync(ctx); err != nil {
			r.log.Debug("resync failed", slog.String("err", err.Error()))
		}
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer == nil {
		r.timer = time.AfterFunc(r.debounce, func() {
			if err := r.Sync(ctx); err != nil {
				r.log.Debug("resync failed", slog.String("err", err.Error()))
			}
		})
		return
	}
	r.timer.Reset(r.debounce)
}

// read serves the contents of a registered file URI.
func (r *FSResources) read(ctx context.Context, uri string) (any, error) {
	rel, ok := r.uriToRel(uri)
	if !ok {
		return nil, fmt.Errorf("%w: resource %q is not within the served tree", ErrNotFound, uri)
	}

	// Security: for OS-backed FS, resolve symlinks and ensure containment.
	if r.osRoot != "" {
		abs := filepath.Join(r.osRoot, filepath.FromSlash(rel))
		real, err := filepath.EvalSymlinks(abs)
		if err != nil || !within(real, r.osRoot) {
			return nil, fmt.Errorf("%w: resource %q is not within the served tree", ErrNotFound, uri)
		}
		data, err := os.ReadFile(real)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", uri, err)
		}
		return r.contentsFor(uri, mime.TypeByExtension(strings.ToLower(filepath.Ext(real))), data), nil
	}

	if !validFSPath(rel) {
		return nil, fmt.Errorf("%w: resource %q is not within the served tree", ErrNotFound, uri)
	}
	data, err := fs.ReadFile(r.fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", uri, err)
	}
	return r.contentsFor(uri, mime.TypeByExtension(strings.ToLower(path.Ext(rel))), data), nil
}

func (r *FSResources) contentsFor(uri, mimeType string, data []byte) mcp.ResourceContents {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if utf8.Valid(data) {
		return mcp.ResourceContents{URI: uri, MimeType: mimeType, Text: string(data)}
	}
	return mcp.ResourceContents{URI: uri, MimeType: mimeType, Blob: base64.StdEncoding.EncodeToString(data)}
}

func isSymlink(d fs.DirEntry) bool {
	if d == nil {
		return false
	}
	if d.Type()&fs.ModeSymlink != 0 {
		return true
	}
	if info, err := d.Info(); err == nil {
		return info.Mode()&fs.ModeSymlink != 0
	}
	return false
}

func validFSPath(p string) bool {
	// fs.ValidPath requires clean, no leading slash, and no ".." segments.
	if !fs.ValidPath(p) {
		return false
	}
	if strings.Contains(p, ":") {
		return false
	}
	return true
}

func (r *FSResources) relToURI(rel string) string {
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(r.baseURI, "/") + "/" + strings.Join(segs, "/")
}

func (r *FSResources) uriToRel(uri string) (string, bool) {
	base := strings.TrimRight(r.baseURI, "/") + "/"
	if !strings.HasPrefix(uri, base) {
		return "", false
	}
	segs := strings.Split(strings.TrimPrefix(uri, base), "/")
	for i, s := range segs {
		dec, err := url.PathUnescape(s)
		if err != nil {
			return "", false
		}
		segs[i] = dec
	}
	rel := path.Clean(strings.Join(segs, "/"))
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// within returns true if target is the same as root or a descendant of root.
func within(target, root string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || strings.HasPrefix(rel, "../") {
		return false
	}
	return true
}
