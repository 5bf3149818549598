package storage

import (
	"io"
	"os"
	"strings"
	"sync"
)

// mem is shared by every VFS in the process so mem:// arrays outlive the
// context that created them.
var mem = newMemFS()

type memFS struct {
	files map[string][]byte
	dirs  map[string]struct{}
	mu    sync.RWMutex
}

func newMemFS() *memFS {
	return &memFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

func parent(path string) (string, bool) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 || strings.HasSuffix(path[:i+1], "://") {
		return "", false
	}
	return path[:i], true
}

// mkdirs must be called with mu held.
func (fs *memFS) mkdirs(path string) {
	for p, ok := path, true; ok; p, ok = parent(p) {
		fs.dirs[p] = struct{}{}
	}
}

func (fs *memFS) MkdirAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[path]; ok {
		return os.ErrExist
	}
	fs.mkdirs(path)
	return nil
}

func (fs *memFS) IsDir(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.dirs[path]
	return ok
}

func (fs *memFS) IsFile(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.files[path]
	return ok
}

func (fs *memFS) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	data, ok := fs.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (fs *memFS) WriteFile(path string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.dirs[path]; ok {
		return os.ErrExist
	}
	if p, ok := parent(path); ok {
		fs.mkdirs(p)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	fs.files[path] = buf
	return nil
}

func (fs *memFS) FileSize(path string) (uint64, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	data, ok := fs.files[path]
	if !ok {
		return 0, os.ErrNotExist
	}
	return uint64(len(data)), nil
}

func (fs *memFS) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[path]; !ok {
		return os.ErrNotExist
	}
	delete(fs.files, path)
	return nil
}

func (fs *memFS) RemoveAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prefix := path + "/"
	for p := range fs.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.files, p)
		}
	}
	for p := range fs.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.dirs, p)
		}
	}
	return nil
}

func (fs *memFS) Rename(from, to string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if p, ok := parent(to); ok {
		fs.mkdirs(p)
	}
	if data, ok := fs.files[from]; ok {
		delete(fs.files, from)
		fs.files[to] = data
		return nil
	}
	if _, ok := fs.dirs[from]; !ok {
		return os.ErrNotExist
	}
	prefix := from + "/"
	for p, data := range fs.files {
		if strings.HasPrefix(p, prefix) {
			delete(fs.files, p)
			fs.files[to+"/"+p[len(prefix):]] = data
		}
	}
	moved := make([]string, 0)
	for p := range fs.dirs {
		if p == from || strings.HasPrefix(p, prefix) {
			moved = append(moved, p)
		}
	}
	for _, p := range moved {
		delete(fs.dirs, p)
		fs.dirs[to+p[len(from):]] = struct{}{}
	}
	return nil
}

func (fs *memFS) List(path string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if _, ok := fs.dirs[path]; !ok {
		return nil, os.ErrNotExist
	}
	prefix := path + "/"
	seen := make(map[string]struct{})
	collect := func(p string) {
		if !strings.HasPrefix(p, prefix) {
			return
		}
		rest := p[len(prefix):]
		if rest == "" || strings.ContainsRune(rest, '/') {
			return
		}
		seen[p] = struct{}{}
	}
	for p := range fs.files {
		collect(p)
	}
	for p := range fs.dirs {
		collect(p)
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out, nil
}

func (fs *memFS) Touch(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[path]; ok {
		return nil
	}
	if p, ok := parent(path); ok {
		fs.mkdirs(p)
	}
	fs.files[path] = []byte{}
	return nil
}

func (fs *memFS) Open(path string, mode Mode) (File, error) {
	f := &memFile{fs: fs, path: path, mode: mode}
	switch mode {
	case ModeRead, ModeAppend:
		data, err := fs.ReadFile(path)
		if err != nil && mode == ModeRead {
			return nil, err
		}
		f.data = data
	}
	if mode != ModeRead {
		if err := fs.WriteFile(path, f.data); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// memFile buffers writes and publishes them on Sync and Close.
type memFile struct {
	fs     *memFS
	path   string
	data   []byte
	mode   Mode
	closed bool
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.mode == ModeRead {
		return 0, os.ErrPermission
	}
	f.data = append(f.data, p...)
	return len(p), nil
}

func (f *memFile) Sync() error {
	if f.closed {
		return os.ErrClosed
	}
	if f.mode == ModeRead {
		return nil
	}
	return f.fs.WriteFile(f.path, f.data)
}

func (f *memFile) Close() error {
	if f.closed {
		return nil
	}
	err := f.Sync()
	f.closed = true
	return err
}
