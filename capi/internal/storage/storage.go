// Package storage resolves URIs to storage backends.
//
// Plain paths and file:// URIs map to the local file system, mem:// URIs to
// a process-wide in-memory file system. Object-store schemes are recognised
// but not supported.
package storage

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/wippyai/tiledb-go/errors"
)

const (
	SchemeFile = "file://"
	SchemeMem  = "mem://"
)

var unsupportedSchemes = []string{"s3://", "azure://", "gcs://", "gs://", "hdfs://", "tiledb://"}

// Mode selects how a File is opened.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
)

// File is an open file on a backend.
type File interface {
	io.ReaderAt
	io.Writer
	Sync() error
	Close() error
}

// backend is implemented by every file system behind a scheme.
type backend interface {
	MkdirAll(path string) error
	IsDir(path string) bool
	IsFile(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	FileSize(path string) (uint64, error)
	Remove(path string) error
	RemoveAll(path string) error
	Rename(from, to string) error
	List(path string) ([]string, error)
	Touch(path string) error
	Open(path string, mode Mode) (File, error)
}

// VFS dispatches URI operations to the backend selected by the URI scheme.
type VFS struct {
	posix *posixFS
}

// New creates a VFS. perm is applied to files created on the local file system.
func New(perm os.FileMode) *VFS {
	if perm == 0 {
		perm = 0o644
	}
	return &VFS{posix: &posixFS{perm: perm}}
}

// Supported reports whether uri's scheme has a backend.
func Supported(uri string) bool {
	for _, s := range unsupportedSchemes {
		if strings.HasPrefix(uri, s) {
			return false
		}
	}
	return true
}

func (v *VFS) resolve(uri string) (backend, string, error) {
	if uri == "" {
		return nil, "", errors.InvalidInput(errors.PhaseStorage, "empty URI")
	}
	if strings.HasPrefix(uri, SchemeMem) {
		return mem, Clean(uri), nil
	}
	if !Supported(uri) {
		return nil, "", errors.Unsupported(errors.PhaseStorage, "file system for "+uri)
	}
	return v.posix, strings.TrimPrefix(Clean(uri), SchemeFile), nil
}

// Clean strips trailing separators.
func Clean(uri string) string {
	for len(uri) > 1 && strings.HasSuffix(uri, "/") && !strings.HasSuffix(uri, "://") {
		uri = uri[:len(uri)-1]
	}
	return uri
}

// Join appends name to uri.
func Join(uri string, names ...string) string {
	out := Clean(uri)
	for _, n := range names {
		out += "/" + n
	}
	return out
}

// Base returns the last path element of uri.
func Base(uri string) string {
	uri = Clean(uri)
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// restore maps a backend path back to a URI with the caller's scheme.
func restore(original, path string) string {
	if strings.HasPrefix(original, SchemeFile) {
		return SchemeFile + path
	}
	return path
}

func (v *VFS) MkdirAll(uri string) error {
	b, p, err := v.resolve(uri)
	if err != nil {
		return err
	}
	return wrap("mkdir", uri, b.MkdirAll(p))
}

func (v *VFS) IsDir(uri string) bool {
	b, p, err := v.resolve(uri)
	return err == nil && b.IsDir(p)
}

func (v *VFS) IsFile(uri string) bool {
	b, p, err := v.resolve(uri)
	return err == nil && b.IsFile(p)
}

func (v *VFS) ReadFile(uri string) ([]byte, error) {
	b, p, err := v.resolve(uri)
	if err != nil {
		return nil, err
	}
	data, err := b.ReadFile(p)
	return data, wrap("read", uri, err)
}

// WriteFile creates or truncates the file at uri, creating parents as needed.
func (v *VFS) WriteFile(uri string, data []byte) error {
	b, p, err := v.resolve(uri)
	if err != nil {
		return err
	}
	return wrap("write", uri, b.WriteFile(p, data))
}

func (v *VFS) FileSize(uri string) (uint64, error) {
	b, p, err := v.resolve(uri)
	if err != nil {
		return 0, err
	}
	size, err := b.FileSize(p)
	return size, wrap("stat", uri, err)
}

// DirSize sums the sizes of all files below uri.
func (v *VFS) DirSize(uri string) (uint64, error) {
	children, err := v.List(uri)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, c := range children {
		if v.IsDir(c) {
			n, err := v.DirSize(c)
			if err != nil {
				return 0, err
			}
			total += n
			continue
		}
		n, err := v.FileSize(c)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (v *VFS) RemoveFile(uri string) error {
	b, p, err := v.resolve(uri)
	if err != nil {
		return err
	}
	if !b.IsFile(p) {
		return errors.NotFound(errors.PhaseStorage, "file", uri)
	}
	return wrap("remove", uri, b.Remove(p))
}

func (v *VFS) RemoveDir(uri string) error {
	b, p, err := v.resolve(uri)
	if err != nil {
		return err
	}
	if !b.IsDir(p) {
		return errors.NotFound(errors.PhaseStorage, "directory", uri)
	}
	return wrap("remove", uri, b.RemoveAll(p))
}

// Move renames a file or directory. Both URIs must be on the same backend.
func (v *VFS) Move(from, to string) error {
	bf, pf, err := v.resolve(from)
	if err != nil {
		return err
	}
	bt, pt, err := v.resolve(to)
	if err != nil {
		return err
	}
	if bf != bt {
		return errors.Unsupported(errors.PhaseStorage, "move across file systems")
	}
	if !bf.IsDir(pf) && !bf.IsFile(pf) {
		return errors.NotFound(errors.PhaseStorage, "path", from)
	}
	return wrap("move", from, bf.Rename(pf, pt))
}

func (v *VFS) Copy(from, to string) error {
	data, err := v.ReadFile(from)
	if err != nil {
		return err
	}
	return v.WriteFile(to, data)
}

func (v *VFS) Touch(uri string) error {
	b, p, err := v.resolve(uri)
	if err != nil {
		return err
	}
	return wrap("touch", uri, b.Touch(p))
}

// List returns the sorted URIs of the direct children of uri.
func (v *VFS) List(uri string) ([]string, error) {
	b, p, err := v.resolve(uri)
	if err != nil {
		return nil, err
	}
	names, err := b.List(p)
	if err != nil {
		return nil, wrap("list", uri, err)
	}
	sort.Strings(names)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = restore(uri, n)
	}
	return out, nil
}

func (v *VFS) Open(uri string, mode Mode) (File, error) {
	b, p, err := v.resolve(uri)
	if err != nil {
		return nil, err
	}
	if mode == ModeRead && !b.IsFile(p) {
		return nil, errors.NotFound(errors.PhaseStorage, "file", uri)
	}
	f, err := b.Open(p, mode)
	return f, wrap("open", uri, err)
}

func wrap(op, uri string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.IO(op, uri, err)
}
