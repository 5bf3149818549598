package tiledb

import (
	"io"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

// VFS gives file-level access to the storage backends the engine uses.
type VFS struct {
	ctx *Context
	h   *resource.Handle[capi.VFS]
}

// NewVFS creates a VFS. A nil cfg uses the context's config.
func NewVFS(ctx *Context, cfg *Config) (*VFS, error) {
	var p capi.VFS
	alloc := func(c capi.Ctx, cp capi.Config) capi.Status { return capi.VFSAlloc(c, cp, &p) }
	var err error
	if cfg == nil {
		err = ctx.do(func(c capi.Ctx) capi.Status { return alloc(c, 0) })
	} else {
		err = call(ctx, cfg.h, alloc)
	}
	if err != nil {
		return nil, err
	}
	h, err := own(p, capi.VFSFree)
	if err != nil {
		return nil, err
	}
	return &VFS{ctx: ctx, h: h}, nil
}

func (v *VFS) Free() {
	v.h.Free()
}

func (v *VFS) call(fn func(capi.Ctx, capi.VFS) capi.Status) error {
	return call(v.ctx, v.h, fn)
}

func (v *VFS) Config() (*Config, error) {
	var cfg capi.Config
	if err := v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSGetConfig(c, p, &cfg) }); err != nil {
		return nil, err
	}
	return newConfig(cfg)
}

func (v *VFS) CreateDir(uri string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSCreateDir(c, p, uri) })
}

func (v *VFS) IsDir(uri string) (bool, error) {
	var b bool
	err := v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSIsDir(c, p, uri, &b) })
	return b, err
}

// RemoveDir removes a directory and everything under it.
func (v *VFS) RemoveDir(uri string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSRemoveDir(c, p, uri) })
}

func (v *VFS) IsFile(uri string) (bool, error) {
	var b bool
	err := v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSIsFile(c, p, uri, &b) })
	return b, err
}

func (v *VFS) RemoveFile(uri string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSRemoveFile(c, p, uri) })
}

func (v *VFS) FileSize(uri string) (uint64, error) {
	var n uint64
	err := v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSFileSize(c, p, uri, &n) })
	return n, err
}

// DirSize sums the sizes of all files under uri.
func (v *VFS) DirSize(uri string) (uint64, error) {
	var n uint64
	err := v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSDirSize(c, p, uri, &n) })
	return n, err
}

func (v *VFS) MoveFile(from, to string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSMoveFile(c, p, from, to) })
}

func (v *VFS) MoveDir(from, to string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSMoveDir(c, p, from, to) })
}

func (v *VFS) CopyFile(from, to string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSCopyFile(c, p, from, to) })
}

func (v *VFS) CopyDir(from, to string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSCopyDir(c, p, from, to) })
}

// Touch creates an empty file. Existing files are left untouched.
func (v *VFS) Touch(uri string) error {
	return v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSTouch(c, p, uri) })
}

// VisitChildren calls fn with each direct child of uri in sorted order
// until fn returns false or an error.
func (v *VFS) VisitChildren(uri string, fn func(uri string) (bool, error)) error {
	var cbErr error
	cb := func(child string) int32 {
		more, err := fn(child)
		switch {
		case err != nil:
			cbErr = err
			return -1
		case more:
			return 1
		}
		return 0
	}
	err := v.call(func(c capi.Ctx, p capi.VFS) capi.Status { return capi.VFSLs(c, p, uri, cb) })
	if cbErr != nil {
		return cbErr
	}
	return err
}

// Children lists the direct children of uri.
func (v *VFS) Children(uri string) ([]string, error) {
	var out []string
	err := v.VisitChildren(uri, func(child string) (bool, error) {
		out = append(out, child)
		return true, nil
	})
	return out, err
}

// Open opens the file at uri. VFSWrite truncates, VFSAppend
// appends.
func (v *VFS) Open(uri string, mode VFSMode) (*VFSFile, error) {
	var fh capi.VFSFh
	if err := v.call(func(c capi.Ctx, p capi.VFS) capi.Status {
		return capi.VFSOpen(c, p, uri, capi.VFSMode(mode), &fh)
	}); err != nil {
		return nil, err
	}
	h, err := own(fh, capi.VFSFhFree)
	if err != nil {
		return nil, err
	}
	return &VFSFile{vfs: v, uri: uri, h: h}, nil
}

// VFSFile is an open file. It implements io.ReaderAt in read mode and
// io.Writer in write and append mode.
type VFSFile struct {
	vfs *VFS
	uri string
	h   *resource.Handle[capi.VFSFh]
}

var (
	_ io.ReaderAt = (*VFSFile)(nil)
	_ io.Writer   = (*VFSFile)(nil)
	_ io.Closer   = (*VFSFile)(nil)
)

func (f *VFSFile) call(fn func(capi.Ctx, capi.VFSFh) capi.Status) error {
	return call(f.vfs.ctx, f.h, fn)
}

// ReadAt reads len(b) bytes at off. Reads past the end of the file are
// shortened and return io.EOF.
func (f *VFSFile) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.InvalidInput(errors.PhaseValidate, "negative offset %d", off)
	}
	size, err := f.vfs.FileSize(f.uri)
	if err != nil {
		return 0, err
	}
	if uint64(off) >= size {
		if len(b) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := len(b)
	if rest := size - uint64(off); uint64(n) > rest {
		n = int(rest)
	}
	if err := f.call(func(c capi.Ctx, p capi.VFSFh) capi.Status {
		return capi.VFSRead(c, p, uint64(off), b[:n])
	}); err != nil {
		return 0, err
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (f *VFSFile) Write(b []byte) (int, error) {
	if err := f.call(func(c capi.Ctx, p capi.VFSFh) capi.Status { return capi.VFSWrite(c, p, b) }); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (f *VFSFile) Sync() error {
	return f.call(capi.VFSSync)
}

// Close flushes and closes the file. Closing twice is an error.
func (f *VFSFile) Close() error {
	return f.call(capi.VFSClose)
}

func (f *VFSFile) IsClosed() (bool, error) {
	var closed bool
	err := f.call(func(c capi.Ctx, p capi.VFSFh) capi.Status { return capi.VFSFhIsClosed(c, p, &closed) })
	return closed, err
}

// Free releases the handle, closing the file if still open.
func (f *VFSFile) Free() {
	f.h.Free()
}
