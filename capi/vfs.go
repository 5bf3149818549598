package capi

import (
	"go.uber.org/zap"

	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

type vfsObj struct {
	cfg *configObj
	v   *storage.VFS
}

type vfsFhObj struct {
	uri    string
	mode   VFSMode
	f      storage.File
	closed bool
}

// VFSAlloc creates a VFS. A null cfg uses the context's config.
func VFSAlloc(ctx Ctx, cfg Config, vfs *VFS) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		co := c.cfg.clone()
		if cfg != 0 {
			src, err := cfg.obj()
			if err != nil {
				return err
			}
			co = src.clone()
		}
		return put(kindVFS, &vfsObj{cfg: co, v: storage.New(co.octal("vfs.file.posix_file_permissions"))}, vfs)
	})
}

func VFSFree(vfs *VFS) {
	drop(kindVFS, vfs)
}

func withVFS(ctx Ctx, vfs VFS, op string, fn func(c *ctxObj, v *storage.VFS) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := vfs.obj()
		if err != nil {
			return err
		}
		c.sink().VFS(op, 0)
		return fn(c, o.v)
	})
}

func VFSGetConfig(ctx Ctx, vfs VFS, cfg *Config) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := vfs.obj()
		if err != nil {
			return err
		}
		return put(kindConfig, o.cfg.clone(), cfg)
	})
}

func VFSCreateDir(ctx Ctx, vfs VFS, uri string) Status {
	return withVFS(ctx, vfs, "create_dir", func(c *ctxObj, v *storage.VFS) error {
		if v.IsDir(uri) {
			return errors.InvalidState(errors.PhaseNative, "VFS: Cannot create directory %s; directory already exists", uri)
		}
		return v.MkdirAll(uri)
	})
}

func VFSIsDir(ctx Ctx, vfs VFS, uri string, isDir *bool) Status {
	return withVFS(ctx, vfs, "is_dir", func(c *ctxObj, v *storage.VFS) error {
		*isDir = v.IsDir(uri)
		return nil
	})
}

func VFSRemoveDir(ctx Ctx, vfs VFS, uri string) Status {
	return withVFS(ctx, vfs, "remove_dir", func(c *ctxObj, v *storage.VFS) error {
		return v.RemoveDir(uri)
	})
}

func VFSIsFile(ctx Ctx, vfs VFS, uri string, isFile *bool) Status {
	return withVFS(ctx, vfs, "is_file", func(c *ctxObj, v *storage.VFS) error {
		*isFile = v.IsFile(uri)
		return nil
	})
}

func VFSRemoveFile(ctx Ctx, vfs VFS, uri string) Status {
	return withVFS(ctx, vfs, "remove_file", func(c *ctxObj, v *storage.VFS) error {
		return v.RemoveFile(uri)
	})
}

func VFSFileSize(ctx Ctx, vfs VFS, uri string, size *uint64) Status {
	return withVFS(ctx, vfs, "file_size", func(c *ctxObj, v *storage.VFS) error {
		n, err := v.FileSize(uri)
		*size = n
		return err
	})
}

// VFSDirSize sums the sizes of all files below uri.
func VFSDirSize(ctx Ctx, vfs VFS, uri string, size *uint64) Status {
	return withVFS(ctx, vfs, "dir_size", func(c *ctxObj, v *storage.VFS) error {
		n, err := v.DirSize(uri)
		*size = n
		return err
	})
}

func VFSMoveFile(ctx Ctx, vfs VFS, from, to string) Status {
	return withVFS(ctx, vfs, "move_file", func(c *ctxObj, v *storage.VFS) error {
		if !v.IsFile(from) {
			return errors.NotFound(errors.PhaseNative, "VFS: Cannot move file; file", from)
		}
		return v.Move(from, to)
	})
}

func VFSMoveDir(ctx Ctx, vfs VFS, from, to string) Status {
	return withVFS(ctx, vfs, "move_dir", func(c *ctxObj, v *storage.VFS) error {
		if !v.IsDir(from) {
			return errors.NotFound(errors.PhaseNative, "VFS: Cannot move directory; directory", from)
		}
		return v.Move(from, to)
	})
}

func VFSCopyFile(ctx Ctx, vfs VFS, from, to string) Status {
	return withVFS(ctx, vfs, "copy_file", func(c *ctxObj, v *storage.VFS) error {
		return v.Copy(from, to)
	})
}

func copyDir(v *storage.VFS, from, to string) error {
	if err := v.MkdirAll(to); err != nil {
		return err
	}
	children, err := v.List(from)
	if err != nil {
		return err
	}
	for _, child := range children {
		dst := storage.Join(to, storage.Base(child))
		if v.IsDir(child) {
			err = copyDir(v, child, dst)
		} else {
			err = v.Copy(child, dst)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// VFSCopyDir copies a directory tree.
func VFSCopyDir(ctx Ctx, vfs VFS, from, to string) Status {
	return withVFS(ctx, vfs, "copy_dir", func(c *ctxObj, v *storage.VFS) error {
		if !v.IsDir(from) {
			return errors.NotFound(errors.PhaseNative, "VFS: Cannot copy directory; directory", from)
		}
		return copyDir(v, from, to)
	})
}

// VFSTouch creates an empty file, leaving existing files untouched.
func VFSTouch(ctx Ctx, vfs VFS, uri string) Status {
	return withVFS(ctx, vfs, "touch", func(c *ctxObj, v *storage.VFS) error {
		return v.Touch(uri)
	})
}

// VFSLsCallback receives one child URI. Returning 1 continues, 0 stops and
// -1 aborts with an error.
type VFSLsCallback func(uri string) int32

// VFSLs reports the direct children of uri in sorted order.
func VFSLs(ctx Ctx, vfs VFS, uri string, cb VFSLsCallback) Status {
	return withVFS(ctx, vfs, "ls", func(c *ctxObj, v *storage.VFS) error {
		if cb == nil {
			return errors.InvalidInput(errors.PhaseNative, "VFS: ls callback is nil")
		}
		children, err := v.List(uri)
		if err != nil {
			return err
		}
		for _, child := range children {
			switch cb(child) {
			case 1:
			case 0:
				return nil
			default:
				return errors.InvalidState(errors.PhaseNative, "VFS: ls callback failed at %s", child)
			}
		}
		return nil
	})
}

// VFSOpen opens a file. Write mode truncates, append mode appends.
func VFSOpen(ctx Ctx, vfs VFS, uri string, mode VFSMode, fh *VFSFh) Status {
	return withVFS(ctx, vfs, "open", func(c *ctxObj, v *storage.VFS) error {
		var m storage.Mode
		switch mode {
		case VFSModeRead:
			m = storage.ModeRead
		case VFSModeWrite:
			m = storage.ModeWrite
		case VFSModeAppend:
			m = storage.ModeAppend
		default:
			return errors.InvalidInput(errors.PhaseNative, "VFS: Invalid open mode %d", mode)
		}
		f, err := v.Open(uri, m)
		if err != nil {
			return err
		}
		if err := put(kindVFSFh, &vfsFhObj{uri: uri, mode: mode, f: f}, fh); err != nil {
			_ = f.Close()
			return err
		}
		return nil
	})
}

func withFh(ctx Ctx, fh VFSFh, fn func(c *ctxObj, o *vfsFhObj) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := fh.obj()
		if err != nil {
			return err
		}
		return fn(c, o)
	})
}

func (o *vfsFhObj) requireOpen(what string) error {
	if o.closed {
		return errors.InvalidState(errors.PhaseNative, "VFSFileHandle: Cannot %s %s; file is closed", what, o.uri)
	}
	return nil
}

// VFSRead reads len(buf) bytes at offset. A short read is an error.
func VFSRead(ctx Ctx, fh VFSFh, offset uint64, buf []byte) Status {
	return withFh(ctx, fh, func(c *ctxObj, o *vfsFhObj) error {
		if err := o.requireOpen("read"); err != nil {
			return err
		}
		if o.mode != VFSModeRead {
			return errors.InvalidState(errors.PhaseNative, "VFSFileHandle: Cannot read %s; file not opened in read mode", o.uri)
		}
		n, err := o.f.ReadAt(buf, int64(offset))
		c.sink().VFS("read", n)
		if n == len(buf) {
			return nil
		}
		return errors.IO("read", o.uri, err)
	})
}

func VFSWrite(ctx Ctx, fh VFSFh, data []byte) Status {
	return withFh(ctx, fh, func(c *ctxObj, o *vfsFhObj) error {
		if err := o.requireOpen("write"); err != nil {
			return err
		}
		if o.mode == VFSModeRead {
			return errors.InvalidState(errors.PhaseNative, "VFSFileHandle: Cannot write %s; file opened in read mode", o.uri)
		}
		n, err := o.f.Write(data)
		c.sink().VFS("write", n)
		if err != nil {
			return errors.IO("write", o.uri, err)
		}
		return nil
	})
}

func VFSSync(ctx Ctx, fh VFSFh) Status {
	return withFh(ctx, fh, func(c *ctxObj, o *vfsFhObj) error {
		if err := o.requireOpen("sync"); err != nil {
			return err
		}
		c.sink().VFS("sync", 0)
		return o.f.Sync()
	})
}

// VFSClose flushes and closes the file. Closing twice is an error.
func VFSClose(ctx Ctx, fh VFSFh) Status {
	return withFh(ctx, fh, func(c *ctxObj, o *vfsFhObj) error {
		if err := o.requireOpen("close"); err != nil {
			return err
		}
		o.closed = true
		return o.f.Close()
	})
}

func VFSFhIsClosed(ctx Ctx, fh VFSFh, closed *bool) Status {
	return withFh(ctx, fh, func(c *ctxObj, o *vfsFhObj) error {
		*closed = o.closed
		return nil
	})
}

// Drop closes the file if it is still open when the handle leaves the
// object table.
func (o *vfsFhObj) Drop() {
	if o.closed {
		return
	}
	o.closed = true
	if err := o.f.Close(); err != nil {
		Logger().Warn("closing vfs file on free failed", zap.String("uri", o.uri), zap.Error(err))
	}
}

// VFSFhFree releases a file handle, closing the file if still open.
func VFSFhFree(fh *VFSFh) {
	drop(kindVFSFh, fh)
}
