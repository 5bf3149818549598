package capi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestVFS(t *testing.T, ctx Ctx) VFS {
	t.Helper()
	var vfs VFS
	must(t, ctx, VFSAlloc(ctx, 0, &vfs), "VFSAlloc")
	t.Cleanup(func() { VFSFree(&vfs) })
	return vfs
}

func TestVFSFileRoundTrip(t *testing.T) {
	ctx := newTestCtx(t)
	vfs := newTestVFS(t, ctx)
	dir := memURI(t, "dir")
	file := dir + "/data.bin"

	must(t, ctx, VFSCreateDir(ctx, vfs, dir), "VFSCreateDir")
	if st := VFSCreateDir(ctx, vfs, dir); st != Err {
		t.Errorf("second VFSCreateDir = %d, want Err", st)
	}

	var fh VFSFh
	must(t, ctx, VFSOpen(ctx, vfs, file, VFSModeWrite, &fh), "VFSOpen write")
	must(t, ctx, VFSWrite(ctx, fh, []byte("hello ")), "VFSWrite")
	must(t, ctx, VFSWrite(ctx, fh, []byte("world")), "VFSWrite")
	must(t, ctx, VFSSync(ctx, fh), "VFSSync")
	must(t, ctx, VFSClose(ctx, fh), "VFSClose")
	if st := VFSClose(ctx, fh); st != Err {
		t.Errorf("second VFSClose = %d, want Err", st)
	}
	var closed bool
	must(t, ctx, VFSFhIsClosed(ctx, fh, &closed), "VFSFhIsClosed")
	if !closed {
		t.Error("handle not closed")
	}
	VFSFhFree(&fh)

	must(t, ctx, VFSOpen(ctx, vfs, file, VFSModeAppend, &fh), "VFSOpen append")
	must(t, ctx, VFSWrite(ctx, fh, []byte("!")), "VFSWrite")
	must(t, ctx, VFSClose(ctx, fh), "VFSClose")
	VFSFhFree(&fh)

	var size uint64
	must(t, ctx, VFSFileSize(ctx, vfs, file, &size), "VFSFileSize")
	if size != 12 {
		t.Errorf("size = %d, want 12", size)
	}

	must(t, ctx, VFSOpen(ctx, vfs, file, VFSModeRead, &fh), "VFSOpen read")
	defer VFSFhFree(&fh)
	buf := make([]byte, 5)
	must(t, ctx, VFSRead(ctx, fh, 6, buf), "VFSRead")
	if string(buf) != "world" {
		t.Errorf("read %q", buf)
	}
	if st := VFSRead(ctx, fh, 10, buf); st != Err {
		t.Errorf("short read = %d, want Err", st)
	}
	if st := VFSWrite(ctx, fh, []byte("x")); st != Err {
		t.Errorf("write on read handle = %d, want Err", st)
	}
}

func TestVFSDirectoryOps(t *testing.T) {
	ctx := newTestCtx(t)
	vfs := newTestVFS(t, ctx)
	src := memURI(t, "src")
	must(t, ctx, VFSCreateDir(ctx, vfs, src+"/nested"), "VFSCreateDir")
	must(t, ctx, VFSTouch(ctx, vfs, src+"/a"), "VFSTouch")
	must(t, ctx, VFSTouch(ctx, vfs, src+"/nested/b"), "VFSTouch")

	var ls []string
	must(t, ctx, VFSLs(ctx, vfs, src, func(uri string) int32 {
		ls = append(ls, uri)
		return 1
	}), "VFSLs")
	if diff := cmp.Diff([]string{src + "/a", src + "/nested"}, ls); diff != "" {
		t.Errorf("ls mismatch (-want +got):\n%s", diff)
	}

	var stopped []string
	must(t, ctx, VFSLs(ctx, vfs, src, func(uri string) int32 {
		stopped = append(stopped, uri)
		return 0
	}), "VFSLs stop")
	if len(stopped) != 1 {
		t.Errorf("callback ran %d times after stop", len(stopped))
	}

	dst := memURI(t, "dst")
	must(t, ctx, VFSCopyDir(ctx, vfs, src, dst), "VFSCopyDir")
	var isFile, isDir bool
	must(t, ctx, VFSIsFile(ctx, vfs, dst+"/nested/b", &isFile), "VFSIsFile")
	if !isFile {
		t.Error("copied tree lacks nested/b")
	}

	moved := memURI(t, "moved")
	must(t, ctx, VFSMoveDir(ctx, vfs, dst, moved), "VFSMoveDir")
	must(t, ctx, VFSIsDir(ctx, vfs, dst, &isDir), "VFSIsDir")
	if isDir {
		t.Error("source of move still exists")
	}
	must(t, ctx, VFSMoveFile(ctx, vfs, moved+"/a", moved+"/c"), "VFSMoveFile")
	must(t, ctx, VFSCopyFile(ctx, vfs, moved+"/c", moved+"/d"), "VFSCopyFile")
	must(t, ctx, VFSRemoveFile(ctx, vfs, moved+"/c"), "VFSRemoveFile")
	must(t, ctx, VFSIsFile(ctx, vfs, moved+"/d", &isFile), "VFSIsFile")
	if !isFile {
		t.Error("copied file missing")
	}

	var size uint64
	must(t, ctx, VFSDirSize(ctx, vfs, moved, &size), "VFSDirSize")
	if size != 0 {
		t.Errorf("dir size = %d, want 0", size)
	}
	must(t, ctx, VFSRemoveDir(ctx, vfs, moved), "VFSRemoveDir")
	must(t, ctx, VFSIsDir(ctx, vfs, moved, &isDir), "VFSIsDir")
	if isDir {
		t.Error("directory not removed")
	}
}

func TestVFSConfig(t *testing.T) {
	ctx := newTestCtx(t)
	var cfg Config
	var e Error
	must(t, ctx, ConfigAlloc(&cfg, &e), "ConfigAlloc")
	defer ConfigFree(&cfg)
	must(t, ctx, ConfigSet(cfg, "vfs.file.posix_file_permissions", "600", &e), "ConfigSet")

	var vfs VFS
	must(t, ctx, VFSAlloc(ctx, cfg, &vfs), "VFSAlloc")
	defer VFSFree(&vfs)
	var got Config
	must(t, ctx, VFSGetConfig(ctx, vfs, &got), "VFSGetConfig")
	defer ConfigFree(&got)
	var equal bool
	must(t, ctx, ConfigCompare(cfg, got, &equal), "ConfigCompare")
	if !equal {
		t.Error("VFS config differs from the one it was created with")
	}
}
