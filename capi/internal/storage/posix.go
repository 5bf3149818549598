package storage

import (
	"os"
	"path/filepath"
)

type posixFS struct {
	perm os.FileMode
}

func dirPerm(perm os.FileMode) os.FileMode {
	// directories need search permission wherever read is granted
	return perm | (perm&0o444)>>2
}

func (fs *posixFS) MkdirAll(path string) error {
	return os.MkdirAll(path, dirPerm(fs.perm))
}

func (fs *posixFS) IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func (fs *posixFS) IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func (fs *posixFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (fs *posixFS) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm(fs.perm)); err != nil {
		return err
	}
	return os.WriteFile(path, data, fs.perm)
}

func (fs *posixFS) FileSize(path string) (uint64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}

func (fs *posixFS) Remove(path string) error {
	return os.Remove(path)
}

func (fs *posixFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (fs *posixFS) Rename(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), dirPerm(fs.perm)); err != nil {
		return err
	}
	return os.Rename(from, to)
}

func (fs *posixFS) List(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, filepath.Join(path, e.Name()))
	}
	return out, nil
}

func (fs *posixFS) Touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm(fs.perm)); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, fs.perm)
	if err != nil {
		return err
	}
	return f.Close()
}

func (fs *posixFS) Open(path string, mode Mode) (File, error) {
	switch mode {
	case ModeWrite:
		if err := os.MkdirAll(filepath.Dir(path), dirPerm(fs.perm)); err != nil {
			return nil, err
		}
		return os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, fs.perm)
	case ModeAppend:
		if err := os.MkdirAll(filepath.Dir(path), dirPerm(fs.perm)); err != nil {
			return nil, err
		}
		return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, fs.perm)
	default:
		return os.Open(path)
	}
}
