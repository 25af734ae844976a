package core

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the subset of filesystem operations used for snapshots,
// logs and certificates.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// RealFS is a real filesystem implementation using os package
type RealFS struct{}

func (f *RealFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (f *RealFS) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }
func (f *RealFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
func (f *RealFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (f *RealFS) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }
func (f *RealFS) Remove(name string) error                     { return os.Remove(name) }

// WriteFileAtomic writes data next to name and renames it into place, so a
// reader never sees a half-written document.
func WriteFileAtomic(fsys FileSystem, name string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := name + ".tmp"
	if err := fsys.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := fsys.Rename(tmp, name); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}
