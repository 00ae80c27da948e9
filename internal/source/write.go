package source

import (
	"bufio"
	"os"
	"path/filepath"
)

// WriteAtomic replaces dest with data through a temp file in the same
// directory and a rename, so readers never observe a half-written file.
func WriteAtomic(dest string, data []byte, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".fastdoc-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	bw := bufio.NewWriter(tmp)
	if _, err := bw.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Save encodes text with the file's encoding and writes it atomically to
// path (usually f.Path).
func (f *File) Save(path, text string) error {
	data, err := f.Encode(text)
	if err != nil {
		return err
	}
	return WriteAtomic(path, data, f.Mode)
}
