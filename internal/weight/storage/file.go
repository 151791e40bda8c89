package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBlob is a local file. Writes go to a temp file in the same directory which is then
// renamed over the target, so a failed write leaves the previous content intact.
type FileBlob struct {
	path string
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{
		path: path,
	}
}

func (b *FileBlob) Read(_ context.Context) ([]byte, error) {
	content, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return content, nil
}

func (b *FileBlob) Write(_ context.Context, content []byte) (err error) {
	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(b.path); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", b.path, err)
	}
	return nil
}

func (b *FileBlob) String() string {
	return "file:" + b.path
}
