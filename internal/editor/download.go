package editor

import (
	"fmt"
	"os"
	"path/filepath"
)

// Downloader receives exported files.
type Downloader interface {
	Download(filename, contentType string, body []byte) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(filename, contentType string, body []byte) error

// Download calls f.
func (f DownloaderFunc) Download(filename, contentType string, body []byte) error {
	return f(filename, contentType, body)
}

// DirDownloader writes exports into Dir, creating it when needed.
type DirDownloader struct {
	Dir string

	// Saved is set to the path of the last written file.
	Saved string
}

// Download writes body to Dir/filename. Only the base name of filename is used.
func (d *DirDownloader) Download(filename, _ string, body []byte) error {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	d.Saved = path
	return nil
}
