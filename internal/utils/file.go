package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// frame formats an image sequence may contain
var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"bmp": true, "tiff": true, "webp": true,
}

// EnsureDir creates dir and its parents if needed
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// GetFileExtension returns the lowercased file extension without the dot
func GetFileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsImageFile reports whether filename has a frame image extension
func IsImageFile(filename string) bool {
	return imageExtensions[GetFileExtension(filename)]
}

// ListImageFiles lists the image files directly inside dir, sorted by name
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FrameFilename returns the path of the n-th frame (1-based) of a sequence
func FrameFilename(dir string, n int, format string) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%06d.%s", n, strings.ToLower(format)))
}

// FileExists reports whether filename exists and is not a directory
func FileExists(filename string) bool {
	mode, ok := statMode(filename)
	return ok && !mode.IsDir()
}

// DirExists reports whether dirname exists and is a directory
func DirExists(dirname string) bool {
	mode, ok := statMode(dirname)
	return ok && mode.IsDir()
}

func statMode(name string) (fs.FileMode, bool) {
	info, err := os.Stat(name)
	if err != nil {
		return 0, false
	}
	return info.Mode(), true
}
