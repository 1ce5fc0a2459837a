package util

import (
	"errors"
	"path/filepath"
	"strings"
)

// SupportedImageExts is the set of upload extensions the pipeline accepts.
var SupportedImageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".bmp":  {},
}

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// ImageExt returns the lowercase extension of name if it is a supported image
// format, or an error otherwise.
func ImageExt(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := SupportedImageExts[ext]; !ok {
		return "", errors.New("unsupported image format")
	}
	return ext, nil
}

// MimeForExt maps a supported image extension to its MIME type.
func MimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
