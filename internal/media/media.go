// Package media stores uploaded guestbook videos, costume photos and prop
// images, either on local disk or in a Firebase Storage bucket.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrInvalidKey         = errors.New("invalid object key")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

type Object struct {
	Key         string
	ContentType string
	Size        int64
}

type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}

var videoTypes = map[string]string{
	"video/webm":      ".webm",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// VideoExtension returns the file extension for an allowed video type.
func VideoExtension(contentType string) (string, error) {
	ext, ok := videoTypes[baseType(contentType)]
	if !ok {
		return "", ErrUnsupportedContent
	}
	return ext, nil
}

func ImageExtension(contentType string) (string, error) {
	ext, ok := imageTypes[baseType(contentType)]
	if !ok {
		return "", ErrUnsupportedContent
	}
	return ext, nil
}

// NewKey builds a unique key under prefix, e.g. "guestbook/<uuid>.webm".
func NewKey(prefix, ext string) string {
	return path.Join(prefix, uuid.NewString()+ext)
}

// CleanKey rejects absolute keys and keys escaping the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func baseType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func BaseType(contentType string) string {
	return baseType(contentType)
}

// ContentTypeForKey guesses the type from a stored key's extension.
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	for ct, e := range videoTypes {
		if e == ext {
			return ct
		}
	}
	for ct, e := range imageTypes {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}
