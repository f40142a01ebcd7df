// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package blob abstracts the object storage that holds ingested images.
package blob

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// Store is a flat object namespace addressed by slash-separated paths.
type Store interface {
	// Put writes data at p, overwriting any existing object.
	Put(ctx context.Context, p string, data []byte, contentType string) error
	// Copy duplicates the object at src to dst. The source is left in place.
	Copy(ctx context.Context, src, dst string) error
	// Delete removes the object at p. Deleting a missing object succeeds.
	Delete(ctx context.Context, p string) error
	// MakePublic grants anonymous read access to the object at p.
	MakePublic(ctx context.Context, p string) error
	// PublicURL is the stable anonymous URL for p. It does not check that
	// the object exists or is public.
	PublicURL(p string) string
	Exists(ctx context.Context, p string) (bool, error)
}

// PublicOpener is implemented by stores whose public objects are served by
// this process rather than by the storage provider.
type PublicOpener interface {
	OpenPublic(ctx context.Context, p string) (io.ReadSeekCloser, error)
}

// Move relocates an object: copy to dst, then delete src. A failed delete
// leaves both copies and is reported.
func Move(ctx context.Context, s Store, src, dst string) error {
	if src == dst {
		return nil
	}
	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}
	return s.Delete(ctx, src)
}

// ValidatePath rejects empty, absolute and parent-escaping object paths.
func ValidatePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return slotherr.New(slotherr.CodeBlobPathInvalid, "blob path is required")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return slotherr.New(slotherr.CodeBlobPathInvalid, "blob path must be relative",
			slotherr.FieldBlobPath(p))
	}
	clean := path.Clean(p)
	if clean != p || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return slotherr.New(slotherr.CodeBlobPathInvalid, "blob path is not canonical",
			slotherr.FieldBlobPath(p))
	}
	return nil
}

// Join builds an object path under prefix.
func Join(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Base returns the final element of an object path.
func Base(p string) string {
	return path.Base(p)
}

// DetectContentType sniffs data and falls back to JPEG for unrecognised
// payloads, which is what chat channels deliver for photos.
func DetectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return "image/jpeg"
	}
	return ct
}

// ExtForContentType maps an image content type to a file extension.
func ExtForContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	default:
		return "jpg"
	}
}

// ContentTypeForPath is the inverse of ExtForContentType for serving.
func ContentTypeForPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/jpeg"
	}
}
