// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package gcs stores blobs in a Google Cloud Storage bucket, including the
// default bucket of a Firebase project.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/slothbot-dev/slothbot/internal/blob"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// PublicHost serves objects that carry an allUsers read ACL.
const PublicHost = "https://storage.googleapis.com"

var _ blob.Store = (*Store)(nil)

func init() {
	blob.RegisterBackend("gcs", func(ctx context.Context, cfg blob.Config) (blob.Store, error) {
		var opts []option.ClientOption
		if cfg.GCSCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GCSCredentialsJSON)))
		}
		if cfg.GCSEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.GCSEndpoint))
		}
		return New(ctx, cfg.GCSBucket, opts...)
	})
}

// Store implements blob.Store on the Cloud Storage JSON API.
type Store struct {
	svc    *storage.Service
	bucket string
}

// New creates a bucket-scoped store. Without explicit options the client
// uses Application Default Credentials.
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Store, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, slotherr.New(slotherr.CodeBlobWriteFailure, "gcs bucket is required")
	}
	svc, err := storage.NewService(ctx, append([]option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}, opts...)...)
	if err != nil {
		return nil, slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "creating storage client",
			slotherr.Field("bucket", bucket))
	}
	return &Store{svc: svc, bucket: bucket}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

func (s *Store) Put(ctx context.Context, p string, data []byte, contentType string) error {
	if err := blob.ValidatePath(p); err != nil {
		return err
	}
	if contentType == "" {
		contentType = blob.ContentTypeForPath(p)
	}
	obj := &storage.Object{Name: p, ContentType: contentType}
	_, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "uploading object", s.fields(p)...)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	if err := blob.ValidatePath(src); err != nil {
		return err
	}
	if err := blob.ValidatePath(dst); err != nil {
		return err
	}
	_, err := s.svc.Objects.Copy(s.bucket, src, s.bucket, dst, &storage.Object{}).Context(ctx).Do()
	if isNotFound(err) {
		return slotherr.New(slotherr.CodeBlobNotFound, "source object does not exist", s.fields(src)...)
	}
	if err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "copying object",
			append(s.fields(dst), slotherr.Field("source", src))...)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	if err := blob.ValidatePath(p); err != nil {
		return err
	}
	err := s.svc.Objects.Delete(s.bucket, p).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "deleting object", s.fields(p)...)
	}
	return nil
}

func (s *Store) MakePublic(ctx context.Context, p string) error {
	if err := blob.ValidatePath(p); err != nil {
		return err
	}
	acl := &storage.ObjectAccessControl{Entity: "allUsers", Role: "READER"}
	_, err := s.svc.ObjectAccessControls.Insert(s.bucket, p, acl).Context(ctx).Do()
	if isNotFound(err) {
		return slotherr.New(slotherr.CodeBlobNotFound, "object does not exist", s.fields(p)...)
	}
	if err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "granting public read", s.fields(p)...)
	}
	return nil
}

func (s *Store) PublicURL(p string) string {
	return PublicURL(s.bucket, p)
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	if err := blob.ValidatePath(p); err != nil {
		return false, err
	}
	_, err := s.svc.Objects.Get(s.bucket, p).Fields("name").Context(ctx).Do()
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, slotherr.Wrap(err, slotherr.CodeBlobReadFailure, "reading object metadata", s.fields(p)...)
	}
}

func (s *Store) fields(p string) []slotherr.Attr {
	return []slotherr.Attr{slotherr.Field("bucket", s.bucket), slotherr.FieldBlobPath(p)}
}

// PublicURL builds the anonymous URL of an object in bucket.
func PublicURL(bucket, p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return PublicHost + "/" + bucket + "/" + strings.Join(segments, "/")
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}
