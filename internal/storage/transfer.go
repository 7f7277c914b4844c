// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IsNotFound reports whether err is an S3 "no such key" response.
func IsNotFound(err error) bool {
	var noKeyErr *types.NoSuchKey
	if errors.As(err, &noKeyErr) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound"
	}
	return false
}

func noop() {}

// Localize returns a local path for uri. Local paths are returned as-is
// with a no-op cleanup. Remote objects are downloaded into a temp file
// which cleanup removes. A nil client is only valid for local paths.
func Localize(ctx context.Context, c *Client, uri URI) (localPath string, cleanup func(), err error) {
	if !uri.IsRemote() {
		if _, err := os.Stat(uri.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", noop, fmt.Errorf("%s: %w", uri.Path, ErrNotFound)
			}
			return "", noop, err
		}
		return uri.Path, noop, nil
	}
	if c == nil {
		return "", noop, fmt.Errorf("%s: no object store client configured", uri)
	}
	return c.Download(ctx, uri)
}

// Download fetches a remote object into a temp file that keeps the
// object's extension, so format detection still works on the local copy.
func (c *Client) Download(ctx context.Context, uri URI) (string, func(), error) {
	ctx, span := c.Tracer.Start(ctx, "storage.Download",
		trace.WithAttributes(
			attribute.String("bucket", uri.Bucket),
			attribute.String("key", uri.Key),
		),
	)
	defer span.End()

	f, err := os.CreateTemp(c.tmpDir, "s3-*-"+uri.Base())
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}

	downloader := manager.NewDownloader(c.S3)
	size, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(uri.Bucket),
		Key:    aws.String(uri.Key),
	})
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		if IsNotFound(err) {
			return "", noop, fmt.Errorf("%s: %w", uri, ErrNotFound)
		}
		return "", noop, fmt.Errorf("download %s: %w", uri, err)
	}
	span.SetAttributes(attribute.Int64("size", size))

	// the SDK has already flushed every byte through WriteAt
	_ = f.Close()
	name := f.Name()
	return name, func() { _ = os.Remove(name) }, nil
}

// Publish places the local file at uri. Local destinations are renamed
// into place; remote ones are uploaded.
func Publish(ctx context.Context, c *Client, localPath string, uri URI) error {
	if !uri.IsRemote() {
		if localPath == uri.Path {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(uri.Path), 0o755); err != nil {
			return err
		}
		return os.Rename(localPath, uri.Path)
	}
	if c == nil {
		return fmt.Errorf("%s: no object store client configured", uri)
	}
	return c.Upload(ctx, localPath, uri)
}

// Upload sends localPath to uri.
func (c *Client) Upload(ctx context.Context, localPath string, uri URI) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = file.Close() }()

	ctx, span := c.Tracer.Start(ctx, "storage.Upload",
		trace.WithAttributes(
			attribute.String("bucket", uri.Bucket),
			attribute.String("key", uri.Key),
		),
	)
	defer span.End()

	uploader := manager.NewUploader(c.S3)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(uri.Bucket),
		Key:      aws.String(uri.Key),
		Body:     file,
		Metadata: map[string]string{"writer": "partseq"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return fmt.Errorf("upload %s: %w", uri, err)
	}
	return nil
}
