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


// Package storage localises inputs and publishes outputs that may live
// in S3 (or an S3-compatible store such as MinIO).
package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when a remote object does not exist.
var ErrNotFound = errors.New("object not found")

// URI identifies a file either on the local filesystem or in a bucket.
type URI struct {
	Scheme string
	Bucket string
	Key    string
	// Path is the local filesystem path when Scheme is empty.
	Path string
}

// ParseURI recognises s3://bucket/key (and s3a://) references. Anything
// else is treated as a local path.
func ParseURI(s string) (URI, error) {
	if s == "" {
		return URI{}, errors.New("empty uri")
	}
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return URI{Path: s}, nil
	}
	switch strings.ToLower(scheme) {
	case "s3", "s3a":
	case "file":
		if rest == "" {
			return URI{}, fmt.Errorf("uri %q: missing path", s)
		}
		return URI{Path: rest}, nil
	default:
		return URI{}, fmt.Errorf("uri %q: unsupported scheme %q", s, scheme)
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return URI{}, fmt.Errorf("uri %q: missing bucket", s)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return URI{}, fmt.Errorf("uri %q: missing object key", s)
	}
	return URI{Scheme: "s3", Bucket: bucket, Key: key}, nil
}

// IsRemote reports whether the URI refers to an object store.
func (u URI) IsRemote() bool {
	return u.Scheme != ""
}

// Base returns the final path element of the key or local path.
func (u URI) Base() string {
	if u.IsRemote() {
		return path.Base(u.Key)
	}
	return path.Base(u.Path)
}

func (u URI) String() string {
	if !u.IsRemote() {
		return u.Path
	}
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}
