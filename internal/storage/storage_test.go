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
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    URI
		wantErr bool
	}{
		{name: "local relative", in: "data/in.csv", want: URI{Path: "data/in.csv"}},
		{name: "local absolute", in: "/tmp/in.parquet", want: URI{Path: "/tmp/in.parquet"}},
		{name: "file scheme", in: "file:///tmp/x.csv", want: URI{Path: "/tmp/x.csv"}},
		{name: "s3", in: "s3://bucket/a/b.csv", want: URI{Scheme: "s3", Bucket: "bucket", Key: "a/b.csv"}},
		{name: "s3a", in: "s3a://bucket/x.jsonl", want: URI{Scheme: "s3", Bucket: "bucket", Key: "x.jsonl"}},
		{name: "empty", in: "", wantErr: true},
		{name: "no bucket", in: "s3:///key", wantErr: true},
		{name: "no key", in: "s3://bucket", wantErr: true},
		{name: "prefix only", in: "s3://bucket/dir/", wantErr: true},
		{name: "unknown scheme", in: "gs://bucket/key", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURI(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURIHelpers(t *testing.T) {
	u, err := ParseURI("s3://b/logs/2025/in.csv.gz")
	require.NoError(t, err)
	assert.True(t, u.IsRemote())
	assert.Equal(t, "in.csv.gz", u.Base())
	assert.Equal(t, "s3://b/logs/2025/in.csv.gz", u.String())

	l, err := ParseURI("dir/out.parquet")
	require.NoError(t, err)
	assert.False(t, l.IsRemote())
	assert.Equal(t, "out.parquet", l.Base())
	assert.Equal(t, "dir/out.parquet", l.String())
}

func TestLocalizeLocal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(p, []byte("a\n1\n"), 0o644))

	got, cleanup, err := Localize(context.Background(), nil, URI{Path: p})
	require.NoError(t, err)
	assert.Equal(t, p, got)
	cleanup()
	_, err = os.Stat(p)
	assert.NoError(t, err, "cleanup must not remove local inputs")
}

func TestLocalizeMissing(t *testing.T) {
	_, cleanup, err := Localize(context.Background(), nil, URI{Path: filepath.Join(t.TempDir(), "nope.csv")})
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotNil(t, cleanup)
}

func TestLocalizeRemoteWithoutClient(t *testing.T) {
	_, _, err := Localize(context.Background(), nil, URI{Scheme: "s3", Bucket: "b", Key: "k.csv"})
	assert.Error(t, err)
}

func TestPublishLocal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "staged.csv")
	require.NoError(t, os.WriteFile(src, []byte("x\n"), 0o644))
	dst := filepath.Join(dir, "nested", "final.csv")

	require.NoError(t, Publish(context.Background(), nil, src, URI{Path: dst}))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(b))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&types.NoSuchKey{}))
	assert.False(t, IsNotFound(os.ErrNotExist))
}

func TestNewClientFromConfig(t *testing.T) {
	c := newClientFromConfig(aws.Config{Region: "us-east-1"}, Config{
		Region:    "us-west-2",
		Endpoint:  "http://localhost:9000",
		PathStyle: true,
		TmpDir:    "/scratch",
	})
	opts := c.S3.Options()
	assert.Equal(t, "us-west-2", opts.Region)
	assert.True(t, opts.UsePathStyle)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *opts.BaseEndpoint)
	assert.Equal(t, "/scratch", c.tmpDir)
	assert.NotNil(t, c.Tracer)
}
