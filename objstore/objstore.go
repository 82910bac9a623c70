// Package objstore abstracts the object store behind the Download/PresignGET
// operations of spec.md §4.5. Grounded on storj-storj's go.mod use of
// github.com/minio/minio-go for the primary client, and the teacher's own
// cloud-backend error-translation pattern (a typed ObjectNotFound vs.
// ObjectStoreError split driven off the provider's error code).
package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go"

	"github.com/PilotDataPlatform/download/cmn"
)

// ObjectStore is the interface both download paths (server-side zip
// assembly and single-file presigned redirect) program against.
type ObjectStore interface {
	Download(ctx context.Context, bucket, objectPath, localPath string) error
	PresignGET(ctx context.Context, bucket, objectPath string) (string, error)
}

// S3ObjectStore is a minio-go-backed ObjectStore. Two logical instances
// coexist per spec.md §4.5: one bound to the internal endpoint (server-side
// fetches during zip assembly), one bound to the public endpoint (minting
// URLs the caller follows directly).
type S3ObjectStore struct {
	client *minio.Client
}

// New constructs an S3ObjectStore against endpoint with the given
// credentials. useTLS selects https vs. http, matching the
// boto3_internal/boto3_public split in the original service's client
// construction.
func New(endpoint, accessKey, secretKey string, useTLS bool) (*S3ObjectStore, error) {
	client, err := minio.New(endpoint, accessKey, secretKey, useTLS)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "objstore")
	}
	return &S3ObjectStore{client: client}, nil
}

// Download streams the object to localPath, creating parent directories.
func (s *S3ObjectStore) Download(ctx context.Context, bucket, objectPath, localPath string) error {
	obj, err := s.client.GetObjectWithContext(ctx, bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return translateErr(err, bucket, objectPath)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		return translateErr(err, bucket, objectPath)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return cmn.NewErrObjectStoreError(err, bucket, objectPath)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return cmn.NewErrObjectStoreError(err, bucket, objectPath)
	}
	defer f.Close()

	if _, err := io.Copy(f, obj); err != nil {
		return cmn.NewErrObjectStoreError(err, bucket, objectPath)
	}
	return nil
}

// PresignGET mints a short-lived GET URL for bucket/objectPath.
func (s *S3ObjectStore) PresignGET(ctx context.Context, bucket, objectPath string) (string, error) {
	u, err := s.client.PresignedGetObject(bucket, objectPath, 15*time.Minute, nil)
	if err != nil {
		return "", translateErr(err, bucket, objectPath)
	}
	return u.String(), nil
}

func translateErr(err error, bucket, objectPath string) error {
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return cmn.NewErrObjectNotFound(err, bucket, objectPath)
	}
	return cmn.NewErrObjectStoreError(err, bucket, objectPath)
}

// ParseLocation implements spec.md §4.5's URI-splitting rule: strip
// scheme+host from uri of the form <scheme>://<host>/<bucket>/<object_path>,
// then split the remainder once on "/" to yield bucket and object_path
// (which may itself contain further slashes).
func ParseLocation(uri string) (bucket, objectPath string, err error) {
	rest := uri
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+len("://"):]
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[idx+1:]
	} else {
		return "", "", cmn.NewErrObjectStoreError(nil, "", uri)
	}

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", cmn.NewErrObjectStoreError(nil, "", uri)
	}
	return parts[0], parts[1], nil
}
