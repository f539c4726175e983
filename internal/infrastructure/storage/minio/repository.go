package minio

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/tableio"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// URIScheme prefixes object store table locations.
const URIScheme = "minio://"

// ObjectRef addresses one object.
type ObjectRef struct {
	Bucket string
	Key    string
}

func (r ObjectRef) String() string {
	return URIScheme + r.Bucket + "/" + r.Key
}

// IsURI reports whether s names an object rather than a local path.
func IsURI(s string) bool {
	return strings.HasPrefix(s, URIScheme)
}

// ParseURI splits "minio://bucket/key".
func ParseURI(s string) (ObjectRef, error) {
	if !IsURI(s) {
		return ObjectRef{}, errors.Newf(errors.ErrCodeBadRequest, "not a minio uri: %q", s)
	}
	rest := strings.TrimPrefix(s, URIScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return ObjectRef{}, errors.Newf(errors.ErrCodeBadRequest, "minio uri needs bucket and key: %q", s)
	}
	return ObjectRef{Bucket: bucket, Key: key}, nil
}

// UploadResult describes a stored object.
type UploadResult struct {
	Ref         ObjectRef
	ETag        string
	Size        int64
	ContentType string
}

// ObjectInfo is a listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// TableStore persists tables as csv or json objects.
type TableStore interface {
	PutTable(ctx context.Context, ref ObjectRef, t *table.Table, f tableio.Format) (*UploadResult, error)
	GetTable(ctx context.Context, ref ObjectRef, opts ...tableio.ReadOption) (*table.Table, error)
	Exists(ctx context.Context, ref ObjectRef) (bool, error)
	Delete(ctx context.Context, ref ObjectRef) error
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	PresignedURL(ctx context.Context, ref ObjectRef, expiry time.Duration) (string, error)
	RunRef(runID, name string, f tableio.Format) ObjectRef
}

type tableStore struct {
	client *MinIOClient
	logger logging.Logger
}

func NewTableStore(client *MinIOClient, log logging.Logger) TableStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &tableStore{client: client, logger: log}
}

// RunRef places a run output under the run prefix of the default bucket.
func (s *tableStore) RunRef(runID, name string, f tableio.Format) ObjectRef {
	return ObjectRef{
		Bucket: s.client.Bucket(),
		Key:    s.client.RunPrefix() + runID + "/" + name + "." + string(f),
	}
}

func (s *tableStore) PutTable(ctx context.Context, ref ObjectRef, t *table.Table, f tableio.Format) (*UploadResult, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tableio.Write(&buf, t, f); err != nil {
		return nil, err
	}
	size := int64(buf.Len())
	info, err := s.client.client.PutObject(ctx, ref.Bucket, ref.Key, &buf, size, minio.PutObjectOptions{
		ContentType: f.ContentType(),
		PartSize:    uint64(s.client.config.PartSize),
		UserMetadata: map[string]string{
			"rows":    strconv.Itoa(t.Len()),
			"columns": strconv.Itoa(len(t.Columns)),
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "failed to upload %s", ref)
	}
	s.logger.Debug("Table uploaded",
		logging.String("uri", ref.String()),
		logging.Int64("size", size),
		logging.Int("rows", t.Len()))
	return &UploadResult{Ref: ref, ETag: info.ETag, Size: size, ContentType: f.ContentType()}, nil
}

func (s *tableStore) GetTable(ctx context.Context, ref ObjectRef, opts ...tableio.ReadOption) (*table.Table, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := s.stat(ctx, ref); err != nil {
		return nil, err
	}
	body, err := s.client.open(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "failed to open %s", ref)
	}
	defer body.Close()

	t, err := tableio.Read(body, tableio.FormatFromPath(ref.Key), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.GetCode(err), "read %s", ref)
	}
	return t, nil
}

func (s *tableStore) stat(ctx context.Context, ref ObjectRef) (minio.ObjectInfo, error) {
	info, err := s.client.client.StatObject(ctx, ref.Bucket, ref.Key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return info, errors.Newf(errors.ErrCodeNotFound, "object %s not found", ref)
		}
		return info, errors.Wrapf(err, errors.ErrCodeStorageError, "failed to stat %s", ref)
	}
	return info, nil
}

func (s *tableStore) Exists(ctx context.Context, ref ObjectRef) (bool, error) {
	_, err := s.stat(ctx, ref)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *tableStore) Delete(ctx context.Context, ref ObjectRef) error {
	if err := s.client.client.RemoveObject(ctx, ref.Bucket, ref.Key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to delete %s", ref)
	}
	return nil
}

func (s *tableStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range s.client.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list objects")
		}
		out = append(out, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

func (s *tableStore) PresignedURL(ctx context.Context, ref ObjectRef, expiry time.Duration) (string, error) {
	return s.client.GeneratePresignedGetURL(ctx, ref.Bucket, ref.Key, expiry)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

//Personal.AI order the ending
