package minio

import (
	"bytes"
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/autofragment/internal/export"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// UploadResult describes a stored result object.
type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// ResultStore keeps encoded DecompositionResults under
// <prefix>/<run-id>.json[.gz|.zst].
type ResultStore struct {
	client      *MinIOClient
	logger      logging.Logger
	metrics     *prometheus.AppMetrics
	compression export.Compression
}

type StoreOption func(*ResultStore)

func WithStoreMetrics(m *prometheus.AppMetrics) StoreOption {
	return func(s *ResultStore) { s.metrics = m }
}

// NewResultStore reads the compression from the client configuration.
func NewResultStore(client *MinIOClient, log logging.Logger, opts ...StoreOption) (*ResultStore, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c, err := export.ParseCompression(client.config.Compression)
	if err != nil {
		return nil, err
	}
	s := &ResultStore{client: client, logger: log, compression: c}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ObjectKey returns the key a run is stored under.
func (s *ResultStore) ObjectKey(runID string) string {
	return path.Join(s.client.config.Prefix, runID+".json"+s.compression.Extension())
}

// Put uploads result under its RunID, replacing any previous object.
func (s *ResultStore) Put(ctx context.Context, result *molecule.DecompositionResult) (*UploadResult, error) {
	if result == nil || result.RunID == "" {
		return nil, errors.InvalidParam("result must carry a run id")
	}
	if s.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	data, err := export.Marshal(result, s.compression)
	if err != nil {
		return nil, err
	}

	key := s.ObjectKey(result.RunID)
	opts := minio.PutObjectOptions{
		ContentType:     "application/json",
		ContentEncoding: s.compression.ContentEncoding(),
		UserMetadata: map[string]string{
			"run-id": result.RunID,
		},
	}
	info, err := s.client.GetClient().PutObject(ctx, s.client.config.Bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	s.record(err == nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "result upload failed").WithDetail(key)
	}

	s.logger.Info("result uploaded",
		logging.String("run_id", result.RunID),
		logging.String("bucket", s.client.config.Bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     s.client.config.Bucket,
		ObjectKey:  key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now(),
	}, nil
}

// Store uploads result and returns its "<bucket>/<key>" location.
func (s *ResultStore) Store(ctx context.Context, result *molecule.DecompositionResult) (string, error) {
	up, err := s.Put(ctx, result)
	if err != nil {
		return "", err
	}
	return up.Bucket + "/" + up.ObjectKey, nil
}

// Get downloads and decodes the result of runID.
func (s *ResultStore) Get(ctx context.Context, runID string) (*molecule.DecompositionResult, error) {
	if runID == "" {
		return nil, errors.InvalidParam("run id is required")
	}
	if s.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	key := s.ObjectKey(runID)
	obj, err := s.client.GetClient().GetObject(ctx, s.client.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.classify(err, "result download failed", key)
	}
	defer obj.Close()

	result, err := export.Decode(obj, s.compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "stored result is unreadable").WithDetail(key)
	}
	return result, nil
}

// Exists reports whether a result for runID is stored.
func (s *ResultStore) Exists(ctx context.Context, runID string) (bool, error) {
	key := s.ObjectKey(runID)
	_, err := s.client.GetClient().StatObject(ctx, s.client.config.Bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed").WithDetail(key)
}

// Delete removes the result of runID.  Deleting a missing run is not an error.
func (s *ResultStore) Delete(ctx context.Context, runID string) error {
	key := s.ObjectKey(runID)
	if err := s.client.GetClient().RemoveObject(ctx, s.client.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete failed").WithDetail(key)
	}
	return nil
}

// List returns the stored run ids in sorted order.  Objects written with a
// different compression are listed too.
func (s *ResultStore) List(ctx context.Context) ([]string, error) {
	prefix := s.client.config.Prefix + "/"
	objects := s.client.GetClient().ListObjects(ctx, s.client.config.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})

	seen := make(map[string]struct{})
	for obj := range objects {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list failed")
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if i := strings.Index(name, ".json"); i > 0 && !strings.Contains(name[:i], "/") {
			seen[name[:i]] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PresignedURL returns a time-limited download URL for runID.
func (s *ResultStore) PresignedURL(ctx context.Context, runID string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = s.client.config.PresignExpiry
	}
	u, err := s.client.GetClient().PresignedGetObject(ctx, s.client.config.Bucket, s.ObjectKey(runID), expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "presign failed")
	}
	return u.String(), nil
}

func (s *ResultStore) classify(err error, msg, key string) error {
	if isNoSuchKey(err) {
		return ErrObjectNotFound.WithDetail(key).WithCause(err)
	}
	return errors.Wrap(err, errors.ErrCodeStorageError, msg).WithDetail(key)
}

func (s *ResultStore) record(success bool) {
	if s.metrics != nil {
		prometheus.RecordUpload(s.metrics, success)
	}
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

//Personal.AI order the ending
