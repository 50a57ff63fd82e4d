package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/starford/journalsync/internal/apperr"
)

// S3Options configures an S3-compatible bucket.
type S3Options struct {
	Endpoint   string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Region     string
	UseSSL     bool
	PublicBase string // defaults to <scheme>://<endpoint>/<bucket>
}

// S3 implements Provider on an S3-compatible bucket.
type S3 struct {
	client     *minio.Client
	bucket     string
	publicBase string
	probe      *http.Client
}

// NewS3 connects to the bucket, creating it when missing.
func NewS3(ctx context.Context, opts S3Options, probeTimeout time.Duration) (*S3, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: s3 client: %w", err)
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: s3 bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("storage: s3 make bucket %s: %w", opts.Bucket, err)
		}
	}

	base := opts.PublicBase
	if base == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + opts.Endpoint + "/" + opts.Bucket
	}
	return &S3{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: strings.TrimRight(base, "/"),
		probe:      newProbeClient(probeTimeout),
	}, nil
}

// Upload puts the object; an existing key is apperr.ErrAlreadyExists.
func (s *S3) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{}); err == nil {
		return "", fmt.Errorf("storage: upload %s: %w", path, apperr.ErrAlreadyExists)
	} else if !isNoSuchKey(err) {
		return "", fmt.Errorf("storage: stat %s: %w", path, err)
	}
	info, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", path, err)
	}
	return info.Key, nil
}

// PublicURL joins path onto the bucket's public base.
func (s *S3) PublicURL(path string) (string, bool) {
	return joinURL(s.publicBase, path), true
}

// Delete removes objects one by one; missing keys are skipped.
func (s *S3) Delete(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := s.client.RemoveObject(ctx, s.bucket, p, minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
			errs = append(errs, fmt.Errorf("storage: delete %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Head uses StatObject for managed URLs and HTTP HEAD otherwise.
func (s *S3) Head(ctx context.Context, url string) (HeadResult, error) {
	if rel, ok := RelativePath(s.publicBase, url); ok {
		info, err := s.client.StatObject(ctx, s.bucket, rel, minio.StatObjectOptions{})
		if err != nil {
			return HeadResult{}, fmt.Errorf("storage: stat %s: %w", rel, err)
		}
		return HeadResult{ContentLength: info.Size, Known: info.Size >= 0}, nil
	}
	return httpHead(ctx, s.probe, url)
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
