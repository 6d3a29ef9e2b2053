// Package objectstore uploads and retrieves import CSV files from an
// S3-compatible object store.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/qhato/taxorders/pkg/errors"
)

// Config configures the S3-compatible endpoint the Store talks to.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BaseURL         string
}

// Store uploads and downloads import file bytes.
type Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func New(cfg Config) *Store {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	})

	return &Store{client: client, bucket: cfg.Bucket, baseURL: cfg.BaseURL}
}

func (s *Store) Bucket() string {
	return s.bucket
}

// EnsureBucket creates the configured bucket if it doesn't already exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return errors.InternalWrap(err, "ensure bucket")
	}
	return nil
}

// UploadBytes stores content under objectName and returns the object's
// public URL.
func (s *Store) UploadBytes(ctx context.Context, objectName string, content []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return "", errors.InternalWrap(err, "upload object")
	}
	return s.ObjectURL(objectName), nil
}

// GetObjectBytes downloads an object's full content.
func (s *Store) GetObjectBytes(ctx context.Context, objectName string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return nil, errors.InternalWrap(err, "get object")
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, errors.InternalWrap(err, "read object body")
	}
	return buf.Bytes(), nil
}

// ObjectURL builds the public URL for an object, percent-encoding each path
// segment independently.
func (s *Store) ObjectURL(objectName string) string {
	segments := strings.Split(objectName, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(s.baseURL, "/") + "/" + s.bucket + "/" + strings.Join(segments, "/")
}

// ExtractObjectName recovers the bucket-relative object key from either a
// bare "bucket/name" form or a full URL produced by ObjectURL.
func ExtractObjectName(bucket, filePath string) string {
	prefix := bucket + "/"
	if strings.HasPrefix(filePath, prefix) {
		return strings.TrimPrefix(filePath, prefix)
	}

	u, err := url.Parse(filePath)
	if err != nil {
		return filePath
	}
	path := strings.TrimPrefix(u.Path, "/")
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	if strings.HasPrefix(path, prefix) {
		return strings.TrimPrefix(path, prefix)
	}
	return path
}
