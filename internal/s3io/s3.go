// Package s3io stores claim documents in S3 and presigns staff uploads.
package s3io

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the subset of the S3 client used by the document store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store is the S3-backed document store.
type Store struct {
	Client ObjectAPI
	Bucket string
	// BaseURL is the public origin documents are served from.
	BaseURL string
}

// NewStore returns a Store. An empty baseURL falls back to the bucket's
// virtual-hosted S3 endpoint.
func NewStore(client ObjectAPI, bucket, region, baseURL string) *Store {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &Store{Client: client, Bucket: bucket, BaseURL: strings.TrimRight(baseURL, "/")}
}

// PublicURL returns the fetchable URL of key.
func (s *Store) PublicURL(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.BaseURL + "/" + strings.Join(segs, "/")
}

// Store uploads data under path and returns its public URL.
func (s *Store) Store(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.Bucket),
		Key:                  aws.String(path),
		Body:                 bytes.NewReader(data),
		ContentLength:        aws.Int64(int64(len(data))),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", path, err)
	}
	return s.PublicURL(path), nil
}

// ObjectMetadata holds S3 object metadata and user-defined metadata.
type ObjectMetadata struct {
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Meta         map[string]string // lowercased user metadata
}

// Head fetches object metadata including user-defined metadata.
func (s *Store) Head(ctx context.Context, key string) (*ObjectMetadata, error) {
	ho, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 head %s: %w", key, err)
	}

	m := &ObjectMetadata{Meta: make(map[string]string, len(ho.Metadata))}
	if ho.ContentLength != nil {
		m.Size = *ho.ContentLength
	}
	if ho.ETag != nil {
		m.ETag = strings.Trim(*ho.ETag, "\"")
	}
	if ho.ContentType != nil {
		m.ContentType = strings.ToLower(*ho.ContentType)
	}
	if ho.LastModified != nil {
		m.LastModified = *ho.LastModified
	}
	for k, v := range ho.Metadata {
		m.Meta[strings.ToLower(k)] = v
	}
	return m, nil
}

// Promote copies a staging object to its committed key and removes the
// staging copy. It returns the committed key.
func (s *Store) Promote(ctx context.Context, stagingKey string) (string, error) {
	if !IsStaging(stagingKey) {
		return "", fmt.Errorf("not a staging key: %s", stagingKey)
	}
	dst := CommittedKey(stagingKey)
	_, err := s.Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:               aws.String(s.Bucket),
		Key:                  aws.String(dst),
		CopySource:           aws.String(url.PathEscape(s.Bucket + "/" + stagingKey)),
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	})
	if err != nil {
		return "", fmt.Errorf("s3 copy %s: %w", stagingKey, err)
	}
	if _, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(stagingKey),
	}); err != nil {
		// the committed copy exists; the staging lifecycle rule reaps the leftover
		return dst, fmt.Errorf("s3 delete %s: %w", stagingKey, err)
	}
	return dst, nil
}

// PresignPut generates a presigned URL for uploading an object to S3 with the specified parameters.
func PresignPut(ctx context.Context, p Presigner, bucket, key, contentType string, meta map[string]string, ttl time.Duration) (string, time.Duration, error) {
	input := &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		ContentType:          aws.String(contentType),
		Metadata:             meta,
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	}

	req, err := p.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", 0, err
	}
	return req.URL, ttl, nil
}
