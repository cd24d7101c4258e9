package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// S3API is the subset of *s3.Client the store uses
type S3API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	GetObjectTagging(ctx context.Context, params *s3.GetObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner is the subset of *s3.PresignClient the store uses
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ S3API     = (*s3.Client)(nil)
	_ Presigner = (*s3.PresignClient)(nil)
)

// S3Store implements ports.ObjectStore on AWS S3
type S3Store struct {
	client    S3API
	presigner Presigner
	bucket    string
	logger    *zap.Logger
}

var _ ports.ObjectStore = (*S3Store)(nil)

// NewS3Store creates a store presigning uploads into bucket
func NewS3Store(client *s3.Client, bucket string, logger *zap.Logger) *S3Store {
	return newS3Store(client, s3.NewPresignClient(client), bucket, logger)
}

func newS3Store(client S3API, presigner Presigner, bucket string, logger *zap.Logger) *S3Store {
	return &S3Store{client: client, presigner: presigner, bucket: bucket, logger: logger}
}

// Bucket returns the upload bucket
func (s *S3Store) Bucket() string {
	return s.bucket
}

// PresignGet signs a download of the located object
func (s *S3Store) PresignGet(ctx context.Context, loc domain.Locator, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", loc, err)
	}
	return req.URL, nil
}

// PresignPut signs an upload of key into the store's bucket
func (s *S3Store) PresignPut(ctx context.Context, key string, ttl time.Duration, contentType string, tags map[string]string) (*ports.PresignedRequest, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	tagging := EncodeTags(tags)
	if tagging != "" {
		input.Tagging = aws.String(tagging)
	}

	req, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPut
	}
	return &ports.PresignedRequest{
		URL:     req.URL,
		Method:  method,
		Headers: uploadHeaders(contentType, tagging),
	}, nil
}

// Delete removes the located object
func (s *S3Store) Delete(ctx context.Context, loc domain.Locator) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", loc, err)
	}
	return nil
}

// Tags returns the located object's tags
func (s *S3Store) Tags(ctx context.Context, loc domain.Locator) (map[string]string, error) {
	out, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchTagSet" {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("get tags %s: %w", loc, err)
	}

	tags := make(map[string]string, len(out.TagSet))
	for _, tag := range out.TagSet {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return tags, nil
}

// List streams every object under prefix in the store's bucket
func (s *S3Store) List(ctx context.Context, prefix string) iter.Seq2[ports.ObjectInfo, error] {
	return func(yield func(ports.ObjectInfo, error) bool) {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(ports.ObjectInfo{}, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, err))
				return
			}
			for _, obj := range page.Contents {
				info := ports.ObjectInfo{
					Key:  aws.ToString(obj.Key),
					Size: aws.ToInt64(obj.Size),
				}
				if obj.LastModified != nil {
					info.LastModified = *obj.LastModified
				}
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}
