package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/heinscr/books-library/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) GetObjectTagging(ctx context.Context, in *s3.GetObjectTaggingInput, _ ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectTaggingOutput)
	return out, args.Error(1)
}

func (m *mockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*v4.PresignedHTTPRequest)
	return out, args.Error(1)
}

func (m *mockPresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*v4.PresignedHTTPRequest)
	return out, args.Error(1)
}

func TestEncodeTags(t *testing.T) {
	encoded := EncodeTags(map[string]string{"author": "Jane Doe", "seriesName": " ", "seriesOrder": "3"})

	values, err := url.ParseQuery(encoded)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", values.Get("author"))
	assert.Equal(t, "3", values.Get("seriesOrder"))
	assert.False(t, values.Has("seriesName"))
	assert.Empty(t, EncodeTags(nil))
}

func TestTagValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Jane Doe", "Jane Doe"},
		{"apostrophe dropped", "Patrick O'Brian", "Patrick OBrian"},
		{"comma dropped", "Smith, J.", "Smith J."},
		{"allowed punctuation kept", "a+b-c=d.e_f:g/h@i", "a+b-c=d.e_f:g/h@i"},
		{"unicode letters kept", "Stanisław Lem", "Stanisław Lem"},
		{"whitespace collapsed", "  Ursula\tK.  Le   Guin ", "Ursula K. Le Guin"},
		{"nothing left", "'!?", ""},
		{"truncated", strings.Repeat("x", 300), strings.Repeat("x", 256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TagValue(tt.in))
		})
	}
}

func TestEncodeTags_OnlyAllowedCharacters(t *testing.T) {
	encoded := EncodeTags(map[string]string{"author": "Patrick O'Brian", "seriesName": "Aubrey & Maturin", "seriesOrder": "?"})

	values, err := url.ParseQuery(encoded)
	require.NoError(t, err)
	assert.Equal(t, "Patrick OBrian", values.Get("author"))
	assert.Equal(t, "Aubrey Maturin", values.Get("seriesName"))
	assert.False(t, values.Has("seriesOrder"))
}

func TestS3Store_PresignPutCarriesTagging(t *testing.T) {
	// Arrange
	presigner := new(mockPresigner)
	presigner.On("PresignPutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "library" &&
			aws.ToString(in.Key) == "books/a.zip" &&
			aws.ToString(in.ContentType) == "application/zip" &&
			aws.ToString(in.Tagging) == "author=Jane+Doe"
	})).Return(&v4.PresignedHTTPRequest{URL: "https://signed/put", Method: "PUT"}, nil)
	store := newS3Store(new(mockS3), presigner, "library", zap.NewNop())

	// Act
	req, err := store.PresignPut(context.Background(), "books/a.zip", time.Hour, "application/zip", map[string]string{"author": "Jane Doe"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://signed/put", req.URL)
	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, map[string]string{"Content-Type": "application/zip", "x-amz-tagging": "author=Jane+Doe"}, req.Headers)
}

func TestS3Store_PresignPutWithoutTags(t *testing.T) {
	presigner := new(mockPresigner)
	presigner.On("PresignPutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return in.Tagging == nil
	})).Return(&v4.PresignedHTTPRequest{URL: "https://signed/put"}, nil)
	store := newS3Store(new(mockS3), presigner, "library", zap.NewNop())

	req, err := store.PresignPut(context.Background(), "books/a.zip", time.Hour, "application/zip", nil)

	require.NoError(t, err)
	assert.Equal(t, "PUT", req.Method)
	assert.NotContains(t, req.Headers, TaggingHeader)
}

func TestS3Store_PresignGetUsesLocator(t *testing.T) {
	presigner := new(mockPresigner)
	presigner.On("PresignGetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Bucket) == "other" && aws.ToString(in.Key) == "books/it's.zip"
	})).Return(&v4.PresignedHTTPRequest{URL: "https://signed/get"}, nil)
	store := newS3Store(new(mockS3), presigner, "library", zap.NewNop())

	u, err := store.PresignGet(context.Background(), domain.Locator{Bucket: "other", Key: "books/it's.zip"}, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, "https://signed/get", u)
}

func TestS3Store_TagsTreatsMissingTagSetAsEmpty(t *testing.T) {
	client := new(mockS3)
	client.On("GetObjectTagging", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "NoSuchTagSet", Message: "none"})
	store := newS3Store(client, new(mockPresigner), "library", zap.NewNop())

	tags, err := store.Tags(context.Background(), domain.Locator{Bucket: "library", Key: "books/a.zip"})

	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestS3Store_TagsMapsTagSet(t *testing.T) {
	client := new(mockS3)
	client.On("GetObjectTagging", mock.Anything, mock.Anything).Return(&s3.GetObjectTaggingOutput{
		TagSet: []s3types.Tag{{Key: aws.String("author"), Value: aws.String("Jane")}},
	}, nil)
	store := newS3Store(client, new(mockPresigner), "library", zap.NewNop())

	tags, err := store.Tags(context.Background(), domain.Locator{Bucket: "library", Key: "books/a.zip"})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"author": "Jane"}, tags)
}

func TestS3Store_DeleteWrapsError(t *testing.T) {
	client := new(mockS3)
	client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
	store := newS3Store(client, new(mockPresigner), "library", zap.NewNop())

	err := store.Delete(context.Background(), domain.Locator{Bucket: "library", Key: "books/a.zip"})

	assert.ErrorContains(t, err, "access denied")
}

func TestS3Store_ListPaginates(t *testing.T) {
	// Arrange
	client := new(mockS3)
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []s3types.Object{{Key: aws.String("books/a.zip"), Size: aws.Int64(10)}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}, nil).Once()
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "next"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []s3types.Object{{Key: aws.String("books/b.zip"), Size: aws.Int64(20)}},
	}, nil).Once()
	store := newS3Store(client, new(mockPresigner), "library", zap.NewNop())

	// Act
	var keys []string
	for obj, err := range store.List(context.Background(), "books/") {
		require.NoError(t, err)
		keys = append(keys, obj.Key)
	}

	// Assert
	assert.Equal(t, []string{"books/a.zip", "books/b.zip"}, keys)
}

func TestMinioStore_PresignPutSignsTagging(t *testing.T) {
	// Arrange
	client, err := newMinioClient(MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	store := &MinioStore{client: client, bucket: "library", logger: zap.NewNop()}

	// Act
	req, err := store.PresignPut(context.Background(), "books/a.zip", time.Hour, "application/zip", map[string]string{"author": "Jane"})

	// Assert
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.URL, "http://localhost:9000/library/books/a.zip?"))
	assert.Contains(t, strings.ToLower(req.URL), "x-amz-signedheaders=")
	assert.Contains(t, strings.ToLower(req.URL), "x-amz-tagging")
	assert.Equal(t, "author=Jane", req.Headers[TaggingHeader])
}
