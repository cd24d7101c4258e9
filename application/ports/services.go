package ports

import (
	"context"
	"iter"
	"time"

	"github.com/heinscr/books-library/domain"
)

// PresignedRequest is a time-limited URL plus the headers the client must
// send with it for the signature to hold.
type PresignedRequest struct {
	URL     string
	Method  string
	Headers map[string]string
}

// ObjectInfo describes one stored blob
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the blob-store gateway. Locators are s3://bucket/key.
type ObjectStore interface {
	// Bucket is the bucket uploads are presigned into
	Bucket() string

	PresignGet(ctx context.Context, loc domain.Locator, ttl time.Duration) (string, error)

	// PresignPut signs an upload of key into Bucket(). Tags are attached to
	// the blob by the store and must be sent back as x-amz-tagging.
	PresignPut(ctx context.Context, key string, ttl time.Duration, contentType string, tags map[string]string) (*PresignedRequest, error)

	Delete(ctx context.Context, loc domain.Locator) error

	// Tags returns the blob's tags; a blob without tags yields an empty map
	Tags(ctx context.Context, loc domain.Locator) (map[string]string, error)

	// List streams every object under prefix
	List(ctx context.Context, prefix string) iter.Seq2[ObjectInfo, error]
}

// CoverFinder looks up cover art. It never fails: any problem is reported
// as not found.
type CoverFinder interface {
	FindCover(ctx context.Context, title, author string) (string, bool)
}

// AuthorFinder looks up the authors of a title
type AuthorFinder interface {
	FindAuthors(ctx context.Context, title string) ([]string, bool)
}
