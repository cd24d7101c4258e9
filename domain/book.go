package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record is absent or
// vanished before a conditional write.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned by create-only writes when the id is taken.
var ErrAlreadyExists = errors.New("record already exists")

// TimestampLayout is the ISO-8601 layout used for created/updated values.
// Fixed width keeps lexical and chronological order identical.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Timestamp formats t in UTC with TimestampLayout
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CoverURL is the outcome of a cover lookup. The empty value records that a
// lookup was made and found nothing, and is serialised as JSON null.
type CoverURL string

// MarshalJSON emits null for a known-absent cover
func (c CoverURL) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// KnownCover returns a cover state holding url, which may be empty
func KnownCover(url string) *CoverURL {
	c := CoverURL(url)
	return &c
}

// Book is the shared metadata record for one uploaded archive.
type Book struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	SeriesName  string `json:"seriesName,omitempty"`
	SeriesOrder int    `json:"seriesOrder,omitempty"`
	Created     string `json:"created"`
	SizeBytes   int64  `json:"sizeBytes"`
	BlobURL     string `json:"blobUrl,omitempty"`

	// CoverImageURL is nil when no lookup has ever run for this book.
	CoverImageURL *CoverURL `json:"coverImageUrl,omitempty"`
}

// HasCover reports whether a cover image is known to exist
func (b Book) HasCover() bool {
	return b.CoverImageURL != nil && *b.CoverImageURL != ""
}

// CoverLookedUp reports whether a lookup result has been recorded
func (b Book) CoverLookedUp() bool {
	return b.CoverImageURL != nil
}

// Title returns the display name, falling back to the id
func (b Book) Title() string {
	if b.Name != "" {
		return b.Name
	}
	return b.ID
}

// UserBookStatus is one user's private overlay on a book.
type UserBookStatus struct {
	UserID  string `dynamodbav:"userId" json:"userId"`
	BookID  string `dynamodbav:"bookId" json:"bookId"`
	Read    bool   `dynamodbav:"read" json:"read"`
	Updated string `dynamodbav:"updated" json:"updated"`
}
