package domain

import (
	"fmt"
	"strings"
)

const locatorScheme = "s3://"

// Locator addresses one blob in the object store. Its string form is
// s3://bucket/key.
type Locator struct {
	Bucket string
	Key    string
}

// String renders the locator as stored on a Book
func (l Locator) String() string {
	return locatorScheme + l.Bucket + "/" + l.Key
}

// ParseLocator parses an s3://bucket/key string. The key is taken verbatim
// so names containing '#', '?' or '%' survive.
func ParseLocator(raw string) (Locator, error) {
	rest, ok := strings.CutPrefix(raw, locatorScheme)
	if !ok {
		return Locator{}, fmt.Errorf("invalid blob locator %q", raw)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Locator{}, fmt.Errorf("invalid blob locator %q", raw)
	}
	return Locator{Bucket: bucket, Key: key}, nil
}
