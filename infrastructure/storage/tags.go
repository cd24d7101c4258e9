package storage

import (
	"net/url"
	"strings"
	"unicode"
)

// TaggingHeader is the header a presigned PUT must carry when tags were
// signed into it.
const TaggingHeader = "x-amz-tagging"

// maxTagValueLength is the S3 limit on a tag value, in characters
const maxTagValueLength = 256

// tagPunctuation is the punctuation S3 allows in tag values
const tagPunctuation = "+-=._:/@"

// EncodeTags renders tags in the URL-query form S3 expects for
// x-amz-tagging. Values pass through TagValue; empty ones are dropped.
func EncodeTags(tags map[string]string) string {
	values := url.Values{}
	for k, v := range tags {
		if v = TagValue(v); v == "" {
			continue
		}
		values.Set(k, v)
	}
	return values.Encode()
}

// TagValue reduces v to what S3 accepts in a tag value: letters, digits,
// spaces and tagPunctuation. Other characters are dropped, whitespace runs
// collapse to one space and the result is cut to 256 characters.
func TagValue(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(tagPunctuation, r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if runes := []rune(out); len(runes) > maxTagValueLength {
		out = strings.TrimSpace(string(runes[:maxTagValueLength]))
	}
	return out
}

func uploadHeaders(contentType, tagging string) map[string]string {
	headers := map[string]string{"Content-Type": contentType}
	if tagging != "" {
		headers[TaggingHeader] = tagging
	}
	return headers
}
