package domain

import (
	"net/url"
	"path"
	"strings"
)

// authorSeparator splits "Author - Title" style filenames
const authorSeparator = " - "

// FilenameMetadata is what can be guessed about a book from its archive name.
type FilenameMetadata struct {
	ID     string
	Name   string
	Author string
}

// ParseObjectKey derives book metadata from a decoded object key. The id is
// the base filename minus its extension. Names following the
// "Author - Title" convention are split on the first separator; titles that
// contain the separator themselves are mis-split and must be corrected via
// blob tags or a metadata update.
func ParseObjectKey(key string) FilenameMetadata {
	filename := path.Base(key)
	id := strings.TrimSuffix(filename, path.Ext(filename))

	meta := FilenameMetadata{ID: id, Name: id}
	if author, title, ok := strings.Cut(id, authorSeparator); ok {
		meta.Author = strings.TrimSpace(author)
		meta.Name = strings.TrimSpace(title)
	}
	return meta
}

// SanitizeFilename strips any directory components from a client supplied
// filename.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	return path.Base(filename)
}

// IsArchive reports whether filename has the accepted upload extension
func IsArchive(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".zip")
}

// DecodeObjectKey decodes a key as delivered in object-created
// notifications, where spaces arrive as '+' and other bytes percent-encoded.
func DecodeObjectKey(raw string) string {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return strings.ReplaceAll(raw, "+", " ")
	}
	return key
}
