package domain

import "sort"

// Field names a book attribute that callers may change after ingestion.
// The value doubles as the JSON key and the stored attribute name.
type Field string

const (
	FieldName          Field = "name"
	FieldAuthor        Field = "author"
	FieldSeriesName    Field = "seriesName"
	FieldSeriesOrder   Field = "seriesOrder"
	FieldCoverImageURL Field = "coverImageUrl"
)

var updatableFields = map[Field]struct{}{
	FieldName:          {},
	FieldAuthor:        {},
	FieldSeriesName:    {},
	FieldSeriesOrder:   {},
	FieldCoverImageURL: {},
}

// ParseField returns the Field named by key
func ParseField(key string) (Field, bool) {
	f := Field(key)
	_, ok := updatableFields[f]
	return f, ok
}

// SortedFields returns the keys of fields in a stable order
func SortedFields[V any](fields map[Field]V) []Field {
	keys := make([]Field, 0, len(fields))
	for f := range fields {
		keys = append(keys, f)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Apply copies field values onto b the way a partial update stores them.
// A nil or empty value clears the field, except the cover which becomes
// known-absent.
func (b *Book) Apply(fields map[Field]any) {
	for f, v := range fields {
		s, _ := v.(string)
		switch f {
		case FieldName:
			b.Name = s
		case FieldAuthor:
			b.Author = s
		case FieldSeriesName:
			b.SeriesName = s
		case FieldSeriesOrder:
			n, _ := v.(int)
			b.SeriesOrder = n
		case FieldCoverImageURL:
			b.CoverImageURL = KnownCover(s)
		}
	}
}
