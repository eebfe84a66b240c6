package tables

import "github.com/apache/arrow/go/v18/arrow"

// CommentKey is the field metadata key holding a column description.
const CommentKey = "comment"

// MetadataBuilder accumulates key/value pairs for Arrow field and schema
// metadata. Setting a key twice keeps the last value.
type MetadataBuilder struct {
	keys   []string
	values []string
}

func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{}
}

// MetadataBuilderFrom starts a builder with the pairs already in md.
func MetadataBuilderFrom(md arrow.Metadata) *MetadataBuilder {
	return &MetadataBuilder{
		keys:   append([]string(nil), md.Keys()...),
		values: append([]string(nil), md.Values()...),
	}
}

// Add sets key to value. Empty values are skipped so columns without a
// description carry no metadata at all.
func (b *MetadataBuilder) Add(key, value string) *MetadataBuilder {
	if value == "" {
		return b
	}
	for i, k := range b.keys {
		if k == key {
			b.values[i] = value
			return b
		}
	}
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	return b
}

// Build constructs and returns the arrow.Metadata.
func (b *MetadataBuilder) Build() arrow.Metadata {
	return arrow.NewMetadata(b.keys, b.values)
}

// BuildReference constructs and returns the arrow.Metadata result as a
// reference, or nil when there are no pairs.
func (b *MetadataBuilder) BuildReference() *arrow.Metadata {
	if len(b.keys) == 0 {
		return nil
	}
	result := b.Build()
	return &result
}

// CommentMetadata describes a column.
func CommentMetadata(description string) arrow.Metadata {
	return NewMetadataBuilder().Add(CommentKey, description).Build()
}

// CommentOf returns the description stored on field, or "".
func CommentOf(field arrow.Field) string {
	i := field.Metadata.FindKey(CommentKey)
	if i < 0 {
		return ""
	}
	return field.Metadata.Values()[i]
}
