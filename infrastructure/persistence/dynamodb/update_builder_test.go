package dynamodb

import (
	"strings"
	"testing"

	"github.com/heinscr/books-library/domain"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namesOf(names map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n)
	}
	return out
}

func TestBuildUpdate_SetsAndRemoves(t *testing.T) {
	desc, err := BuildUpdate(map[domain.Field]any{
		domain.FieldAuthor:      "New Author",
		domain.FieldSeriesName:  "",
		domain.FieldSeriesOrder: nil,
	}, true)
	require.NoError(t, err)

	assert.Equal(t, []domain.Field{domain.FieldAuthor}, desc.Assigned)
	assert.Equal(t, []domain.Field{domain.FieldSeriesName, domain.FieldSeriesOrder}, desc.Removed)

	expr, err := desc.Expression(BookKeyAttr)
	require.NoError(t, err)
	assert.Contains(t, *expr.Update(), "SET")
	assert.Contains(t, *expr.Update(), "REMOVE")
	assert.Contains(t, *expr.Condition(), "attribute_exists")
	assert.ElementsMatch(t, []string{"author", "seriesName", "seriesOrder", "id"}, namesOf(expr.Names()))
	require.Len(t, expr.Values(), 1)
	for _, v := range expr.Values() {
		assert.Equal(t, &types.AttributeValueMemberS{Value: "New Author"}, v)
	}
}

func TestBuildUpdate_WithoutAllowRemoveAssignsEverything(t *testing.T) {
	desc, err := BuildUpdate(map[domain.Field]any{
		domain.FieldName:   "",
		domain.FieldAuthor: "A",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, []domain.Field{domain.FieldAuthor, domain.FieldName}, desc.Assigned)
	assert.Empty(t, desc.Removed)
}

func TestBuildUpdate_CoverRemovalStoresNull(t *testing.T) {
	desc, err := BuildUpdate(map[domain.Field]any{domain.FieldCoverImageURL: nil}, true)
	require.NoError(t, err)
	assert.Equal(t, []domain.Field{domain.FieldCoverImageURL}, desc.Removed)

	expr, err := desc.Expression(BookKeyAttr)
	require.NoError(t, err)
	assert.False(t, strings.Contains(*expr.Update(), "REMOVE"))
	assert.Contains(t, *expr.Update(), "SET")

	var sawNull bool
	for _, v := range expr.Values() {
		if _, ok := v.(*types.AttributeValueMemberNULL); ok {
			sawNull = true
		}
	}
	assert.True(t, sawNull, "cover removal should write NULL")
}

func TestBuildUpdate_SeriesOrderIsNumeric(t *testing.T) {
	desc, err := BuildUpdate(map[domain.Field]any{domain.FieldSeriesOrder: 7}, true)
	require.NoError(t, err)

	expr, err := desc.Expression(BookKeyAttr)
	require.NoError(t, err)
	for _, v := range expr.Values() {
		assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, v)
	}
}

func TestBuildUpdate_RejectsUnknownField(t *testing.T) {
	_, err := BuildUpdate(map[domain.Field]any{"created": "x"}, true)
	assert.Error(t, err)
}

func TestUpdateDescriptor_EmptyHasNoExpression(t *testing.T) {
	desc, err := BuildUpdate(nil, true)
	require.NoError(t, err)
	assert.True(t, desc.IsEmpty())

	_, err = desc.Expression(BookKeyAttr)
	assert.ErrorIs(t, err, ErrEmptyUpdate)
}
