package dynamodb

import (
	"errors"
	"fmt"

	"github.com/heinscr/books-library/domain"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// ErrEmptyUpdate is returned when a descriptor carries no fields
var ErrEmptyUpdate = errors.New("no fields to update")

type (
	setter  func(b expression.UpdateBuilder, name expression.NameBuilder, v any) expression.UpdateBuilder
	remover func(b expression.UpdateBuilder, name expression.NameBuilder) expression.UpdateBuilder
)

type fieldOps struct {
	set    setter
	remove remover
}

func setValue(b expression.UpdateBuilder, name expression.NameBuilder, v any) expression.UpdateBuilder {
	return b.Set(name, expression.Value(v))
}

func removeAttribute(b expression.UpdateBuilder, name expression.NameBuilder) expression.UpdateBuilder {
	return b.Remove(name)
}

// setNull keeps the attribute but records that its value is known absent
func setNull(b expression.UpdateBuilder, name expression.NameBuilder) expression.UpdateBuilder {
	return b.Set(name, expression.Value(nil))
}

var updateOps = map[domain.Field]fieldOps{
	domain.FieldName:          {setValue, removeAttribute},
	domain.FieldAuthor:        {setValue, removeAttribute},
	domain.FieldSeriesName:    {setValue, removeAttribute},
	domain.FieldSeriesOrder:   {setValue, removeAttribute},
	domain.FieldCoverImageURL: {setValue, setNull},
}

// UpdateDescriptor is a partial update over recognised book fields. It always
// carries an existence precondition on the table key.
type UpdateDescriptor struct {
	Assigned []domain.Field
	Removed  []domain.Field
	update   expression.UpdateBuilder
}

// BuildUpdate converts a field map into an UpdateDescriptor. With allowRemove
// a nil or empty-string value selects the field's remover instead of its
// setter. Unrecognised fields are an error; callers are expected to reject
// them during validation.
func BuildUpdate(fields map[domain.Field]any, allowRemove bool) (UpdateDescriptor, error) {
	var desc UpdateDescriptor
	for _, field := range domain.SortedFields(fields) {
		ops, ok := updateOps[field]
		if !ok {
			return UpdateDescriptor{}, fmt.Errorf("field %q is not updatable", field)
		}
		value := fields[field]
		name := expression.Name(string(field))
		if allowRemove && isRemoval(value) {
			desc.update = ops.remove(desc.update, name)
			desc.Removed = append(desc.Removed, field)
			continue
		}
		desc.update = ops.set(desc.update, name, value)
		desc.Assigned = append(desc.Assigned, field)
	}
	return desc, nil
}

// IsEmpty reports whether the descriptor changes nothing
func (d UpdateDescriptor) IsEmpty() bool {
	return len(d.Assigned) == 0 && len(d.Removed) == 0
}

// Expression compiles the descriptor with attribute_exists(keyAttr)
func (d UpdateDescriptor) Expression(keyAttr string) (expression.Expression, error) {
	if d.IsEmpty() {
		return expression.Expression{}, ErrEmptyUpdate
	}
	expr, err := expression.NewBuilder().
		WithUpdate(d.update).
		WithCondition(expression.Name(keyAttr).AttributeExists()).
		Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("build update expression: %w", err)
	}
	return expr, nil
}

func isRemoval(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case *string:
		return s == nil || *s == ""
	}
	return false
}
