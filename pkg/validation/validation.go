// Package validation checks decoded JSON request bodies. Bodies are plain
// maps so that type errors ("must be a string") can be reported per field
// instead of failing the whole decode.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/heinscr/books-library/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxLength bounds every free-text field
const DefaultMaxLength = 500

var validate = validator.New()

// Body is a decoded JSON object
type Body = map[string]any

// Rule inspects a body and returns a rejection or nil
type Rule func(body Body) *apperrors.AppError

// Validate runs rules in order and stops at the first rejection
func Validate(body Body, rules ...Rule) error {
	for _, rule := range rules {
		if err := rule(body); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses a JSON object, keeping numbers as json.Number so integers
// larger than 2^53 and non-integral values can be told apart.
func Decode(data []byte) (Body, error) {
	body := Body{}
	if len(bytes.TrimSpace(data)) == 0 {
		return body, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil || body == nil {
		return nil, apperrors.NewValidationError("Invalid JSON in request body")
	}
	// A second value, or stray bytes, after the object is not a body
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.NewValidationError("Invalid JSON in request body")
	}
	return body, nil
}

type stringRule struct {
	maxLength int
	required  bool
	nonBlank  bool
}

// StringOption configures String
type StringOption func(*stringRule)

// MaxLength overrides DefaultMaxLength
func MaxLength(n int) StringOption {
	return func(r *stringRule) { r.maxLength = n }
}

// Required rejects a missing field and implies NonBlank
func Required() StringOption {
	return func(r *stringRule) {
		r.required = true
		r.nonBlank = true
	}
}

// NonBlank rejects a present value that is empty after trimming
func NonBlank() StringOption {
	return func(r *stringRule) { r.nonBlank = true }
}

// String checks an optional string field
func String(field string, opts ...StringOption) Rule {
	cfg := stringRule{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(body Body) *apperrors.AppError {
		raw, ok := body[field]
		if !ok {
			if cfg.required {
				return apperrors.NewValidationError(fmt.Sprintf("Field %q is required", field))
			}
			return nil
		}
		value, ok := raw.(string)
		if !ok {
			return apperrors.NewValidationError(fmt.Sprintf("Field %q must be a string", field))
		}
		if err := validate.Var(value, fmt.Sprintf("max=%d", cfg.maxLength)); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("Field %q exceeds maximum length of %d", field, cfg.maxLength))
		}
		if cfg.nonBlank && strings.TrimSpace(value) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("Field %q cannot be empty", field))
		}
		return nil
	}
}

// Bool checks an optional boolean field
func Bool(field string) Rule {
	return func(body Body) *apperrors.AppError {
		raw, ok := body[field]
		if !ok {
			return nil
		}
		if _, ok := raw.(bool); !ok {
			return apperrors.NewValidationError(fmt.Sprintf("Field %q must be a boolean", field))
		}
		return nil
	}
}

// SeriesOrder checks an optional integer in [min, max]. An explicit null is
// accepted and means "clear".
func SeriesOrder(field string, min, max int) Rule {
	return func(body Body) *apperrors.AppError {
		raw, ok := body[field]
		if !ok || raw == nil {
			return nil
		}
		n, err := ParseInt(raw)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("%s must be an integer", field))
		}
		if n < int64(min) || n > int64(max) {
			return apperrors.NewValidationError(fmt.Sprintf("%s must be between %d and %d", field, min, max))
		}
		return nil
	}
}

// FileSize checks an optional non-negative byte count against max
func FileSize(field string, max int64) Rule {
	return func(body Body) *apperrors.AppError {
		raw, ok := body[field]
		if !ok || raw == nil {
			return nil
		}
		size, err := ParseNumber(raw)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("Field %q must be a number", field))
		}
		if size < 0 {
			return apperrors.NewValidationError(fmt.Sprintf("Field %q cannot be negative", field))
		}
		if size > float64(max) {
			return apperrors.NewValidationError("File size exceeds maximum limit of " + formatBytes(max))
		}
		return nil
	}
}

// AllowedKeys rejects any key not listed
func AllowedKeys(keys ...string) Rule {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return func(body Body) *apperrors.AppError {
		unknown := make([]string, 0)
		for k := range body {
			if _, ok := allowed[k]; !ok {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) == 0 {
			return nil
		}
		sort.Strings(unknown)
		return apperrors.NewValidationError(fmt.Sprintf("Field %q is not updatable", unknown[0]))
	}
}

// ParseInt converts a decoded JSON value to an integer. Integral numbers and
// numeric strings are accepted; booleans, fractions and anything else are not.
func ParseInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return integral(f)
	case float64:
		return integral(v)
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("not an integer: %T", raw)
	}
}

// ParseNumber converts a decoded JSON number to float64
func ParseNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("not a number: %T", raw)
	}
}

func integral(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %v", f)
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, nil
	case f <= math.MinInt64:
		return math.MinInt64, nil
	}
	return int64(f), nil
}

func formatBytes(n int64) string {
	const gib = 1 << 30
	const mib = 1 << 20
	switch {
	case n >= gib && n%gib == 0:
		return fmt.Sprintf("%dGB", n/gib)
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%dMB", n/mib)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
