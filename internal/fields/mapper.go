package fields

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
)

// DefaultMaxTags is the tag limit used when no configuration is given.
const DefaultMaxTags = 7

// Mapper converts records to column/value lists and back. It holds no state
// besides its limits and is safe for concurrent use.
type Mapper struct {
	// MaxTags caps the number of tags on write; 0 disables the check.
	MaxTags int
}

func NewMapper(maxTags int) *Mapper {
	return &Mapper{MaxTags: maxTags}
}

// ToInternal maps rec to the columns of generation gen. Columns are returned
// in sorted attribute order, values are ready to be bound as SQL arguments.
func (m *Mapper) ToInternal(rec Record, gen models.Generation) ([]string, []any, error) {
	return m.toInternal(rec, gen, false)
}

// ToInternalUpdate is ToInternal for partial updates: id and user_id are
// dropped instead of written.
func (m *Mapper) ToInternalUpdate(rec Record, gen models.Generation) ([]string, []any, error) {
	return m.toInternal(rec, gen, true)
}

func (m *Mapper) toInternal(rec Record, gen models.Generation, forUpdate bool) ([]string, []any, error) {
	cols := make([]string, 0, len(rec))
	vals := make([]any, 0, len(rec))

	for _, name := range rec.Keys() {
		attr, ok := models.LookupAttribute(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown attribute %q", common.ErrValidation, name)
		}
		if forUpdate && (name == models.AttrID || name == models.AttrUserID) {
			continue
		}

		v := rec[name]
		if err := checkRequired(attr, v); err != nil {
			return nil, nil, err
		}
		if name == models.AttrTags {
			if err := m.checkTags(v); err != nil {
				return nil, nil, err
			}
		}

		stored, err := encodeValue(attr, v)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, attr.Column(gen))
		vals = append(vals, stored)
	}

	return cols, vals, nil
}

// checkRequired rejects values a NOT NULL column cannot hold. Required text
// attributes (the timestamps) must be non-empty text.
func checkRequired(attr models.Attribute, v Value) error {
	if !attr.NotNull {
		return nil
	}
	if v.IsNull() {
		return fmt.Errorf("%w: attribute %q must not be null", common.ErrValidation, attr.Name)
	}
	if attr.Type != models.AttrText {
		return nil
	}
	if s, ok := v.AsText(); !ok || strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: attribute %q must be a non-empty string", common.ErrValidation, attr.Name)
	}
	return nil
}

func (m *Mapper) checkTags(v Value) error {
	if m.MaxTags <= 0 {
		return nil
	}
	n := 0
	switch v.Kind() {
	case KindList:
		n = len(v.list)
	case KindText:
		var arr []any
		if json.Unmarshal([]byte(v.s), &arr) == nil {
			n = len(arr)
		}
	}
	if n > m.MaxTags {
		return fmt.Errorf("%w: at most %d tags allowed, got %d", common.ErrValidation, m.MaxTags, n)
	}
	return nil
}

func encodeValue(attr models.Attribute, v Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}

	switch attr.Type {
	case models.AttrInteger:
		if i, ok := v.AsInt(); ok {
			return i, nil
		}
		if s, ok := v.AsText(); ok {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
		}
	case models.AttrNumber:
		if f, ok := v.AsNumber(); ok {
			return f, nil
		}
		if s, ok := v.AsText(); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, nil
			}
		}
	case models.AttrText:
		if s, ok := scalarText(v); ok {
			return s, nil
		}
	case models.AttrStructured:
		switch v.Kind() {
		case KindList, KindObject:
			return marshalStructured(attr, v)
		case KindText:
			// already serialized by the caller
			return v.s, nil
		}
	case models.AttrTextOrList:
		switch v.Kind() {
		case KindList:
			return marshalStructured(attr, v)
		case KindText:
			return v.s, nil
		}
	}

	return nil, fmt.Errorf("%w: attribute %q does not accept a %s value", common.ErrValidation, attr.Name, v.Kind())
}

func scalarText(v Value) (string, bool) {
	switch v.Kind() {
	case KindText:
		return v.s, true
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	}
	return "", false
}

func marshalStructured(attr models.Attribute, v Value) (string, error) {
	b, err := encodeJSON(v.Any())
	if err != nil {
		return "", fmt.Errorf("%w: encoding %q: %v", common.ErrValidation, attr.Name, err)
	}
	return string(b), nil
}

// FromInternal maps a row of generation gen back to a Record. Columns that
// are not part of the activity schema are passed through under their own
// name (camel-cased for the legacy generation).
func (m *Mapper) FromInternal(columns []string, values []any, gen models.Generation) (Record, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%w: %d columns but %d values", common.ErrStorage, len(columns), len(values))
	}

	rec := make(Record, len(columns))
	for i, col := range columns {
		v, err := FromAny(values[i])
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", common.ErrStorage, col, err)
		}

		attr, ok := models.LookupColumn(col, gen)
		if !ok {
			name := col
			if gen == models.GenerationLegacy {
				name = models.CamelCase(col)
			}
			rec[name] = v
			continue
		}

		rec[attr.Name] = decodeValue(attr, v)
	}
	return rec, nil
}

func decodeValue(attr models.Attribute, v Value) Value {
	s, ok := v.AsText()
	if !ok {
		return v
	}

	switch attr.Type {
	case models.AttrStructured:
		if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
			if parsed, ok := parseJSON(s); ok {
				return parsed
			}
		}
	case models.AttrTextOrList:
		if strings.HasPrefix(s, "[") {
			if parsed, ok := parseJSON(s); ok && parsed.Kind() == KindList {
				return parsed
			}
		}
	}
	return v
}

func parseJSON(s string) (Value, bool) {
	var v Value
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Value{}, false
	}
	return v, true
}
