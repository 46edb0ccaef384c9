package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DynamicField holds one versioned value of a named attribute on an entity.
// Exactly one value slot is populated, the one matching FieldType.
type DynamicField struct {
	ID             string           `json:"id" validate:"required"`
	OrganizationID string           `json:"organization_id" validate:"required"`
	EntityID       string           `json:"entity_id" validate:"required"`
	FieldName      string           `json:"field_name" validate:"required"`
	FieldType      FieldType        `json:"field_type" validate:"required,oneof=text number boolean date json file"`
	TextValue      *string          `json:"field_value_text,omitempty"`
	NumberValue    *decimal.Decimal `json:"field_value_number,omitempty"`
	BooleanValue   *bool            `json:"field_value_boolean,omitempty"`
	DateValue      *time.Time       `json:"field_value_date,omitempty"`
	JSONValue      json.RawMessage  `json:"field_value_json,omitempty"`
	FileURL        *string          `json:"field_value_file_url,omitempty"`
	SmartCode      string           `json:"smart_code"`
	Version        int              `json:"version" validate:"gte=1"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// SetValue clears every slot and writes value into the slot for fieldType.
// Strings are parsed for number, boolean and date fields.
func (f *DynamicField) SetValue(fieldType FieldType, value any) error {
	if !ValidFieldTypes[fieldType] {
		return fmt.Errorf("%w: unknown field type %q", ErrValidation, fieldType)
	}
	f.FieldType = fieldType
	f.TextValue, f.NumberValue, f.BooleanValue = nil, nil, nil
	f.DateValue, f.JSONValue, f.FileURL = nil, nil, nil

	switch fieldType {
	case FieldText:
		s, ok := value.(string)
		if !ok {
			return mismatch(fieldType, value)
		}
		f.TextValue = &s
	case FieldFile:
		s, ok := value.(string)
		if !ok || s == "" {
			return mismatch(fieldType, value)
		}
		f.FileURL = &s
	case FieldNumber:
		d, err := toDecimal(value)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrValidation, f.FieldName, err)
		}
		f.NumberValue = &d
	case FieldBoolean:
		var b bool
		switch v := value.(type) {
		case bool:
			b = v
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return mismatch(fieldType, value)
			}
			b = parsed
		default:
			return mismatch(fieldType, value)
		}
		f.BooleanValue = &b
	case FieldDate:
		var t time.Time
		switch v := value.(type) {
		case time.Time:
			t = v.UTC()
		case string:
			parsed, err := parseDate(v)
			if err != nil {
				return mismatch(fieldType, value)
			}
			t = parsed
		default:
			return mismatch(fieldType, value)
		}
		f.DateValue = &t
	case FieldJSON:
		raw, err := toJSON(value)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrValidation, f.FieldName, err)
		}
		f.JSONValue = raw
	}
	return nil
}

// Value returns the populated slot, or nil.
func (f *DynamicField) Value() any {
	switch f.FieldType {
	case FieldText:
		if f.TextValue != nil {
			return *f.TextValue
		}
	case FieldNumber:
		if f.NumberValue != nil {
			return *f.NumberValue
		}
	case FieldBoolean:
		if f.BooleanValue != nil {
			return *f.BooleanValue
		}
	case FieldDate:
		if f.DateValue != nil {
			return *f.DateValue
		}
	case FieldJSON:
		if f.JSONValue != nil {
			return f.JSONValue
		}
	case FieldFile:
		if f.FileURL != nil {
			return *f.FileURL
		}
	}
	return nil
}

func mismatch(fieldType FieldType, value any) error {
	return fmt.Errorf("%w: value %v (%T) does not fit a %s field", ErrValidation, value, value, fieldType)
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("value %v (%T) is not numeric", value, value)
	}
}

func toJSON(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return v, nil
	case []byte:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return json.RawMessage(v), nil
	case string:
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("invalid JSON %q", v)
		}
		return json.RawMessage(v), nil
	default:
		return json.Marshal(v)
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
