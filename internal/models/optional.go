package models

import (
	"bytes"
	"encoding/json"
)

// OptionalString distinguishes an absent JSON field from an explicit null.
// Row-edit payloads use it so that clearing a label (explicit null) is not
// mistaken for "field untouched" during the view merge.
type OptionalString struct {
	// Present is true when the field appeared in the payload, even as null.
	Present bool
	// Value is non-nil only for a present, non-null string.
	Value *string
}

// UnmarshalJSON records presence; a JSON null yields Present with nil Value.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MarshalJSON writes the value, or null when unset or explicitly null.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// StringPtr returns a pointer to s. Convenience for building label values.
func StringPtr(s string) *string {
	return &s
}
