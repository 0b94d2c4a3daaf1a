package store

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Encode converts a typed model into a record using its json tags.
func Encode(v any) (Record, error) {
	return normalize(v)
}

// Decode fills target (a pointer to a model) from a record. Timestamps stored as
// RFC3339 strings are converted back to time.Time.
func Decode(rec Record, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(rec)); err != nil {
		return fmt.Errorf("decode record %s: %w", rec.ID(), err)
	}
	return nil
}

// DecodeAll decodes every record into a new slice of T.
func DecodeAll[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var item T
		if err := Decode(rec, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
