// Package store is the record persistence used by the interview engine. Records are
// JSON-shaped maps grouped in named collections; every backend assigns an "id" and a
// "created_at" timestamp on insert.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
)

var ErrNotFound = errors.New("record not found")

// Record is a single JSON-normalized document.
type Record map[string]any

// Filter matches records whose fields equal the given values.
type Filter map[string]any

// Order sorts query results by a record field. Ties keep insertion order.
type Order struct {
	Field string
	Desc  bool
}

// Store is implemented by every persistence backend.
type Store interface {
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Query(ctx context.Context, collection string, filter Filter, order *Order) ([]Record, error)
	Update(ctx context.Context, collection, id string, patch Record) error
	Close() error
}

// ID returns the record identifier.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// prepareInsert normalizes the record and fills in id and created_at.
func prepareInsert(rec Record, now time.Time) (Record, error) {
	normalized, err := normalize(rec)
	if err != nil {
		return nil, err
	}

	if id, _ := normalized[FieldID].(string); strings.TrimSpace(id) == "" {
		normalized[FieldID] = uuid.NewString()
	}

	if isBlank(normalized[FieldCreatedAt]) {
		normalized[FieldCreatedAt] = now.UTC().Format(time.RFC3339Nano)
	}

	return normalized, nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		if strings.TrimSpace(val) == "" {
			return true
		}
		ts, err := time.Parse(time.RFC3339Nano, val)
		return err == nil && ts.IsZero()
	default:
		return false
	}
}

// merge applies a shallow patch. The id is never overwritten.
func merge(rec, patch Record) (Record, error) {
	normalizedPatch, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	out := rec.clone()
	for k, v := range normalizedPatch {
		if k == FieldID {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// normalize round-trips the value through JSON so that every backend compares and
// returns the same shapes (float64 numbers, RFC3339 strings for times).
func normalize(v any) (Record, error) {
	if v == nil {
		return Record{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	if out == nil {
		out = Record{}
	}
	return out, nil
}

func matches(rec Record, filter Filter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}

	normalized, err := normalize(filter)
	if err != nil {
		return false, err
	}

	for k, want := range normalized {
		if !reflect.DeepEqual(rec[k], want) {
			return false, nil
		}
	}
	return true, nil
}

func applyOrder(records []Record, order *Order) {
	if order == nil || order.Field == "" {
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		cmp := compareValues(records[i][order.Field], records[j][order.Field])
		if order.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// compareValues orders timestamps chronologically, numbers numerically and everything
// else by its string form. Missing values sort first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			at, aErr := time.Parse(time.RFC3339Nano, as)
			bt, bErr := time.Parse(time.RFC3339Nano, bs)
			if aErr == nil && bErr == nil {
				return at.Compare(bt)
			}
			return strings.Compare(as, bs)
		}
	}

	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(stringify(a), stringify(b))
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

func marshalJSON(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

func unmarshalJSON(data []byte, rec *Record) error {
	if err := json.Unmarshal(data, rec); err != nil {
		return err
	}
	if *rec == nil {
		*rec = Record{}
	}
	return nil
}

func validateCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return errors.New("collection is required")
	}
	return nil
}
