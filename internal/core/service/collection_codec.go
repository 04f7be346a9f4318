package service

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/pkg/validate"
)

// Server-managed fields. They are stamped by the collection and may not be
// written by callers.
const (
	fieldID        = "id"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

func isReserved(key string) bool {
	return key == fieldID || key == fieldCreatedAt || key == fieldUpdatedAt
}

// jsonFields maps the json name of every exported field of T to its Go name.
func jsonFields[T any]() map[string]string {
	var zero T
	typ := reflect.TypeOf(zero)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	out := make(map[string]string, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		if name := validate.JSONName(f); name != "" {
			out[name] = f.Name
		}
	}
	return out
}

// encodeFields renders v as its JSON-shaped field map, without reserved fields.
func encodeFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, fieldID)
	delete(fields, fieldCreatedAt)
	delete(fields, fieldUpdatedAt)
	return fields, nil
}

// decodeInto converts a JSON-shaped map into T.
func decodeInto[T any](fields map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// decodeDocument rebuilds a record from its stored document.
func decodeDocument[T any](doc *ports.Document) (T, error) {
	fields := make(map[string]any, len(doc.Fields)+3)
	for k, v := range doc.Fields {
		fields[k] = v
	}
	fields[fieldID] = doc.ID
	fields[fieldCreatedAt] = doc.CreatedAt
	fields[fieldUpdatedAt] = doc.UpdatedAt
	out, err := decodeInto[T](fields)
	if err != nil {
		return out, fmt.Errorf("decode record %s: %w", doc.ID, err)
	}
	return out, nil
}

// sanitizeValue applies s to every string reachable from v.
func sanitizeValue(s ports.TextSanitizer, v any) any {
	switch t := v.(type) {
	case string:
		return s.Sanitize(t)
	case map[string]any:
		for k, inner := range t {
			t[k] = sanitizeValue(s, inner)
		}
		return t
	case domain.Patch:
		for k, inner := range t {
			t[k] = sanitizeValue(s, inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = sanitizeValue(s, inner)
		}
		return t
	default:
		return v
	}
}
