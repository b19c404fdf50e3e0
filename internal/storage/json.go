package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformed marks a stored document that exists but cannot be decoded or
// fails schema validation. Errors without it come from the backend itself.
var ErrMalformed = errors.New("malformed document")

// MustCompileSchema compiles a JSON schema or panics. It is meant for schemas
// embedded in the binary.
func MustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile json schema: %v", err))
	}
	return schema
}

// LoadJSON reads key and decodes it into v. It reports false when the key is
// absent. When schema is non-nil the raw document is validated first.
// Decoding and validation failures wrap ErrMalformed.
func LoadJSON(s Store, key string, schema *gojsonschema.Schema, v any) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return true, fmt.Errorf("decode %s: %w: %w", key, ErrMalformed, err)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				msgs = append(msgs, e.String())
			}
			return true, fmt.Errorf("validate %s: %w: %s", key, ErrMalformed, strings.Join(msgs, "; "))
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w: %w", key, ErrMalformed, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, data)
}
