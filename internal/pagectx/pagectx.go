// Package pagectx holds the page-scoped Context Bundle the server renders
// into every page: feature data and HTML snippets ("context strings").
package pagectx

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Well-known keys.
const (
	KeyItemCount = "item-count"
	KeyUserEmail = "user_email"
	KeyMyBuys    = "mybuys"
	KeyScripts   = "scripts"
	KeyComboBase = "comboBase"

	StringDialog = "dialog"
	StringMask   = "mask"
	StringError  = "error"
)

// Bundle is the server-to-client payload delivered once per page load.
type Bundle struct {
	Data    map[string]any    `json:"data"`
	Strings map[string]string `json:"strings"`
}

// Decode parses a bundle payload.
func Decode(raw []byte) (Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return Bundle{}, fmt.Errorf("decoding context bundle: %w", err)
	}
	return b, nil
}

// Store gives read and write access to a Bundle. Lookups never fail.
type Store struct {
	data    map[string]any
	strings map[string]string
}

// NewStore wraps b. The maps are copied so the caller's bundle is not mutated.
func NewStore(b Bundle) *Store {
	s := &Store{
		data:    make(map[string]any, len(b.Data)),
		strings: make(map[string]string, len(b.Strings)),
	}
	for k, v := range b.Data {
		s.data[k] = v
	}
	for k, v := range b.Strings {
		s.strings[k] = v
	}
	return s
}

// Data returns the value under key, or false when the key is absent or its
// value is falsy (nil, false, 0, "").
func (s *Store) Data(key string) any {
	if s == nil {
		return false
	}
	v, ok := s.data[key]
	if !ok || !truthy(v) {
		return false
	}
	return v
}

// Has reports whether key holds a truthy value.
func (s *Store) Has(key string) bool {
	return truthy(s.Data(key))
}

// SetData stores value under key.
func (s *Store) SetData(key string, value any) {
	if s == nil {
		return
	}
	s.data[key] = value
}

// String returns the context string under key, "" when absent.
func (s *Store) String(key string) string {
	if s == nil {
		return ""
	}
	return s.strings[key]
}

// SetString stores a context string.
func (s *Store) SetString(key, value string) {
	if s == nil {
		return
	}
	s.strings[key] = value
}

// Int returns the value under key as an int. JSON numbers arrive as float64
// and numeric strings are accepted; anything else reads as 0.
func (s *Store) Int(key string) int {
	switch v := s.Data(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Strings returns a []string stored under key, skipping non-string entries.
func (s *Store) Strings(key string) []string {
	switch v := s.Data(key).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Map returns a map stored under key, or nil.
func (s *Store) Map(key string) map[string]any {
	m, _ := s.Data(key).(map[string]any)
	return m
}

// Scripts returns the script URLs the server asked to load after page load.
func (s *Store) Scripts() []string { return s.Strings(KeyScripts) }

// ItemCount returns the shopping bag counter.
func (s *Store) ItemCount() int { return s.Int(KeyItemCount) }

// SetItemCount updates the shopping bag counter in place.
func (s *Store) SetItemCount(n int) { s.SetData(KeyItemCount, n) }

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
