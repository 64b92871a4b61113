package platform

import "time"

// Fields is the body of a document. Values are string, bool, int64,
// float64 or time.Time.
type Fields map[string]any

// Document is a stored record.
type Document struct {
	ID     string
	Fields Fields
}

// String returns the string field key, or "" if absent or not a string.
func (d Document) String(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// Bool returns the bool field key, or false if absent or not a bool.
func (d Document) Bool(key string) bool {
	b, _ := d.Fields[key].(bool)
	return b
}

// Time returns the timestamp field key. Backends that store timestamps
// as RFC 3339 text are accepted too.
func (d Document) Time(key string) time.Time {
	switch v := d.Fields[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

// Clone returns a copy of f that can be modified independently.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
