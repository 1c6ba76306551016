package ilsetl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Field is one key/value pair of a Record.
type Field struct {
	Key   string `msgpack:"k"`
	Value any    `msgpack:"v"`
}

// Record is a single sales record. Unlike a map it remembers the order in
// which keys were first set, so staging columns follow the API's field order.
//
// The zero value is an empty record ready for use. Records are values: a
// copy never sees Set calls made on another copy.
type Record struct {
	fields []Field
}

// NewRecord builds a record from alternating key/value arguments.
// Panics if the argument count is odd or a key is not a string.
//
//	r := ilsetl.NewRecord("name", "John", "age", 30)
func NewRecord(kv ...any) Record {
	if len(kv)%2 != 0 {
		panic("NewRecord: odd number of arguments")
	}
	var r Record
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("NewRecord: key at position %d is %T, not string", i, kv[i]))
		}
		r.put(key, kv[i+1])
	}
	return r
}

// RecordFromFields builds a record from an ordered field list.
// Later duplicates overwrite earlier values but keep the first position.
func RecordFromFields(fields []Field) Record {
	var r Record
	for _, f := range fields {
		r.put(f.Key, f.Value)
	}
	return r
}

// Set assigns value to key, appending the key if it is new.
// The field list is cloned first because copies of r may share it.
func (r *Record) Set(key string, value any) {
	r.fields = slices.Clip(slices.Clone(r.fields))
	r.put(key, value)
}

// put mutates the field list in place. Only for records not yet shared.
func (r *Record) put(key string, value any) {
	if i := r.find(key); i >= 0 {
		r.fields[i].Value = value
		return
	}
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

func (r Record) find(key string) int {
	return slices.IndexFunc(r.fields, func(f Field) bool { return f.Key == key })
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	i := r.find(key)
	if i < 0 {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Keys returns the record's keys in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the record's fields in insertion order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// MarshalJSON encodes the record as a JSON object, preserving key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
// Numbers are kept as json.Number so their literal text survives staging.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		r.put(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Row is one result row returned by the database.
type Row []any
