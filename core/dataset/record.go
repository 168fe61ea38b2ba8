package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Record is a string-keyed mapping that remembers insertion order. File
// details are decoded into Records so that functions, classes and class
// members are visited in source order.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// RecordOf builds a Record from alternating key/value arguments.
func RecordOf(kv ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

// Set stores v under key. Overwriting keeps the key's original position.
func (r *Record) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// String returns the stringified value under key, or "" when absent.
func (r *Record) String(key string) string {
	v, _ := r.Get(key)
	return Stringify(v)
}

// Record returns the nested Record under key, or nil.
func (r *Record) Record(key string) *Record {
	v, _ := r.Get(key)
	nested, _ := v.(*Record)
	return nested
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (r *Record) Range(fn func(key string, v any) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}

// MarshalJSON writes the entries in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping key order. Nested objects become
// *Record and numbers stay json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	r.keys, r.values = nil, make(map[string]any)
	return decodeJSONObject(dec, r)
}

func decodeJSONObject(dec *json.Decoder, r *Record) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		v, err := decodeJSONValue(dec)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		r.Set(key, v)
	}
	_, err := dec.Token() // closing '}'
	return err
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		nested := NewRecord()
		if err := decodeJSONObject(dec, nested); err != nil {
			return nil, err
		}
		return nested, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		_, err := dec.Token() // closing ']'
		return list, err
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// MarshalYAML encodes the entries as an ordered mapping node.
func (r *Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if r == nil {
		return node, nil
	}
	for _, k := range r.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(r.values[k]); err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping node, keeping key order and resolving
// aliases. Merge keys are expanded in place.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	node = resolveYAML(node)
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", node.Line)
	}
	r.keys, r.values = nil, make(map[string]any)
	return decodeYAMLMapping(node, r)
}

func decodeYAMLMapping(node *yaml.Node, r *Record) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := resolveYAML(node.Content[i]), node.Content[i+1]
		if keyNode.Tag == "!!merge" {
			merged := resolveYAML(valNode)
			if merged.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: merge value is not a mapping", valNode.Line)
			}
			if err := decodeYAMLMapping(merged, r); err != nil {
				return err
			}
			continue
		}
		v, err := decodeYAMLValue(valNode)
		if err != nil {
			return fmt.Errorf("%s: %w", keyNode.Value, err)
		}
		r.Set(keyNode.Value, v)
	}
	return nil
}

func decodeYAMLValue(node *yaml.Node) (any, error) {
	node = resolveYAML(node)
	switch node.Kind {
	case yaml.MappingNode:
		nested := NewRecord()
		if err := decodeYAMLMapping(node, nested); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := decodeYAMLValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func resolveYAML(node *yaml.Node) *yaml.Node {
	for node != nil {
		switch {
		case node.Kind == yaml.DocumentNode && len(node.Content) > 0:
			node = node.Content[0]
		case node.Kind == yaml.AliasNode && node.Alias != nil:
			node = node.Alias
		default:
			return node
		}
	}
	return &yaml.Node{}
}
