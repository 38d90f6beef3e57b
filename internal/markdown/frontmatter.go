package markdown

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// TimestampLayout is used for timestamps this module writes (lastModified,
// rebuiltAt): UTC with microseconds and a literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Frontmatter is an ordered YAML mapping. Keys keep the order they were
// decoded or first set in; Set on an existing key keeps its position.
// Nested mappings are *Frontmatter, sequences are []any and scalars carry the
// types yaml.v3 assigns them. Unquoted timestamps decode as time.Time, or as
// Date when the scalar carried no time part.
//
// Scalars that were decoded and never replaced are written back with their
// original YAML node, so quoting and comments survive a read/write cycle.
type Frontmatter struct {
	keys   []string
	values map[string]any
	source map[string]sourceEntry
}

type sourceEntry struct {
	key   *yaml.Node
	value *yaml.Node
}

// Date is a date-only YAML timestamp such as 2024-01-15. It renders without
// a time part even though the value is midnight UTC.
type Date struct {
	time.Time
}

// NewDate returns the Date for year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// NewFrontmatter returns an empty mapping.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{values: map[string]any{}}
}

// Len reports the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the keys in order.
func (f *Frontmatter) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.keys)
}

// All iterates key/value pairs in order.
func (f *Frontmatter) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if f == nil {
			return
		}
		for _, key := range f.keys {
			if !yield(key, f.values[key]) {
				return
			}
		}
	}
}

// Get returns the value stored under key.
func (f *Frontmatter) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	value, ok := f.values[key]
	return value, ok
}

// Has reports whether key is present, even with a null value.
func (f *Frontmatter) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Set stores value under key, appending the key when it is new.
func (f *Frontmatter) Set(key string, value any) {
	if f.values == nil {
		f.values = map[string]any{}
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	if entry, ok := f.source[key]; ok {
		entry.value = nil
		f.source[key] = entry
	}
}

// Delete removes key.
func (f *Frontmatter) Delete(key string) {
	if f == nil {
		return
	}
	if _, exists := f.values[key]; !exists {
		return
	}
	delete(f.values, key)
	delete(f.source, key)
	f.keys = slices.DeleteFunc(f.keys, func(k string) bool { return k == key })
}

// String returns the value under key rendered as text. Missing keys and
// nulls yield "".
func (f *Frontmatter) String(key string) string {
	value, ok := f.Get(key)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case Date:
		return v.String()
	case time.Time:
		return formatTime(v)
	default:
		return fmt.Sprint(v)
	}
}

// Mapping returns the nested mapping under key, or nil.
func (f *Frontmatter) Mapping(key string) *Frontmatter {
	value, _ := f.Get(key)
	nested, _ := value.(*Frontmatter)
	return nested
}

// Truthy reports whether the value under key is present and not a zero
// value: nil, false, 0, "" and empty collections are all false.
func (f *Frontmatter) Truthy(key string) bool {
	value, ok := f.Get(key)
	if !ok {
		return false
	}
	return truthy(value)
}

// Clone returns a deep copy. Source nodes are shared since they are never
// mutated.
func (f *Frontmatter) Clone() *Frontmatter {
	if f == nil {
		return nil
	}
	out := &Frontmatter{
		keys:   slices.Clone(f.keys),
		values: make(map[string]any, len(f.values)),
	}
	for key, value := range f.values {
		out.values[key] = cloneValue(value)
	}
	if len(f.source) > 0 {
		out.source = make(map[string]sourceEntry, len(f.source))
		for key, entry := range f.source {
			out.source[key] = entry
		}
	}
	return out
}

// UnmarshalYAML implements yaml.Unmarshaler. Anything other than a mapping is
// rejected.
func (f *Frontmatter) UnmarshalYAML(node *yaml.Node) error {
	node = resolveAlias(node)
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = resolveAlias(node.Content[0])
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("frontmatter: expected a mapping, got %s", kindName(node.Kind))
	}

	f.keys = nil
	f.values = make(map[string]any, len(node.Content)/2)
	f.source = make(map[string]sourceEntry, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := resolveAlias(node.Content[i])
		valueNode := node.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("frontmatter: line %d: keys must be scalars", keyNode.Line)
		}

		value, err := decodeValue(valueNode)
		if err != nil {
			return err
		}

		f.Set(keyNode.Value, value)
		entry := sourceEntry{key: node.Content[i]}
		if resolveAlias(valueNode).Kind == yaml.ScalarNode {
			entry.value = valueNode
		}
		f.source[keyNode.Value] = entry
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, emitting a block mapping in key
// order.
func (f *Frontmatter) MarshalYAML() (any, error) {
	return f.node()
}

func (f *Frontmatter) node() (*yaml.Node, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if f == nil {
		return mapping, nil
	}
	for _, key := range f.keys {
		entry := f.source[key]

		keyNode := entry.key
		if keyNode == nil {
			keyNode = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		}

		valueNode := entry.value
		if valueNode == nil {
			var err error
			if valueNode, err = encodeValue(f.values[key]); err != nil {
				return nil, fmt.Errorf("frontmatter: encode %q: %w", key, err)
			}
		}

		mapping.Content = append(mapping.Content, keyNode, valueNode)
	}
	return mapping, nil
}

// MarshalJSON emits a JSON object in key order. Timestamps are written as
// ISO-8601 text, date-only values as YYYY-MM-DD.
func (f *Frontmatter) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := marshalJSON(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')

		encodedValue, err := marshalJSON(jsonValue(f.values[key]))
		if err != nil {
			return nil, fmt.Errorf("frontmatter: encode %q: %w", key, err)
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalJSON encodes without HTML escaping so article text stays readable.
func marshalJSON(value any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func jsonValue(value any) any {
	switch v := value.(type) {
	case Date:
		return v.String()
	case time.Time:
		return formatTime(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = jsonValue(item)
		}
		return out
	default:
		return value
	}
}

func decodeValue(node *yaml.Node) (any, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.MappingNode:
		nested := NewFrontmatter()
		if err := nested.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := decodeValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("frontmatter: line %d: %w", node.Line, err)
		}
		if ts, ok := value.(time.Time); ok && isDateOnly(node.Value) {
			return Date{Time: ts}, nil
		}
		return value, nil
	default:
		return nil, fmt.Errorf("frontmatter: line %d: unsupported %s", node.Line, kindName(node.Kind))
	}
}

func encodeValue(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case *Frontmatter:
		return v.node()
	case Date:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: v.String()}, nil
	case time.Time:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: formatTime(v)}, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			child, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, child)
		}
		return seq, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		node := &yaml.Node{}
		node.SetString(v)
		return node, nil
	case int:
		return intNode(int64(v)), nil
	case int64:
		return intNode(v), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	}

	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, err
	}
	node.Style &^= yaml.FlowStyle
	return node, nil
}

func intNode(v int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}
}

// formatTime renders a full timestamp as RFC 3339, midnight included.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// isDateOnly reports whether a timestamp scalar was written without a time
// part (2024-01-15, not 2024-01-15T00:00:00Z).
func isDateOnly(raw string) bool {
	return !strings.ContainsAny(strings.TrimSpace(raw), "Tt :")
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "empty document"
	}
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case *Frontmatter:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case uint64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case *Frontmatter:
		return v.Len() > 0
	default:
		return true
	}
}

var errNotMapping = errors.New("frontmatter: document does not contain a mapping")
