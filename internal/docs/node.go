package docs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxDepth bounds nesting so hostile documents cannot exhaust the stack.
const maxDepth = 1000

// Kind is the JSON type of a Node.
type Kind int

// Node kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Member is one object member.
type Member struct {
	Key   string
	Value *Node
}

// Node is an ordered JSON tree. Object members keep their source order
// and numbers keep their literal text.
type Node struct {
	Kind Kind

	// Value holds the scalar: "true"/"false", the number literal, or the
	// decoded string.
	Value string

	Members []Member
	Items   []*Node
}

// Parse decodes a document: exactly one JSON object. A repeated object
// key keeps its first position and takes the last value. Any other
// top-level value is rejected with ErrMalformedInput.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := parseValue(dec, 0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected content after top-level value at offset %d", dec.InputOffset())
	}

	if node.Kind != KindObject {
		return nil, fmt.Errorf("%w: top-level value is a %s, not an object", ErrMalformedInput, node.Kind)
	}

	return node, nil
}

func parseValue(dec *json.Decoder, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("document nesting exceeds %d levels", maxDepth)
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return parseObject(dec, depth)
		case '[':
			return parseArray(dec, depth)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q at offset %d", v, dec.InputOffset())
		}
	case nil:
		return &Node{Kind: KindNull}, nil
	case bool:
		if v {
			return &Node{Kind: KindBool, Value: "true"}, nil
		}
		return &Node{Kind: KindBool, Value: "false"}, nil
	case json.Number:
		return &Node{Kind: KindNumber, Value: v.String()}, nil
	case string:
		return &Node{Kind: KindString, Value: v}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func parseObject(dec *json.Decoder, depth int) (*Node, error) {
	node := &Node{Kind: KindObject, Members: []Member{}}
	index := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string at offset %d", dec.InputOffset())
		}

		value, err := parseValue(dec, depth+1)
		if err != nil {
			return nil, err
		}

		if i, seen := index[key]; seen {
			node.Members[i].Value = value
			continue
		}
		index[key] = len(node.Members)
		node.Members = append(node.Members, Member{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

func parseArray(dec *json.Decoder, depth int) (*Node, error) {
	node := &Node{Kind: KindArray, Items: []*Node{}}

	for dec.More() {
		item, err := parseValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, item)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

// Get returns the value of an object member, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	for _, m := range n.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Equal reports whether two trees are structurally identical, member
// order included.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Value != other.Value {
		return false
	}
	if len(n.Members) != len(other.Members) || len(n.Items) != len(other.Items) {
		return false
	}
	for i := range n.Members {
		if n.Members[i].Key != other.Members[i].Key || !n.Members[i].Value.Equal(other.Members[i].Value) {
			return false
		}
	}
	for i := range n.Items {
		if !n.Items[i].Equal(other.Items[i]) {
			return false
		}
	}
	return true
}

// Encode writes the tree as indented JSON. Empty objects and arrays are
// written as {} and [].
func (n *Node) Encode(indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf, indent, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer, indent string, depth int) error {
	switch n.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool, KindNumber:
		buf.WriteString(n.Value)
	case KindString:
		return encodeString(buf, n.Value)
	case KindArray:
		if len(n.Items) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			if err := item.encode(buf, indent, depth+1); err != nil {
				return err
			}
		}
		newline(buf, indent, depth)
		buf.WriteByte(']')
	case KindObject:
		if len(n.Members) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		for i, m := range n.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := m.Value.encode(buf, indent, depth+1); err != nil {
				return err
			}
		}
		newline(buf, indent, depth)
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %d", n.Kind)
	}
	return nil
}

func newline(buf *bytes.Buffer, indent string, depth int) {
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, depth))
}

// encodeString writes s as a JSON string without HTML escaping.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
