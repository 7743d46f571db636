package payload

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	tagNull   = "!!null"
	tagStr    = "!!str"
	tagInt    = "!!int"
	tagFloat  = "!!float"
	tagBool   = "!!bool"
	tagSeq    = "!!seq"
	tagMap    = "!!map"
	tagBinary = "!!binary"
	tagTime   = "!!timestamp"
)

// Encode renders a value as a YAML document.
func Encode(v Value) (string, error) {
	node, err := toNode(v)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

// Decode parses a YAML document produced by Encode (or written by hand) into a
// Value. An empty document decodes to Null.
func Decode(text string) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Null{}, nil
	}
	d := &decoder{budget: maxNodes}
	return d.fromNode(doc.Content[0], 0)
}

func toNode(v Value) (*yaml.Node, error) {
	switch tv := v.(type) {
	case nil, Null:
		return scalar(tagNull, "null"), nil
	case String:
		if !utf8.ValidString(string(tv)) {
			return scalar(tagBinary, base64.StdEncoding.EncodeToString([]byte(tv))), nil
		}
		return scalar(tagStr, string(tv)), nil
	case Int:
		return scalar(tagInt, strconv.FormatInt(int64(tv), 10)), nil
	case Float:
		return scalar(tagFloat, formatFloat(float64(tv))), nil
	case Bool:
		return scalar(tagBool, strconv.FormatBool(bool(tv))), nil
	case List:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
		for i, item := range tv {
			child, err := toNode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			node.Content = append(node.Content, child)
		}
		if len(tv) == 0 {
			node.Style = yaml.FlowStyle
		}
		return node, nil
	case Map:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
		for _, pair := range tv {
			key, err := toNode(pair.Key)
			if err != nil {
				return nil, fmt.Errorf("map key: %w", err)
			}
			value, err := toNode(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("map value: %w", err)
			}
			node.Content = append(node.Content, key, value)
		}
		if len(tv) == 0 {
			node.Style = yaml.FlowStyle
		}
		return node, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

const (
	maxDepth = 512
	// maxNodes bounds the decoded size, counting every alias expansion.
	maxNodes = 1 << 20
)

type decoder struct {
	budget int
}

func (d *decoder) fromNode(node *yaml.Node, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnsupported, maxDepth)
	}
	d.budget--
	if d.budget < 0 {
		return nil, fmt.Errorf("%w: document expands to more than %d nodes", ErrUnsupported, maxNodes)
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null{}, nil
		}
		return d.fromNode(node.Content[0], depth+1)
	case yaml.AliasNode:
		if node.Alias == nil {
			return nil, fmt.Errorf("%w: dangling alias", ErrUnsupported)
		}
		return d.fromNode(node.Alias, depth+1)
	case yaml.SequenceNode:
		list := make(List, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := d.fromNode(child, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case yaml.MappingNode:
		out := make(Map, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, err := d.fromNode(node.Content[i], depth+1)
			if err != nil {
				return nil, err
			}
			value, err := d.fromNode(node.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, Pair{Key: key, Value: value})
		}
		return out, nil
	case yaml.ScalarNode:
		return fromScalar(node)
	}
	return nil, fmt.Errorf("%w: yaml node kind %d", ErrUnsupported, node.Kind)
}

func fromScalar(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case tagNull:
		return Null{}, nil
	case tagStr, tagTime:
		return String(node.Value), nil
	case tagBool:
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode bool %q: %w", node.Value, err)
		}
		return Bool(b), nil
	case tagInt:
		var n int64
		if err := node.Decode(&n); err != nil {
			return nil, fmt.Errorf("decode int %q: %w", node.Value, err)
		}
		return Int(n), nil
	case tagFloat:
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode float %q: %w", node.Value, err)
		}
		return Float(f), nil
	case tagBinary:
		raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(node.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("decode binary: %w", err)
		}
		return String(raw), nil
	}
	return nil, fmt.Errorf("%w: yaml tag %s", ErrUnsupported, node.ShortTag())
}
