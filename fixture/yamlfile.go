package fixture

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a YAML document into the same value shapes DecodeJSON
// produces: objects follow opts.Objects and sequences become []any.
func DecodeYAML(data []byte, opts DecodeOptions) (any, error) {
	opts = opts.withDefaults()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Kind: KindSyntaxError, Code: CodeSyntax, Err: err}
	}
	c := &yamlConverter{opts: opts, budget: yamlNodeBudget(len(data))}
	return c.convert(&doc, 0)
}

// errAliasExpansion reports a document whose aliases expand far beyond its
// own size.
var errAliasExpansion = errors.New("document expands too many aliased nodes")

// yamlNodeBudget bounds how many nodes a document may expand to once aliases
// are resolved. Without aliases a document never gets near it.
func yamlNodeBudget(size int) int {
	return 10000 + 100*size
}

type yamlConverter struct {
	opts   DecodeOptions
	budget int
}

func (c *yamlConverter) convert(n *yaml.Node, depth int) (any, error) {
	c.budget--
	if c.budget < 0 {
		return nil, &DecodeError{Kind: KindSyntaxError, Code: CodeSyntax, Err: errAliasExpansion}
	}

	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return c.convert(n.Content[0], depth)
	case yaml.AliasNode:
		return c.convert(n.Alias, depth)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, &DecodeError{Kind: KindSyntaxError, Code: CodeSyntax, Err: err}
		}
		return v, nil
	}

	depth++
	if depth > c.opts.MaxDepth {
		return nil, &DecodeError{
			Kind: KindMaxDepthExceeded,
			Code: CodeDepth,
			Err:  fmt.Errorf("nesting depth exceeds %d", c.opts.MaxDepth),
		}
	}

	switch n.Kind {
	case yaml.MappingNode:
		obj := newObject(c.opts.Objects)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, &DecodeError{
					Kind: KindSyntaxError,
					Code: CodeSyntax,
					Err:  fmt.Errorf("line %d: mapping key is not a scalar", key.Line),
				}
			}
			v, err := c.convert(n.Content[i+1], depth)
			if err != nil {
				return nil, err
			}
			obj.set(key.Value, v)
		}
		return obj.value(), nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := c.convert(item, depth)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	default:
		return nil, &DecodeError{Kind: KindUnknown, Code: CodeUnknown, Err: fmt.Errorf("unsupported YAML node kind %d", n.Kind)}
	}
}
