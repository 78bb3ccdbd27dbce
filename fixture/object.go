package fixture

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ObjectMode selects how JSON and YAML objects are represented after decoding.
type ObjectMode int

const (
	// ObjectOrdered decodes objects to *orderedmap.OrderedMap[string, any],
	// keeping document key order.
	ObjectOrdered ObjectMode = iota
	// ObjectMap decodes objects to map[string]any.
	ObjectMap
)

// Object is the ordered object type produced in ObjectOrdered mode.
type Object = orderedmap.OrderedMap[string, any]

// Field is one key/value pair of a decoded object.
type Field struct {
	Key   string
	Value any
}

// Fields returns the entries of a decoded object. Ordered objects keep their
// document order; plain maps are returned sorted by key. The second result is
// false when v is not an object.
func Fields(v any) ([]Field, bool) {
	switch obj := v.(type) {
	case *Object:
		fields := make([]Field, 0, obj.Len())
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			fields = append(fields, Field{Key: pair.Key, Value: pair.Value})
		}
		return fields, true
	case map[string]any:
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: obj[k]})
		}
		return fields, true
	default:
		return nil, false
	}
}

type objectBuilder interface {
	set(key string, value any)
	value() any
}

type orderedObject struct{ m *Object }

func (o orderedObject) set(key string, value any) { o.m.Set(key, value) }
func (o orderedObject) value() any                { return o.m }

type mapObject map[string]any

func (o mapObject) set(key string, value any) { o[key] = value }
func (o mapObject) value() any                { return map[string]any(o) }

func newObject(mode ObjectMode) objectBuilder {
	if mode == ObjectMap {
		return mapObject{}
	}
	return orderedObject{m: orderedmap.New[string, any]()}
}
