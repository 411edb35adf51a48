package oauth

import (
	"github.com/tidwall/gjson"
)

// Collection wraps a parsed JSON value so keys can be looked up without having to check every level for nil.
type Collection struct {
	data gjson.Result
}

func NewCollection(data gjson.Result) *Collection {
	return &Collection{data}
}

// ParseCollection parses raw JSON into a collection. Invalid JSON results in an empty collection.
func ParseCollection(raw []byte) *Collection {
	if !gjson.ValidBytes(raw) {
		return &Collection{}
	}
	return &Collection{gjson.ParseBytes(raw)}
}

// Lookup returns the value for key and whether the key is present.
// Keys are matched literally, dots and wildcards in key have no special meaning.
func (c *Collection) Lookup(key string) (gjson.Result, bool) {
	value := c.data.Get(gjson.Escape(key))
	return value, value.Exists()
}

func (c *Collection) Exists(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Get returns the value for key, or an empty result if the key does not exist.
func (c *Collection) Get(key string) gjson.Result {
	value, _ := c.Lookup(key)
	return value
}

// Path returns the value at a gjson path such as "paging.cursors.after".
func (c *Collection) Path(path string) gjson.Result {
	return c.data.Get(path)
}

// Filter returns the nested value at key as a collection. Missing keys give an empty collection.
func (c *Collection) Filter(key string) *Collection {
	return &Collection{c.Get(key)}
}

// Count returns the number of properties of an object or the number of elements of an array.
func (c *Collection) Count() int {
	switch {
	case c.data.IsArray():
		return len(c.data.Array())
	case c.data.IsObject():
		count := 0
		c.data.ForEach(func(_, _ gjson.Result) bool {
			count++
			return true
		})
		return count
	default:
		return 0
	}
}

// Properties returns the keys of an object in document order.
func (c *Collection) Properties() []string {
	var keys []string
	if !c.data.IsObject() {
		return keys
	}
	c.data.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Raw returns the wrapped value.
func (c *Collection) Raw() gjson.Result {
	return c.data
}

// MarshalJSON returns the wrapped JSON as it was received.
func (c *Collection) MarshalJSON() ([]byte, error) {
	if len(c.data.Raw) == 0 {
		return []byte("null"), nil
	}
	return []byte(c.data.Raw), nil
}
