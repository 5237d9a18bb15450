// Package resolve implements candidate-key lookup over raw JSON payloads.
// Upstream payload shapes are schema-unstable: the same attribute shows up
// under different names across payloads and vendor versions. Resolution tries
// an ordered list of candidate keys and returns the first present, non-null
// value whose shape matches.
package resolve

import (
	_ "embed"
	"fmt"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

//go:embed keys.yaml
var keysYAML []byte

var keyTable map[string][]string

func init() {
	if err := yaml.Unmarshal(keysYAML, &keyTable); err != nil {
		panic(fmt.Sprintf("resolve: bad keys.yaml: %v", err))
	}
}

// Keys returns the ordered candidate-key list for a table attribute. Unknown
// attributes are programmer errors.
func Keys(attr string) []string {
	keys, ok := keyTable[attr]
	if !ok {
		panic(fmt.Sprintf("resolve: unknown attribute %q", attr))
	}
	return keys
}

// Shape constrains the expected value shape during resolution. A candidate
// whose value exists but has the wrong shape is skipped, same as absent.
type Shape int

const (
	Any Shape = iota
	Scalar
	List
	Object
)

// Value tries each candidate key in order against node and returns the first
// present, non-null match of the wanted shape. It never fails for a missing
// key. Passing a node that is not a JSON container is a programmer error and
// panics.
func Value(node gjson.Result, keys []string, shape Shape) (gjson.Result, bool) {
	if !node.Exists() || node.Type != gjson.JSON {
		panic("resolve: node is not a traversable JSON structure")
	}
	for _, key := range keys {
		v := node.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if matchesShape(v, shape) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// Attr is Value with the candidate keys taken from the embedded table.
func Attr(node gjson.Result, attr string, shape Shape) (gjson.Result, bool) {
	v, _, ok := AttrPath(node, attr, shape)
	return v, ok
}

// AttrPath is Attr but also reports which candidate key matched, for building
// raw-pointer locators back into the payload.
func AttrPath(node gjson.Result, attr string, shape Shape) (gjson.Result, string, bool) {
	if !node.Exists() || node.Type != gjson.JSON {
		panic("resolve: node is not a traversable JSON structure")
	}
	for _, key := range Keys(attr) {
		v := node.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if matchesShape(v, shape) {
			return v, key, true
		}
	}
	return gjson.Result{}, "", false
}

// String resolves a scalar attribute to its string form.
func String(node gjson.Result, attr string) (string, bool) {
	v, ok := Attr(node, attr, Scalar)
	if !ok {
		return "", false
	}
	return v.String(), true
}

func matchesShape(v gjson.Result, shape Shape) bool {
	switch shape {
	case Any:
		return true
	case List:
		return v.IsArray()
	case Object:
		return v.IsObject()
	case Scalar:
		return !v.IsArray() && !v.IsObject()
	}
	return false
}
