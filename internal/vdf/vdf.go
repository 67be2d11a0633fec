// Package vdf parses Valve's KeyValues text format ("VDF") into an ordered tree.
//
// Keys and values are strings, quoted or bare. A key followed by a brace block opens a nested
// object. Line comments start with //. Platform conditionals such as [$WIN32] are accepted and
// ignored. Key order is preserved exactly as it appears in the document.
package vdf

import "strings"

// Node is one key in an Object. Exactly one of Value or Object is meaningful: Object is non-nil
// for nested blocks.
type Node struct {
	Key    string
	Value  string
	Object *Object
}

func (node Node) IsObject() bool {
	return node.Object != nil
}

// Object is an ordered list of nodes. Duplicate keys are kept; lookups return the first match.
type Object struct {
	nodes []Node
}

func NewObject() *Object {
	return &Object{}
}

func (object *Object) Len() int {
	if object == nil {
		return 0
	}
	return len(object.nodes)
}

// Nodes returns a copy of the children in document order.
func (object *Object) Nodes() []Node {
	if object == nil {
		return nil
	}
	out := make([]Node, len(object.nodes))
	copy(out, object.nodes)
	return out
}

func (object *Object) Keys() []string {
	if object == nil {
		return nil
	}
	keys := make([]string, 0, len(object.nodes))
	for _, node := range object.nodes {
		keys = append(keys, node.Key)
	}
	return keys
}

func (object *Object) Get(key string) (Node, bool) {
	if object == nil {
		return Node{}, false
	}
	for _, node := range object.nodes {
		if node.Key == key {
			return node, true
		}
	}
	return Node{}, false
}

// GetFold is Get with ASCII case-insensitive key matching.
func (object *Object) GetFold(key string) (Node, bool) {
	if object == nil {
		return Node{}, false
	}
	for _, node := range object.nodes {
		if strings.EqualFold(node.Key, key) {
			return node, true
		}
	}
	return Node{}, false
}

func (object *Object) GetString(key string) (string, bool) {
	node, ok := object.Get(key)
	if !ok || node.IsObject() {
		return "", false
	}
	return node.Value, true
}

func (object *Object) GetObject(key string) (*Object, bool) {
	node, ok := object.Get(key)
	if !ok || !node.IsObject() {
		return nil, false
	}
	return node.Object, true
}

func (object *Object) AddString(key string, value string) {
	object.nodes = append(object.nodes, Node{Key: key, Value: value})
}

func (object *Object) AddObject(key string, child *Object) {
	if child == nil {
		child = NewObject()
	}
	object.nodes = append(object.nodes, Node{Key: key, Object: child})
}
