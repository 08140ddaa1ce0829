// Package persistence adapts a cellgraph.Source to an external storage
// backend: a pluggable Serializer converts the cell's value to and from
// bytes, an Adapter wires Read/Write through a storage key, and an
// optional Watcher lets the adapter react to out-of-process changes to
// the underlying storage (file edits, another process's write).
package persistence

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Serializer converts a cell value to and from its persisted byte
// representation.
type Serializer[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte, v *T) error
}

// JSONSerializer is the default Serializer, using encoding/json.
type JSONSerializer[T any] struct{}

func (JSONSerializer[T]) Marshal(v T) ([]byte, error) { return json.Marshal(v) }
func (JSONSerializer[T]) Unmarshal(data []byte, v *T) error {
	return json.Unmarshal(data, v)
}

// YAMLSerializer is an alternate Serializer using gopkg.in/yaml.v3, for
// storage backends where a human-edited config file is the expectation.
type YAMLSerializer[T any] struct{}

func (YAMLSerializer[T]) Marshal(v T) ([]byte, error) { return yaml.Marshal(v) }
func (YAMLSerializer[T]) Unmarshal(data []byte, v *T) error {
	return yaml.Unmarshal(data, v)
}
