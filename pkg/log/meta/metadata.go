package meta

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Request-scoped metadata carrier, safe for concurrent use.
type metadata struct {
	carrier map[interface{}]interface{}
	mu      sync.RWMutex
}

func (c *metadata) Value(key interface{}) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.carrier[key]
}

func (c *metadata) WithValue(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carrier[key] = value
}

type contextKey struct{}

var metaContextKey = contextKey{}

// Begin injects a metadata carrier into the context. Calling it on a context
// that already carries one returns the parent unchanged, so it should be
// called as close to the root context as possible.
func Begin(parent context.Context) context.Context {
	value := parent.Value(metaContextKey)
	if value == nil {
		meta := &metadata{
			carrier: make(map[interface{}]interface{}),
		}
		child := context.WithValue(parent, metaContextKey, meta)
		return child
	}
	return parent
}

func metadataFrom(parent context.Context) *metadata {
	value := parent.Value(metaContextKey)
	if value == nil {
		logrus.Debug("meta not found from context, should call meta.Begin() first?")
		return nil
	}
	return value.(*metadata)
}

// WithValue stores a key/value pair on the context's metadata carrier.
func WithValue(parent context.Context, key, val interface{}) {
	meta := metadataFrom(parent)
	if meta == nil {
		return
	}
	meta.WithValue(key, val)
}

// Value reads a value from the context's metadata carrier.
func Value(parent context.Context, key interface{}) interface{} {
	meta := metadataFrom(parent)
	if meta == nil {
		return nil
	}
	return meta.Value(key)
}
