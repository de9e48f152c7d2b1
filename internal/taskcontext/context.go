// Package taskcontext implements the JSON-shaped envelope that flows
// through a workflow execution: event data, per-node outputs, and
// metadata, all addressed by dotted path via gjson/sjson rather than a
// hand-rolled tree walk.
package taskcontext

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"wfengine/internal/taskerr"
)

// RouterDecisionKey is the single reserved metadata key a router node must
// set during its Process call; the engine reads it back to pick the
// outgoing edge.
const RouterDecisionKey = "router.decision"

// Context is the mutable envelope passed between nodes during a workflow
// execution. It is single-owner while a node holds it; the engine takes it
// back on return. Its internal mutex exists only to make Clone and
// concurrent reads safe across a parallel fan-out, not to support
// concurrent mutation from two nodes at once.
type Context struct {
	mu            sync.Mutex
	data          []byte
	correlationID string
}

const emptyDoc = `{"event":null,"nodes":{},"metadata":{}}`

// New builds an empty Context stamped with a fresh correlation id.
func New() *Context {
	return &Context{
		data:          []byte(emptyDoc),
		correlationID: uuid.NewString(),
	}
}

// NewWithCorrelationID builds an empty Context using a caller-supplied
// correlation id instead of generating one, letting an execution scope
// thread its own id through.
func NewWithCorrelationID(id string) *Context {
	return &Context{data: []byte(emptyDoc), correlationID: id}
}

// CorrelationID returns the context's correlation id.
func (c *Context) CorrelationID() string {
	return c.correlationID
}

// SetEventData marshals event and stores it as the context's event payload.
func (c *Context) SetEventData(event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := sjson.SetBytes(c.data, "event", event)
	if err != nil {
		return taskerr.NewSerializationError(err)
	}
	c.data = out
	return nil
}

// GetEventData deserializes the context's event payload into T.
func GetEventData[T any](c *Context) (T, error) {
	var zero T
	c.mu.Lock()
	raw := gjson.GetBytes(c.data, "event").Raw
	c.mu.Unlock()

	if raw == "" || raw == "null" {
		return zero, taskerr.NewDeserializationError(taskerr.New(taskerr.KindDeserialization, "event data not set"))
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero, taskerr.NewDeserializationError(err)
	}
	return out, nil
}

// UpdateNode stores a node's output value under nodes.<key>.
func (c *Context) UpdateNode(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := sjson.SetBytes(c.data, "nodes."+gjsonEscape(key), value)
	if err != nil {
		return taskerr.NewSerializationError(err)
	}
	c.data = out
	return nil
}

// GetNodeData deserializes the value stored under nodes.<key> into T. The
// second return value reports whether the key was present.
func GetNodeData[T any](c *Context, key string) (T, bool, error) {
	var zero T
	c.mu.Lock()
	result := gjson.GetBytes(c.data, "nodes."+gjsonEscape(key))
	c.mu.Unlock()

	if !result.Exists() {
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal([]byte(result.Raw), &out); err != nil {
		return zero, true, taskerr.NewDeserializationError(err)
	}
	return out, true, nil
}

// SetMetadata stores a value under metadata.<key>. Used by router nodes to
// record RouterDecisionKey, and by nodes that want to pass side-channel
// information to the engine or downstream nodes.
func (c *Context) SetMetadata(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := sjson.SetBytes(c.data, "metadata."+gjsonEscape(key), value)
	if err != nil {
		return taskerr.NewSerializationError(err)
	}
	c.data = out
	return nil
}

// GetMetadata returns the raw JSON value stored under metadata.<key> and
// whether it was present.
func (c *Context) GetMetadata(key string) (gjson.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := gjson.GetBytes(c.data, "metadata."+gjsonEscape(key))
	return result, result.Exists()
}

// RouterDecision is a convenience wrapper over GetMetadata for the reserved
// router.decision key.
func (c *Context) RouterDecision() (string, bool) {
	val, ok := c.GetMetadata(RouterDecisionKey)
	if !ok {
		return "", false
	}
	return val.String(), true
}

// Clone returns a deep copy of c with a fresh underlying byte slice,
// sharing the same correlation id. Used by the engine when fanning a
// context out across sibling nodes in a parallel-execution set so each
// node mutates its own copy.
func (c *Context) Clone() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(c.data))
	copy(cp, c.data)
	return &Context{data: cp, correlationID: c.correlationID}
}

// MergeFrom folds another context's node outputs into c under the given
// node keys, failing if any key already exists in c (fan-out merges must
// write disjoint keys).
func (c *Context) MergeFrom(other *Context, nodeKeys []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	for _, key := range nodeKeys {
		path := "nodes." + gjsonEscape(key)
		if gjson.GetBytes(c.data, path).Exists() {
			return taskerr.New(taskerr.KindRuntime, "parallel fan-out merge collision on node key "+key)
		}
		val := gjson.GetBytes(other.data, path)
		if !val.Exists() {
			continue
		}
		out, err := sjson.SetRawBytes(c.data, path, []byte(val.Raw))
		if err != nil {
			return taskerr.NewSerializationError(err)
		}
		c.data = out
	}
	return nil
}

// Raw returns the context's current JSON document. Intended for logging
// and tests, not for mutation.
func (c *Context) Raw() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

// gjsonEscape backslash-escapes path metacharacters in a node/metadata key
// so it can be used as a single gjson/sjson path segment.
func gjsonEscape(key string) string {
	needsEscape := false
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '#', '|', '@':
			needsEscape = true
		}
		if needsEscape {
			break
		}
	}
	if !needsEscape {
		return key
	}
	escaped := make([]byte, 0, len(key)+4)
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '\\', '#', '|', '@':
			escaped = append(escaped, '\\', key[i])
		default:
			escaped = append(escaped, key[i])
		}
	}
	return string(escaped)
}
