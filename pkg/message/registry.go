package message

import "sync"

// Constructor returns an empty message ready to be deserialized.
type Constructor func() Message

type registryKey struct {
	msgType  MessageType
	function FunctionType
}

// Registry maps (type, function) pairs to message constructors.
// It is populated once at startup by the packages defining message kinds
// and is safe for concurrent use afterwards.
type Registry struct {
	constructors map[registryKey]Constructor
	mu           sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[registryKey]Constructor),
	}
}

// Register associates a constructor with a message type and function.
// A later registration for the same pair replaces the earlier one.
func (r *Registry) Register(msgType MessageType, function FunctionType, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[registryKey{msgType: msgType, function: function}] = c
}

// Lookup returns the constructor for a pair, if any.
func (r *Registry) Lookup(msgType MessageType, function FunctionType) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[registryKey{msgType: msgType, function: function}]
	return c, ok
}

// Parse decodes one data frame and returns the concrete message for it.
// Frames without a registered constructor come back as *Raw.
// Returns the number of bytes consumed.
func (r *Registry) Parse(data []byte) (Message, int, error) {
	var frame Frame
	if _, err := frame.Decode(data); err != nil {
		return nil, 0, err
	}

	c, ok := r.Lookup(frame.Type, frame.Function)
	if !ok {
		raw := &Raw{}
		n, err := raw.Deserialize(data)
		if err != nil {
			return nil, 0, err
		}
		return raw, n, nil
	}

	msg := c()
	n, err := msg.Deserialize(data)
	if err != nil {
		return nil, 0, err
	}
	return msg, n, nil
}
