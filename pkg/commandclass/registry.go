package commandclass

import "sync"

// decoder is implemented by commands that carry parameters.
type decoder interface {
	Command
	decode(params []byte) error
}

// Constructor returns an empty command addressed to node.
type Constructor func(node NodeID) Command

type registryKey struct {
	class   ID
	command uint8
}

// Registry maps (class, command) pairs to constructors. It is filled at
// startup and safe for concurrent use afterwards.
type Registry struct {
	mu           sync.RWMutex
	constructors map[registryKey]Constructor
	// classOnly holds classes whose payload has no command byte.
	classOnly map[ID]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[registryKey]Constructor),
		classOnly:    make(map[ID]Constructor),
	}
}

// DefaultRegistry returns a registry with every command class this package
// implements.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterClass(IDNoOperation, func(n NodeID) Command { return &NoOperation{Header: Header{n}} })

	r.Register(IDBasic, BasicCmdSet, func(n NodeID) Command { return &BasicSet{Header: Header{n}} })
	r.Register(IDBasic, BasicCmdGet, func(n NodeID) Command { return &BasicGet{Header: Header{n}} })
	r.Register(IDBasic, BasicCmdReport, func(n NodeID) Command { return &BasicReport{Header: Header{n}} })

	r.Register(IDAssociation, AssociationCmdSet, func(n NodeID) Command { return &AssociationSet{Header: Header{n}} })
	r.Register(IDAssociation, AssociationCmdGet, func(n NodeID) Command { return &AssociationGet{Header: Header{n}} })
	r.Register(IDAssociation, AssociationCmdReport, func(n NodeID) Command { return &AssociationReport{Header: Header{n}} })
	r.Register(IDAssociation, AssociationCmdRemove, func(n NodeID) Command { return &AssociationRemove{Header: Header{n}} })
	return r
}

// Register adds a constructor for one command of a class.
func (r *Registry) Register(class ID, command uint8, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[registryKey{class: class, command: command}] = c
}

// RegisterClass adds a constructor for a class whose payload is the class
// byte alone.
func (r *Registry) RegisterClass(class ID, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classOnly[class] = c
}

// Parse decodes an unaddressed command ([cc][cmd][params...]) received
// from node. Unregistered commands come back as *Unknown.
func (r *Registry) Parse(node NodeID, data []byte) (Command, error) {
	if len(data) < 1 {
		return nil, ErrPayloadTooShort
	}
	class := ID(data[0])

	r.mu.RLock()
	if c, ok := r.classOnly[class]; ok {
		r.mu.RUnlock()
		return c(node), nil
	}
	if len(data) < 2 {
		r.mu.RUnlock()
		return nil, ErrPayloadTooShort
	}
	c, ok := r.constructors[registryKey{class: class, command: data[1]}]
	r.mu.RUnlock()

	if !ok {
		params := make([]byte, len(data)-2)
		copy(params, data[2:])
		return &Unknown{Header: Header{node}, Class: class, Command: data[1], Params: params}, nil
	}

	cmd := c(node)
	if d, ok := cmd.(decoder); ok {
		if err := d.decode(data[2:]); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

// ParseAddressed decodes the addressed form ([node][len][cc][cmd][params...])
// produced by Command.Serialize.
func (r *Registry) ParseAddressed(data []byte) (Command, error) {
	if len(data) < 2 {
		return nil, ErrPayloadTooShort
	}
	length := int(data[1])
	if len(data) < 2+length {
		return nil, ErrLengthMismatch
	}
	return r.Parse(NodeID(data[0]), data[2:2+length])
}
