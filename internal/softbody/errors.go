package softbody

import "errors"

// Domain errors for body construction and force bookkeeping.
var (
	// ErrIndexOutOfRange indicates an edge endpoint that is not a node of the body.
	ErrIndexOutOfRange = errors.New("softbody: node index out of range")

	// ErrSelfEdge indicates an edge whose endpoints are the same node.
	ErrSelfEdge = errors.New("softbody: edge endpoints must differ")

	// ErrDuplicateForce indicates an external force name that is already registered.
	ErrDuplicateForce = errors.New("softbody: external force already registered")

	// ErrForceNotFound indicates removal of a force key that was never set.
	ErrForceNotFound = errors.New("softbody: force not found")

	// ErrNonPositiveMass indicates a node mass that is zero, negative or not finite.
	ErrNonPositiveMass = errors.New("softbody: mass must be positive and finite")

	// ErrNoNodes indicates a body built without nodes.
	ErrNoNodes = errors.New("softbody: body needs at least one node")

	// ErrDuplicateNode indicates the same node passed twice to one body.
	ErrDuplicateNode = errors.New("softbody: node appears more than once")

	// ErrInvalidEdgeParam indicates a spring constant, damping constant or
	// rest length that is negative or not finite.
	ErrInvalidEdgeParam = errors.New("softbody: edge parameters must be finite and non-negative")
)
