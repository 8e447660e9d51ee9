package softbody

import (
	"fmt"
	"math"

	"github.com/san-kum/softsim/internal/vecmath"
)

// ForceKey identifies one force acting on a node: either a named force
// (external forces, friction) or the spring of a specific edge.
type ForceKey struct {
	name string
	edge EdgeID
}

// FrictionKey is the key the world uses for wall friction.
var FrictionKey = NamedForce("friction")

func NamedForce(name string) ForceKey { return ForceKey{name: name} }

func EdgeForce(id EdgeID) ForceKey { return ForceKey{edge: id} }

// Edge reports the edge handle of an edge key.
func (k ForceKey) Edge() (EdgeID, bool) { return k.edge, k.edge != 0 }

func (k ForceKey) String() string {
	if k.edge != 0 {
		return fmt.Sprintf("edge#%d", k.edge)
	}
	return k.name
}

// Node is a point mass.
type Node struct {
	mass         float64
	position     vecmath.Vec2
	velocity     vecmath.Vec2
	acceleration vecmath.Vec2

	forces map[ForceKey]vecmath.Vec2
	order  []ForceKey
}

func NewNode(position vecmath.Vec2, mass float64) (*Node, error) {
	if !(mass > 0) || math.IsInf(mass, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrNonPositiveMass, mass)
	}
	return &Node{
		mass:     mass,
		position: position,
		forces:   make(map[ForceKey]vecmath.Vec2),
	}, nil
}

func (n *Node) Mass() float64              { return n.mass }
func (n *Node) Position() vecmath.Vec2     { return n.position }
func (n *Node) Velocity() vecmath.Vec2     { return n.velocity }
func (n *Node) Acceleration() vecmath.Vec2 { return n.acceleration }

func (n *Node) SetPosition(p vecmath.Vec2)     { n.position = p }
func (n *Node) SetVelocity(v vecmath.Vec2)     { n.velocity = v }
func (n *Node) SetAcceleration(a vecmath.Vec2) { n.acceleration = a }

// SetForce sets the force under key, replacing any previous value.
func (n *Node) SetForce(key ForceKey, f vecmath.Vec2) {
	if _, ok := n.forces[key]; !ok {
		n.order = append(n.order, key)
	}
	n.forces[key] = f
}

func (n *Node) RemoveForce(key ForceKey) error {
	if _, ok := n.forces[key]; !ok {
		return fmt.Errorf("%w: %s", ErrForceNotFound, key)
	}
	delete(n.forces, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	return nil
}

func (n *Node) Force(key ForceKey) (vecmath.Vec2, bool) {
	f, ok := n.forces[key]
	return f, ok
}

// ForceKeys returns the keys in the order they were first set.
func (n *Node) ForceKeys() []ForceKey {
	keys := make([]ForceKey, len(n.order))
	copy(keys, n.order)
	return keys
}

// ForceSum folds the forces in insertion order. An empty map sums to zero.
func (n *Node) ForceSum() vecmath.Vec2 {
	sum := vecmath.Zero
	for _, k := range n.order {
		sum = vecmath.Sum(sum, n.forces[k])
	}
	return sum
}

// UpdateState integrates one step with trapezoidal averaging of acceleration
// and velocity.
func (n *Node) UpdateState(dt float64) {
	newAcc := vecmath.Scale(n.ForceSum(), 1/n.mass)
	avgAcc := vecmath.Scale(vecmath.Sum(n.acceleration, newAcc), 0.5)

	newVel := vecmath.Sum(n.velocity, vecmath.Scale(avgAcc, dt))
	avgVel := vecmath.Scale(vecmath.Sum(n.velocity, newVel), 0.5)

	newPos := vecmath.Sum(n.position, vecmath.Scale(avgVel, dt))

	n.acceleration = newAcc
	n.velocity = newVel
	n.position = newPos
}
