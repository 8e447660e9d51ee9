// Package softbody models deformable bodies as point masses joined by damped
// springs.
//
//   - [Node]: point mass with an ordered force map
//   - [Edge]: spring-damper between two nodes of the same body
//   - [SoftBody]: node arena plus the edges wiring it, with the per-tick
//     edge lifecycle (spring, damping, plastic deform, tear)
//
// # Example
//
//	a, _ := softbody.NewNode(vecmath.New(0, 0), 1)
//	b, _ := softbody.NewNode(vecmath.New(1, 0), 1)
//	body, _ := softbody.New([]*softbody.Node{a, b}, softbody.DefaultEdgeDefaults())
//	body.AddEdge(0, 1, softbody.WithCurrentDistance())
//	body.AdvancePhysics(0.01)
//
// # Thread Safety
//
// A SoftBody and its nodes are owned by one goroutine during AdvancePhysics.
// Different bodies share nothing and may be advanced concurrently.
package softbody
