// Package sim owns the simulated world: a set of soft bodies inside a
// rectangular box, the wall collision response, and the fixed-step run loop.
//
// One tick is [World.AdvanceSimulation]: the collision pass over every node
// of every body finishes before any body runs its physics.
//
// # Example
//
//	w, _ := sim.NewWorld(sim.DefaultParams())
//	if _, err := w.AddBody(body); err != nil {
//		return err
//	}
//	r := sim.NewRunner(w)
//	result, _ := r.Run(ctx, sim.RunConfig{Dt: 0.005, Duration: 10})
//
// # Thread Safety
//
// World is NOT safe for concurrent use. Callers that drive it from several
// goroutines (viewers, network input) must funnel mutations through the
// goroutine that ticks it.
package sim
