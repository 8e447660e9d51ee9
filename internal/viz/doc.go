// Package viz is the terminal viewer for soft-body scenes.
//
// [Model] is a Bubble Tea program that steps a [sim.World] in real time and
// draws it on a braille [Canvas]: the box outline, every edge colored by how
// close it is to its deform (or tear) threshold, and every node as a dot.
// A side panel shows the clock, time scale, edge counts and an energy graph.
//
// # Key Bindings
//
//	Space  - Pause/Resume (the viewer starts paused)
//	+ / -  - Time scale up/down by 0.01 (0.01 to 10)
//	Arrows - Kick the first body
//	[ / ]  - Shrink/grow the box by one meter
//	R      - Rebuild the scene
//	T      - Cycle color themes
//	Q      - Quit
package viz
