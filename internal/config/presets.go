package config

import (
	"sort"

	"github.com/jinzhu/copier"

	"github.com/san-kum/softsim/internal/sim"
)

const earthGravity = 9.81

var Presets = map[string]*Config{
	"square": {
		Name: "square", Dt: 0.005, Duration: 10.0,
		World:  worldConfig(0.5, 0.1),
		Bodies: []BodyConfig{squareBody()},
	},
	"octagon": {
		Name: "octagon", Dt: 0.005, Duration: 10.0,
		World:  worldConfig(0.5, 0.1),
		Bodies: []BodyConfig{octagonBody()},
	},
	"beam": {
		Name: "beam", Dt: 0.01, Duration: 10.0,
		World:  worldConfig(0.0, 0.01),
		Bodies: []BodyConfig{beamBody()},
	},
	"drop": {
		Name: "drop", Dt: 0.005, Duration: 15.0,
		World:  worldConfig(0.5, 0.1),
		Bodies: []BodyConfig{squareBody(), octagonBody()},
	},
}

func worldConfig(bounce, friction float64) WorldConfig {
	return WorldConfig{
		Width:         sim.DefaultWidth,
		Height:        sim.DefaultHeight,
		BounceDamping: bounce,
		FrictionCoeff: friction,
		RestSpeed:     sim.DefaultRestSpeed,
	}
}

func ptr(v float64) *float64 { return &v }

// distanceEdges connects each pair with its current distance as rest length.
func distanceEdges(pairs ...[2]int) []EdgeConfig {
	edges := make([]EdgeConfig, len(pairs))
	for i, p := range pairs {
		edges[i] = EdgeConfig{A: p[0], B: p[1], RestLength: Distance()}
	}
	return edges
}

// squareBody is a braced unit square that tears when any edge stretches by
// more than its rest length.
func squareBody() BodyConfig {
	return BodyConfig{
		Name:         "square",
		SpringConst:  ptr(10),
		DampingConst: ptr(0.1),
		RestLength:   ptr(1),
		TearAt:       ptr(1),
		Gravity:      earthGravity,
		Nodes: []NodeConfig{
			{X: 1, Y: 1, Mass: 0.01}, {X: 1, Y: 2, Mass: 0.01},
			{X: 2, Y: 1, Mass: 0.01}, {X: 2, Y: 2, Mass: 0.01},
		},
		Edges: distanceEdges(
			[2]int{0, 1}, [2]int{1, 3}, [2]int{3, 2}, [2]int{2, 0},
			[2]int{2, 1}, [2]int{0, 3},
		),
	}
}

// octagonBody is launched sideways from the middle of the box.
func octagonBody() BodyConfig {
	return BodyConfig{
		Name:         "octagon",
		SpringConst:  ptr(5),
		DampingConst: ptr(0.05),
		RestLength:   ptr(1),
		Gravity:      earthGravity,
		MoveTo:       &[2]float64{3.5, 4.5},
		Velocity:     &[2]float64{2, 0},
		Nodes: []NodeConfig{
			{X: 1, Y: 1, Mass: 0.01},
			{X: 0.3, Y: 1.3, Mass: 0.01}, {X: 1.7, Y: 1.3, Mass: 0.01},
			{X: 0, Y: 2, Mass: 0.01}, {X: 2, Y: 2, Mass: 0.01},
			{X: 0.3, Y: 2.7, Mass: 0.01}, {X: 1.7, Y: 2.7, Mass: 0.01},
			{X: 1, Y: 3, Mass: 0.01},
		},
		Edges: distanceEdges(
			[2]int{0, 1}, [2]int{1, 3}, [2]int{3, 5}, [2]int{5, 7},
			[2]int{0, 2}, [2]int{2, 4}, [2]int{4, 6}, [2]int{6, 7},
			[2]int{0, 5}, [2]int{0, 6}, [2]int{1, 7}, [2]int{1, 4},
			[2]int{2, 7}, [2]int{2, 3}, [2]int{3, 6}, [2]int{4, 5},
		),
	}
}

// beamBody is a 2x4 lattice hanging at the top of the box.
func beamBody() BodyConfig {
	return BodyConfig{
		Name:         "beam",
		SpringConst:  ptr(40),
		DampingConst: ptr(0.07),
		RestLength:   ptr(1),
		Gravity:      earthGravity,
		Nodes: []NodeConfig{
			{X: 1, Y: 0.1, Mass: 0.05}, {X: 1.6, Y: 0.1, Mass: 0.05},
			{X: 2.2, Y: 0.1, Mass: 0.05}, {X: 2.8, Y: 0.1, Mass: 0.05},
			{X: 1, Y: 0.7, Mass: 0.05}, {X: 1.6, Y: 0.7, Mass: 0.05},
			{X: 2.2, Y: 0.7, Mass: 0.05}, {X: 2.8, Y: 0.7, Mass: 0.05},
		},
		Edges: distanceEdges(
			[2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3}, [2]int{3, 7},
			[2]int{7, 6}, [2]int{6, 5}, [2]int{5, 4}, [2]int{4, 0},
			[2]int{0, 5}, [2]int{1, 4}, [2]int{1, 6}, [2]int{2, 5},
			[2]int{2, 7}, [2]int{3, 6},
			[2]int{1, 5}, [2]int{2, 6},
		),
	}
}

// GetPreset returns a deep copy of the named scene, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	var cfg Config
	if err := copier.CopyWithOption(&cfg, p, copier.Option{DeepCopy: true}); err != nil {
		return nil
	}
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
