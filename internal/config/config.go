package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/vecmath"
)

const (
	DefaultDt       = 0.005
	DefaultDuration = 10.0
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid scene")

// Config is a scene: the world box, the bodies in it and how long to run.
type Config struct {
	Name     string       `yaml:"name,omitempty"`
	Dt       float64      `yaml:"dt"`
	Duration float64      `yaml:"duration"`
	World    WorldConfig  `yaml:"world"`
	Bodies   []BodyConfig `yaml:"bodies"`
}

type WorldConfig struct {
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	BounceDamping float64 `yaml:"bounce_damping"`
	FrictionCoeff float64 `yaml:"friction_coeff"`
	RestSpeed     float64 `yaml:"rest_speed"`
	Parallel      bool    `yaml:"parallel,omitempty"`
}

// BodyConfig describes one soft body. A missing spring_const, damping_const
// or rest_length falls back to the softbody defaults, while an explicit zero
// is kept; a missing deform_at or tear_at never triggers.
type BodyConfig struct {
	Name         string                `yaml:"name"`
	SpringConst  *float64              `yaml:"spring_const,omitempty"`
	DampingConst *float64              `yaml:"damping_const,omitempty"`
	RestLength   *float64              `yaml:"rest_length,omitempty"`
	DeformAt     *float64              `yaml:"deform_at,omitempty"`
	TearAt       *float64              `yaml:"tear_at,omitempty"`
	Nodes        []NodeConfig          `yaml:"nodes"`
	Edges        []EdgeConfig          `yaml:"edges"`
	Forces       map[string][2]float64 `yaml:"forces,omitempty"`
	// Gravity adds a "gravity" force of g times the first node's mass.
	Gravity  float64     `yaml:"gravity,omitempty"`
	MoveTo   *[2]float64 `yaml:"move_to,omitempty"`
	Velocity *[2]float64 `yaml:"velocity,omitempty"`
}

type NodeConfig struct {
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Mass float64 `yaml:"mass"`
}

type EdgeConfig struct {
	A            int        `yaml:"a"`
	B            int        `yaml:"b"`
	RestLength   RestLength `yaml:"rest_length,omitempty"`
	SpringConst  *float64   `yaml:"spring_const,omitempty"`
	DampingConst *float64   `yaml:"damping_const,omitempty"`
}

// RestLength is either a number or the literal "distance", meaning the
// distance between the endpoints when the edge is built.
type RestLength struct {
	Value    float64
	Distance bool
	Set      bool
}

const distanceKeyword = "distance"

func Fixed(l float64) RestLength { return RestLength{Value: l, Set: true} }
func Distance() RestLength       { return RestLength{Distance: true} }

func (r *RestLength) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Value == distanceKeyword {
		*r = Distance()
		return nil
	}
	var l float64
	if err := value.Decode(&l); err != nil {
		return fmt.Errorf("rest_length must be a number or %q: %w", distanceKeyword, err)
	}
	*r = Fixed(l)
	return nil
}

func (r RestLength) MarshalYAML() (interface{}, error) {
	if r.Distance {
		return distanceKeyword, nil
	}
	return r.Value, nil
}

func (r RestLength) IsZero() bool { return !r.Set && !r.Distance }

func DefaultConfig() *Config {
	return &Config{
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		World: WorldConfig{
			Width:         sim.DefaultWidth,
			Height:        sim.DefaultHeight,
			BounceDamping: sim.DefaultBounceDamping,
			FrictionCoeff: sim.DefaultFrictionCoeff,
			RestSpeed:     sim.DefaultRestSpeed,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (w WorldConfig) Params() sim.Params {
	return sim.Params{
		Width:         w.Width,
		Height:        w.Height,
		BounceDamping: w.BounceDamping,
		FrictionCoeff: w.FrictionCoeff,
		RestSpeed:     w.RestSpeed,
		Parallel:      w.Parallel,
	}
}

// Validate checks everything that can be checked without building bodies.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, c.Duration)
	}
	if err := c.World.Params().Validate(); err != nil {
		return err
	}
	if len(c.Bodies) == 0 {
		return fmt.Errorf("%w: no bodies", ErrInvalidConfig)
	}
	for i, b := range c.Bodies {
		if len(b.Nodes) == 0 {
			return fmt.Errorf("%w: body %d (%s) has no nodes", ErrInvalidConfig, i, b.Name)
		}
		for j, e := range b.Edges {
			if e.A < 0 || e.A >= len(b.Nodes) || e.B < 0 || e.B >= len(b.Nodes) {
				return fmt.Errorf("%w: body %d (%s) edge %d references a missing node", ErrInvalidConfig, i, b.Name, j)
			}
		}
	}
	return nil
}

// Build constructs a fresh world from the scene.
func (c *Config) Build() (*sim.World, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	w, err := sim.NewWorld(c.World.Params())
	if err != nil {
		return nil, err
	}
	for i := range c.Bodies {
		b, err := c.Bodies[i].Build()
		if err != nil {
			return nil, fmt.Errorf("body %d (%s): %w", i, c.Bodies[i].Name, err)
		}
		if _, err := w.AddBody(b); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Defaults resolves the body-wide edge values.
func (b *BodyConfig) Defaults() softbody.EdgeDefaults {
	d := softbody.DefaultEdgeDefaults()
	if b.SpringConst != nil {
		d.SpringConst = *b.SpringConst
	}
	if b.DampingConst != nil {
		d.DampingConst = *b.DampingConst
	}
	if b.RestLength != nil {
		d.RestLength = *b.RestLength
	}
	d.DeformAt = orInf(b.DeformAt)
	d.TearAt = orInf(b.TearAt)
	return d
}

func (b *BodyConfig) Build() (*softbody.SoftBody, error) {
	nodes := make([]*softbody.Node, len(b.Nodes))
	for i, nc := range b.Nodes {
		n, err := softbody.NewNode(vecmath.New(nc.X, nc.Y), nc.Mass)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i] = n
	}

	body, err := softbody.New(nodes, b.Defaults())
	if err != nil {
		return nil, err
	}
	body.SetName(b.Name)

	for i, ec := range b.Edges {
		if _, err := body.AddEdge(ec.A, ec.B, ec.options()...); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	names := make([]string, 0, len(b.Forces))
	for name := range b.Forces {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := b.Forces[name]
		if err := body.AddExternalForce(name, vecmath.New(f[0], f[1])); err != nil {
			return nil, err
		}
	}
	if b.Gravity != 0 {
		g := vecmath.New(0, b.Gravity*nodes[0].Mass())
		if err := body.AddExternalForce("gravity", g); err != nil {
			return nil, err
		}
	}

	if b.MoveTo != nil {
		body.MoveBody(vecmath.New(b.MoveTo[0], b.MoveTo[1]))
	}
	if b.Velocity != nil {
		body.AddVelocity(vecmath.New(b.Velocity[0], b.Velocity[1]))
	}
	return body, nil
}

func (e EdgeConfig) options() []softbody.EdgeOption {
	var opts []softbody.EdgeOption
	switch {
	case e.RestLength.Distance:
		opts = append(opts, softbody.WithCurrentDistance())
	case e.RestLength.Set:
		opts = append(opts, softbody.WithRestLength(e.RestLength.Value))
	}
	if e.SpringConst != nil {
		opts = append(opts, softbody.WithSpringConst(*e.SpringConst))
	}
	if e.DampingConst != nil {
		opts = append(opts, softbody.WithDampingConst(*e.DampingConst))
	}
	return opts
}

func orInf(v *float64) float64 {
	if v == nil {
		return math.Inf(1)
	}
	return *v
}
