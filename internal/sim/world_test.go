package sim

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/vecmath"
)

func singleNodeWorld(t *testing.T, p Params, pos, vel vecmath.Vec2) (*World, *softbody.Node) {
	t.Helper()
	n, err := softbody.NewNode(pos, 1)
	if err != nil {
		t.Fatal(err)
	}
	n.SetVelocity(vel)
	n.SetAcceleration(vecmath.New(0.5, 0.5))
	b, err := softbody.New([]*softbody.Node{n}, softbody.DefaultEdgeDefaults())
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWorld(p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddBody(b); err != nil {
		t.Fatal(err)
	}
	return w, n
}

func boxParams() Params {
	p := DefaultParams()
	p.Width, p.Height = 5, 5
	p.BounceDamping = 0.5
	p.FrictionCoeff = 0.5
	return p
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
		valid  bool
	}{
		{"defaults", func(p *Params) {}, true},
		{"zero box", func(p *Params) { p.Width, p.Height = 0, 0 }, true},
		{"negative width", func(p *Params) { p.Width = -1 }, false},
		{"bounce above one", func(p *Params) { p.BounceDamping = 1.1 }, false},
		{"negative bounce", func(p *Params) { p.BounceDamping = -0.1 }, false},
		{"negative friction", func(p *Params) { p.FrictionCoeff = -1 }, false},
		{"negative rest speed", func(p *Params) { p.RestSpeed = -1 }, false},
		{"infinite box", func(p *Params) { p.Width = math.Inf(1) }, true},
		{"nan width", func(p *Params) { p.Width = math.NaN() }, false},
		{"nan height", func(p *Params) { p.Height = math.NaN() }, false},
		{"nan bounce", func(p *Params) { p.BounceDamping = math.NaN() }, false},
		{"nan friction", func(p *Params) { p.FrictionCoeff = math.NaN() }, false},
		{"nan rest speed", func(p *Params) { p.RestSpeed = math.NaN() }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestCollision_FloorClamp(t *testing.T) {
	w, n := singleNodeWorld(t, boxParams(), vecmath.New(1, 5.2), vecmath.New(0, 3))

	w.CollisionDetection()

	if n.Position()[1] != 5 {
		t.Errorf("y = %v, want 5", n.Position()[1])
	}
	if math.Abs(n.Velocity()[1]-(-1.5)) > 1e-12 {
		t.Errorf("vy = %v, want -1.5", n.Velocity()[1])
	}
	if n.Acceleration()[1] != 0 {
		t.Errorf("ay = %v, want 0", n.Acceleration()[1])
	}
	if n.Acceleration()[0] != 0.5 {
		t.Errorf("ax should be untouched, got %v", n.Acceleration()[0])
	}
	if f, ok := n.Force(softbody.FrictionKey); !ok || f != vecmath.Zero {
		t.Errorf("friction = %v (set %v), want zero", f, ok)
	}
}

func TestCollision_Walls(t *testing.T) {
	tests := []struct {
		name    string
		pos     vecmath.Vec2
		vel     vecmath.Vec2
		wantPos vecmath.Vec2
		wantVel vecmath.Vec2
		wantAcc vecmath.Vec2
	}{
		{
			name: "ceiling",
			pos:  vecmath.New(2, -0.3), vel: vecmath.New(0, -2),
			wantPos: vecmath.New(2, 0), wantVel: vecmath.New(0, 1), wantAcc: vecmath.New(0.5, 0),
		},
		{
			name: "right wall",
			pos:  vecmath.New(5.4, 2), vel: vecmath.New(4, 0),
			wantPos: vecmath.New(5, 2), wantVel: vecmath.New(-2, 0), wantAcc: vecmath.New(0, 0.5),
		},
		{
			name: "left wall",
			pos:  vecmath.New(-1, 3), vel: vecmath.New(-1, 0.1),
			wantPos: vecmath.New(0, 3), wantVel: vecmath.New(0.5, 0), wantAcc: vecmath.New(0, 0.5),
		},
		{
			// floor wins over the right wall: x is left alone
			name: "floor and right wall",
			pos:  vecmath.New(8, 6), vel: vecmath.New(1, 2),
			wantPos: vecmath.New(8, 5), wantVel: vecmath.New(1, -1), wantAcc: vecmath.New(0.5, 0),
		},
		{
			name: "ceiling and left wall",
			pos:  vecmath.New(-2, -2), vel: vecmath.New(-3, -4),
			wantPos: vecmath.New(-2, 0), wantVel: vecmath.New(-3, 2), wantAcc: vecmath.New(0.5, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, n := singleNodeWorld(t, boxParams(), tt.pos, tt.vel)
			w.CollisionDetection()

			if n.Position() != tt.wantPos {
				t.Errorf("position = %v, want %v", n.Position(), tt.wantPos)
			}
			if vecmath.Length(vecmath.Sub(n.Velocity(), tt.wantVel)) > 1e-12 {
				t.Errorf("velocity = %v, want %v", n.Velocity(), tt.wantVel)
			}
			if n.Acceleration() != tt.wantAcc {
				t.Errorf("acceleration = %v, want %v", n.Acceleration(), tt.wantAcc)
			}
		})
	}
}

func TestCollision_Friction(t *testing.T) {
	tests := []struct {
		name     string
		pos, vel vecmath.Vec2
		force    vecmath.Vec2
		want     vecmath.Vec2
	}{
		{"floor sliding right", vecmath.New(1, 5.1), vecmath.New(2, 1), vecmath.New(0, 4), vecmath.New(-1, 0)},
		{"floor sliding left", vecmath.New(1, 5.1), vecmath.New(-2, 1), vecmath.New(0, 4), vecmath.New(1, 0)},
		{"floor below rest speed", vecmath.New(1, 5.1), vecmath.New(0.3, 1), vecmath.New(0, 4), vecmath.Zero},
		{"right wall sliding down", vecmath.New(5.5, 1), vecmath.New(1, 3), vecmath.New(2, 0), vecmath.New(0, -0.5)},
		{"in bounds", vecmath.New(1, 1), vecmath.New(3, 3), vecmath.New(0, 4), vecmath.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := boxParams()
			p.FrictionCoeff = 0.25
			w, n := singleNodeWorld(t, p, tt.pos, tt.vel)
			n.SetForce(softbody.NamedForce("push"), tt.force)

			w.CollisionDetection()

			f, ok := n.Force(softbody.FrictionKey)
			if !ok {
				t.Fatal("friction force not set")
			}
			if vecmath.Length(vecmath.Sub(f, tt.want)) > 1e-12 {
				t.Errorf("friction = %v, want %v", f, tt.want)
			}
		})
	}
}

func TestCollision_StaleFrictionCleared(t *testing.T) {
	w, n := singleNodeWorld(t, boxParams(), vecmath.New(1, 5.1), vecmath.New(2, 0))
	n.SetForce(softbody.NamedForce("gravity"), vecmath.New(0, 1))

	w.CollisionDetection()
	if f, _ := n.Force(softbody.FrictionKey); f == vecmath.Zero {
		t.Fatal("expected sliding friction on the floor")
	}

	n.SetPosition(vecmath.New(1, 2))
	w.CollisionDetection()
	if f, _ := n.Force(softbody.FrictionKey); f != vecmath.Zero {
		t.Errorf("friction should reset once in bounds, got %v", f)
	}
}

func TestWorld_AdvanceSimulation(t *testing.T) {
	w, n := singleNodeWorld(t, boxParams(), vecmath.New(1, 1), vecmath.Zero)
	body := w.Bodies()[0]
	if err := body.AddExternalForce("gravity", vecmath.New(0, 9.81)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		w.AdvanceSimulation(0.01)
	}

	if w.Ticks() != 10 {
		t.Errorf("ticks = %d, want 10", w.Ticks())
	}
	if math.Abs(w.Time()-0.1) > 1e-12 {
		t.Errorf("time = %v, want 0.1", w.Time())
	}
	if n.Position()[1] <= 1 {
		t.Error("node should fall under gravity")
	}
}

func TestWorld_DragNode(t *testing.T) {
	w, n := singleNodeWorld(t, boxParams(), vecmath.New(1, 1), vecmath.Zero)

	if err := w.DragNode(0, 0, vecmath.New(2, 3), vecmath.New(1, -1)); err != nil {
		t.Fatalf("drag failed: %v", err)
	}
	if n.Position() != vecmath.New(2, 3) || n.Velocity() != vecmath.New(1, -1) {
		t.Errorf("drag not applied: %v %v", n.Position(), n.Velocity())
	}

	if err := w.DragNode(1, 0, vecmath.Zero, vecmath.Zero); !errors.Is(err, ErrBodyNotFound) {
		t.Errorf("expected ErrBodyNotFound, got %v", err)
	}
	if err := w.DragNode(0, 4, vecmath.Zero, vecmath.Zero); !errors.Is(err, softbody.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestWorld_SnapshotAndEnergy(t *testing.T) {
	n1, _ := softbody.NewNode(vecmath.New(0, 0), 2)
	n2, _ := softbody.NewNode(vecmath.New(2, 0), 2)
	n2.SetVelocity(vecmath.New(0, 1))
	defaults := softbody.DefaultEdgeDefaults()
	defaults.TearAt = 3
	b, _ := softbody.New([]*softbody.Node{n1, n2}, defaults)
	b.SetName("pair")
	if _, err := b.AddEdge(0, 1, softbody.WithRestLength(1), softbody.WithSpringConst(4)); err != nil {
		t.Fatal(err)
	}
	w, _ := NewWorld(boxParams())
	if _, err := w.AddBody(b); err != nil {
		t.Fatal(err)
	}

	if w.NumNodes() != 2 || w.NumEdges() != 1 {
		t.Errorf("counts = %d nodes, %d edges, want 2, 1", w.NumNodes(), w.NumEdges())
	}
	if got := w.KineticEnergy(); math.Abs(got-1) > 1e-12 {
		t.Errorf("kinetic = %v, want 1", got)
	}
	if got := w.SpringEnergy(); math.Abs(got-2) > 1e-12 {
		t.Errorf("spring = %v, want 2", got)
	}
	if got := w.MaxDeformation(); math.Abs(got-1) > 1e-12 {
		t.Errorf("max deformation = %v, want 1", got)
	}

	s := w.Snapshot()
	if len(s.Bodies) != 1 || s.Bodies[0].Name != "pair" {
		t.Fatalf("unexpected bodies: %+v", s.Bodies)
	}
	bs := s.Bodies[0]
	if len(bs.Nodes) != 2 || len(bs.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges", len(bs.Nodes), len(bs.Edges))
	}
	if bs.Edges[0].A != 0 || bs.Edges[0].B != 1 || bs.Edges[0].Deformation != 1 {
		t.Errorf("edge state = %+v", bs.Edges[0])
	}
	if bs.DeformAt != nil {
		t.Error("infinite deform threshold should be nil")
	}
	if bs.TearAt == nil || *bs.TearAt != 3 {
		t.Error("tear threshold should be reported")
	}
	if got := w.Positions(); len(got) != 4 || got[2] != 2 {
		t.Errorf("positions = %v", got)
	}
}

func buildPairWorld(t *testing.T, parallel bool) *World {
	t.Helper()
	p := boxParams()
	p.Parallel = parallel
	w, err := NewWorld(p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		x := 1 + float64(i)
		n1, _ := softbody.NewNode(vecmath.New(x, 1), 0.1)
		n2, _ := softbody.NewNode(vecmath.New(x+0.5, 1.5), 0.1)
		b, _ := softbody.New([]*softbody.Node{n1, n2}, softbody.DefaultEdgeDefaults())
		if _, err := b.AddEdge(0, 1, softbody.WithRestLength(0.5)); err != nil {
			t.Fatal(err)
		}
		if err := b.AddExternalForce("gravity", vecmath.New(0, 0.981)); err != nil {
			t.Fatal(err)
		}
		if _, err := w.AddBody(b); err != nil {
			t.Fatal(err)
		}
	}
	return w
}

func TestWorld_ParallelMatchesSequential(t *testing.T) {
	seq := buildPairWorld(t, false)
	par := buildPairWorld(t, true)

	for i := 0; i < 500; i++ {
		seq.AdvanceSimulation(0.005)
		par.AdvanceSimulation(0.005)
	}

	a, b := seq.Positions(), par.Positions()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("coordinate %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestBodySnapshot_Stress(t *testing.T) {
	deform, tear := 0.2, 1.0
	tests := []struct {
		name      string
		b         BodySnapshot
		def       float64
		wantLimit float64
		wantHeat  float64
	}{
		{"deform", BodySnapshot{DeformAt: &deform, TearAt: &tear}, -0.1, 0.2, 0.5},
		{"tear only", BodySnapshot{TearAt: &tear}, 0.25, 1, 0.25},
		{"capped", BodySnapshot{DeformAt: &deform}, 3, 0.2, 1},
		{"none", BodySnapshot{}, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.StressLimit(); got != tt.wantLimit {
				t.Errorf("StressLimit = %f, want %f", got, tt.wantLimit)
			}
			if got := tt.b.Stress(EdgeState{Deformation: tt.def}); math.Abs(got-tt.wantHeat) > 1e-12 {
				t.Errorf("Stress = %f, want %f", got, tt.wantHeat)
			}
		})
	}
}

func TestSnapshot_ZeroNonFinite(t *testing.T) {
	w, n := singleNodeWorld(t, boxParams(), vecmath.New(1, 1), vecmath.New(0, 2))

	s := w.Snapshot()
	if s.ZeroNonFinite() {
		t.Error("finite snapshot reported replacements")
	}
	if s.Bodies[0].Nodes[0].Velocity != vecmath.New(0, 2) {
		t.Errorf("finite values must be kept, got %v", s.Bodies[0].Nodes[0].Velocity)
	}

	n.SetPosition(vecmath.New(math.NaN(), 3))
	n.SetVelocity(vecmath.New(math.Inf(1), 2))
	s = w.Snapshot()
	if !s.ZeroNonFinite() {
		t.Fatal("expected replacements")
	}
	ns := s.Bodies[0].Nodes[0]
	if ns.Position != vecmath.New(0, 3) || ns.Velocity != vecmath.New(0, 2) {
		t.Errorf("got position %v velocity %v", ns.Position, ns.Velocity)
	}
	if s.Energy != 0 {
		t.Errorf("energy = %v, want 0", s.Energy)
	}
	if _, err := json.Marshal(s); err != nil {
		t.Errorf("sanitized snapshot should encode: %v", err)
	}
}

func TestWorld_AddBodySharedNode(t *testing.T) {
	w, n := singleNodeWorld(t, boxParams(), vecmath.New(1, 1), vecmath.Zero)
	other, _ := softbody.NewNode(vecmath.New(2, 2), 1)

	b, err := softbody.New([]*softbody.Node{other, n}, softbody.DefaultEdgeDefaults())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddBody(b); !errors.Is(err, ErrSharedNode) {
		t.Errorf("expected ErrSharedNode, got %v", err)
	}
	if len(w.Bodies()) != 1 {
		t.Errorf("rejected body was added: %d bodies", len(w.Bodies()))
	}

	b, _ = softbody.New([]*softbody.Node{other}, softbody.DefaultEdgeDefaults())
	idx, err := w.AddBody(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Errorf("index = %d, want 1", idx)
	}
	if _, err := w.AddBody(b); !errors.Is(err, ErrSharedNode) {
		t.Errorf("adding the same body twice should fail, got %v", err)
	}
}
