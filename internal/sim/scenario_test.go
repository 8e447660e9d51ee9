package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/vecmath"
)

const dt = 0.005

func newWorld(p sim.Params) *sim.World {
	w, err := sim.NewWorld(p)
	Expect(err).NotTo(HaveOccurred())
	return w
}

func pair(p1, p2 vecmath.Vec2, defaults softbody.EdgeDefaults) *softbody.SoftBody {
	n1, err := softbody.NewNode(p1, 1)
	Expect(err).NotTo(HaveOccurred())
	n2, err := softbody.NewNode(p2, 1)
	Expect(err).NotTo(HaveOccurred())
	b, err := softbody.New([]*softbody.Node{n1, n2}, defaults)
	Expect(err).NotTo(HaveOccurred())
	_, err = b.AddEdge(0, 1, softbody.WithRestLength(1))
	Expect(err).NotTo(HaveOccurred())
	return b
}

var _ = Describe("World", func() {
	Describe("a node dropped under gravity", func() {
		var (
			w    *sim.World
			node *softbody.Node
		)

		BeforeEach(func() {
			p := sim.DefaultParams()
			p.Width, p.Height = 2, 2
			p.BounceDamping = 0.5
			w = newWorld(p)

			n, err := softbody.NewNode(vecmath.New(1, 1), 1)
			Expect(err).NotTo(HaveOccurred())
			node = n
			b, err := softbody.New([]*softbody.Node{n}, softbody.DefaultEdgeDefaults())
			Expect(err).NotTo(HaveOccurred())
			Expect(b.AddExternalForce("gravity", vecmath.New(0, 9.81))).To(Succeed())
			Expect(w.AddBody(b)).To(Equal(0))
		})

		It("stays within a step of the box", func() {
			for i := 0; i < 2000; i++ {
				w.AdvanceSimulation(dt)
				Expect(node.Position()[1]).To(BeNumerically(">=", 0))
				Expect(node.Position()[1]).To(BeNumerically("<=", 2.1))
			}
		})

		It("comes to rest on the floor", func() {
			for i := 0; i < 2000; i++ {
				w.AdvanceSimulation(dt)
			}
			Expect(node.Position()[1]).To(BeNumerically("~", 2, 0.05))
			Expect(node.Position()[0]).To(Equal(1.0))
		})

		It("snaps back onto the floor on every collision pass", func() {
			for i := 0; i < 500; i++ {
				w.AdvanceSimulation(dt)
				w.CollisionDetection()
				Expect(node.Position()[1]).To(BeNumerically("<=", 2))
			}
		})
	})

	Describe("tearing", func() {
		var (
			w    *sim.World
			body *softbody.SoftBody
		)

		BeforeEach(func() {
			defaults := softbody.DefaultEdgeDefaults()
			defaults.TearAt = 1
			w = newWorld(sim.DefaultParams())
			body = pair(vecmath.New(1, 1), vecmath.New(2, 1), defaults)
			Expect(w.AddBody(body)).To(Equal(0))
			w.AdvanceSimulation(dt)
		})

		It("removes an over-stretched edge and its forces", func() {
			Expect(w.DragNode(0, 1, vecmath.New(3.5, 1), vecmath.Zero)).To(Succeed())
			w.AdvanceSimulation(dt)

			Expect(body.NumEdges()).To(Equal(0))
			Expect(w.TornEdges()).To(Equal(1))
			for _, n := range body.Nodes() {
				Expect(n.ForceKeys()).To(ConsistOf(softbody.FrictionKey))
			}
		})

		It("never brings a torn edge back", func() {
			Expect(w.DragNode(0, 1, vecmath.New(3.5, 1), vecmath.Zero)).To(Succeed())
			for i := 0; i < 100; i++ {
				w.AdvanceSimulation(dt)
			}
			Expect(body.NumEdges()).To(Equal(0))
			Expect(w.TornEdges()).To(Equal(1))
		})

		It("keeps edges under the threshold", func() {
			Expect(w.DragNode(0, 1, vecmath.New(2.5, 1), vecmath.Zero)).To(Succeed())
			w.AdvanceSimulation(dt)
			Expect(body.NumEdges()).To(Equal(1))
		})
	})

	Describe("a damped spring", func() {
		It("loses energy", func() {
			w := newWorld(sim.DefaultParams())
			Expect(w.AddBody(pair(vecmath.New(2, 3), vecmath.New(4, 3), softbody.DefaultEdgeDefaults()))).To(Equal(0))

			initial := w.TotalEnergy()
			Expect(initial).To(BeNumerically("~", 5, 1e-9))

			for i := 0; i < 4000; i++ {
				w.AdvanceSimulation(dt)
			}
			Expect(w.Valid()).To(BeTrue())
			Expect(w.TotalEnergy()).To(BeNumerically("<", initial/2))
		})
	})
})
