package stream

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/gomega"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/vecmath"
)

const frame = time.Second / 60

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := NewServer(config.GetPreset("square"), 60)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().CloseAll()
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	var f Frame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestInitialFrame(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	f := readFrame(t, conn)
	if f.Tick != 0 || len(f.Bodies) != 1 {
		t.Fatalf("unexpected initial frame: tick=%d bodies=%d", f.Tick, len(f.Bodies))
	}
	if len(f.Bodies[0].Nodes) != 4 || len(f.Bodies[0].Edges) != 6 {
		t.Errorf("expected 4 nodes and 6 edges, got %d and %d", len(f.Bodies[0].Nodes), len(f.Bodies[0].Edges))
	}
	if f.Bodies[0].TearAt == nil || *f.Bodies[0].TearAt != 1 {
		t.Error("tear threshold should be streamed")
	}
}

func TestStepBroadcasts(t *testing.T) {
	g := NewWithT(t)
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	readFrame(t, conn)
	g.Eventually(s.Hub().Len).Should(Equal(1))

	g.Expect(s.Step(frame)).To(Succeed())
	f := readFrame(t, conn)
	// 1/60 s at dt 0.005
	g.Expect(f.Tick).To(Equal(3))
	g.Expect(f.Paused).To(BeFalse())
}

func TestCommands(t *testing.T) {
	g := NewWithT(t)
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	readFrame(t, conn)

	g.Expect(conn.WriteJSON(map[string]any{"pause": true, "time_scale": 50})).To(Succeed())
	g.Eventually(func() bool {
		s.Step(frame)
		return s.Paused()
	}).Should(BeTrue())
	g.Expect(s.TimeScale()).To(Equal(maxTimeScale))

	ticks := s.World().Ticks()
	g.Expect(s.Step(frame)).To(Succeed())
	g.Expect(s.World().Ticks()).To(Equal(ticks))

	drag := Command{Drag: &Drag{Body: 0, Node: 2, X: 5, Y: 1}}
	g.Expect(conn.WriteJSON(drag)).To(Succeed())
	g.Eventually(func() float64 {
		s.Step(frame)
		return s.World().Bodies()[0].Nodes()[2].Position()[0]
	}).Should(Equal(5.0))

	g.Expect(conn.WriteJSON(Command{Reset: true})).To(Succeed())
	g.Eventually(func() float64 {
		s.Step(frame)
		return s.World().Bodies()[0].Nodes()[2].Position()[0]
	}).Should(Equal(2.0))
}

func TestBadDragIsIgnored(t *testing.T) {
	s, err := NewServer(config.GetPreset("square"), 0)
	if err != nil {
		t.Fatal(err)
	}
	s.apply(Command{Drag: &Drag{Body: 3, Node: 0}})
	s.apply(Command{Drag: &Drag{Body: 0, Node: 40}})
	if s.World().Ticks() != 0 {
		t.Error("bad drags must not touch the world")
	}
	if s.fps != DefaultFPS {
		t.Errorf("expected default fps, got %d", s.fps)
	}
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status["scene"] != "square" {
		t.Errorf("unexpected status: %v", status)
	}
}

func TestBroadcastDropsClosedClients(t *testing.T) {
	g := NewWithT(t)
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	readFrame(t, conn)
	g.Eventually(s.Hub().Len).Should(Equal(1))

	conn.Close()
	g.Eventually(func() int {
		s.Hub().Broadcast(Frame{Snapshot: sim.Snapshot{}})
		return s.Hub().Len()
	}).Should(Equal(0))
}

func TestBlownUpWorldPausesStream(t *testing.T) {
	g := NewWithT(t)
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	readFrame(t, conn)
	g.Eventually(s.Hub().Len).Should(Equal(1))

	g.Expect(s.World().DragNode(0, 0, vecmath.New(math.NaN(), 1), vecmath.Zero)).To(Succeed())

	g.Expect(s.Step(frame)).To(MatchError(sim.ErrInvalidState))
	f := readFrame(t, conn)
	g.Expect(f.Paused).To(BeTrue())
	g.Expect(f.Invalid).To(BeTrue())
	g.Expect(f.Bodies).To(HaveLen(1))
	g.Expect(s.Paused()).To(BeTrue())

	// later frames keep flowing while paused
	g.Expect(s.Step(frame)).To(Succeed())
	f = readFrame(t, conn)
	g.Expect(f.Paused).To(BeTrue())
	g.Expect(f.Invalid).To(BeTrue())

	g.Expect(conn.WriteJSON(Command{Reset: true})).To(Succeed())
	g.Eventually(func() bool {
		s.Step(frame)
		return s.World().Valid()
	}).Should(BeTrue())
	g.Expect(s.Step(frame)).To(Succeed())
	g.Expect(s.latest.Load().Invalid).To(BeFalse())
}
