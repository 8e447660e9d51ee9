package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/vecmath"
)

const (
	DefaultFPS = 30

	minTimeScale    = 0.01
	maxTimeScale    = 10.0
	commandBuffer   = 64
	maxTicksPerStep = 2000
	shutdownTimeout = 5 * time.Second
)

// Command is a control message from a viewer. Unset fields are ignored.
type Command struct {
	Pause     *bool    `json:"pause,omitempty"`
	TimeScale *float64 `json:"time_scale,omitempty"`
	Drag      *Drag    `json:"drag,omitempty"`
	Reset     bool     `json:"reset,omitempty"`
}

// Drag moves one node, as if grabbed with the mouse.
type Drag struct {
	Body int     `json:"body"`
	Node int     `json:"node"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
}

// Frame is what viewers receive every step.
type Frame struct {
	Paused    bool    `json:"paused"`
	TimeScale float64 `json:"time_scale"`
	// Invalid marks a frame whose NaN or Inf values were sent as zero.
	Invalid bool `json:"invalid,omitempty"`
	sim.Snapshot
}

// Server streams a running scene to websocket viewers. The world belongs to
// the goroutine running Loop (or Step); handlers only see snapshots.
type Server struct {
	scene    *config.Config
	world    *sim.World
	hub      *Hub
	commands chan Command
	upgrader websocket.Upgrader
	fps      int

	paused    bool
	timeScale float64
	pending   float64

	latest atomic.Pointer[Frame]
}

func NewServer(scene *config.Config, fps int) (*Server, error) {
	w, err := scene.Build()
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	s := &Server{
		scene:    scene,
		world:    w,
		hub:      NewHub(),
		commands: make(chan Command, commandBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		fps:       fps,
		timeScale: 1,
	}
	s.latest.Store(s.frame())
	return s, nil
}

func (s *Server) Hub() *Hub          { return s.hub }
func (s *Server) World() *sim.World  { return s.world }
func (s *Server) Paused() bool       { return s.paused }
func (s *Server) TimeScale() float64 { return s.timeScale }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleStatus)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	f := s.latest.Load()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"scene":   s.scene.Name,
		"tick":    f.Tick,
		"time":    f.Time,
		"paused":  f.Paused,
		"clients": s.hub.Len(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("stream: upgrade error:", err)
		return
	}
	defer conn.Close()

	s.hub.add(conn)
	defer s.hub.remove(conn)
	log.Printf("stream: client connected from %s", r.RemoteAddr)

	if err := s.hub.send(conn, s.latest.Load()); err != nil {
		log.Println("stream: initial frame:", err)
		return
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("stream: read error:", err)
			}
			return
		}
		select {
		case s.commands <- cmd:
		default:
			log.Println("stream: command queue full, dropping command")
		}
	}
}

// Loop steps and broadcasts at the frame rate until ctx is done.
func (s *Server) Loop(ctx context.Context) error {
	frame := time.Second / time.Duration(s.fps)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Step(frame); err != nil {
				log.Println("stream: broadcast:", err)
			}
		}
	}
}

// Step applies queued commands, advances the world by one frame of wall
// time scaled by the time scale, and broadcasts the result.
func (s *Server) Step(frame time.Duration) error {
	s.drainCommands()

	if !s.paused {
		s.pending += s.timeScale * frame.Seconds() / s.scene.Dt
		n := int(s.pending)
		s.pending -= float64(n)
		if n > maxTicksPerStep {
			n = maxTicksPerStep
			s.pending = 0
		}
		for i := 0; i < n; i++ {
			s.world.AdvanceSimulation(s.scene.Dt)
		}
		if !s.world.Valid() {
			log.Printf("stream: world blew up at t=%.4f, pausing", s.world.Time())
			s.paused = true
			if err := s.publish(); err != nil {
				return errors.Join(sim.ErrInvalidState, err)
			}
			return sim.ErrInvalidState
		}
	}

	return s.publish()
}

func (s *Server) publish() error {
	f := s.frame()
	s.latest.Store(f)
	_, err := s.hub.Broadcast(f)
	return err
}

func (s *Server) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *Server) apply(cmd Command) {
	if cmd.Reset {
		w, err := s.scene.Build()
		if err != nil {
			log.Println("stream: reset:", err)
		} else {
			s.world = w
			s.pending = 0
			log.Printf("stream: reset scene %q", s.scene.Name)
		}
	}
	if cmd.Pause != nil {
		s.paused = *cmd.Pause
	}
	if cmd.TimeScale != nil {
		s.timeScale = math.Max(minTimeScale, math.Min(maxTimeScale, *cmd.TimeScale))
	}
	if d := cmd.Drag; d != nil {
		err := s.world.DragNode(d.Body, d.Node, vecmath.New(d.X, d.Y), vecmath.New(d.VX, d.VY))
		if err != nil {
			log.Println("stream: drag:", err)
		}
	}
}

func (s *Server) frame() *Frame {
	f := &Frame{
		Paused:    s.paused,
		TimeScale: s.timeScale,
		Snapshot:  s.world.Snapshot(),
	}
	f.Invalid = f.Snapshot.ZeroNonFinite()
	return f
}

// ListenAndServe serves viewers on addr and runs Loop until ctx is done or
// the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Loop(ctx)
	})
	g.Go(func() error {
		log.Printf("stream: serving %q on %s", s.scene.Name, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
