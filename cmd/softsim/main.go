package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/analysis"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/export"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/storage"
	"github.com/san-kum/softsim/internal/stream"
	"github.com/san-kum/softsim/internal/viz"
)

var (
	dataDir    string
	debug      bool
	configFile string
	dt         float64
	duration   float64
	every      int
	parallel   bool
	outFile    string
	addr       string
	frameRate  int
	maxPlots   int
	node       int
	atTime     float64
	pxPerMeter float64
	themeName  string
	column     int
)

func main() {
	var logFile *os.File

	rootCmd := &cobra.Command{
		Use:           "softsim",
		Short:         "2D soft-body physics lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logFile = setupLogging(dataDir, debug)
			log.Printf("softsim %s %s", cmd.Name(), strings.Join(args, " "))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".softsim", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write a debug log under <data>/logs")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene headless and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	runCmd.Flags().IntVar(&every, "every", 1, "record one frame every n steps")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "advance bodies concurrently")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot energy and node positions of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&maxPlots, "max", 4, "number of position columns to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and frames as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one coordinate",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&column, "column", 1, "position column (x0=0, y0=1, x1=2, ...)")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "trace one node of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  trajectorySVG,
	}
	svgCmd.Flags().IntVar(&node, "node", 0, "node index across all bodies")
	svgCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	svgCmd.Flags().StringVar(&themeName, "theme", viz.ThemeCyberpunk.Name, "color theme")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [scene]",
		Short: "render a scene at a given time as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  snapshotSVG,
	}
	snapshotCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	snapshotCmd.Flags().Float64Var(&atTime, "at", 0, "simulated seconds to advance first")
	snapshotCmd.Flags().Float64Var(&pxPerMeter, "scale", 100, "pixels per meter")
	snapshotCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	snapshotCmd.Flags().StringVar(&themeName, "theme", viz.ThemeCyberpunk.Name, "color theme")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [preset] [file]",
		Short: "write a built-in scene as yaml",
		Args:  cobra.ExactArgs(2),
		RunE:  initScene,
	}

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "watch a scene in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "stream a scene to websocket viewers",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serveScene,
	}
	serveCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&frameRate, "fps", stream.DefaultFPS, "frames per second")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, analyzeCmd, svgCmd, snapshotCmd, presetsCmd, initCmd, liveCmd, serveCmd)

	err := rootCmd.Execute()
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadScene resolves the --config file, or else the named preset.
func loadScene(args []string) (*config.Config, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Name == "" {
			cfg.Name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
		}
		return cfg, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("need a scene name or --config (available: %s)", strings.Join(config.ListPresets(), ", "))
	}
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return nil, fmt.Errorf("unknown scene: %s (available: %s)", args[0], strings.Join(config.ListPresets(), ", "))
	}
	return cfg, nil
}

// progressLogger writes a line to the debug log once per simulated second.
type progressLogger struct {
	next float64
}

func (p *progressLogger) OnStep(w *sim.World, t float64) {
	if t < p.next {
		return
	}
	p.next = t + 1
	log.Printf("t=%.2f energy=%.5f edges=%d torn=%d", t, w.TotalEnergy(), w.NumEdges(), w.TornEdges())
}

func runSimulation(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}

	// flags override the scene
	if cmd.Flags().Changed("dt") {
		scene.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		scene.Duration = duration
	}
	if cmd.Flags().Changed("parallel") {
		scene.World.Parallel = parallel
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	world, err := scene.Build()
	if err != nil {
		return err
	}

	runner := sim.NewRunner(world)
	for _, m := range metrics.Default() {
		runner.AddMetric(m)
	}
	runner.AddObserver(&progressLogger{})

	cfg := sim.RunConfig{
		Dt:            scene.Dt,
		Duration:      scene.Duration,
		RecordEvery:   every,
		ValidateState: true,
	}

	fmt.Printf("running %s (%d bodies, %d nodes)...\n", scene.Name, len(world.Bodies()), world.NumNodes())
	start := time.Now()

	result, err := runner.Run(context.Background(), cfg)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	for _, e := range result.Errors {
		fmt.Printf("warning: %v\n", e)
		log.Printf("run %s: %v", scene.Name, e)
	}

	meta := storage.Describe(scene.Name, scene.Dt, scene.Duration, world, result)
	runID, err := st.Save(meta, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("frames: %d\n", len(result.Frames))
	fmt.Printf("torn edges: %d\n", result.TornEdges)
	fmt.Printf("energy drift: %.4f\n", result.EnergyDrift)
	fmt.Println("\nmetrics:")
	for _, m := range metrics.Default() {
		if v, ok := result.Metrics[m.Name()]; ok {
			fmt.Printf("  %s: %.6f\n", m.Name(), v)
		}
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tNODES\tTORN")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Nodes,
			run.TornEdges,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, energies, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(states))

	fmt.Println(asciigraph.Plot(energies,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("total energy"),
	))
	fmt.Println()

	numVars := len(states[0])
	if numVars > maxPlots {
		numVars = maxPlots
	}

	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			if varIdx < len(states[i]) {
				data[i] = states[i][varIdx]
			}
		}

		axis := "x"
		if varIdx%2 == 1 {
			axis = "y"
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("node %d %s", varIdx/2, axis)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	if outFile == "" {
		return storage.ExportJSON(os.Stdout, *meta, frames)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := storage.ExportJSON(f, *meta, frames); err != nil {
		return err
	}
	fmt.Printf("exported %d frames to %s\n", len(frames), outFile)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data")
	}
	if column < 0 || column >= len(states[0]) {
		return fmt.Errorf("column %d not in run (%d columns)", column, len(states[0]))
	}

	rate, err := analysis.SampleRate(times)
	if err != nil {
		return err
	}
	spectrum, err := analysis.PowerSpectrum(analysis.Column(states, column), rate)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("sample rate: %.1f hz, resolution %.3f hz\n\n", rate, spectrum.Resolution())

	plotData := spectrum.Power
	if len(plotData) > 8 {
		plotData = plotData[:len(plotData)/4]
	}
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (column %d)", column)),
	)
	fmt.Println(graph)
	fmt.Println()

	freq, _ := spectrum.Dominant()
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	return nil
}

func trajectorySVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	if node < 0 || node >= meta.Nodes {
		return fmt.Errorf("node %d out of range (run has %d nodes)", node, meta.Nodes)
	}

	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	theme := viz.GetTheme(themeName)
	svg := export.TrajectoryToSVG(frames, node, meta.Width, meta.Height, 700, 700, string(theme.Primary))
	if svg == "" {
		return fmt.Errorf("not enough finite samples for node %d", node)
	}
	return writeOutput(svg)
}

func snapshotSVG(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	world, err := scene.Build()
	if err != nil {
		return err
	}

	if atTime > 0 {
		runner := sim.NewRunner(world)
		cfg := sim.RunConfig{Dt: scene.Dt, Duration: atTime, ValidateState: true}
		if err := runner.RunWithCallback(context.Background(), cfg, func(*sim.World, float64) bool { return true }); err != nil {
			return err
		}
	}

	svg := export.SnapshotToSVG(world.Snapshot(), pxPerMeter, viz.GetTheme(themeName))
	if svg == "" {
		return fmt.Errorf("nothing to render (scale %g, box %gx%g)", pxPerMeter, world.Params().Width, world.Params().Height)
	}
	return writeOutput(svg)
}

// writeOutput prints to stdout or writes --out.
func writeOutput(content string) error {
	if outFile == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(content), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("scenes:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		names := make([]string, 0, len(p.Bodies))
		for _, b := range p.Bodies {
			names = append(names, b.Name)
		}
		fmt.Printf("  %-10s dt=%g time=%gs bodies=%s\n", name, p.Dt, p.Duration, strings.Join(names, ","))
	}
	return nil
}

func initScene(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown scene: %s (available: %s)", args[0], strings.Join(config.ListPresets(), ", "))
	}
	if err := config.Save(args[1], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s to %s\n", args[0], args[1])
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(scene)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func serveScene(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}

	srv, err := stream.NewServer(scene, frameRate)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("streaming %s on %s (ws path /ws)\n", scene.Name, addr)
	return srv.ListenAndServe(ctx, addr)
}
