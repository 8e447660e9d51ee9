package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/softsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	Bodies      []string           `json:"bodies"`
	Nodes       int                `json:"nodes"`
	Steps       int                `json:"steps"`
	TornEdges   int                `json:"torn_edges"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Describe fills the metadata fields that come from the world and result.
func Describe(scene string, dt, duration float64, w *sim.World, result *sim.Result) RunMetadata {
	meta := RunMetadata{
		Scene:    scene,
		Dt:       dt,
		Duration: duration,
		Width:    w.Params().Width,
		Height:   w.Params().Height,
		Nodes:    w.NumNodes(),
		Metrics:  make(map[string]float64),
	}
	for _, b := range w.Bodies() {
		meta.Bodies = append(meta.Bodies, b.Name())
	}
	if result != nil {
		meta.Steps = result.StepsTaken
		meta.TornEdges = result.TornEdges
		meta.EnergyDrift = finiteOrZero(result.EnergyDrift)
		for k, v := range result.Metrics {
			// JSON has no NaN or Inf
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				meta.Metrics[k] = v
			}
		}
	}
	return meta
}

// Save writes meta and the recorded frames under a new run directory and
// returns the run id.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Scene, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := writeFrames(w, result.Frames); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

func writeFrames(w *csv.Writer, frames []sim.Frame) error {
	if len(frames) == 0 {
		return nil
	}

	header := []string{"time", "energy"}
	for i := 0; i < len(frames[0].Positions)/2; i++ {
		header = append(header, fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, f := range frames {
		row := []string{
			strconv.FormatFloat(f.Time, 'f', 6, 64),
			strconv.FormatFloat(f.Energy, 'g', 10, 64),
		}
		for _, val := range f.Positions {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadStates reads back the flattened positions, times and energies of a run.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, []float64{}, nil
	}

	n := len(records) - 1
	times := make([]float64, 0, n)
	energies := make([]float64, 0, n)
	states := make([][]float64, 0, n)

	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		e, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}

		state := make([]float64, 0, len(record)-2)
		for _, field := range record[2:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			state = append(state, val)
		}

		times = append(times, t)
		energies = append(energies, e)
		states = append(states, state)
	}

	return states, times, energies, nil
}

// LoadFrames rebuilds the recorded frames of a run.
func (s *Store) LoadFrames(runID string) ([]sim.Frame, error) {
	states, times, energies, err := s.LoadStates(runID)
	if err != nil {
		return nil, err
	}
	frames := make([]sim.Frame, len(states))
	for i := range states {
		frames[i] = sim.Frame{Time: times[i], Energy: energies[i], Positions: states[i]}
	}
	return frames, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
