package storage

import (
	"encoding/json"
	"io"
	"math"

	"github.com/san-kum/softsim/internal/sim"
)

type ExportData struct {
	Run    RunMetadata `json:"run"`
	Steps  int         `json:"steps"`
	Frames []sim.Frame `json:"frames"`
}

// ExportJSON writes the run and its frames as indented JSON. Non-finite
// energies are written as 0.
func ExportJSON(w io.Writer, meta RunMetadata, frames []sim.Frame) error {
	data := ExportData{
		Run:    meta,
		Steps:  len(frames),
		Frames: make([]sim.Frame, len(frames)),
	}
	for i, f := range frames {
		if math.IsNaN(f.Energy) || math.IsInf(f.Energy, 0) {
			f.Energy = 0
		}
		data.Frames[i] = f
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
