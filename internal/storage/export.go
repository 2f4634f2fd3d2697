package storage

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/san-kum/dynsolve/internal/sim"
)

type ExportData struct {
	Scene      string             `json:"scene"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Iterations int                `json:"iterations"`
	Steps      int                `json:"steps"`
	Broken     int                `json:"broken"`
	Bodies     []string           `json:"bodies"`
	Frames     []ExportFrame      `json:"frames"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ExportFrame is a sim.Frame with bodies and constraints that had left the
// world written as null.
type ExportFrame struct {
	Time   float64          `json:"time"`
	Bodies []*sim.BodyState `json:"bodies"`
	Errors []*float64       `json:"errors"`
}

func exportFrames(frames []sim.Frame) []ExportFrame {
	out := make([]ExportFrame, len(frames))
	for i, f := range frames {
		ef := ExportFrame{
			Time:   f.Time,
			Bodies: make([]*sim.BodyState, len(f.Bodies)),
			Errors: make([]*float64, len(f.Errors)),
		}
		for j := range f.Bodies {
			if !f.Bodies[j].Removed {
				ef.Bodies[j] = &f.Bodies[j]
			}
		}
		for j := range f.Errors {
			if !math.IsNaN(f.Errors[j]) {
				ef.Errors[j] = &f.Errors[j]
			}
		}
		out[i] = ef
	}
	return out
}

func exportData(info RunInfo, result *sim.Result) ExportData {
	return ExportData{
		Scene:      info.Scene,
		Dt:         info.Dt,
		Duration:   info.Duration,
		Iterations: info.Iterations,
		Steps:      result.StepsTaken,
		Broken:     result.Broken,
		Bodies:     result.BodyNames,
		Frames:     exportFrames(result.Frames),
		Metrics:    result.Metrics,
	}
}

func ExportJSON(path string, info RunInfo, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, info, result)
}

func WriteJSON(w io.Writer, info RunInfo, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(info, result))
}
