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

	"github.com/san-kum/dynsolve/internal/sim"
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

// RunInfo identifies how a run was produced.
type RunInfo struct {
	Scene      string
	Preset     string
	Dt         float64
	Duration   float64
	Iterations int
	// Anchors are the fixed world points of the scene's constraints.
	Anchors [][2]float64
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Iterations int                `json:"iterations"`
	Steps      int                `json:"steps"`
	Broken     int                `json:"broken"`
	Bodies     []string           `json:"bodies"`
	Anchors    [][2]float64       `json:"anchors,omitempty"`
	Errors     []string           `json:"errors,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes metadata.json and states.csv under a new run directory and
// returns the run id.
func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", info.Scene, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Scene:      info.Scene,
		Preset:     info.Preset,
		Timestamp:  now,
		Dt:         info.Dt,
		Duration:   info.Duration,
		Iterations: info.Iterations,
		Steps:      result.StepsTaken,
		Broken:     result.Broken,
		Bodies:     result.BodyNames,
		Anchors:    info.Anchors,
		Metrics:    result.Metrics,
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StateHeader is the CSV header for a run: time, six columns per body, then
// one error column per constraint.
func StateHeader(bodyNames []string, constraints int) []string {
	header := []string{"time"}
	for _, name := range bodyNames {
		for _, col := range [...]string{"x", "y", "rot", "vx", "vy", "w"} {
			header = append(header, name+"_"+col)
		}
	}
	for i := 0; i < constraints; i++ {
		header = append(header, fmt.Sprintf("err%d", i))
	}
	return header
}

func writeStates(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if len(result.Frames) == 0 {
		w.Flush()
		return w.Error()
	}

	// frames only grow, so the last one has every constraint
	constraints := len(result.Frames[len(result.Frames)-1].Errors)
	if err := w.Write(StateHeader(result.BodyNames, constraints)); err != nil {
		return err
	}

	format := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', 6, 64)
	}

	// bodies or constraints absent from a frame leave empty cells
	for _, frame := range result.Frames {
		row := []string{format(frame.Time)}
		for i := range result.BodyNames {
			if i >= len(frame.Bodies) || frame.Bodies[i].Removed {
				row = append(row, "", "", "", "", "", "")
				continue
			}
			b := frame.Bodies[i]
			row = append(row,
				format(b.Position[0]), format(b.Position[1]), format(b.Rotation),
				format(b.LinearVelocity[0]), format(b.LinearVelocity[1]), format(b.AngularVelocity))
		}
		for i := 0; i < constraints; i++ {
			if i < len(frame.Errors) {
				row = append(row, format(frame.Errors[i]))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the metadata of every stored run, oldest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadStates reads states.csv back as a header and one row per frame
// (excluding the time column) plus the frame times. Empty cells, written for
// bodies and constraints not in the world at that time, read back as NaN.
func (s *Store) LoadStates(runID string) ([]string, [][]float64, []float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
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
		return []string{}, [][]float64{}, []float64{}, nil
	}

	header := records[0][1:]
	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		state := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				val = math.NaN()
			}
			state = append(state, val)
		}
		states = append(states, state)
	}

	return header, states, times, nil
}

// Column extracts one named column from LoadStates output.
func Column(header []string, states [][]float64, name string) ([]float64, bool) {
	idx := -1
	for i, h := range header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, 0, len(states))
	for _, row := range states {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out, true
}
