package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/md"
)

var (
	ErrRunNotFound  = errors.New("pysic: run not found")
	ErrAmbiguousRun = errors.New("pysic: run id prefix is ambiguous")
)

type Kind string

const (
	KindCalculation Kind = "calc"
	KindMD          Kind = "md"
	KindRelax       Kind = "relax"
)

const (
	metadataFile = "metadata.json"
	atomsFile    = "atoms.csv"
	energiesFile = "energies.csv"
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
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Atoms     int                `json:"atoms"`
	Backend   string             `json:"backend"`
	Strategy  string             `json:"strategy,omitempty"`
	Timestep  float64            `json:"timestep,omitempty"`
	Steps     int                `json:"steps,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// AtomResult is the per-atom part of a calculation.
type AtomResult struct {
	Index             int        `json:"index"`
	Symbol            string     `json:"symbol"`
	Charge            float64    `json:"charge"`
	Force             atoms.Vec3 `json:"force"`
	Electronegativity float64    `json:"electronegativity"`
}

type Calculation struct {
	Energy float64
	Stress [6]float64
	Atoms  []AtomResult
}

var stressNames = [6]string{"stress_xx", "stress_yy", "stress_zz", "stress_yz", "stress_xz", "stress_xy"}

// SaveCalculation stores meta with the energy and stress added to its
// metrics, and the per-atom results as atoms.csv.
func (s *Store) SaveCalculation(meta RunMetadata, calc *Calculation) (string, error) {
	if meta.Metrics == nil {
		meta.Metrics = make(map[string]float64)
	}
	meta.Metrics["energy"] = calc.Energy
	for i, name := range stressNames {
		meta.Metrics[name] = calc.Stress[i]
	}
	meta.Atoms = len(calc.Atoms)

	header := []string{"index", "symbol", "charge", "fx", "fy", "fz", "chi"}
	rows := make([][]string, 0, len(calc.Atoms))
	for _, a := range calc.Atoms {
		rows = append(rows, []string{
			strconv.Itoa(a.Index),
			a.Symbol,
			formatFloat(a.Charge),
			formatFloat(a.Force[0]),
			formatFloat(a.Force[1]),
			formatFloat(a.Force[2]),
			formatFloat(a.Electronegativity),
		})
	}
	return s.save(meta, atomsFile, header, rows)
}

// SaveTrajectory stores meta and one energies.csv row per frame.
func (s *Store) SaveTrajectory(meta RunMetadata, frames []md.Frame) (string, error) {
	if meta.Metrics == nil {
		meta.Metrics = make(map[string]float64)
	}
	meta.Steps = max(len(frames)-1, 0)

	header := []string{"step", "time", "kinetic", "potential", "total"}
	rows := make([][]string, 0, len(frames))
	for _, f := range frames {
		rows = append(rows, []string{
			strconv.Itoa(f.Step),
			formatFloat(f.Time),
			formatFloat(f.Kinetic),
			formatFloat(f.Potential),
			formatFloat(f.Total()),
		})
	}
	return s.save(meta, energiesFile, header, rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Store) save(meta RunMetadata, dataFile string, header []string, rows [][]string) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

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

	csvFile, err := os.Create(filepath.Join(runDir, dataFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns all runs, oldest first.
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
	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

// Resolve expands a unique prefix of a run id.
func (s *Store) Resolve(prefix string) (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, prefix) {
			continue
		}
		if r.ID == prefix {
			return r.ID, nil
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
		}
		match = r.ID
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) readCSV(runID, name string) ([][]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no %s in %s", ErrRunNotFound, name, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadAtoms(runID string) ([]AtomResult, error) {
	records, err := s.readCSV(runID, atomsFile)
	if err != nil {
		return nil, err
	}

	out := make([]AtomResult, 0, len(records))
	for _, rec := range records {
		var a AtomResult
		var vals [5]float64
		idx, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("atoms.csv: %w", err)
		}
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[2+j], 64); err != nil {
				return nil, fmt.Errorf("atoms.csv: %w", err)
			}
		}
		a.Index, a.Symbol = idx, rec[1]
		a.Charge = vals[0]
		a.Force = atoms.Vec3{vals[1], vals[2], vals[3]}
		a.Electronegativity = vals[4]
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) LoadFrames(runID string) ([]md.Frame, error) {
	records, err := s.readCSV(runID, energiesFile)
	if err != nil {
		return nil, err
	}

	out := make([]md.Frame, 0, len(records))
	for _, rec := range records {
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("energies.csv: %w", err)
		}
		var vals [3]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[1+j], 64); err != nil {
				return nil, fmt.Errorf("energies.csv: %w", err)
			}
		}
		out = append(out, md.Frame{Step: step, Time: vals[0], Kinetic: vals[1], Potential: vals[2]})
	}
	return out, nil
}
