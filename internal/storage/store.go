package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/san-kum/meshftle/internal/analysis"
	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/ftle"
	"github.com/san-kum/meshftle/internal/neighborhood"
	"github.com/san-kum/meshftle/internal/strain"
	"github.com/san-kum/meshftle/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
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

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ftle.RunInfo
	Metrics map[string]float64 `json:"metrics"`
}

// Consume stores res as a new run, so a Store can be handed to the engine
// caller as an ftle.Sink.
func (s *Store) Consume(ctx context.Context, info ftle.RunInfo, res *ftle.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.Save(info, res)
	return err
}

// Save writes metadata.json, fields.csv and trajectories.csv under a fresh run
// directory and returns the run id.
func (s *Store) Save(info ftle.RunInfo, res *ftle.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	runID, runDir, err := s.claim(info.ID)
	if err != nil {
		return "", err
	}
	info.ID = runID

	meta := RunMetadata{RunInfo: info, Metrics: Metrics(res)}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "fields.csv"), func(w *csv.Writer) error {
		return WriteFields(w, res)
	}); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "trajectories.csv"), func(w *csv.Writer) error {
		return WriteTrajectories(w, res)
	}); err != nil {
		return "", err
	}
	return runID, nil
}

// claim creates the run directory, suffixing id when it is taken.
func (s *Store) claim(id string) (string, string, error) {
	if id == "" {
		id = "run"
	}
	candidate := id
	for n := 2; ; n++ {
		dir := filepath.Join(s.baseDir, candidate)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return candidate, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		candidate = fmt.Sprintf("%s_%d", id, n)
	}
}

// Metrics summarizes both FTLE fields for the run metadata.
func Metrics(res *ftle.Result) map[string]float64 {
	m := analysis.Summarize(res.Forward.FTLE()).Metrics("forward")
	for k, v := range analysis.Summarize(res.Backward.FTLE()).Metrics("backward") {
		m[k] = v
	}
	// encoding/json rejects NaN.
	for k, v := range m {
		if math.IsNaN(v) {
			delete(m, k)
		}
	}
	return m
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

func writeCSV(path string, fill func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first.
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

	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadFields(runID string) ([]FieldRow, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "fields.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFields(csv.NewReader(f))
}

func (s *Store) LoadTrajectories(runID string) ([]trajectory.Trajectory, []trajectory.Trajectory, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "trajectories.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadTrajectories(csv.NewReader(f))
}

// LoadResult rebuilds a stored run. Particle errors come back as plain
// messages, and J, C and the eigenvectors are not stored so they read NaN.
// Neighbors are selected again from the seeds, as the engine does.
func (s *Store) LoadResult(runID string) (*RunMetadata, *ftle.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.LoadFields(runID)
	if err != nil {
		return nil, nil, err
	}
	fwd, bwd, err := s.LoadTrajectories(runID)
	if err != nil {
		return nil, nil, err
	}

	w := dynamo.Window{Initial: meta.Initial, Final: meta.Final}
	interval := math.Abs(meta.FinalTime - meta.InitialTime)
	res := &ftle.Result{
		Forward:  ftle.Field{Direction: dynamo.Forward, Window: w, Interval: interval, Trajectories: fwd},
		Backward: ftle.Field{Direction: dynamo.Backward, Window: w, Interval: interval, Trajectories: bwd},
	}
	res.Forward.Particles = make([]ftle.ParticleResult, len(rows))
	res.Backward.Particles = make([]ftle.ParticleResult, len(rows))
	for i, row := range rows {
		res.Forward.Particles[i] = particleOf(row.Particle, row.Seed, row.Forward)
		seed := row.Seed
		if i < len(bwd) && len(bwd[i].Positions) > 0 {
			seed = bwd[i].Start()
		}
		res.Backward.Particles[i] = particleOf(row.Particle, seed, row.Backward)
	}
	attachNeighbors(&res.Forward, meta.Neighborhood)
	attachNeighbors(&res.Backward, meta.Neighborhood)
	return meta, res, nil
}

func attachNeighbors(f *ftle.Field, size int) {
	seeds := make([]r3.Vec, f.Len())
	for i, p := range f.Particles {
		seeds[i] = p.Seed
	}
	for i, nb := range (neighborhood.Builder{Size: size}).Build(seeds) {
		f.Particles[i].Neighbors = nb.Indices
	}
}

func particleOf(idx int, seed r3.Vec, v FieldValue) ftle.ParticleResult {
	p := ftle.ParticleResult{Index: idx, Seed: seed, CauchyGreen: strain.Invalid()}
	if v.Err != "" {
		p.Err = errors.New(v.Err)
		return p
	}
	p.Lambda1, p.Lambda2 = v.Lambda1, v.Lambda2
	p.FTLE, p.Isotropy = v.FTLE, v.Isotropy
	return p
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
