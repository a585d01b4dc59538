package storage

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/ftle"
	"github.com/san-kum/meshftle/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

// FieldValue is one direction's stored outcome for a particle. Err is empty
// for valid particles.
type FieldValue struct {
	FTLE     float64 `json:"ftle"`
	Isotropy float64 `json:"isotropy"`
	Lambda1  float64 `json:"lambda1"`
	Lambda2  float64 `json:"lambda2"`
	Err      string  `json:"error,omitempty"`
}

type FieldRow struct {
	Particle int
	Seed     r3.Vec
	Forward  FieldValue
	Backward FieldValue
}

var fieldHeader = []string{
	"particle", "x", "y", "z",
	"forward_ftle", "forward_isotropy", "forward_lambda1", "forward_lambda2", "forward_error",
	"backward_ftle", "backward_isotropy", "backward_lambda1", "backward_lambda2", "backward_error",
}

func valueOf(p ftle.ParticleResult) FieldValue {
	v := FieldValue{FTLE: p.FTLE, Isotropy: p.Isotropy, Lambda1: p.Lambda1, Lambda2: p.Lambda2}
	if p.Err != nil {
		v.Err = p.Err.Error()
	}
	return v
}

// Rows flattens a result into one row per particle.
func Rows(res *ftle.Result) []FieldRow {
	rows := make([]FieldRow, res.Forward.Len())
	for i, p := range res.Forward.Particles {
		rows[i] = FieldRow{Particle: p.Index, Seed: p.Seed, Forward: valueOf(p)}
		if i < res.Backward.Len() {
			rows[i].Backward = valueOf(res.Backward.Particles[i])
		}
	}
	return rows
}

func WriteFields(w *csv.Writer, res *ftle.Result) error {
	return writeRows(w, Rows(res))
}

func writeRows(w *csv.Writer, rows []FieldRow) error {
	if err := w.Write(fieldHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Particle),
			formatFloat(r.Seed.X), formatFloat(r.Seed.Y), formatFloat(r.Seed.Z),
		}
		for _, v := range []FieldValue{r.Forward, r.Backward} {
			rec = append(rec, formatFloat(v.FTLE), formatFloat(v.Isotropy), formatFloat(v.Lambda1), formatFloat(v.Lambda2), v.Err)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func ReadFields(r *csv.Reader) ([]FieldRow, error) {
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []FieldRow{}, nil
	}

	rows := make([]FieldRow, 0, len(records)-1)
	for line, rec := range records[1:] {
		if len(rec) != len(fieldHeader) {
			return nil, fmt.Errorf("fields line %d: %d columns, want %d", line+2, len(rec), len(fieldHeader))
		}
		nums := make([]float64, len(rec))
		for j, cell := range rec {
			if j == 0 || j == 8 || j == 13 {
				continue
			}
			if nums[j], err = strconv.ParseFloat(cell, 64); err != nil {
				return nil, fmt.Errorf("fields line %d, %s: %w", line+2, fieldHeader[j], err)
			}
		}
		idx, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("fields line %d: %w", line+2, err)
		}
		rows = append(rows, FieldRow{
			Particle: idx,
			Seed:     r3.Vec{X: nums[1], Y: nums[2], Z: nums[3]},
			Forward:  FieldValue{FTLE: nums[4], Isotropy: nums[5], Lambda1: nums[6], Lambda2: nums[7], Err: rec[8]},
			Backward: FieldValue{FTLE: nums[9], Isotropy: nums[10], Lambda1: nums[11], Lambda2: nums[12], Err: rec[13]},
		})
	}
	return rows, nil
}

var trajectoryHeader = []string{"particle", "direction", "step", "time", "x", "y", "z"}

func WriteTrajectories(w *csv.Writer, res *ftle.Result) error {
	if err := w.Write(trajectoryHeader); err != nil {
		return err
	}
	for _, f := range []ftle.Field{res.Forward, res.Backward} {
		for _, tr := range f.Trajectories {
			for k, p := range tr.Positions {
				rec := []string{
					strconv.Itoa(tr.Particle),
					tr.Direction.String(),
					strconv.Itoa(tr.Steps[k]),
					formatFloat(tr.Times[k]),
					formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z),
				}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func parseDirection(s string) (dynamo.Direction, error) {
	switch s {
	case "forward":
		return dynamo.Forward, nil
	case "backward":
		return dynamo.Backward, nil
	default:
		return 0, fmt.Errorf("unknown direction: %s", s)
	}
}

// ReadTrajectories reads back forward and backward trajectories. Rows of one
// trajectory must be contiguous.
func ReadTrajectories(r *csv.Reader) ([]trajectory.Trajectory, []trajectory.Trajectory, error) {
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	var fwd, bwd []trajectory.Trajectory
	var cur *trajectory.Trajectory
	for line, rec := range records {
		if line == 0 {
			continue
		}
		if len(rec) != len(trajectoryHeader) {
			return nil, nil, fmt.Errorf("trajectories line %d: %d columns, want %d", line+1, len(rec), len(trajectoryHeader))
		}
		particle, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, nil, fmt.Errorf("trajectories line %d: %w", line+1, err)
		}
		dir, err := parseDirection(rec[1])
		if err != nil {
			return nil, nil, fmt.Errorf("trajectories line %d: %w", line+1, err)
		}
		step, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, nil, fmt.Errorf("trajectories line %d: %w", line+1, err)
		}
		var v [4]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(rec[3+j], 64); err != nil {
				return nil, nil, fmt.Errorf("trajectories line %d, %s: %w", line+1, trajectoryHeader[3+j], err)
			}
		}

		if cur == nil || cur.Particle != particle || cur.Direction != dir {
			list := &fwd
			if dir == dynamo.Backward {
				list = &bwd
			}
			*list = append(*list, trajectory.Trajectory{Particle: particle, Direction: dir})
			cur = &(*list)[len(*list)-1]
		}
		cur.Steps = append(cur.Steps, step)
		cur.Times = append(cur.Times, v[0])
		cur.Positions = append(cur.Positions, r3.Vec{X: v[1], Y: v[2], Z: v[3]})
	}
	return fwd, bwd, nil
}
