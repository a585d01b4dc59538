package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"

	"github.com/san-kum/meshftle/internal/ftle"
)

// Number is a float that encodes NaN and ±Inf as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

func numbers(v []float64) []Number {
	out := make([]Number, len(v))
	for i, x := range v {
		out[i] = Number(x)
	}
	return out
}

type ExportField struct {
	FTLE         []Number       `json:"ftle"`
	Isotropy     []Number       `json:"isotropy"`
	Errors       []string       `json:"errors"`
	Trajectories [][][3]float64 `json:"trajectories"`
}

type ExportData struct {
	Run      ftle.RunInfo       `json:"run"`
	Metrics  map[string]float64 `json:"metrics"`
	Times    []float64          `json:"times"`
	Forward  ExportField        `json:"forward"`
	Backward ExportField        `json:"backward"`
}

func exportField(f *ftle.Field) ExportField {
	out := ExportField{
		FTLE:         numbers(f.FTLE()),
		Isotropy:     numbers(f.Isotropy()),
		Errors:       make([]string, f.Len()),
		Trajectories: make([][][3]float64, len(f.Trajectories)),
	}
	for i, p := range f.Particles {
		if p.Err != nil {
			out.Errors[i] = p.Err.Error()
		}
	}
	for i, tr := range f.Trajectories {
		pts := make([][3]float64, len(tr.Positions))
		for k, p := range tr.Positions {
			pts[k] = [3]float64{p.X, p.Y, p.Z}
		}
		out.Trajectories[i] = pts
	}
	return out
}

func NewExportData(info ftle.RunInfo, res *ftle.Result) ExportData {
	var times []float64
	if len(res.Forward.Trajectories) > 0 {
		times = res.Forward.Trajectories[0].Times
	}
	return ExportData{
		Run:      info,
		Metrics:  Metrics(res),
		Times:    times,
		Forward:  exportField(&res.Forward),
		Backward: exportField(&res.Backward),
	}
}

func ExportJSON(w io.Writer, info ftle.RunInfo, res *ftle.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(info, res))
}

func ExportCSV(w io.Writer, res *ftle.Result) error {
	cw := csv.NewWriter(w)
	if err := WriteFields(cw, res); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ExportRowsCSV re-emits stored rows, for exporting a run already on disk.
func ExportRowsCSV(w io.Writer, rows []FieldRow) error {
	cw := csv.NewWriter(w)
	if err := writeRows(cw, rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
