package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/mesh"
)

// Dataset is the on-disk form of a mesh time series: per-step triangles,
// node positions and node velocities, plus the sample times.
type Dataset struct {
	Triangles  [][][3]int     `json:"triangles"`
	Positions  [][][3]float64 `json:"positions"`
	Velocities [][][3]float64 `json:"velocities"`
	TimeSteps  []float64      `json:"time_steps"`
}

func DatasetFromSeries(s *mesh.Series) Dataset {
	d := Dataset{
		Triangles:  make([][][3]int, s.Len()),
		Positions:  make([][][3]float64, s.Len()),
		Velocities: make([][][3]float64, s.Len()),
		TimeSteps:  s.Times(),
	}
	for k := 0; k < s.Len(); k++ {
		tris := s.Triangles(k)
		d.Triangles[k] = make([][3]int, len(tris))
		for j, t := range tris {
			d.Triangles[k][j] = [3]int(t)
		}
		d.Positions[k] = make([][3]float64, s.NodeCount())
		d.Velocities[k] = make([][3]float64, s.NodeCount())
		for i := 0; i < s.NodeCount(); i++ {
			p, v := s.Position(k, i), s.Velocity(k, i)
			d.Positions[k][i] = [3]float64{p.X, p.Y, p.Z}
			d.Velocities[k][i] = [3]float64{v.X, v.Y, v.Z}
		}
	}
	return d
}

// Series validates the dataset into a mesh series.
func (d Dataset) Series() (*mesh.Series, error) {
	return mesh.FromArrays(d.Triangles, d.Positions, d.Velocities, d.TimeSteps)
}

func WriteDataset(w io.Writer, s *mesh.Series) error {
	return json.NewEncoder(w).Encode(DatasetFromSeries(s))
}

func ReadDataset(r io.Reader) (*mesh.Series, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrDataIntegrity, err)
	}
	return d.Series()
}

func SaveDataset(path string, s *mesh.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteDataset(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadDataset(path string) (*mesh.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDataset(f)
}
