// Package export renders stored FTLE fields as standalone SVG images.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/san-kum/meshftle/internal/trajectory"
	"github.com/san-kum/meshftle/internal/viz"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	background = "#0a0a0a"
	// missing colors particles without a finite value.
	missing = "#555555"
)

var ramp = []colorful.Color{hex("#2c7bb6"), hex("#ffffbf"), hex("#d7191c")}

func hex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Colormap maps finite values linearly onto a blue-yellow-red ramp spanning
// their range.
type Colormap struct {
	Min, Max float64
}

func NewColormap(values []float64) Colormap {
	cm := Colormap{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		cm.Min = math.Min(cm.Min, v)
		cm.Max = math.Max(cm.Max, v)
	}
	return cm
}

// Color returns the hex color of v; non-finite values get a neutral gray.
func (cm Colormap) Color(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.IsInf(cm.Min, 0) {
		return missing
	}
	t := 0.5
	if cm.Max > cm.Min {
		t = (v - cm.Min) / (cm.Max - cm.Min)
	}
	t = math.Min(math.Max(t, 0), 1) * float64(len(ramp)-1)
	k := min(int(t), len(ramp)-2)
	return ramp[k].BlendLab(ramp[k+1], t-float64(k)).Clamped().Hex()
}

func header(sb *strings.Builder, view viz.MapView, scale float64) {
	width := float64(view.Width) * scale * 2
	height := float64(view.Height) * scale * 4
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

func legend(sb *strings.Builder, cm Colormap, caption string, scale float64) {
	if math.IsInf(cm.Min, 0) {
		fmt.Fprintf(sb, `<text x="4" y="%.0f" fill="%s" font-size="%.0f">%s: no finite values</text>
`, 3*scale, missing, 3*scale, caption)
		return
	}
	fmt.Fprintf(sb, `<text x="4" y="%.0f" fill="#cccccc" font-size="%.0f">%s <tspan fill="%s">%.4g</tspan> .. <tspan fill="%s">%.4g</tspan></text>
`, 3*scale, 3*scale, caption, cm.Color(cm.Min), cm.Min, cm.Color(cm.Max), cm.Max)
}

// FieldSVG draws one dot per particle at its seed, colored by its value.
func FieldSVG(w io.Writer, view viz.MapView, seeds []r3.Vec, values []float64, caption string, scale float64) error {
	if len(seeds) != len(values) {
		return fmt.Errorf("%d seeds but %d values", len(seeds), len(values))
	}
	cm := NewColormap(values)

	var sb strings.Builder
	header(&sb, view, scale)
	sb.WriteString("<g>\n")
	r := scale * 0.8
	for i, px := range view.Pixels(seeds) {
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, float64(px[0])*scale+scale/2, float64(px[1])*scale+scale/2, r, cm.Color(values[i]))
	}
	sb.WriteString("</g>\n")
	legend(&sb, cm, caption, scale)
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// TrajectoriesSVG draws every trajectory as a path colored by its particle's
// value.
func TrajectoriesSVG(w io.Writer, view viz.MapView, trs []trajectory.Trajectory, values []float64, caption string, scale float64) error {
	if len(trs) != len(values) {
		return fmt.Errorf("%d trajectories but %d values", len(trs), len(values))
	}
	var all []r3.Vec
	for _, tr := range trs {
		all = append(all, tr.Positions...)
	}
	px := view.Pixels(all)
	cm := NewColormap(values)

	var sb strings.Builder
	header(&sb, view, scale)
	sb.WriteString(`<g fill="none" stroke-width="1.5">` + "\n")
	off := 0
	for i, tr := range trs {
		pts := px[off : off+len(tr.Positions)]
		off += len(tr.Positions)
		if len(pts) == 0 {
			continue
		}
		fmt.Fprintf(&sb, `<path stroke="%s" d="M`, cm.Color(values[i]))
		for k, p := range pts {
			if k > 0 {
				sb.WriteString(" L")
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", float64(p[0])*scale+scale/2, float64(p[1])*scale+scale/2)
		}
		sb.WriteString(`"/>` + "\n")
	}
	sb.WriteString("</g>\n")
	legend(&sb, cm, caption, scale)
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
