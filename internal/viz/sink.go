package viz

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"pinn-forge/internal/dataset"
	"pinn-forge/internal/metrics"
	"pinn-forge/internal/model"
)

// FileSink writes snapshots, loss curves and checkpoints below ResultsDir.
// Recurrent checkpoints go to WeightsDir instead.
type FileSink struct {
	ResultsDir string
	WeightsDir string
	Recurrent  bool
}

// NewFileSink creates the output directories.
func NewFileSink(resultsDir, weightsDir string, recurrent bool) (*FileSink, error) {
	dirs := []string{resultsDir}
	if recurrent {
		dirs = append(dirs, weightsDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	return &FileSink{ResultsDir: resultsDir, WeightsDir: weightsDir, Recurrent: recurrent}, nil
}

// FieldPath is where the snapshot for epoch is written.
func (s *FileSink) FieldPath(epoch int) string {
	return filepath.Join(s.ResultsDir, fmt.Sprintf("generated_%d.png", epoch))
}

// LossPath is the loss plot, rewritten every epoch.
func (s *FileSink) LossPath() string {
	return filepath.Join(s.ResultsDir, "loss.png")
}

// CheckpointPath is where the parameters for epoch are written.
func (s *FileSink) CheckpointPath(epoch int) string {
	if s.Recurrent {
		return filepath.Join(s.WeightsDir, fmt.Sprintf("weights_%d.json.zlib", epoch))
	}
	return filepath.Join(s.ResultsDir, fmt.Sprintf("model_%d.json.zlib", epoch))
}

// Field renders f as a heat map.
func (s *FileSink) Field(epoch int, f Field) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("u(t, x) at epoch %d", epoch)
	p.X.Label.Text = "t"
	p.Y.Label.Text = "x"
	g := grid{f: f}
	hm := plotter.NewHeatMap(g, palette.Heat(16, 1))
	hm.Min, hm.Max = g.finiteRange()
	if hm.Min == hm.Max {
		hm.Min -= 0.5
		hm.Max += 0.5
	}
	hm.NaN = color.Black
	p.Add(hm)
	if err := p.Save(6*vg.Inch, 5*vg.Inch, s.FieldPath(epoch)); err != nil {
		return fmt.Errorf("save field: %w", err)
	}
	return nil
}

// Losses plots every recorded curve against the epoch.
func (s *FileSink) Losses(h *metrics.History) error {
	p := plot.New()
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"
	curves := []struct {
		name   string
		values []float64
	}{
		{"train", h.Train()},
		{"val", h.Val()},
		{"accuracy", h.Accuracy()},
	}
	for i, c := range curves {
		for k, seg := range finiteSegments(c.values) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return fmt.Errorf("loss curve %s: %w", c.name, err)
			}
			line.LineStyle.Color = plotutil.Color(i)
			p.Add(line)
			if k == 0 {
				p.Legend.Add(c.name, line)
			}
		}
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, s.LossPath()); err != nil {
		return fmt.Errorf("save losses: %w", err)
	}
	return nil
}

// finiteSegments splits a curve indexed by epoch into runs of finite
// values. NaN and Inf epochs leave a gap.
func finiteSegments(values []float64) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for k, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(k), Y: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// Checkpoint persists the model parameters for epoch.
func (s *FileSink) Checkpoint(epoch int, m model.Saver) error {
	if err := model.WriteWeightsToFile(s.CheckpointPath(epoch), m); err != nil {
		return fmt.Errorf("checkpoint epoch %d: %w", epoch, err)
	}
	return nil
}

// Points plots the collocation points of a run.
func (s *FileSink) Points(c dataset.Collocation) error {
	p := plot.New()
	p.Title.Text = "Positions of collocation points and boundary data"
	p.X.Label.Text = "t"
	p.Y.Label.Text = "x"
	groups := []struct {
		name  string
		pts   []dataset.Point
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"initial", c.Initial, plotutil.Color(0), draw.CrossGlyph{}},
		{"boundary", c.Boundary, plotutil.Color(1), draw.CrossGlyph{}},
		{"residual", c.Residual, color.RGBA{R: 200, A: 80}, draw.CircleGlyph{}},
	}
	for _, g := range groups {
		if len(g.pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(g.pts))
		for i, pt := range g.pts {
			xys[i].X = pt.T
			xys[i].Y = pt.X
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("scatter %s: %w", g.name, err)
		}
		sc.GlyphStyle.Color = g.color
		sc.GlyphStyle.Shape = g.shape
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(g.name, sc)
	}
	if err := p.Save(9*vg.Inch, 6*vg.Inch, filepath.Join(s.ResultsDir, "points.png")); err != nil {
		return fmt.Errorf("save points: %w", err)
	}
	return nil
}
