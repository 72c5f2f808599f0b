package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// renderPlots saves one PNG per recorded run, named after the log file and
// the swept axis: plot2_time.png, plot2_v1.png.
func (c *channel) renderPlots(dir string) error {
	for _, s := range c.series {
		if len(s.At) == 0 {
			continue
		}
		name := fmt.Sprintf("%s%d_%s.png", c.directive.Kind, c.directive.Index, strings.ToLower(s.Axis))
		if err := s.SavePNG(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("plot %d: %w", c.directive.Index, err)
		}
	}
	return nil
}

// SavePNG draws every probe of the run against its axis.
func (s *Series) SavePNG(file string) error {
	p := plot.New()
	p.Title.Text = strings.Join(s.Names, ", ")
	p.X.Label.Text = s.Axis
	p.Y.Label.Text = "value"
	p.Add(plotter.NewGrid())

	for i, name := range s.Names {
		xys := make(plotter.XYs, len(s.At))
		for k, at := range s.At {
			xys[k].X = at
			xys[k].Y = s.Values[i][k]
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}
