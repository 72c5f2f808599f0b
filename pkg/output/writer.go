package output

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edp1096/toy-mna/pkg/analysis"
	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/mna"
	"github.com/edp1096/toy-mna/pkg/util"
)

var _ analysis.Sink = (*Writer)(nil)

// Series holds the probe values of one sweep or transient run.
type Series struct {
	Axis   string
	Names  []string
	At     []float64
	Values [][]float64 // [probe][point]
}

type channel struct {
	directive circuit.PrintDirective
	path      string
	file      *os.File
	w         *bufio.Writer
	series    []*Series
}

// Writer owns one log file per .print/.plot directive. Files are created
// by Open and stay open until Close.
type Writer struct {
	dir      string
	channels []*channel
	opLines  bool
}

// Open creates the log files of every directive in dir. With opLines set
// the operating point is written to them, which is what a run without
// sweeps or transient wants.
func Open(dir string, ckt *circuit.Circuit, opLines bool) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	wr := &Writer{dir: dir, opLines: opLines}
	for _, d := range ckt.Prints {
		path := filepath.Join(dir, fmt.Sprintf("%s%d.log", d.Kind, d.Index))
		f, err := os.Create(path)
		if err != nil {
			wr.Close()
			return nil, err
		}
		wr.channels = append(wr.channels, &channel{
			directive: d,
			path:      path,
			file:      f,
			w:         bufio.NewWriter(f),
		})
	}
	return wr, nil
}

// Paths lists the log files in directive order.
func (wr *Writer) Paths() []string {
	paths := make([]string, len(wr.channels))
	for i, c := range wr.channels {
		paths[i] = c.path
	}
	return paths
}

// Series returns the recorded runs of the directive at position i.
func (wr *Writer) Series(i int) []*Series {
	return wr.channels[i].series
}

func (wr *Writer) OperatingPoint(st *mna.State, x []float64) error {
	if !wr.opLines {
		return nil
	}
	for _, c := range wr.channels {
		for _, p := range c.directive.Probes {
			v, err := st.Probe(p, x, mna.Excitation{})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(c.w, util.FormatOperatingPoint(p.Name(), v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wr *Writer) Begin(axis string) error {
	for _, c := range wr.channels {
		s := &Series{
			Axis:   axis,
			Names:  make([]string, len(c.directive.Probes)),
			Values: make([][]float64, len(c.directive.Probes)),
		}
		for i, p := range c.directive.Probes {
			s.Names[i] = p.Name()
		}
		c.series = append(c.series, s)
	}
	return nil
}

func (wr *Writer) Point(at float64, ex mna.Excitation, st *mna.State, x []float64) error {
	for _, c := range wr.channels {
		if len(c.series) == 0 {
			return fmt.Errorf("output: point at %g outside of a run", at)
		}
		s := c.series[len(c.series)-1]

		s.At = append(s.At, at)
		for i, p := range c.directive.Probes {
			v, err := st.Probe(p, x, ex)
			if err != nil {
				return err
			}
			s.Values[i] = append(s.Values[i], v)
			if _, err := fmt.Fprintln(c.w, util.FormatPoint(p.Name(), at, v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes and closes every log file, then renders the PNG of each
// .plot directive. It is safe to call more than once.
func (wr *Writer) Close() error {
	var errs []error
	for _, c := range wr.channels {
		if c.file == nil {
			continue
		}
		if err := c.w.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := c.file.Close(); err != nil {
			errs = append(errs, err)
		}
		c.file = nil

		if c.directive.Kind == circuit.PrintPlot {
			if err := c.renderPlots(wr.dir); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
