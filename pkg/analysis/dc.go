package analysis

import (
	"fmt"
	"log"
	"strings"

	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/device"
	"github.com/edp1096/toy-mna/pkg/mna"
)

// DCSweep re-solves the DC system while one source walks from begin to end.
// Only the right-hand side changes, so the factorization of the operating
// point is reused.
type DCSweep struct {
	BaseAnalysis
	sweep  circuit.DCSweep
	op     *OperatingPoint
	source *device.Element
}

func NewDCSweep(sweep circuit.DCSweep, op *OperatingPoint, config Config) *DCSweep {
	return &DCSweep{
		BaseAnalysis: *NewBaseAnalysis(config, strings.ToUpper(sweep.Source)),
		sweep:        sweep,
		op:           op,
	}
}

// Setup resolves the swept source. An unknown source discards the sweep
// with a warning.
func (dc *DCSweep) Setup(st *mna.State) error {
	dc.State = st

	el, ok := st.Circuit().Element(dc.sweep.Source)
	if !ok || !el.IsSource() {
		log.Printf("warning: .dc source %s not found, sweep discarded", dc.sweep.Source)
		dc.source = nil
		return nil
	}
	dc.source = el
	return nil
}

func (dc *DCSweep) Skipped() bool { return dc.source == nil }

func (dc *DCSweep) Execute() error {
	if dc.State == nil {
		return fmt.Errorf("dc sweep: not set up")
	}
	if dc.source == nil {
		return nil
	}
	lu := dc.op.Solver()
	if lu == nil {
		return fmt.Errorf("dc sweep: operating point not factored")
	}

	st := dc.State
	b := make([]float64, st.Dim)
	x := make([]float64, st.Dim)
	copy(b, st.B)
	copy(x, st.X)

	if err := st.AddSource(b, dc.source, dc.sweep.Begin-dc.source.Value); err != nil {
		return err
	}

	points := dc.sweep.Points()
	if dc.config.Debug {
		log.Printf("dc sweep %s: %g to %g step %g, %d points", dc.source.Name, dc.sweep.Begin, dc.sweep.End, dc.sweep.Step, points)
	}

	if err := dc.begin(); err != nil {
		return err
	}
	for k := 1; k <= points; k++ {
		if err := st.AddSource(b, dc.source, dc.sweep.Step); err != nil {
			return err
		}
		if err := lu.Solve(b, x); err != nil {
			return fmt.Errorf("dc sweep %s: %w", dc.source.Name, err)
		}
		at := dc.sweep.Begin + float64(k)*dc.sweep.Step
		if err := dc.emit(at, mna.Sweeping(dc.source, at), x); err != nil {
			return err
		}
	}

	return nil
}
