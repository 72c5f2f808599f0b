package analysis

import (
	"github.com/edp1096/toy-mna/pkg/mna"
	"github.com/edp1096/toy-mna/pkg/solver"
)

type Analysis interface {
	Setup(st *mna.State) error
	Execute() error
	GetResults() map[string][]float64
}

// Sink receives every solved point. The output writer implements it.
// Begin opens a new series swept over axis; the points that follow belong
// to it. ex tells which source values produced x.
type Sink interface {
	OperatingPoint(st *mna.State, x []float64) error
	Begin(axis string) error
	Point(at float64, ex mna.Excitation, st *mna.State, x []float64) error
}

type Config struct {
	Solver solver.Options
	Sink   Sink // may be nil
	Debug  bool
}

type BaseAnalysis struct {
	State   *mna.State
	config  Config
	axis    string               // key of the swept variable: TIME or the source name
	results map[string][]float64 // key: variable name, value: result by point
}

func NewBaseAnalysis(config Config, axis string) *BaseAnalysis {
	return &BaseAnalysis{
		config:  config,
		axis:    axis,
		results: make(map[string][]float64),
	}
}

func (a *BaseAnalysis) Axis() string { return a.axis }

// StoreResult appends the swept value and every unknown of x.
func (a *BaseAnalysis) StoreResult(at float64, x []float64) {
	a.results[a.axis] = append(a.results[a.axis], at)
	for i, v := range x {
		name := a.State.UnknownName(i)
		a.results[name] = append(a.results[name], v)
	}
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

func (a *BaseAnalysis) begin() error {
	if a.config.Sink == nil {
		return nil
	}
	return a.config.Sink.Begin(a.axis)
}

func (a *BaseAnalysis) emit(at float64, ex mna.Excitation, x []float64) error {
	a.StoreResult(at, x)
	if a.config.Sink == nil {
		return nil
	}
	return a.config.Sink.Point(at, ex, a.State, x)
}
