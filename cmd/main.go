package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"unsafe"

	"github.com/edp1096/toy-mna/pkg/analysis"
	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/device"
	"github.com/edp1096/toy-mna/pkg/mna"
	"github.com/edp1096/toy-mna/pkg/netlist"
	"github.com/edp1096/toy-mna/pkg/output"
	"github.com/edp1096/toy-mna/pkg/solver"
	"github.com/edp1096/toy-mna/pkg/util"
)

var (
	debug    = flag.Bool("d", false, "debug tracing and struct size dump")
	sparse   = flag.Bool("s", false, "force sparse matrix storage")
	outDir   = flag.String("o", ".", "directory of the .print/.plot log files")
	htmlFile = flag.String("html", "", "write an HTML waveform report to this file")
)

func getKeys(m map[string][]float64, axis string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != axis {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func printResults(axis string, results map[string][]float64) {
	names := getKeys(results, axis)

	// Operating point
	if axis == "OP" {
		fmt.Println("\nNode Voltages:")
		for _, name := range names {
			if strings.HasPrefix(name, "V(") {
				fmt.Printf("%s = %s\n", name, util.FormatValueFactor(results[name][0], "V"))
			}
		}
		fmt.Println("\nBranch Currents:")
		for _, name := range names {
			if strings.HasPrefix(name, "I(") {
				fmt.Printf("%s = %s\n", name, util.FormatValueFactor(results[name][0], "A"))
			}
		}
		return
	}

	// DC sweep or transient
	points := results[axis]
	unit := "s"
	if axis == "TIME" {
		fmt.Printf("\nTransient Analysis Results (%d time points):\n", len(points))
	} else {
		unit = util.UnitOf(axis)
		fmt.Printf("\nDC Sweep of %s (%d points):\n", axis, len(points))
	}
	fmt.Println("------------------------------------------------")

	for i, at := range points {
		fmt.Printf("%-12s", util.FormatValueFactor(at, unit))
		for _, name := range names {
			fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], util.UnitOf(name)))
		}
		fmt.Println()
	}
}

func dumpSizes() {
	fmt.Println("Struct sizes:")
	fmt.Printf("  device.Element  %4d bytes\n", unsafe.Sizeof(device.Element{}))
	fmt.Printf("  device.Node     %4d bytes\n", unsafe.Sizeof(device.Node{}))
	fmt.Printf("  circuit.Circuit %4d bytes\n", unsafe.Sizeof(circuit.Circuit{}))
	fmt.Printf("  mna.State       %4d bytes\n", unsafe.Sizeof(mna.State{}))
	fmt.Println()
}

func run(path string) error {
	// 1. Parse netlist
	ckt, err := netlist.ParseFile(path)
	if err != nil {
		return err
	}
	opts, err := ckt.ResolveOptions()
	if err != nil {
		return err
	}
	if *sparse {
		opts.Sparse = true
	}
	if *debug {
		fmt.Printf("Circuit: %s, %d nodes, %d elements\n", ckt.Title, ckt.NumNodes(), ckt.NumElements())
		ckt.Elements(func(el *device.Element) {
			fmt.Printf("  %s\n", el.Describe())
		})
	}

	// 2. Assemble the MNA system
	st, err := mna.Build(ckt, mna.Options{Sparse: opts.Sparse, Method: opts.Method, Debug: *debug})
	if err != nil {
		return err
	}
	if *debug {
		st.PrintSystem(os.Stdout)
	}

	// 3. Open the output files before any analysis
	wr, err := output.Open(*outDir, ckt, len(ckt.Sweeps) == 0 && ckt.Tran == nil)
	if err != nil {
		return err
	}
	defer wr.Close()

	config := analysis.Config{
		Solver: solver.Options{
			Method: solver.MethodFor(opts.SPD, opts.Iterative),
			Tol:    opts.ITol,
			Debug:  *debug,
		},
		Sink:  wr,
		Debug: *debug,
	}

	// 4. Operating point and DC sweeps share one factorization
	op := analysis.NewOP(config)
	if err := op.Setup(st); err != nil {
		return err
	}
	defer op.Release()
	if err := op.Execute(); err != nil {
		return err
	}
	printResults(op.Axis(), op.GetResults())

	for _, sweep := range ckt.Sweeps {
		dc := analysis.NewDCSweep(sweep, op, config)
		if err := dc.Setup(st); err != nil {
			return err
		}
		if err := dc.Execute(); err != nil {
			return err
		}
		if !dc.Skipped() {
			printResults(dc.Axis(), dc.GetResults())
		}
	}
	op.Release()

	// 5. Transient
	if ckt.Tran != nil {
		tr := analysis.NewTransient(*ckt.Tran, config)
		if err := tr.Setup(st); err != nil {
			return err
		}
		if err := tr.Execute(); err != nil {
			return err
		}
		printResults(tr.Axis(), tr.GetResults())
	}

	// 6. Flush logs, plots and the report
	if err := wr.Close(); err != nil {
		return err
	}
	if *htmlFile != "" {
		f, err := os.Create(*htmlFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := wr.Report(f, ckt.Title); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("Usage: toy-mna [-d] [-s] [-o dir] [-html file] <netlist_file>")
	}
	if *debug {
		dumpSizes()
	}

	if err := run(flag.Arg(0)); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
