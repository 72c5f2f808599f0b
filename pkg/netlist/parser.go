package netlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/device"
)

var ErrSyntax = errors.New("netlist: syntax error")

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|MEG|Meg|[TGKkmunpf])?s?$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ParseValue - Parse value and factor. 1k -> 1000
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if unit := matches[2]; unit != "" {
		if strings.EqualFold(unit, "meg") {
			unit = "meg"
		}
		num *= unitMap[unit]
	}

	return num, nil
}

func ParseFile(path string) (*circuit.Circuit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseReader(f)
}

func Parse(input string) (*circuit.Circuit, error) {
	return ParseReader(strings.NewReader(input))
}

// ParseReader reads a netlist. The first line is the title, '*' starts a
// comment and a leading '+' continues the previous line. Parsing stops at
// .end.
func ParseReader(r io.Reader) (*circuit.Circuit, error) {
	scanner := bufio.NewScanner(r)
	p := &parser{}

	// Title or comment
	if scanner.Scan() {
		title := strings.TrimPrefix(scanner.Text(), "*")
		p.b = circuit.NewBuilder(strings.TrimSpace(title))
	} else {
		return nil, fmt.Errorf("%w: empty netlist", ErrSyntax)
	}

	var currentLine string
	lineNo, startNo := 1, 0

	flush := func() error {
		if currentLine == "" {
			return nil
		}
		err := p.parseLine(currentLine)
		currentLine = ""
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrSyntax, startNo, err)
		}
		return nil
	}

	for scanner.Scan() && !p.done {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Inline comment
		if idx := strings.Index(line, "*"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if len(line) == 0 {
			continue
		}

		// Line continue
		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, fmt.Errorf("%w: line %d: continuation without a previous line", ErrSyntax, lineNo)
			}
			currentLine += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		currentLine = line
		startNo = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return p.b.Finalize()
}

type parser struct {
	b    *circuit.Builder
	done bool
}

func (p *parser) parseLine(line string) error {
	if p.done {
		return nil
	}
	line = spaceRe.ReplaceAllString(line, " ")

	if strings.HasPrefix(line, ".") {
		return p.parseDotOperator(line)
	}
	return p.parseElement(line)
}

// Parse .option, .dc, .tran, .print, .plot, .end
func (p *parser) parseDotOperator(line string) error {
	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case ".option", ".options":
		for _, f := range fields[1:] {
			key, value, _ := strings.Cut(f, "=")
			key = strings.ToLower(key)
			switch key {
			case "spd", "iter", "sparse":
			case "itol":
				v, err := ParseValue(value)
				if err != nil {
					return fmt.Errorf("invalid itol: %v", err)
				}
				value = strconv.FormatFloat(v, 'g', -1, 64)
			case "method":
				value = strings.ToLower(value)
				if value != "tr" && value != "be" {
					return fmt.Errorf("unknown integration method: %s", value)
				}
			default:
				return fmt.Errorf("unknown option: %s", key)
			}
			p.b.AddOption(key, value)
		}

	case ".dc":
		if len(fields) < 5 {
			return fmt.Errorf("insufficient DC sweep parameters")
		}
		vals, err := parseValues(fields[2:5])
		if err != nil {
			return fmt.Errorf("invalid DC sweep: %v", err)
		}
		p.b.AddSweep(circuit.DCSweep{Source: fields[1], Begin: vals[0], End: vals[1], Step: vals[2]})

	case ".tran":
		if len(fields) < 3 {
			return fmt.Errorf("insufficient tran parameters, need time step and final time")
		}
		vals, err := parseValues(fields[1:3])
		if err != nil {
			return fmt.Errorf("invalid tran: %v", err)
		}
		return p.b.SetTran(circuit.Tran{Step: vals[0], Fin: vals[1]})

	case ".print", ".plot":
		kind := circuit.PrintTable
		if strings.EqualFold(fields[0], ".plot") {
			kind = circuit.PrintPlot
		}
		if len(fields) < 2 {
			return fmt.Errorf("%s without outputs", fields[0])
		}
		probes := make([]circuit.Probe, 0, len(fields)-1)
		for _, f := range fields[1:] {
			probe, err := circuit.ParseProbe(f)
			if err != nil {
				return err
			}
			probes = append(probes, probe)
		}
		p.b.AddPrint(kind, probes)

	case ".op":
		// the operating point is always computed

	case ".model":
		log.Printf("warning: %s ignored, nonlinear models are not simulated", line)

	case ".end":
		p.done = true

	default:
		return fmt.Errorf("unsupported directive: %s", fields[0])
	}

	return nil
}

// Parse circuit element
func (p *parser) parseElement(line string) error {
	// Keep waveform argument lists as separate words
	line = strings.ReplaceAll(line, "(", " ( ")
	line = strings.ReplaceAll(line, ")", " ) ")
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return fmt.Errorf("invalid element format: %s", line)
	}

	name := fields[0]
	kind, err := device.KindOf(name[0])
	if err != nil {
		return err
	}
	el := device.Element{Name: name, Kind: kind, Tag: name[0] | 0x20}

	var nodes []string
	switch kind {
	case device.Unsupported:
		nodes, err = parseNonlinear(&el, fields[1:])

	case device.VoltageSource, device.CurrentSource:
		if len(fields) < 4 {
			return fmt.Errorf("insufficient source parameters: %s", name)
		}
		nodes = fields[1:3]
		err = parseSource(&el, fields[3:])

	default:
		if len(fields) != 4 {
			return fmt.Errorf("element %s: need two nodes and a value", name)
		}
		nodes = fields[1:3]
		el.Value, err = ParseValue(fields[3])
	}
	if err != nil {
		return fmt.Errorf("element %s: %v", name, err)
	}

	_, err = p.b.AddElement(el, nodes)
	return err
}

// parseSource handles "[DC] value [waveform(...)]" and "waveform(...)".
func parseSource(el *device.Element, words []string) error {
	hasValue := false
	if strings.EqualFold(words[0], "dc") {
		words = words[1:]
		if len(words) == 0 {
			return fmt.Errorf("missing DC value")
		}
	}
	if v, err := ParseValue(words[0]); err == nil {
		el.Value = v
		hasValue = true
		words = words[1:]
	}
	if len(words) == 0 {
		if !hasValue {
			return fmt.Errorf("missing source value")
		}
		return nil
	}

	kind := strings.ToUpper(words[0])
	params := strings.Join(words[1:], " ")
	params = strings.Trim(params, "() ")
	if strings.ContainsAny(params, "()") {
		return fmt.Errorf("unexpected text after %s parameters", kind)
	}

	w, err := parseWaveform(kind, params)
	if err != nil {
		return err
	}
	el.Waveform = w
	if !hasValue {
		el.Value = w.Value(0)
	}
	return nil
}

func parseWaveform(kind, params string) (device.Waveform, error) {
	vals, err := parseValues(strings.Fields(params))
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameters: %v", kind, err)
	}

	switch kind {
	case "EXP":
		if len(vals) != 6 {
			return nil, fmt.Errorf("EXP needs i1 i2 td1 tc1 td2 tc2")
		}
		if vals[3] <= 0 || vals[5] <= 0 {
			return nil, fmt.Errorf("EXP time constants must be positive")
		}
		return device.Exp{I1: vals[0], I2: vals[1], Td1: vals[2], Tc1: vals[3], Td2: vals[4], Tc2: vals[5]}, nil

	case "SIN":
		if len(vals) < 3 || len(vals) > 6 {
			return nil, fmt.Errorf("SIN needs i1 ia fr [td [df [ph]]]")
		}
		padded := make([]float64, 6)
		copy(padded, vals)
		return device.Sin{I1: padded[0], Ia: padded[1], Fr: padded[2], Td: padded[3], Df: padded[4], Ph: padded[5]}, nil

	case "PULSE":
		if len(vals) != 7 {
			return nil, fmt.Errorf("PULSE needs i1 i2 td tr tf pw per")
		}
		if vals[3] < 0 || vals[4] < 0 || vals[5] < 0 {
			return nil, fmt.Errorf("PULSE edge and width times must not be negative")
		}
		return device.Pulse{I1: vals[0], I2: vals[1], Td: vals[2], Tr: vals[3], Tf: vals[4], Pw: vals[5], Per: vals[6]}, nil

	case "PWL":
		if len(vals) < 2 || len(vals)%2 != 0 {
			return nil, fmt.Errorf("PWL needs time-value pairs")
		}
		times := make([]float64, 0, len(vals)/2)
		values := make([]float64, 0, len(vals)/2)
		for i := 0; i < len(vals); i += 2 {
			times = append(times, vals[i])
			values = append(values, vals[i+1])
		}
		return device.NewPWL(times, values)
	}

	return nil, fmt.Errorf("unsupported source type: %s", kind)
}

// parseNonlinear reads Q, M and D lines far enough to report them.
func parseNonlinear(el *device.Element, fields []string) ([]string, error) {
	pins := map[byte]int{'q': 3, 'm': 4, 'd': 2}[el.Tag]
	if len(fields) < pins {
		return nil, fmt.Errorf("need %d nodes", pins)
	}

	nodes := fields[:pins]
	el.Params = make(map[string]float64)
	for _, f := range fields[pins:] {
		if key, value, ok := strings.Cut(f, "="); ok {
			v, err := ParseValue(value)
			if err != nil {
				return nil, err
			}
			el.Params[strings.ToLower(key)] = v
			continue
		}
		if v, err := ParseValue(f); err == nil {
			el.Params["area"] = v
			continue
		}
		if el.Model != "" {
			return nil, fmt.Errorf("unexpected field: %s", f)
		}
		el.Model = f
	}

	return nodes, nil
}

func parseValues(words []string) ([]float64, error) {
	vals := make([]float64, len(words))
	for i, w := range words {
		v, err := ParseValue(w)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
