package ptd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/errors"
)

// ParseError reports a structural problem in a PTD export, pointing at the
// line that could not be understood.
type ParseError struct {
	Line int    // 1-based line number
	Raw  string // offending line, trimmed
	Msg  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("ptd: line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("ptd: line %d: %s: %q", e.Line, e.Msg, e.Raw)
}

// Code implements errors.Coder.
func (e *ParseError) Code() errors.Code {
	return errors.ErrCodeParse
}

// Source units are metres; the models use millimetres.
const metresToMM = 1000.0

var (
	tendonNoRe = regexp.MustCompile(`^Tendon No\.\s*(\d+)`)
	lengthRe   = regexp.MustCompile(`^Length\s*:\s*([0-9.eE+-]+)m`)
	coordsRe   = regexp.MustCompile(`start:\s*\(\s*([0-9.eE+-]+)\s*,\s*([0-9.eE+-]+)\s*\)\s*end:\s*\(\s*([0-9.eE+-]+)\s*,\s*([0-9.eE+-]+)\s*\)`)
	typeRe     = regexp.MustCompile(`^Type\s*:\s*(\d+)`)
	strandTyRe = regexp.MustCompile(`^Type of strands\s*:\s*([0-9.eE+-]+)`)
	strandNoRe = regexp.MustCompile(`^Number of strands\s*:\s*(\d+)`)
	endRe      = regexp.MustCompile(`^(Start|End)\s*:\s*(.+?)\s*$`)
	profileRe  = regexp.MustCompile(`^No\.\s*,`)
)

// Parse reads a PTD export from r and returns the tendons in file order.
// Coordinates, lengths and profile stations are converted from the export's
// metres to millimetres. The first malformed line aborts with a ParseError.
func Parse(r io.Reader) (TendonSet, error) {
	p := &parser{scanner: bufio.NewScanner(r)}
	return p.run()
}

// ParseFile opens path and parses it as a PTD export.
func ParseFile(path string) (TendonSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open ptd file %s", path)
	}
	defer f.Close()
	return Parse(f)
}

type parser struct {
	scanner *bufio.Scanner
	line    int

	set     TendonSet
	current *Tendon
	inTable bool
}

func (p *parser) run() (TendonSet, error) {
	for p.scanner.Scan() {
		p.line++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" {
			continue
		}
		if err := p.consume(line); err != nil {
			return nil, err
		}
	}
	if err := p.scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "read ptd input")
	}
	if err := p.flush(); err != nil {
		return nil, err
	}
	if len(p.set) == 0 {
		return nil, &ParseError{Line: p.line, Msg: "no tendon records found"}
	}
	return p.set, nil
}

func (p *parser) consume(line string) error {
	if m := tendonNoRe.FindStringSubmatch(line); m != nil {
		if err := p.flush(); err != nil {
			return err
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return p.fail(line, "invalid tendon number")
		}
		p.current = &Tendon{ID: id, StartType: EndStress, EndType: EndDead}
		p.inTable = false
		return nil
	}

	if p.current == nil {
		// Header and preamble lines before the first record are ignored.
		return nil
	}

	if p.inTable {
		if ok, err := p.profileRow(line); ok || err != nil {
			return err
		}
		// Non-numeric line ends the table but may still be a record field.
		p.inTable = false
	}

	switch {
	case lengthRe.MatchString(line):
		m := lengthRe.FindStringSubmatch(line)
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return p.fail(line, "invalid tendon length")
		}
		p.current.Length = v * metresToMM

	case coordsRe.MatchString(line):
		m := coordsRe.FindStringSubmatch(line)
		vals := make([]float64, 4)
		for i, s := range m[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return p.fail(line, "invalid endpoint coordinate")
			}
			vals[i] = v * metresToMM
		}
		p.current.Start = orb.Point{vals[0], vals[1]}
		p.current.End = orb.Point{vals[2], vals[3]}

	case strandTyRe.MatchString(line):
		m := strandTyRe.FindStringSubmatch(line)
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return p.fail(line, "invalid strand type")
		}
		p.current.StrandType = v

	case strandNoRe.MatchString(line):
		m := strandNoRe.FindStringSubmatch(line)
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return p.fail(line, "invalid strand count")
		}
		p.current.StrandCount = n

	case typeRe.MatchString(line):
		m := typeRe.FindStringSubmatch(line)
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return p.fail(line, "invalid tendon type")
		}
		p.current.TendonType = n

	case endRe.MatchString(line):
		m := endRe.FindStringSubmatch(line)
		et, err := p.endType(line, m[2])
		if err != nil {
			return err
		}
		if m[1] == "Start" {
			p.current.StartType = et
		} else {
			p.current.EndType = et
		}

	case profileRe.MatchString(line):
		p.inTable = true
	}
	// Unrecognised lines between fields are commentary and skipped.
	return nil
}

// endType maps an end marker to its model value. Pan-stressed live ends are
// written either as an explicit "Pan End" marker or as a "Live End" on a
// type-2 tendon.
func (p *parser) endType(line, marker string) (EndType, error) {
	switch marker {
	case "Live End":
		if p.current.TendonType == 2 {
			return EndPan, nil
		}
		return EndStress, nil
	case "Pan End":
		return EndPan, nil
	case "Dead End":
		return EndDead, nil
	}
	return 0, p.fail(line, fmt.Sprintf("unknown end marker %q", marker))
}

// profileRow parses one "n, L, H, Rs, Rh" table row. Returns false when the
// line is not a row, which ends the table.
func (p *parser) profileRow(line string) (bool, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return false, nil
	}
	if _, err := strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
		return false, nil
	}
	dist, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return true, p.fail(line, "invalid profile distance")
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return true, p.fail(line, "invalid profile height")
	}
	p.current.Profile = append(p.current.Profile, ProfilePoint{
		Distance: dist * metresToMM,
		Height:   height * metresToMM,
	})
	return true, nil
}

// flush validates and commits the record under construction.
func (p *parser) flush() error {
	if p.current == nil {
		return nil
	}
	t := p.current
	p.current = nil
	p.inTable = false

	if t.Start == t.End {
		return p.fail("", fmt.Sprintf("tendon %d has missing or degenerate endpoint coordinates", t.ID))
	}
	if len(t.Profile) < 2 {
		return p.fail("", fmt.Sprintf("tendon %d has %d profile points, need at least 2", t.ID, len(t.Profile)))
	}
	if t.StrandCount <= 0 {
		return p.fail("", fmt.Sprintf("tendon %d has no strand count", t.ID))
	}
	p.set = append(p.set, t)
	return nil
}

func (p *parser) fail(raw, msg string) error {
	return &ParseError{Line: p.line, Raw: raw, Msg: msg}
}
