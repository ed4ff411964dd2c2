// Package equation extracts structured equation records from free-form
// model output.
//
// The expected layout is loose:
//
//	x^2 + y^2 = z^2 - Pythagorean theorem - <math>...</math>
//	Symbols: x, y, z
//
// A line with exactly two " - " delimiters starts a record (LaTeX,
// description, MathML). A following "Symbols:" line adds comma-separated
// symbols to the most recent record. Everything else is ignored, so garbage
// input produces an empty or partial list rather than an error.
package equation

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	// MaxEquations caps the number of records a single parse produces.
	MaxEquations = 10

	fieldDelimiter  = " - "
	symbolsMarker   = "Symbols:"
	symbolSeparator = ", "

	maxLineBytes = 1 << 20
)

// ParseError reports that the input could not be read at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("equation parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Equation is one formula extracted from generated text.
type Equation struct {
	LaTeX       string
	Description string
	MathML      string

	symbols map[string]struct{}
}

// New returns an equation with trimmed fields and an empty symbol set.
func New(latex, description, mathML string) *Equation {
	return &Equation{
		LaTeX:       strings.TrimSpace(latex),
		Description: strings.TrimSpace(description),
		MathML:      strings.TrimSpace(mathML),
		symbols:     make(map[string]struct{}),
	}
}

// AddSymbols unions the given tokens into the symbol set. Tokens are trimmed
// and empty ones are dropped; the set never shrinks.
func (e *Equation) AddSymbols(tokens ...string) {
	if e.symbols == nil {
		e.symbols = make(map[string]struct{}, len(tokens))
	}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		e.symbols[tok] = struct{}{}
	}
}

// Symbols returns the symbol set in sorted order.
func (e *Equation) Symbols() []string {
	out := make([]string, 0, len(e.symbols))
	for s := range e.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HasSymbol reports whether s is in the symbol set.
func (e *Equation) HasSymbol(s string) bool {
	_, ok := e.symbols[s]
	return ok
}

type equationJSON struct {
	LaTeX       string   `json:"latex"`
	Description string   `json:"description"`
	MathML      string   `json:"mathml"`
	Symbols     []string `json:"symbols"`
}

// MarshalJSON encodes the equation with its symbols as a sorted array.
func (e Equation) MarshalJSON() ([]byte, error) {
	return json.Marshal(equationJSON{
		LaTeX:       e.LaTeX,
		Description: e.Description,
		MathML:      e.MathML,
		Symbols:     e.Symbols(),
	})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (e *Equation) UnmarshalJSON(data []byte) error {
	var raw equationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = *New(raw.LaTeX, raw.Description, raw.MathML)
	e.AddSymbols(raw.Symbols...)
	return nil
}

// Parse reads r line by line and returns the equations found, in order.
// It fails only when r is nil or reading from it fails. Lines longer than
// maxLineBytes are skipped like any other unrecognised line.
func Parse(r io.Reader) ([]Equation, error) {
	if r == nil {
		return nil, &ParseError{Err: errors.New("nil input")}
	}

	reader := bufio.NewReader(r)
	var (
		out     []Equation
		current *Equation
		started int
	)
	for {
		line, skip, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		if skip {
			continue
		}

		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), symbolsMarker); ok {
			if current != nil {
				current.AddSymbols(strings.Split(rest, symbolSeparator)...)
			}
			continue
		}

		// Count on the raw line: an empty leading or trailing field leaves a
		// delimiter at the line edge.
		if strings.Count(line, fieldDelimiter) != 2 {
			continue
		}
		fields := strings.Split(line, fieldDelimiter)
		if len(fields) != 3 {
			continue
		}

		started++
		if started > MaxEquations {
			// Past the cap: drop this record and anything attached to it.
			current = nil
			continue
		}
		out = append(out, *New(fields[0], fields[1], fields[2]))
		current = &out[len(out)-1]
	}
	if out == nil {
		out = []Equation{}
	}
	return out, nil
}

// readLine returns the next line without its line ending. A line longer than
// maxLineBytes is consumed and reported with the skip flag set. io.EOF is
// returned only once no more lines remain.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	read, skip := false, false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && read {
				return string(buf), skip, nil
			}
			return "", false, err
		}
		read = true
		if !skip {
			if len(buf)+len(chunk) > maxLineBytes {
				skip = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), skip, nil
		}
	}
}

// ParseString parses in-memory text. Reading a string cannot fail.
func ParseString(s string) []Equation {
	eqs, err := Parse(strings.NewReader(s))
	if err != nil {
		return []Equation{}
	}
	return eqs
}
