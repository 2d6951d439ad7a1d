package sindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// fmtVerbs are the recognized %-directives: file path, line, column,
// context, symbol name, access mode, kind character and source line text.
const fmtVerbs = "flcCnmks"

// segment is one compiled template piece: a literal run when verb is zero,
// otherwise a field directive.
type segment struct {
	verb byte
	lit  string
}

// Format is a compiled output template. Literal characters pass through; a
// backslash escapes \t, \r and \n (any other escaped character is literal);
// a percent sign consumes exactly one directive character.
type Format struct {
	template string
	segs     []segment
}

// Template parser states.
const (
	stLiteral = iota
	stEscape
	stDirective
)

// ParseFormat compiles a format template. An unknown or dangling directive
// is a FormatError; a trailing lone backslash is kept literally.
func ParseFormat(template string) (*Format, error) {
	f := &Format{template: template}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			f.segs = append(f.segs, segment{lit: lit.String()})
			lit.Reset()
		}
	}

	state := stLiteral
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch state {
		case stEscape:
			switch c {
			case 't':
				c = '\t'
			case 'r':
				c = '\r'
			case 'n':
				c = '\n'
			}
			lit.WriteByte(c)
			state = stLiteral
		case stDirective:
			if strings.IndexByte(fmtVerbs, c) < 0 {
				return nil, &FormatError{Template: template, Pos: i,
					Reason: fmt.Sprintf("invalid format specification %%%c", c)}
			}
			flush()
			f.segs = append(f.segs, segment{verb: c})
			state = stLiteral
		default:
			switch c {
			case '\\':
				state = stEscape
			case '%':
				state = stDirective
			default:
				lit.WriteByte(c)
			}
		}
	}
	switch state {
	case stDirective:
		return nil, &FormatError{Template: template, Pos: len(template),
			Reason: "unexpected end of format string"}
	case stEscape:
		lit.WriteByte('\\')
	}
	flush()
	return f, nil
}

// Template returns the source text the format was compiled from.
func (f *Format) Template() string { return f.template }

// Printer renders query rows with a compiled format, one line per row. When
// the format contains %s, rows must arrive in ascending (file, line, column)
// order: source text is fetched with a single forward-only scan per file.
type Printer struct {
	format *Format
	out    io.Writer
	src    sourceScanner
}

func NewPrinter(f *Format, out io.Writer) *Printer {
	return &Printer{format: f, out: out}
}

// Print writes one formatted line for row.
func (p *Printer) Print(row Row) error {
	var b strings.Builder
	for _, seg := range p.format.segs {
		if seg.verb == 0 {
			b.WriteString(seg.lit)
			continue
		}
		switch seg.verb {
		case 'f':
			b.WriteString(row.File)
		case 'l':
			b.WriteString(strconv.Itoa(row.Line))
		case 'c':
			b.WriteString(strconv.Itoa(row.Col))
		case 'C':
			b.WriteString(row.Context)
		case 'n':
			b.WriteString(row.Symbol)
		case 'm':
			b.WriteString(row.Mode.String())
		case 'k':
			b.WriteByte(byte(row.Kind))
		case 's':
			text, err := p.src.line(row.File, row.Line)
			if err != nil {
				return err
			}
			b.WriteString(text)
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(p.out, b.String())
	return err
}

// Close releases the source file held open between rows.
func (p *Printer) Close() error { return p.src.close() }

// sourceScanner reads source lines in the order the sort invariant delivers
// them: the current file stays open and the cursor only moves forward. A
// request for the line just read returns the buffered text, so several
// records on one line cost one read.
type sourceScanner struct {
	name string
	f    *os.File
	r    *bufio.Reader
	lnum int
	last string
}

func (s *sourceScanner) line(name string, lnum int) (string, error) {
	if s.f == nil || s.name != name {
		if err := s.close(); err != nil {
			return "", err
		}
		f, err := os.Open(name)
		if err != nil {
			return "", fmt.Errorf("source line: %w", err)
		}
		s.name = name
		s.f = f
		s.r = bufio.NewReader(f)
		s.lnum = 0
		s.last = ""
	}
	if lnum == s.lnum {
		return s.last, nil
	}
	for s.lnum < lnum {
		text, err := s.r.ReadString('\n')
		if err == io.EOF && text == "" {
			// The file is shorter than the recorded line; print nothing.
			s.lnum = lnum
			s.last = ""
			return "", nil
		}
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("source line: read %s: %w", name, err)
		}
		s.lnum++
		s.last = strings.TrimSuffix(text, "\n")
	}
	return s.last, nil
}

func (s *sourceScanner) close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.r = nil, nil
	s.name = ""
	return err
}
