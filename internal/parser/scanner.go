// Package parser holds the line-oriented reading shared by the archive parsers:
// line numbering for diagnostics and counted value blocks that continue across lines.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
)

const maxLineBytes = 4 << 20

// Layouts of the archive timestamps.
const (
	MinuteLayout = "200601021504" // YYYYMMDDhhmm
	HourLayout   = "2006010215"   // YYYYMMDDhh
)

// Scanner reads an archive line by line and reports failures as
// *domain.MalformedRecordError carrying the source and line number.
type Scanner struct {
	sc     *bufio.Scanner
	source string
	line   int
	peeked *string
}

// NewScanner wraps r. source names the file in diagnostics.
func NewScanner(r io.Reader, source string) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Scanner{sc: sc, source: source}
}

// Source returns the name used in diagnostics.
func (s *Scanner) Source() string { return s.source }

// LineNo returns the number of the line most recently returned.
func (s *Scanner) LineNo() int { return s.line }

// Errorf builds a malformed-record error at the current line.
func (s *Scanner) Errorf(format string, args ...any) error {
	return domain.Malformed(s.source, s.line, format, args...)
}

// Next returns the next line. what describes the expected content for the
// end-of-file diagnostic.
func (s *Scanner) Next(what string) (string, error) {
	if s.peeked != nil {
		line := *s.peeked
		s.peeked = nil
		s.line++
		return line, nil
	}
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", fmt.Errorf("read %s: %w", s.source, err)
		}
		return "", domain.Malformed(s.source, s.line+1, "unexpected end of file, expected %s", what)
	}
	s.line++
	return strings.TrimRight(s.sc.Text(), "\r"), nil
}

// Peek reports whether another non-blank line follows, without consuming it.
func (s *Scanner) Peek() (bool, error) {
	if s.peeked != nil {
		return true, nil
	}
	for s.sc.Scan() {
		text := strings.TrimRight(s.sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			s.line++
			continue
		}
		s.peeked = &text
		return true, nil
	}
	return false, s.sc.Err()
}

// Skip discards one line.
func (s *Scanner) Skip(what string) error {
	_, err := s.Next(what)
	return err
}

// Int reads a line whose first field is an integer.
func (s *Scanner) Int(what string) (int, error) {
	line, err := s.Next(what)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, s.Errorf("expected %s, got blank line", what)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, s.Errorf("expected %s, got %q", what, fields[0])
	}
	return n, nil
}

// Floats reads exactly n values spread over as many lines as needed. clean, if
// non-nil, is applied to each line before splitting. A line that carries values
// beyond n, or an unparsable token, is malformed.
func (s *Scanner) Floats(n int, what string, clean func(string) string) ([]float64, error) {
	if n < 0 {
		return nil, s.Errorf("negative %s count %d", what, n)
	}
	values := make([]float64, 0, n)
	for len(values) < n {
		line, err := s.Next(fmt.Sprintf("%d more %s values", n-len(values), what))
		if err != nil {
			return nil, err
		}
		if clean != nil {
			line = clean(line)
		}
		fields := strings.Fields(line)
		if len(values)+len(fields) > n {
			return nil, s.Errorf("%s count is %d but %d values are present", what, n, len(values)+len(fields))
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, s.Errorf("%s count is %d but only %d values precede %q", what, n, len(values), f)
			}
			values = append(values, v)
		}
	}
	return values, nil
}

// ParseMinute parses a 12-digit YYYYMMDDhhmm stamp as UTC.
func ParseMinute(token string) (time.Time, error) {
	return time.Parse(MinuteLayout, token)
}

// ParseHour parses a 10-digit YYYYMMDDhh stamp as UTC.
func ParseHour(token string) (time.Time, error) {
	return time.Parse(HourLayout, token)
}

// FormatFloat renders v with the fewest digits that parse back exactly.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteValues writes values perLine to a line, each prefixed by a space.
func WriteValues(w io.Writer, values []float64, perLine int, format func(float64) string) error {
	var b strings.Builder
	for i, v := range values {
		b.WriteByte(' ')
		b.WriteString(format(v))
		if (i+1)%perLine == 0 || i == len(values)-1 {
			b.WriteByte('\n')
			if _, err := io.WriteString(w, b.String()); err != nil {
				return err
			}
			b.Reset()
		}
	}
	return nil
}
