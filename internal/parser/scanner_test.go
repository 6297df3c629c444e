package parser

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_FloatsAcrossLines(t *testing.T) {
	s := NewScanner(strings.NewReader("3\n1.5 2.5\n\n-3e2\nnext\n"), "block.txt")

	n, err := s.Int("count")
	require.NoError(t, err)
	values, err := s.Floats(n, "value", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, -300}, values)
	assert.Equal(t, 4, s.LineNo())

	line, err := s.Next("trailer")
	require.NoError(t, err)
	assert.Equal(t, "next", line)
}

func TestScanner_Errors(t *testing.T) {
	s := NewScanner(strings.NewReader("1 2 3\n"), "block.txt")
	_, err := s.Floats(2, "value", nil)
	require.ErrorIs(t, err, domain.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "block.txt:1")

	s = NewScanner(strings.NewReader("1\n"), "block.txt")
	_, err = s.Floats(2, "value", nil)
	require.ErrorIs(t, err, domain.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "unexpected end of file")

	s = NewScanner(strings.NewReader("abc\n"), "block.txt")
	_, err = s.Int("count")
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestScanner_PeekSkipsBlankLines(t *testing.T) {
	s := NewScanner(strings.NewReader("a\r\n\n\nb\n\n"), "peek.txt")

	line, err := s.Next("first")
	require.NoError(t, err)
	assert.Equal(t, "a", line)

	more, err := s.Peek()
	require.NoError(t, err)
	assert.True(t, more)

	line, err = s.Next("second")
	require.NoError(t, err)
	assert.Equal(t, "b", line)
	assert.Equal(t, 4, s.LineNo())

	more, err = s.Peek()
	require.NoError(t, err)
	assert.False(t, more)
}

func TestWriteValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteValues(&buf, []float64{1, 2.5, -3, 4}, 3, FormatFloat))
	assert.Equal(t, " 1 2.5 -3\n 4\n", buf.String())
}

func TestParseStamps(t *testing.T) {
	ts, err := ParseMinute("200809120345")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2008, 9, 12, 3, 45, 0, 0, time.UTC), ts)

	ts, err = ParseHour("2008091203")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2008, 9, 12, 3, 0, 0, 0, time.UTC), ts)
}
