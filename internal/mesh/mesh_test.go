package mesh

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fort14 = `gulf test mesh
2 4
1 -90.0 25.0 10.5
2 -89.5 25.0 12.0
3 -89.5 25.5 8.25
4 -90.0 25.5 3.0
1 3 1 2 3
2 3 1 3 4
1 = number of open boundaries
`

func TestReadADCIRC(t *testing.T) {
	m, err := ReadADCIRC(strings.NewReader(fort14), "fort.14")
	require.NoError(t, err)

	assert.Equal(t, "gulf test mesh", m.Name)
	require.Len(t, m.Nodes, 4)
	require.Len(t, m.Elements, 2)
	assert.Equal(t, Node{ID: 3, Point: domain.Point{Lon: -89.5, Lat: 25.5}, Depth: 8.25}, m.Nodes[2])
	assert.Equal(t, Element{ID: 2, Nodes: [3]int{1, 3, 4}}, m.Elements[1])

	want := []domain.Point{{Lon: -90, Lat: 25}, {Lon: -89.5, Lat: 25}, {Lon: -89.5, Lat: 25.5}, {Lon: -90, Lat: 25.5}}
	if diff := cmp.Diff(want, m.Targets()); diff != "" {
		t.Errorf("Targets mismatch (-want +got):\n%s", diff)
	}
}

func TestReadADCIRC_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"missing counts", "name\n", "unexpected end of file"},
		{"bad counts", "name\nfour 2\n", "expected \"<elements> <nodes>\""},
		{"short node table", "name\n0 3\n1 0 0 1\n2 1 0 1\n", "expected node"},
		{"short node line", "name\n0 1\n1 0 0\n", "node line needs 4 columns"},
		{"duplicate node", "name\n0 2\n1 0 0 1\n1 1 0 1\n", "duplicate node id 1"},
		{"quad element", "name\n1 4\n1 0 0 1\n2 1 0 1\n3 1 1 1\n4 0 1 1\n1 4 1 2 3 4\n", "unsupported type 4"},
		{"unknown node", "name\n1 3\n1 0 0 1\n2 1 0 1\n3 1 1 1\n1 3 1 2 9\n", "unknown node 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadADCIRC(strings.NewReader(tt.input), "fort.14")
			require.ErrorIs(t, err, domain.ErrMalformedRecord)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestWriteADCIRC_RoundTrip(t *testing.T) {
	m, err := ReadADCIRC(strings.NewReader(fort14), "fort.14")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteADCIRC(&buf, m))
	back, err := ReadADCIRC(&buf, "written")
	require.NoError(t, err)
	if diff := cmp.Diff(m, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fort.14")
	require.NoError(t, os.WriteFile(path, []byte(fort14), 0o644))

	m, err := Load(path, domain.MeshAdcirc)
	require.NoError(t, err)
	assert.Len(t, m.Nodes, 4)

	_, err = Load(path, domain.MeshFormat(99))
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = Load(filepath.Join(t.TempDir(), "missing.14"), domain.MeshAdcirc)
	assert.Error(t, err)
}
