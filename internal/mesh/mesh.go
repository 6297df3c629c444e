// Package mesh reads the ocean model mesh whose nodes are the forcing targets.
package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

// Node is one mesh vertex. Depth is carried through but unused by forcing.
type Node struct {
	ID    int
	Point domain.Point
	Depth float64
}

// Element is a triangle referencing three node IDs.
type Element struct {
	ID    int
	Nodes [3]int
}

// Mesh is an unstructured triangular mesh.
type Mesh struct {
	Name     string
	Nodes    []Node
	Elements []Element
}

// Targets returns the node coordinates in file order. Output row i of a step
// file belongs to Nodes[i].
func (m *Mesh) Targets() []domain.Point {
	pts := make([]domain.Point, len(m.Nodes))
	for i, n := range m.Nodes {
		pts[i] = n.Point
	}
	return pts
}

// Load opens path and reads it in the given format.
func Load(path string, format domain.MeshFormat) (*Mesh, error) {
	if format != domain.MeshAdcirc {
		return nil, fmt.Errorf("%w: no reader for mesh format %s", domain.ErrConfig, format)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mesh: %w", err)
	}
	defer f.Close()
	return ReadADCIRC(f, path)
}

// ReadADCIRC reads the fort.14 header, node table and element table.
// Boundary sections after the elements are ignored.
func ReadADCIRC(r io.Reader, source string) (*Mesh, error) {
	s := parser.NewScanner(r, source)
	m := &Mesh{}

	name, err := s.Next("mesh name")
	if err != nil {
		return nil, err
	}
	m.Name = strings.TrimSpace(name)

	line, err := s.Next("element and node counts")
	if err != nil {
		return nil, err
	}
	counts := strings.Fields(line)
	if len(counts) < 2 {
		return nil, s.Errorf("expected \"<elements> <nodes>\", got %q", line)
	}
	ne, errE := strconv.Atoi(counts[0])
	nn, errN := strconv.Atoi(counts[1])
	if errE != nil || errN != nil || ne < 0 || nn < 0 {
		return nil, s.Errorf("expected \"<elements> <nodes>\", got %q", line)
	}

	ids := make(map[int]struct{}, nn)
	m.Nodes = make([]Node, 0, nn)
	for range nn {
		n, err := readNode(s)
		if err != nil {
			return nil, err
		}
		if _, dup := ids[n.ID]; dup {
			return nil, s.Errorf("duplicate node id %d", n.ID)
		}
		ids[n.ID] = struct{}{}
		m.Nodes = append(m.Nodes, n)
	}

	m.Elements = make([]Element, 0, ne)
	for range ne {
		e, err := readElement(s)
		if err != nil {
			return nil, err
		}
		for _, id := range e.Nodes {
			if _, ok := ids[id]; !ok {
				return nil, s.Errorf("element %d references unknown node %d", e.ID, id)
			}
		}
		m.Elements = append(m.Elements, e)
	}
	return m, nil
}

func readNode(s *parser.Scanner) (Node, error) {
	line, err := s.Next("node")
	if err != nil {
		return Node{}, err
	}
	f := strings.Fields(line)
	if len(f) < 4 {
		return Node{}, s.Errorf("node line needs 4 columns, got %d", len(f))
	}
	id, err := strconv.Atoi(f[0])
	if err != nil {
		return Node{}, s.Errorf("bad node id %q", f[0])
	}
	var v [3]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(f[i+1], 64); err != nil {
			return Node{}, s.Errorf("bad node %d value %q", id, f[i+1])
		}
	}
	return Node{ID: id, Point: domain.Point{Lon: v[0], Lat: v[1]}, Depth: v[2]}, nil
}

func readElement(s *parser.Scanner) (Element, error) {
	line, err := s.Next("element")
	if err != nil {
		return Element{}, err
	}
	f := strings.Fields(line)
	if len(f) < 2 {
		return Element{}, s.Errorf("element line needs an id and a type, got %q", line)
	}
	var e Element
	if e.ID, err = strconv.Atoi(f[0]); err != nil {
		return Element{}, s.Errorf("bad element id %q", f[0])
	}
	if f[1] != "3" {
		return Element{}, s.Errorf("element %d has unsupported type %s, only triangles (3) are read", e.ID, f[1])
	}
	if len(f) < 5 {
		return Element{}, s.Errorf("triangle %d needs 3 node ids, got %d", e.ID, len(f)-2)
	}
	for i := range e.Nodes {
		if e.Nodes[i], err = strconv.Atoi(f[i+2]); err != nil {
			return Element{}, s.Errorf("bad node id %q in element %d", f[i+2], e.ID)
		}
	}
	return e, nil
}

// WriteADCIRC renders m as a fort.14 without boundary sections.
func WriteADCIRC(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, m.Name)
	fmt.Fprintf(bw, "%d %d\n", len(m.Elements), len(m.Nodes))
	for _, n := range m.Nodes {
		fmt.Fprintf(bw, "%d %s %s %s\n", n.ID,
			parser.FormatFloat(n.Point.Lon), parser.FormatFloat(n.Point.Lat), parser.FormatFloat(n.Depth))
	}
	for _, e := range m.Elements {
		fmt.Fprintf(bw, "%d 3 %d %d %d\n", e.ID, e.Nodes[0], e.Nodes[1], e.Nodes[2])
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write mesh: %w", err)
	}
	return nil
}
