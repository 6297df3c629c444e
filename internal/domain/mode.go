package domain

import (
	"fmt"
	"strings"
)

// Relationship selects how central pressure is obtained for storm-centred data.
type Relationship int

const (
	RelationshipDvorak Relationship = iota + 1
	RelationshipKnaffZehr
	RelationshipSpecifiedPC
	RelationshipBackground
)

var relationshipNames = map[Relationship]string{
	RelationshipDvorak:      "dvorak",
	RelationshipKnaffZehr:   "knaffzehr",
	RelationshipSpecifiedPC: "specifiedPc",
	RelationshipBackground:  "background",
}

func (r Relationship) String() string {
	if s, ok := relationshipNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Relationship(%d)", int(r))
}

// ParseRelationship resolves a pressure-wind relationship name. Matching is
// case-insensitive so both "specifiedPc" and "SpecifiedPC" are accepted.
func ParseRelationship(s string) (Relationship, error) {
	name := strings.TrimSpace(s)
	for r, n := range relationshipNames {
		if strings.EqualFold(n, name) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: undefined pressure-wind relationship %q", ErrConfig, s)
}

// MeteoType selects the archive family that drives the run.
type MeteoType int

const (
	MeteoHWIND MeteoType = iota + 1
	MeteoOWI
)

func (m MeteoType) String() string {
	switch m {
	case MeteoHWIND:
		return "HWIND"
	case MeteoOWI:
		return "OWI"
	default:
		return fmt.Sprintf("MeteoType(%d)", int(m))
	}
}

// ParseMeteoType resolves the meteo forcing type. "None" is rejected: a run
// without meteorological forcing has nothing to produce.
func ParseMeteoType(s string) (MeteoType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HWIND":
		return MeteoHWIND, nil
	case "OWI":
		return MeteoOWI, nil
	case "NONE", "":
		return 0, fmt.Errorf("%w: no meteo forcing configured", ErrConfig)
	default:
		return 0, fmt.Errorf("%w: undefined meteo forcing type %q", ErrConfig, s)
	}
}

// MeshFormat selects the mesh reader.
type MeshFormat int

const (
	MeshAdcirc MeshFormat = iota + 1
)

func (m MeshFormat) String() string {
	if m == MeshAdcirc {
		return "Adcirc"
	}
	return fmt.Sprintf("MeshFormat(%d)", int(m))
}

// ParseMeshFormat resolves the mesh file format.
func ParseMeshFormat(s string) (MeshFormat, error) {
	if strings.EqualFold(strings.TrimSpace(s), "adcirc") {
		return MeshAdcirc, nil
	}
	return 0, fmt.Errorf("%w: undefined mesh type %q", ErrConfig, s)
}
