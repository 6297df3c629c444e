// Package series holds the time-ordered snapshots of one forcing dataset and
// answers which snapshots surround a query time.
package series

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser/hwind"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser/owi"
)

// Meta is dataset-wide information declared by the archive.
type Meta struct {
	Multiplier float64 `msgpack:"multiplier"`
	// Relationship is the manifest's pressure-wind mode; zero for gridded archives.
	Relationship domain.Relationship `msgpack:"relationship"`
}

// Series is an immutable, time-sorted run of snapshots of a single form.
type Series struct {
	snaps []domain.Snapshot
	form  domain.Form
	meta  Meta
}

// New validates and sorts snaps. The slice is copied; callers must not mutate
// the snapshots afterwards.
func New(snaps []domain.Snapshot, meta Meta) (*Series, error) {
	if len(snaps) < 2 {
		return nil, fmt.Errorf("%w: %d snapshots, temporal interpolation needs at least 2",
			domain.ErrInsufficientData, len(snaps))
	}

	form := snaps[0].Form()
	for _, s := range snaps[1:] {
		if s.Form() != form {
			return nil, domain.Malformed("series", 0, "mixed snapshot forms %s and %s", form, s.Form())
		}
	}

	sorted := slices.Clone(snaps)
	slices.SortStableFunc(sorted, func(a, b domain.Snapshot) int {
		return a.ValidTime().Compare(b.ValidTime())
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ValidTime().Equal(sorted[i-1].ValidTime()) {
			return nil, domain.Malformed("series", 0, "duplicate snapshot time %s",
				sorted[i].ValidTime().UTC().Format(time.RFC3339))
		}
	}
	return &Series{snaps: sorted, form: form, meta: meta}, nil
}

// Len returns the number of snapshots.
func (s *Series) Len() int { return len(s.snaps) }

// At returns snapshot i in time order.
func (s *Series) At(i int) domain.Snapshot { return s.snaps[i] }

// Form returns the archive form shared by every snapshot.
func (s *Series) Form() domain.Form { return s.form }

// Meta returns the dataset-wide metadata.
func (s *Series) Meta() Meta { return s.meta }

// First returns the earliest snapshot time.
func (s *Series) First() time.Time { return s.snaps[0].ValidTime() }

// Last returns the latest snapshot time.
func (s *Series) Last() time.Time { return s.snaps[len(s.snaps)-1].ValidTime() }

// Snapshots returns a copy of the ordered snapshot list.
func (s *Series) Snapshots() []domain.Snapshot { return slices.Clone(s.snaps) }

// Source selects an archive to load.
type Source interface {
	load(logger *slog.Logger) ([]domain.Snapshot, Meta, error)
	// Files lists the archive files whose content determines the series.
	Files() ([]string, error)
}

// HWIND is a storm-centred archive. Reference anchors hour-offset times.
type HWIND struct {
	Manifest  string
	Reference time.Time
}

func (h HWIND) load(logger *slog.Logger) ([]domain.Snapshot, Meta, error) {
	storms, m, err := hwind.Load(h.Manifest, h.Reference, logger)
	if err != nil {
		return nil, Meta{}, err
	}
	snaps := make([]domain.Snapshot, len(storms))
	for i, s := range storms {
		snaps[i] = s
	}
	return snaps, Meta{Multiplier: m.Multiplier, Relationship: m.Relationship}, nil
}

// Files returns the manifest and every grid it lists.
func (h HWIND) Files() ([]string, error) {
	m, err := hwind.LoadManifest(h.Manifest, h.Reference)
	if err != nil {
		return nil, err
	}
	files := []string{h.Manifest}
	for _, e := range m.Entries {
		files = append(files, e.File)
	}
	return files, nil
}

// OWI is a gridded basin archive addressed by its control file.
type OWI struct {
	Control string
}

func (o OWI) load(logger *slog.Logger) ([]domain.Snapshot, Meta, error) {
	grids, ctl, err := owi.Load(o.Control, logger)
	if err != nil {
		return nil, Meta{}, err
	}
	snaps := make([]domain.Snapshot, len(grids))
	for i, g := range grids {
		snaps[i] = g
	}
	return snaps, Meta{Multiplier: ctl.Multiplier}, nil
}

// Files returns the control file and the basin pair.
func (o OWI) Files() ([]string, error) {
	return []string{o.Control, o.Control + "1", o.Control + "2"}, nil
}

// Load parses every record of src and builds the series. Nothing is returned
// unless every record parses.
func Load(src Source, logger *slog.Logger) (*Series, error) {
	snaps, meta, err := src.load(logger)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	s, err := New(snaps, meta)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	logger.Info("series loaded",
		"form", s.Form().String(),
		"snapshots", s.Len(),
		"first", s.First(),
		"last", s.Last(),
		"multiplier", meta.Multiplier,
	)
	return s, nil
}
