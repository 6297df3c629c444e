// Package seriescache stores parsed series on disk so repeated runs over the
// same archive skip text parsing. Entries are msgpack, compressed with zstd,
// and keyed by the size and modification time of every archive file.
package seriescache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/series"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const formatVersion = 1

var errStale = errors.New("cache entry does not match archive")

type fileStamp struct {
	Path    string `msgpack:"path"`
	Size    int64  `msgpack:"size"`
	ModTime int64  `msgpack:"mtime"`
}

type entry struct {
	Version int                       `msgpack:"version"`
	Files   []fileStamp               `msgpack:"files"`
	Form    domain.Form               `msgpack:"form"`
	Meta    series.Meta               `msgpack:"meta"`
	Storms  []*domain.StormSnapshot   `msgpack:"storms,omitempty"`
	Grids   []*domain.GriddedSnapshot `msgpack:"grids,omitempty"`
}

// Cache loads series through a single cache file.
type Cache struct {
	path   string
	logger *slog.Logger
}

// New creates a cache backed by the file at path.
func New(path string, logger *slog.Logger) *Cache {
	return &Cache{path: path, logger: logger}
}

// Load returns the series for src, from the cache file when every archive
// file is unchanged, otherwise by parsing src and refreshing the cache. Cache
// read and write failures are logged and never fail the load.
func (c *Cache) Load(src series.Source) (*series.Series, error) {
	stamps, err := fingerprint(src)
	if err != nil {
		return nil, err
	}

	s, err := c.read(stamps)
	switch {
	case err == nil:
		c.logger.Info("series loaded from cache",
			"cache", c.path,
			"form", s.Form().String(),
			"snapshots", s.Len(),
			"first", s.First(),
			"last", s.Last(),
		)
		return s, nil
	case errors.Is(err, os.ErrNotExist):
		c.logger.Debug("series cache empty", "cache", c.path)
	default:
		c.logger.Warn("series cache unusable, reparsing", "cache", c.path, "error", err)
	}

	s, err = series.Load(src, c.logger)
	if err != nil {
		return nil, err
	}
	if err := c.write(stamps, s); err != nil {
		c.logger.Warn("series cache not written", "cache", c.path, "error", err)
	}
	return s, nil
}

func fingerprint(src series.Source) ([]fileStamp, error) {
	files, err := src.Files()
	if err != nil {
		return nil, fmt.Errorf("list archive files: %w", err)
	}
	stamps := make([]fileStamp, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat archive file: %w", err)
		}
		stamps = append(stamps, fileStamp{Path: abs, Size: info.Size(), ModTime: info.ModTime().UnixNano()})
	}
	return stamps, nil
}

func (c *Cache) read(stamps []fileStamp) (*series.Series, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	e, err := decode(f)
	if err != nil {
		return nil, err
	}
	if e.Version != formatVersion || !slices.Equal(e.Files, stamps) {
		return nil, errStale
	}
	return e.series()
}

func (c *Cache) write(stamps []fileStamp, s *series.Series) error {
	e := newEntry(stamps, s)

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, e); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}

func newEntry(stamps []fileStamp, s *series.Series) *entry {
	e := &entry{Version: formatVersion, Files: stamps, Form: s.Form(), Meta: s.Meta()}
	for _, snap := range s.Snapshots() {
		switch v := snap.(type) {
		case *domain.StormSnapshot:
			e.Storms = append(e.Storms, v)
		case *domain.GriddedSnapshot:
			e.Grids = append(e.Grids, v)
		}
	}
	return e
}

func (e *entry) series() (*series.Series, error) {
	var snaps []domain.Snapshot
	switch e.Form {
	case domain.FormStormCentered:
		for _, s := range e.Storms {
			s.Time = s.Time.UTC()
			snaps = append(snaps, s)
		}
	case domain.FormGridded:
		for _, g := range e.Grids {
			g.Time = g.Time.UTC()
			snaps = append(snaps, g)
		}
	default:
		return nil, fmt.Errorf("cache entry has unknown form %d", e.Form)
	}
	return series.New(snaps, e.Meta)
}

func encode(w io.Writer, e *entry) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(e); err != nil {
		return fmt.Errorf("encode series cache: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd writer: %w", err)
	}
	return nil
}

func decode(r io.Reader) (*entry, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	var e entry
	if err := msgpack.NewDecoder(zr).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode series cache: %w", err)
	}
	return &e, nil
}
