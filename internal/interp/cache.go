package interp

import (
	"fmt"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache memoises triangulations per snapshot. Concurrent misses for the same
// snapshot share one build.
type Cache struct {
	meshes  *lru.Cache[domain.Snapshot, *Mesh]
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCache creates a cache holding at most size triangulations.
func NewCache(size int, metrics *observability.Metrics) (*Cache, error) {
	meshes, err := lru.New[domain.Snapshot, *Mesh](size)
	if err != nil {
		return nil, fmt.Errorf("create triangulation cache: %w", err)
	}
	return &Cache{meshes: meshes, metrics: metrics}, nil
}

// Mesh returns the triangulation of snap's grid, building it on a miss.
func (c *Cache) Mesh(snap domain.Snapshot) (*Mesh, error) {
	if m, ok := c.meshes.Get(snap); ok {
		c.metrics.TriangulationCache.WithLabelValues("hit").Inc()
		return m, nil
	}
	c.metrics.TriangulationCache.WithLabelValues("miss").Inc()

	key := fmt.Sprintf("%p", snap)
	v, err, _ := c.group.Do(key, func() (any, error) {
		m, err := Triangulate(snap.Grid().Points())
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.ValidTime().UTC().Format("2006-01-02T15:04Z"), err)
		}
		c.meshes.Add(snap, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Mesh), nil
}

// Len returns the number of cached triangulations.
func (c *Cache) Len() int { return c.meshes.Len() }
