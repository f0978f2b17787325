// Package dataset models a segmented cellular anatomy as a set of cells,
// each described by named, identified voxel regions. It is the in-memory
// ground truth that labeling and output reconstruction read from.
package dataset

import (
	"errors"
	"fmt"
	"sort"

	"simexm/internal/models"
)

// Lookup failures are fatal to the caller: the store never substitutes
// an empty default for a region or cell that was never loaded.
var (
	// ErrNoRegion reports a (region type, region id) pair absent from a cell.
	ErrNoRegion = errors.New("no such region")

	// ErrNoCell reports a cell id absent from a dataset or projection.
	ErrNoCell = errors.New("no such cell")
)

// FullRegion is the region type covering a cell's entire extent. Every
// cell carries exactly one such region, with id FullRegionID, and it
// must be set before any other region is queried: the membrane of each
// later region is derived from it upstream.
const (
	FullRegion   = "full"
	FullRegionID = 1
)

// RegionKey identifies a region within a cell: a region type tag
// ("full", "soma", "axon", "dendrite", "synapse", ...) plus an id local
// to that type, both taken from the upstream segmentation.
type RegionKey struct {
	Type string
	ID   int
}

// CellRegion is an immutable set of voxels covering one region of a
// cell, together with its precomputed membrane subset. The membrane is
// derived exactly once at ingestion time; reads only select between the
// two stored sets and never recompute anything.
type CellRegion struct {
	key      RegionKey
	voxels   []models.Voxel
	membrane []models.Voxel
}

// NewRegion creates a region from its key and voxel sets. The voxel
// list is not required to be de-duplicated; membrane must be a subset
// of voxels.
func NewRegion(regionType string, regionID int, voxels, membrane []models.Voxel) *CellRegion {
	return &CellRegion{
		key:      RegionKey{Type: regionType, ID: regionID},
		voxels:   voxels,
		membrane: membrane,
	}
}

// Type returns the region type tag.
func (r *CellRegion) Type() string { return r.key.Type }

// ID returns the region id local to its type.
func (r *CellRegion) ID() int { return r.key.ID }

// Voxels returns the region's voxel set, or only its membrane subset
// when membraneOnly is set.
func (r *CellRegion) Voxels(membraneOnly bool) []models.Voxel {
	if membraneOnly {
		return r.membrane
	}
	return r.voxels
}

// Cell is a segmented cell: a globally unique id assigned by the
// upstream segmentation, a mutable classification tag, and a flat
// store of regions keyed by (region type, region id).
//
// Regions are exclusively owned by their cell and may overlap each
// other (the membrane is always a subset of the full region, for
// example); the store performs no disjointness validation.
type Cell struct {
	id       uint32
	cellType string
	regions  map[RegionKey]*CellRegion
}

// NewCell creates a cell with the given id and classification tag,
// typically "Neuron" or "glia".
func NewCell(id uint32, cellType string) *Cell {
	return &Cell{
		id:       id,
		cellType: cellType,
		regions:  make(map[RegionKey]*CellRegion),
	}
}

// ID returns the cell's segmentation id.
func (c *Cell) ID() uint32 { return c.id }

// Type returns the cell's classification tag.
func (c *Cell) Type() string { return c.cellType }

// SetType replaces the cell's classification tag.
func (c *Cell) SetType(cellType string) { c.cellType = cellType }

// SetFullCell establishes the "full" region covering the whole cell and
// its membrane. It must be called before other regions are added, and
// overwrites any prior full region.
func (c *Cell) SetFullCell(voxels, membrane []models.Voxel) {
	c.AddRegion(NewRegion(FullRegion, FullRegionID, voxels, membrane))
}

// AddRegion upserts a region by its (type, id) key: adding a region
// with a key already present replaces the prior value.
func (c *Cell) AddRegion(r *CellRegion) {
	c.regions[r.key] = r
}

// Region returns the voxel set of the identified region, restricted to
// the membrane subset when membraneOnly is set. It fails with
// ErrNoRegion if the key is absent.
func (c *Cell) Region(regionType string, regionID int, membraneOnly bool) ([]models.Voxel, error) {
	r, ok := c.regions[RegionKey{Type: regionType, ID: regionID}]
	if !ok {
		return nil, fmt.Errorf("cell %d: %w: %s/%d", c.id, ErrNoRegion, regionType, regionID)
	}
	return r.Voxels(membraneOnly), nil
}

// FullCell returns the voxels covering the whole cell, or only its
// membrane voxels when membraneOnly is set.
func (c *Cell) FullCell(membraneOnly bool) ([]models.Voxel, error) {
	return c.Region(FullRegion, FullRegionID, membraneOnly)
}

// RegionTypes returns the sorted region type tags present in the cell.
func (c *Cell) RegionTypes() []string {
	seen := make(map[string]struct{})
	for key := range c.regions {
		seen[key.Type] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// RegionIDs returns the ids of every region of the given type in
// ascending order. It fails with ErrNoRegion if the cell has no region
// of that type.
func (c *Cell) RegionIDs(regionType string) ([]int, error) {
	var ids []int
	for key := range c.regions {
		if key.Type == regionType {
			ids = append(ids, key.ID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("cell %d: %w: %s", c.id, ErrNoRegion, regionType)
	}
	sort.Ints(ids)
	return ids, nil
}

// RegionsByID returns a region id to voxel set mapping covering every
// region of the given type.
func (c *Cell) RegionsByID(regionType string, membraneOnly bool) (map[int][]models.Voxel, error) {
	ids, err := c.RegionIDs(regionType)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]models.Voxel, len(ids))
	for _, id := range ids {
		voxels, err := c.Region(regionType, id, membraneOnly)
		if err != nil {
			return nil, err
		}
		out[id] = voxels
	}
	return out, nil
}

// RegionsAsArray concatenates every region of the given type into one
// voxel list, in ascending region id order. The result's length equals
// the sum of the constituent region sizes.
func (c *Cell) RegionsAsArray(regionType string, membraneOnly bool) ([]models.Voxel, error) {
	ids, err := c.RegionIDs(regionType)
	if err != nil {
		return nil, err
	}
	var out []models.Voxel
	for _, id := range ids {
		voxels, err := c.Region(regionType, id, membraneOnly)
		if err != nil {
			return nil, err
		}
		out = append(out, voxels...)
	}
	return out, nil
}
