package dataset

import (
	"fmt"
	"sort"

	"simexm/internal/models"
	"simexm/pkg/volume"
)

// Projection is a read view over a dataset in simulation format:
// cell id to region type to the voxels covering that region. It is the
// ground-truth input consumed by the output reconstruction.
type Projection map[uint32]map[string][]models.Voxel

// Voxels returns the voxel set of one region of one cell, failing with
// ErrNoCell or ErrNoRegion when the projection does not carry it.
func (p Projection) Voxels(cellID uint32, regionType string) ([]models.Voxel, error) {
	regions, ok := p[cellID]
	if !ok {
		return nil, fmt.Errorf("projection: %w: %d", ErrNoCell, cellID)
	}
	voxels, ok := regions[regionType]
	if !ok {
		return nil, fmt.Errorf("projection: cell %d: %w: %s", cellID, ErrNoRegion, regionType)
	}
	return voxels, nil
}

// Dataset owns the cells of one segmented volume. Cells are created
// once at ingestion time and persist for the lifetime of the dataset;
// nothing is ever deleted during a simulation run.
type Dataset struct {
	voxelSize models.VoxelSize
	dim       models.Dim
	cells     map[uint32]*Cell
}

// New creates an empty dataset with the given physical voxel pitch.
func New(voxelSize models.VoxelSize) *Dataset {
	return &Dataset{
		voxelSize: voxelSize,
		cells:     make(map[uint32]*Cell),
	}
}

// VoxelSize returns the physical voxel pitch of the source volume.
func (d *Dataset) VoxelSize() models.VoxelSize { return d.voxelSize }

// Dim returns the shape of the source volume, once loaded.
func (d *Dataset) Dim() models.Dim { return d.dim }

// AddCell registers a cell under its id, replacing any prior cell with
// the same id.
func (d *Dataset) AddCell(c *Cell) {
	d.cells[c.ID()] = c
}

// Cell returns the cell with the given id, failing with ErrNoCell if it
// was never loaded.
func (d *Dataset) Cell(id uint32) (*Cell, error) {
	c, ok := d.cells[id]
	if !ok {
		return nil, fmt.Errorf("dataset: %w: %d", ErrNoCell, id)
	}
	return c, nil
}

// CellIDs returns the ids of every loaded cell in ascending order.
func (d *Dataset) CellIDs() []uint32 {
	ids := make([]uint32, 0, len(d.cells))
	for id := range d.cells {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadFromLabelStack populates the dataset from a segmented label
// volume: one cell per distinct nonzero label, with its full region set
// to the labeled voxels and its membrane derived here, exactly once, as
// the edge voxels of the cell within each z-slice. A voxel is a
// membrane voxel when one of its 4-neighbors in the same slice carries
// a different label or lies outside the volume.
func (d *Dataset) LoadFromLabelStack(stack *volume.Labels) error {
	if !stack.Dim.Positive() {
		return fmt.Errorf("label stack has empty shape %dx%dx%d",
			stack.Dim.Z, stack.Dim.X, stack.Dim.Y)
	}
	d.dim = stack.Dim

	voxels := make(map[uint32][]models.Voxel)
	membranes := make(map[uint32][]models.Voxel)

	for z := 0; z < stack.Dim.Z; z++ {
		for x := 0; x < stack.Dim.X; x++ {
			for y := 0; y < stack.Dim.Y; y++ {
				label := stack.At(z, x, y)
				if label == 0 {
					continue
				}
				vox := models.Voxel{Z: int32(z), X: int32(x), Y: int32(y)}
				voxels[label] = append(voxels[label], vox)
				if isSliceEdge(stack, z, x, y, label) {
					membranes[label] = append(membranes[label], vox)
				}
			}
		}
	}

	for label, cellVoxels := range voxels {
		c := NewCell(label, "Neuron")
		c.SetFullCell(cellVoxels, membranes[label])
		d.AddCell(c)
	}

	fmt.Printf("Loaded %d cells from %dx%dx%d label stack\n",
		len(voxels), stack.Dim.Z, stack.Dim.X, stack.Dim.Y)
	return nil
}

// Projection builds the read view consumed by ground-truth assembly,
// restricted to the given cells. Every region type a cell carries is
// projected, concatenated across region ids in ascending id order;
// membraneOnly selects the membrane subsets instead of the full voxel
// sets.
func (d *Dataset) Projection(cellIDs []uint32, membraneOnly bool) (Projection, error) {
	out := make(Projection, len(cellIDs))
	for _, id := range cellIDs {
		c, err := d.Cell(id)
		if err != nil {
			return nil, err
		}
		regions := make(map[string][]models.Voxel)
		for _, regionType := range c.RegionTypes() {
			voxels, err := c.RegionsAsArray(regionType, membraneOnly)
			if err != nil {
				return nil, err
			}
			regions[regionType] = voxels
		}
		out[id] = regions
	}
	return out, nil
}

// isSliceEdge reports whether the voxel at (z, x, y) touches, within
// its own slice, a voxel of a different label or the volume boundary.
func isSliceEdge(stack *volume.Labels, z, x, y int, label uint32) bool {
	if x == 0 || x == stack.Dim.X-1 || y == 0 || y == stack.Dim.Y-1 {
		return true
	}
	return stack.At(z, x-1, y) != label ||
		stack.At(z, x+1, y) != label ||
		stack.At(z, x, y-1) != label ||
		stack.At(z, x, y+1) != label
}
