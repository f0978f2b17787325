// Package labeling assigns fluorophores to cells. A labeling unit runs
// one or more passes over a dataset; each pass picks a region type, a
// set of fluorophores and a labeling density, and the unit accumulates
// which cells every fluorophore illuminates. The photophysics of
// fluorophore brightness and amplification is outside this package: the
// labeled volumes it emits are binary occupancy masks.
package labeling

import (
	"fmt"
	"math/rand"

	"simexm/internal/models"
	"simexm/pkg/dataset"
	"simexm/pkg/volume"
)

// Pass describes one labeling pass over the dataset.
type Pass struct {
	// RegionType is the region the pass labels ("full", "synapse", ...).
	RegionType string

	// Fluorophores receive the selected cells round-robin in
	// ascending cell id order.
	Fluorophores []string

	// Density in (0, 1] is the fraction of cells the pass selects,
	// sampled uniformly.
	Density float64

	// MembraneOnly restricts the pass to membrane voxels.
	MembraneOnly bool
}

type assignment struct {
	fluorophore  string
	cellID       uint32
	regionType   string
	membraneOnly bool
}

// Unit accumulates labeling passes over one dataset.
type Unit struct {
	ds          *dataset.Dataset
	rng         *rand.Rand
	labeled     map[string][]uint32
	fluorsUsed  []string
	assignments []assignment
}

// NewUnit creates a labeling unit over the dataset. The seed fixes the
// density subsampling so a simulation run is reproducible.
func NewUnit(ds *dataset.Dataset, seed int64) *Unit {
	return &Unit{
		ds:      ds,
		rng:     rand.New(rand.NewSource(seed)),
		labeled: make(map[string][]uint32),
	}
}

// LabelCells runs one labeling pass: it samples cells at the pass
// density in ascending cell id order and assigns each selected cell to
// one of the pass fluorophores round-robin.
func (u *Unit) LabelCells(pass Pass) error {
	if len(pass.Fluorophores) == 0 {
		return fmt.Errorf("labeling pass has no fluorophores")
	}
	if pass.Density <= 0 || pass.Density > 1 {
		return fmt.Errorf("labeling density must be in (0, 1], got %g", pass.Density)
	}
	if pass.RegionType == "" {
		return fmt.Errorf("labeling pass has no region type")
	}

	next := 0
	for _, cellID := range u.ds.CellIDs() {
		if u.rng.Float64() >= pass.Density {
			continue
		}
		// The sampled cell must actually carry the pass region.
		cell, err := u.ds.Cell(cellID)
		if err != nil {
			return err
		}
		if _, err := cell.RegionIDs(pass.RegionType); err != nil {
			return fmt.Errorf("labeling pass %q: %w", pass.RegionType, err)
		}

		fluor := pass.Fluorophores[next%len(pass.Fluorophores)]
		next++
		u.addAssignment(assignment{
			fluorophore:  fluor,
			cellID:       cellID,
			regionType:   pass.RegionType,
			membraneOnly: pass.MembraneOnly,
		})
	}
	return nil
}

func (u *Unit) addAssignment(a assignment) {
	if _, ok := u.labeled[a.fluorophore]; !ok {
		u.fluorsUsed = append(u.fluorsUsed, a.fluorophore)
	}
	u.labeled[a.fluorophore] = append(u.labeled[a.fluorophore], a.cellID)
	u.assignments = append(u.assignments, a)
}

// LabeledCells returns the fluorophore to cell id mapping accumulated
// over all passes. The returned map is a copy.
func (u *Unit) LabeledCells() map[string][]uint32 {
	out := make(map[string][]uint32, len(u.labeled))
	for fluor, ids := range u.labeled {
		out[fluor] = append([]uint32(nil), ids...)
	}
	return out
}

// FluorsUsed returns the fluorophores in first-use order.
func (u *Unit) FluorsUsed() []string {
	return append([]string(nil), u.fluorsUsed...)
}

// GroundTruth builds the voxel projection over every labeled cell,
// optionally restricted to membrane voxels.
func (u *Unit) GroundTruth(membraneOnly bool) (dataset.Projection, error) {
	seen := make(map[uint32]struct{})
	var ids []uint32
	for _, a := range u.assignments {
		if _, ok := seen[a.cellID]; ok {
			continue
		}
		seen[a.cellID] = struct{}{}
		ids = append(ids, a.cellID)
	}
	return u.ds.Projection(ids, membraneOnly)
}

// LabeledVolumes renders one binary occupancy mask per fluorophore, in
// FluorsUsed order, on a grid of the given shape: every voxel of every
// assigned region is set to full intensity.
func (u *Unit) LabeledVolumes(dim models.Dim) ([]*volume.Gray, error) {
	byFluor := make(map[string]*volume.Gray, len(u.fluorsUsed))
	for _, fluor := range u.fluorsUsed {
		byFluor[fluor] = volume.NewGray(dim)
	}

	for _, a := range u.assignments {
		cell, err := u.ds.Cell(a.cellID)
		if err != nil {
			return nil, err
		}
		voxels, err := cell.RegionsAsArray(a.regionType, a.membraneOnly)
		if err != nil {
			return nil, err
		}
		mask := byFluor[a.fluorophore]
		for _, v := range voxels {
			if !dim.Contains(v) {
				return nil, fmt.Errorf("cell %d voxel (%d, %d, %d) outside volume %dx%dx%d",
					a.cellID, v.Z, v.X, v.Y, dim.Z, dim.X, dim.Y)
			}
			mask.Set(int(v.Z), int(v.X), int(v.Y), 0xff)
		}
	}

	out := make([]*volume.Gray, 0, len(u.fluorsUsed))
	for _, fluor := range u.fluorsUsed {
		out = append(out, byFluor[fluor])
	}
	return out, nil
}
