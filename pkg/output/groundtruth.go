package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"simexm/internal/models"
	"simexm/pkg/dataset"
	"simexm/pkg/expansion"
	"simexm/pkg/optics"
	"simexm/pkg/volume"
)

// GroundTruth reconstructs per-fluorophore labeled volumes from a voxel
// projection and persists them geometrically aligned with the simulated
// signal: the volume is scatter-written with literal cell ids on the
// original grid, cropped by the PSF kernel's valid-mode loss, and
// rescaled onto the detector grid with nearest-neighbor interpolation
// so that discrete identity survives every transform.
type GroundTruth struct {
	// Projection is the read view over the loaded cells.
	Projection dataset.Projection

	// LabeledCells maps each fluorophore to the cells it illuminates.
	LabeledCells map[string][]uint32

	// VolumeDim is the uncropped voxel grid shape before the optical
	// convolution trims it.
	VolumeDim models.Dim

	// VoxelDim is the pre-expansion physical voxel pitch.
	VoxelDim models.VoxelSize

	// Expansion and Optics are the same parameter sets used to
	// produce the simulated signal; Optics is forwarded verbatim to
	// the rescale primitive.
	Expansion expansion.Params
	Optics    optics.Params

	// Workers bounds the number of fluorophore channels assembled in
	// parallel; zero means one per CPU.
	Workers int
}

// Save assembles and persists the ground truth of every fluorophore
// under <path>/<name>/groundtruth/<fluorophore>/. In merged mode all
// of a fluorophore's cells share one volume named all_cells; in
// splitted mode each cell gets its own volume named by its id.
//
// Cells are painted in ascending cell id order, so where regions of
// two cells overlap the higher id wins. Channels are independent: a
// failure in one is collected and reported after every sibling has
// finished.
func (g *GroundTruth) Save(path, name string, cells Mode, region string, format Format) error {
	if err := format.validate(); err != nil {
		return err
	}
	if err := cells.validate(); err != nil {
		return err
	}
	if err := g.Expansion.Validate(); err != nil {
		return err
	}

	radii, err := optics.KernelRadii(g.VoxelDim, float64(g.Expansion.Factor))
	if err != nil {
		return err
	}
	// Reject undersized volumes before any channel allocates anything.
	if _, err := optics.ValidInterior(g.VolumeDim, radii); err != nil {
		return err
	}

	dest := filepath.Join(path, name, "groundtruth")
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create ground truth directory: %w", err)
	}

	fluors := make([]string, 0, len(g.LabeledCells))
	for fluor := range g.LabeledCells {
		fluors = append(fluors, fluor)
	}
	sort.Strings(fluors)

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var group errgroup.Group
	group.SetLimit(workers)
	errs := make([]error, len(fluors))
	for i, fluor := range fluors {
		i, fluor := i, fluor
		group.Go(func() error {
			if err := g.saveChannel(dest, fluor, radii, cells, region, format); err != nil {
				errs[i] = fmt.Errorf("fluorophore %s: %w", fluor, err)
			}
			return nil
		})
	}
	group.Wait()
	return errors.Join(errs...)
}

// Channel assembles one fluorophore's merged ground truth volume on
// the detector grid without persisting it, applying the same crop and
// nearest rescale as Save. The pipeline uses it to validate the
// simulated signal in place.
func (g *GroundTruth) Channel(fluor, region string) (*volume.Labels, error) {
	radii, err := optics.KernelRadii(g.VoxelDim, float64(g.Expansion.Factor))
	if err != nil {
		return nil, err
	}
	if _, err := optics.ValidInterior(g.VolumeDim, radii); err != nil {
		return nil, err
	}
	ids, ok := g.LabeledCells[fluor]
	if !ok {
		return nil, fmt.Errorf("unknown fluorophore %q", fluor)
	}
	sorted := append([]uint32(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	vol := volume.NewLabels(g.VolumeDim)
	for _, id := range sorted {
		if err := g.paintCell(vol, id, region); err != nil {
			return nil, err
		}
	}
	return g.process(vol, radii)
}

// saveChannel assembles one fluorophore's ground truth. It is the only
// writer of the volumes it allocates and of its own output directory.
func (g *GroundTruth) saveChannel(dest, fluor string, radii models.Dim, cells Mode, region string, format Format) error {
	dir := filepath.Join(dest, fluor)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create channel directory: %w", err)
	}

	ids := append([]uint32(nil), g.LabeledCells[fluor]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if cells == Merged {
		vol := volume.NewLabels(g.VolumeDim)
		for _, id := range ids {
			if err := g.paintCell(vol, id, region); err != nil {
				return err
			}
		}
		return g.finish(vol, radii, dir, "all_cells", format)
	}

	for _, id := range ids {
		vol := volume.NewLabels(g.VolumeDim)
		if err := g.paintCell(vol, id, region); err != nil {
			return err
		}
		if err := g.finish(vol, radii, dir, strconv.FormatUint(uint64(id), 10), format); err != nil {
			return err
		}
	}
	return nil
}

// paintCell scatter-writes one cell's region voxels with its literal id.
func (g *GroundTruth) paintCell(vol *volume.Labels, id uint32, region string) error {
	voxels, err := g.Projection.Voxels(id, region)
	if err != nil {
		return err
	}
	return vol.Paint(voxels, id)
}

// process crops the PSF edge loss and rescales onto the detector grid.
func (g *GroundTruth) process(vol *volume.Labels, radii models.Dim) (*volume.Labels, error) {
	cropped, err := vol.CropBorder(radii.Z-1, radii.X-1, radii.Y-1)
	if err != nil {
		return nil, err
	}
	return optics.Scale(cropped, g.VoxelDim, optics.Nearest, float64(g.Expansion.Factor), g.Optics)
}

// finish processes the volume and persists it.
func (g *GroundTruth) finish(vol *volume.Labels, radii models.Dim, dir, name string, format Format) error {
	scaled, err := g.process(vol, radii)
	if err != nil {
		return err
	}
	return WriteLabels(format, scaled, dir, name)
}
