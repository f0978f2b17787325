// Package validation scores a simulated signal volume against the
// ground truth it was generated from. The metrics are meant as a
// sanity check on a run, not as a publication-grade evaluation.
package validation

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"simexm/pkg/volume"
)

// Metrics holds the agreement scores between a ground truth label
// volume and the simulated intensity volume on the same grid.
type Metrics struct {
	// Correlation is the Pearson correlation between the binarized
	// ground truth occupancy and the raw signal intensity. Values
	// near 1 mean the signal sits where the labels sit.
	Correlation float64

	// IoU is the intersection-over-union of the foreground masks,
	// treating any nonzero label and any nonzero intensity as
	// foreground.
	IoU float64

	// GroundTruthOccupancy is the fraction of voxels carrying a label.
	GroundTruthOccupancy float64

	// SignalOccupancy is the fraction of voxels carrying signal.
	SignalOccupancy float64
}

// Compare scores a simulated intensity volume against the ground truth
// on the same voxel grid. Both volumes must have identical shapes.
func Compare(gt *volume.Labels, sim *volume.Gray) (Metrics, error) {
	if gt.Dim != sim.Dim {
		return Metrics{}, fmt.Errorf("shape mismatch: ground truth %dx%dx%d, signal %dx%dx%d",
			gt.Dim.Z, gt.Dim.X, gt.Dim.Y, sim.Dim.Z, sim.Dim.X, sim.Dim.Y)
	}
	n := gt.Dim.Count()
	if n == 0 {
		return Metrics{}, fmt.Errorf("empty volume")
	}

	occupancy := make([]float64, n)
	signal := make([]float64, n)
	var labeled, lit, both, either int
	for i := 0; i < n; i++ {
		if gt.Data[i] != 0 {
			occupancy[i] = 1
			labeled++
		}
		signal[i] = float64(sim.Data[i])
		if sim.Data[i] != 0 {
			lit++
		}
		switch {
		case gt.Data[i] != 0 && sim.Data[i] != 0:
			both++
			either++
		case gt.Data[i] != 0 || sim.Data[i] != 0:
			either++
		}
	}

	m := Metrics{
		GroundTruthOccupancy: float64(labeled) / float64(n),
		SignalOccupancy:      float64(lit) / float64(n),
	}
	if either > 0 {
		m.IoU = float64(both) / float64(either)
	}
	// Correlation is undefined on constant inputs; leave it at zero
	// when either side has no variance.
	if labeled > 0 && labeled < n && lit > 0 {
		m.Correlation = stat.Correlation(occupancy, signal, nil)
	}
	return m, nil
}

// String formats the metrics the way the pipeline log prints them.
func (m Metrics) String() string {
	return fmt.Sprintf("correlation=%.4f iou=%.4f gt_occupancy=%.4f signal_occupancy=%.4f",
		m.Correlation, m.IoU, m.GroundTruthOccupancy, m.SignalOccupancy)
}
