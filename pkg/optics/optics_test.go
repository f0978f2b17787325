package optics

import (
	"testing"

	"simexm/internal/models"
	"simexm/pkg/volume"
)

// referenceVoxel is the acquisition pitch of the reference dataset.
var referenceVoxel = models.VoxelSize{Z: 40, X: 8, Y: 8}

func TestKernelRadiiReferenceScenario(t *testing.T) {
	// voxel (40, 8, 8) nm at factor 20 gives pitch (800, 160, 160),
	// so half = ceil(1000/pitch) = (2, 7, 7).
	radii, err := KernelRadii(referenceVoxel, 20)
	if err != nil {
		t.Fatalf("KernelRadii failed: %v", err)
	}
	want := models.Dim{Z: 2, X: 7, Y: 7}
	if radii != want {
		t.Fatalf("radii = %+v, want %+v", radii, want)
	}
	widths := KernelWidths(radii)
	if (widths != models.Dim{Z: 3, X: 13, Y: 13}) {
		t.Errorf("widths = %+v, want odd (3, 13, 13)", widths)
	}
}

func TestKernelRadiiUnexpanded(t *testing.T) {
	// Without expansion the pitch stays (40, 8, 8): half =
	// (ceil(25), ceil(125)) = (25, 125, 125), widths (49, 249, 249).
	radii, err := KernelRadii(referenceVoxel, 1)
	if err != nil {
		t.Fatalf("KernelRadii failed: %v", err)
	}
	want := models.Dim{Z: 25, X: 125, Y: 125}
	if radii != want {
		t.Fatalf("radii = %+v, want %+v", radii, want)
	}
}

func TestKernelRadiiRejectsBadInputs(t *testing.T) {
	if _, err := KernelRadii(referenceVoxel, 0); err == nil {
		t.Error("expected error for zero factor")
	}
	if _, err := KernelRadii(models.VoxelSize{Z: 0, X: 8, Y: 8}, 20); err == nil {
		t.Error("expected error for zero pitch")
	}
}

func TestValidInterior(t *testing.T) {
	radii := models.Dim{Z: 2, X: 7, Y: 7}

	// Loses widths-1 = (2, 12, 12) voxels overall per axis.
	dim, err := ValidInterior(models.Dim{Z: 10, X: 20, Y: 20}, radii)
	if err != nil {
		t.Fatalf("ValidInterior failed: %v", err)
	}
	if (dim != models.Dim{Z: 8, X: 8, Y: 8}) {
		t.Errorf("interior = %+v, want (8, 8, 8)", dim)
	}

	// An axis equal to the kernel width leaves exactly one voxel.
	dim, err = ValidInterior(models.Dim{Z: 3, X: 13, Y: 13}, radii)
	if err != nil {
		t.Fatalf("ValidInterior failed: %v", err)
	}
	if (dim != models.Dim{Z: 1, X: 1, Y: 1}) {
		t.Errorf("interior = %+v, want (1, 1, 1)", dim)
	}

	// One voxel less than the kernel width must be rejected.
	if _, err := ValidInterior(models.Dim{Z: 2, X: 13, Y: 13}, radii); err == nil {
		t.Error("expected rejection when z axis is smaller than the kernel")
	}
}

func TestValidInteriorSpecScenario(t *testing.T) {
	// Unexpanded pitch: kernel widths (49, 249, 249). A (10, 20, 20)
	// volume is far too small on every axis.
	radii, err := KernelRadii(referenceVoxel, 1)
	if err != nil {
		t.Fatalf("KernelRadii failed: %v", err)
	}
	if _, err := ValidInterior(models.Dim{Z: 10, X: 20, Y: 20}, radii); err == nil {
		t.Error("expected rejection of volume smaller than the kernel")
	}

	// (1000, 300, 300) survives with a non-degenerate interior.
	dim, err := ValidInterior(models.Dim{Z: 1000, X: 300, Y: 300}, radii)
	if err != nil {
		t.Fatalf("ValidInterior failed: %v", err)
	}
	if (dim != models.Dim{Z: 952, X: 52, Y: 52}) {
		t.Errorf("interior = %+v, want (952, 52, 52)", dim)
	}
}

func TestOutputDim(t *testing.T) {
	p := DefaultParams()
	// Pitch after expansion: (800, 160, 160); targets: z 500 nm,
	// lateral 6500/40 = 162.5 nm.
	dim, err := OutputDim(models.Dim{Z: 10, X: 20, Y: 20}, referenceVoxel, 20, p)
	if err != nil {
		t.Fatalf("OutputDim failed: %v", err)
	}
	// z: 10*800/500 = 16; lateral: 20*160/162.5 = 19.69 -> 20.
	if (dim != models.Dim{Z: 16, X: 20, Y: 20}) {
		t.Errorf("output dim = %+v, want (16, 20, 20)", dim)
	}

	if _, err := OutputDim(models.Dim{Z: 10, X: 20, Y: 20}, referenceVoxel, 20, Params{}); err == nil {
		t.Error("expected error for zero optics parameters")
	}
}

func TestScaleRejectsNonNearestForLabels(t *testing.T) {
	v := volume.NewLabels(models.Dim{Z: 2, X: 2, Y: 2})
	if _, err := Scale(v, referenceVoxel, Bilinear, 20, DefaultParams()); err == nil {
		t.Fatal("expected rejection of bilinear interpolation for labels")
	}
}

func TestScaleLabelSetClosure(t *testing.T) {
	v := volume.NewLabels(models.Dim{Z: 4, X: 6, Y: 6})
	for z := 0; z < 4; z++ {
		for x := 0; x < 6; x++ {
			for y := 0; y < 6; y++ {
				switch {
				case x < 3:
					v.Set(z, x, y, 17)
				case y < 3:
					v.Set(z, x, y, 90001)
				}
			}
		}
	}
	before := v.Distinct()

	scaled, err := Scale(v, referenceVoxel, Nearest, 20, DefaultParams())
	if err != nil {
		t.Fatalf("Scale failed: %v", err)
	}

	after := scaled.Distinct()
	allowed := map[uint32]struct{}{0: {}}
	for _, l := range before {
		allowed[l] = struct{}{}
	}
	for _, l := range after {
		if _, ok := allowed[l]; !ok {
			t.Errorf("rescale introduced label %d absent from input %v", l, before)
		}
	}
}

func TestScaleIntensityShapes(t *testing.T) {
	v := volume.NewGray(models.Dim{Z: 4, X: 8, Y: 8})
	for i := range v.Data {
		v.Data[i] = uint8(i % 251)
	}

	for _, mode := range []Interpolation{Nearest, Bilinear} {
		scaled, err := ScaleIntensityTo(v, models.Dim{Z: 6, X: 5, Y: 9}, mode)
		if err != nil {
			t.Fatalf("ScaleIntensityTo failed: %v", err)
		}
		if (scaled.Dim != models.Dim{Z: 6, X: 5, Y: 9}) {
			t.Errorf("scaled dim = %+v, want (6, 5, 9)", scaled.Dim)
		}
	}

	if _, err := ScaleIntensityTo(v, models.Dim{Z: 0, X: 5, Y: 9}, Nearest); err == nil {
		t.Error("expected rejection of empty target shape")
	}
}

func TestScaleIntensityNearestPreservesConstant(t *testing.T) {
	v := volume.NewGray(models.Dim{Z: 2, X: 4, Y: 4})
	for i := range v.Data {
		v.Data[i] = 180
	}
	scaled, err := ScaleIntensityTo(v, models.Dim{Z: 3, X: 8, Y: 8}, Nearest)
	if err != nil {
		t.Fatalf("ScaleIntensityTo failed: %v", err)
	}
	for i, got := range scaled.Data {
		if got != 180 {
			t.Fatalf("voxel %d = %d, want constant 180", i, got)
		}
	}
}
