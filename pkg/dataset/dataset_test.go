package dataset

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"simexm/internal/models"
	"simexm/pkg/volume"
)

// twoCellStack builds a 2x4x4 stack holding two touching cells:
// label 3 fills x 0..1, label 8 fills x 2..3, on both slices.
func twoCellStack() *volume.Labels {
	stack := volume.NewLabels(models.Dim{Z: 2, X: 4, Y: 4})
	for z := 0; z < 2; z++ {
		for x := 0; x < 4; x++ {
			for y := 0; y < 4; y++ {
				if x < 2 {
					stack.Set(z, x, y, 3)
				} else {
					stack.Set(z, x, y, 8)
				}
			}
		}
	}
	return stack
}

func TestLoadFromLabelStack(t *testing.T) {
	ds := New(models.VoxelSize{Z: 40, X: 8, Y: 8})
	if err := ds.LoadFromLabelStack(twoCellStack()); err != nil {
		t.Fatalf("LoadFromLabelStack failed: %v", err)
	}

	ids := ds.CellIDs()
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 8 {
		t.Fatalf("CellIDs = %v, want [3 8]", ids)
	}

	c, err := ds.Cell(3)
	if err != nil {
		t.Fatalf("Cell(3) failed: %v", err)
	}
	full, err := c.FullCell(false)
	if err != nil {
		t.Fatalf("FullCell failed: %v", err)
	}
	if len(full) != 2*2*4 {
		t.Errorf("cell 3 has %d voxels, want 16", len(full))
	}

	if _, err := ds.Cell(99); !errors.Is(err, ErrNoCell) {
		t.Errorf("Cell(99) = %v, want ErrNoCell", err)
	}
}

func TestMembraneDerivation(t *testing.T) {
	// A single 3x3 square of label 5 centered in a 5x5 slice: the
	// 8 border voxels of the square are membrane, the center is not.
	stack := volume.NewLabels(models.Dim{Z: 1, X: 5, Y: 5})
	for x := 1; x <= 3; x++ {
		for y := 1; y <= 3; y++ {
			stack.Set(0, x, y, 5)
		}
	}

	ds := New(models.VoxelSize{Z: 40, X: 8, Y: 8})
	if err := ds.LoadFromLabelStack(stack); err != nil {
		t.Fatalf("LoadFromLabelStack failed: %v", err)
	}

	c, err := ds.Cell(5)
	if err != nil {
		t.Fatalf("Cell(5) failed: %v", err)
	}
	membrane, err := c.FullCell(true)
	if err != nil {
		t.Fatalf("FullCell(membraneOnly) failed: %v", err)
	}
	if len(membrane) != 8 {
		t.Fatalf("membrane has %d voxels, want 8", len(membrane))
	}
	for _, v := range membrane {
		if v.X == 2 && v.Y == 2 {
			t.Errorf("interior voxel %v marked as membrane", v)
		}
	}
}

func TestProjection(t *testing.T) {
	ds := New(models.VoxelSize{Z: 40, X: 8, Y: 8})
	if err := ds.LoadFromLabelStack(twoCellStack()); err != nil {
		t.Fatalf("LoadFromLabelStack failed: %v", err)
	}

	proj, err := ds.Projection([]uint32{3}, false)
	if err != nil {
		t.Fatalf("Projection failed: %v", err)
	}

	voxels, err := proj.Voxels(3, FullRegion)
	if err != nil {
		t.Fatalf("projection lookup failed: %v", err)
	}
	if len(voxels) != 16 {
		t.Errorf("projected %d voxels, want 16", len(voxels))
	}

	if _, err := proj.Voxels(8, FullRegion); !errors.Is(err, ErrNoCell) {
		t.Errorf("lookup of unprojected cell = %v, want ErrNoCell", err)
	}
	if _, err := proj.Voxels(3, "axon"); !errors.Is(err, ErrNoRegion) {
		t.Errorf("lookup of absent region = %v, want ErrNoRegion", err)
	}

	if _, err := ds.Projection([]uint32{42}, false); !errors.Is(err, ErrNoCell) {
		t.Errorf("Projection of unknown cell = %v, want ErrNoCell", err)
	}
}

func TestLoadLabelStackFromPNGs(t *testing.T) {
	dir := t.TempDir()

	// Two 4x3 slices, labels in the 16-bit gray channel. Named so
	// that numeric ordering differs from lexical ordering.
	writeSlice := func(name string, label uint16) {
		img := image.NewGray16(image.Rect(0, 0, 4, 3))
		for py := 0; py < 3; py++ {
			for px := 0; px < 4; px++ {
				img.SetGray16(px, py, color.Gray16{Y: label})
			}
		}
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("failed to create slice file: %v", err)
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			t.Fatalf("failed to encode slice: %v", err)
		}
	}
	writeSlice("slice_2.png", 300)
	writeSlice("slice_10.png", 7)

	stack, err := LoadLabelStack(dir)
	if err != nil {
		t.Fatalf("LoadLabelStack failed: %v", err)
	}

	want := models.Dim{Z: 2, X: 3, Y: 4}
	if stack.Dim != want {
		t.Fatalf("stack dim = %+v, want %+v", stack.Dim, want)
	}
	if got := stack.At(0, 0, 0); got != 300 {
		t.Errorf("slice 0 label = %d, want 300 (numeric filename order)", got)
	}
	if got := stack.At(1, 2, 3); got != 7 {
		t.Errorf("slice 1 label = %d, want 7", got)
	}
}

func TestLoadLabelStackEmptyDir(t *testing.T) {
	if _, err := LoadLabelStack(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without slices")
	}
}
