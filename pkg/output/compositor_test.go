package output

import (
	"os"
	"path/filepath"
	"testing"

	"simexm/internal/models"
	"simexm/pkg/volume"
)

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("merged"); err != nil || m != Merged {
		t.Errorf("ParseMode(merged) = %v, %v", m, err)
	}
	if m, err := ParseMode("splitted"); err != nil || m != Splitted {
		t.Errorf("ParseMode(splitted) = %v, %v", m, err)
	}
	if _, err := ParseMode("both"); err == nil {
		t.Error("expected error for unknown mode string")
	}
}

func TestMergeGroupsAndPads(t *testing.T) {
	dim := models.Dim{Z: 1, X: 2, Y: 2}
	channels := make([]*volume.Gray, 7)
	for i := range channels {
		channels[i] = volume.NewGray(dim)
		for j := range channels[i].Data {
			channels[i].Data[j] = uint8(10*i + j)
		}
	}

	groups, err := Merge(channels)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("7 channels merged into %d groups, want 3", len(groups))
	}

	// Input order maps straight onto group and color slots.
	for g, rgb := range groups {
		if rgb.Dim != dim {
			t.Fatalf("group %d shape %v, want %v", g, rgb.Dim, dim)
		}
		for c := 0; c < 3; c++ {
			idx := 3*g + c
			for i := 0; i < dim.Count(); i++ {
				want := uint8(0)
				if idx < len(channels) {
					want = channels[idx].Data[i]
				}
				if got := rgb.Data[3*i+c]; got != want {
					t.Fatalf("group %d color %d voxel %d = %d, want %d", g, c, i, got, want)
				}
			}
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	groups, err := Merge(nil)
	if err != nil {
		t.Fatalf("Merge(nil) failed: %v", err)
	}
	if groups != nil {
		t.Errorf("Merge(nil) = %v, want nil", groups)
	}
}

func TestMergeRejectsShapeMismatch(t *testing.T) {
	a := volume.NewGray(models.Dim{Z: 1, X: 2, Y: 2})
	b := volume.NewGray(models.Dim{Z: 1, X: 2, Y: 3})
	if _, err := Merge([]*volume.Gray{a, b}); err == nil {
		t.Fatal("expected error for mismatched channel shapes")
	}
}

func TestSaveSimulationSplitted(t *testing.T) {
	dir := t.TempDir()
	dim := models.Dim{Z: 2, X: 3, Y: 3}
	channels := []*volume.Gray{volume.NewGray(dim), volume.NewGray(dim)}

	if err := SaveSimulation(channels, dir, "run1", Splitted, FormatTIFF); err != nil {
		t.Fatalf("SaveSimulation failed: %v", err)
	}

	for _, name := range []string{"channel_0.tiff", "channel_1.tiff"} {
		path := filepath.Join(dir, "run1", "simulation", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}
}

func TestSaveSimulationMerged(t *testing.T) {
	dir := t.TempDir()
	dim := models.Dim{Z: 2, X: 3, Y: 3}
	channels := make([]*volume.Gray, 4)
	for i := range channels {
		channels[i] = volume.NewGray(dim)
	}

	if err := SaveSimulation(channels, dir, "run1", Merged, FormatTIFF); err != nil {
		t.Fatalf("SaveSimulation failed: %v", err)
	}

	// 4 channels produce two RGB stacks, the second padded.
	for _, name := range []string{"channels_012.tiff", "channels_345.tiff"} {
		path := filepath.Join(dir, "run1", "simulation", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}
}
