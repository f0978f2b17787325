package dataset

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"simexm/internal/models"
	"simexm/pkg/volume"
)

// LoadLabelStack reads a directory of segmented slice images into a
// label volume. Slices are PNG files sorted by the numeric part of
// their filenames to preserve anatomical order; every slice must share
// the dimensions of the first. Pixel values are read as 16-bit
// grayscale and used directly as cell labels, so a zero pixel means
// background.
func LoadLabelStack(dir string) (*volume.Labels, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".png" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no PNG slices found in %s", dir)
	}

	sort.Slice(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	var stack *volume.Labels
	for z, name := range names {
		img, err := loadSlice(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}
		bounds := img.Bounds()

		if stack == nil {
			dim := models.Dim{Z: len(names), X: bounds.Dy(), Y: bounds.Dx()}
			stack = volume.NewLabels(dim)
		} else if bounds.Dy() != stack.Dim.X || bounds.Dx() != stack.Dim.Y {
			return nil, fmt.Errorf("slice %s is %dx%d, want %dx%d",
				name, bounds.Dx(), bounds.Dy(), stack.Dim.Y, stack.Dim.X)
		}

		for x := 0; x < stack.Dim.X; x++ {
			for y := 0; y < stack.Dim.Y; y++ {
				// 16-bit red channel carries the label for both
				// gray and paletted encodings.
				r, _, _, _ := img.At(bounds.Min.X+y, bounds.Min.Y+x).RGBA()
				stack.Set(z, x, y, uint32(r))
			}
		}
	}

	fmt.Printf("Loaded %d label slices with dimensions %dx%d\n",
		stack.Dim.Z, stack.Dim.Y, stack.Dim.X)
	return stack, nil
}

func loadSlice(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return png.Decode(file)
}

// extractNumber pulls the numeric part out of a slice filename so that
// "slice_2.png" sorts before "slice_10.png".
func extractNumber(filename string) int {
	numStr := ""
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr != "" {
		if num, err := strconv.Atoi(numStr); err == nil {
			return num
		}
	}
	return 0
}
