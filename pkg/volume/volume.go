// Package volume provides the flat 3D arrays the simulation pipeline is
// built on: integer-labeled ground-truth volumes, 8-bit single-channel
// intensity volumes, and 8-bit RGB volumes produced by channel merging.
//
// All volumes store their data in a single slice in (z, x, y) order,
// with index z*X*Y + x*Y + y. Labels preserve discrete cell identity:
// no operation in this package ever blends or interpolates label values.
package volume

import (
	"fmt"
	"image"
	"sort"

	"simexm/internal/models"
)

// Labels is a 3D volume of uint32 cell labels. The zero value of a
// voxel is "unlabeled"; any other value is the literal cell_id that
// owns the voxel.
type Labels struct {
	Dim  models.Dim
	Data []uint32
}

// NewLabels allocates a zeroed label volume of the given shape.
func NewLabels(dim models.Dim) *Labels {
	return &Labels{Dim: dim, Data: make([]uint32, dim.Count())}
}

// Index returns the flat offset of (z, x, y).
func (v *Labels) Index(z, x, y int) int {
	return z*v.Dim.X*v.Dim.Y + x*v.Dim.Y + y
}

// At returns the label at (z, x, y).
func (v *Labels) At(z, x, y int) uint32 {
	return v.Data[v.Index(z, x, y)]
}

// Set writes a label at (z, x, y).
func (v *Labels) Set(z, x, y int, label uint32) {
	v.Data[v.Index(z, x, y)] = label
}

// Paint scatter-writes the given label into every listed voxel.
// Voxels outside the volume are an error: the caller is expected to
// have validated its geometry before painting. When voxel lists from
// several cells overlap, the last Paint call wins; callers that need a
// deterministic overlap policy must order their Paint calls.
func (v *Labels) Paint(voxels []models.Voxel, label uint32) error {
	for _, vox := range voxels {
		if !v.Dim.Contains(vox) {
			return fmt.Errorf("voxel (%d, %d, %d) outside volume %dx%dx%d",
				vox.Z, vox.X, vox.Y, v.Dim.Z, v.Dim.X, v.Dim.Y)
		}
		v.Data[v.Index(int(vox.Z), int(vox.X), int(vox.Y))] = label
	}
	return nil
}

// CropBorder removes rz, rx and ry voxels from both ends of the z, x
// and y axes and returns the interior as a new volume. The crop is
// rejected, with the offending shape in the error, if any axis would
// end up empty.
func (v *Labels) CropBorder(rz, rx, ry int) (*Labels, error) {
	dim, err := cropDim(v.Dim, rz, rx, ry)
	if err != nil {
		return nil, err
	}
	out := NewLabels(dim)
	for z := 0; z < dim.Z; z++ {
		for x := 0; x < dim.X; x++ {
			src := v.Index(z+rz, x+rx, ry)
			dst := out.Index(z, x, 0)
			copy(out.Data[dst:dst+dim.Y], v.Data[src:src+dim.Y])
		}
	}
	return out, nil
}

// Distinct returns the sorted set of nonzero labels present in the
// volume.
func (v *Labels) Distinct() []uint32 {
	seen := make(map[uint32]struct{})
	for _, l := range v.Data {
		if l != 0 {
			seen[l] = struct{}{}
		}
	}
	out := make([]uint32, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Gray is a 3D volume of 8-bit single-channel intensities.
type Gray struct {
	Dim  models.Dim
	Data []uint8
}

// NewGray allocates a zeroed intensity volume of the given shape.
func NewGray(dim models.Dim) *Gray {
	return &Gray{Dim: dim, Data: make([]uint8, dim.Count())}
}

// Index returns the flat offset of (z, x, y).
func (v *Gray) Index(z, x, y int) int {
	return z*v.Dim.X*v.Dim.Y + x*v.Dim.Y + y
}

// At returns the intensity at (z, x, y).
func (v *Gray) At(z, x, y int) uint8 {
	return v.Data[v.Index(z, x, y)]
}

// Set writes an intensity at (z, x, y).
func (v *Gray) Set(z, x, y int, value uint8) {
	v.Data[v.Index(z, x, y)] = value
}

// CropBorder removes rz, rx and ry voxels from both ends of each axis,
// with the same validation as Labels.CropBorder.
func (v *Gray) CropBorder(rz, rx, ry int) (*Gray, error) {
	dim, err := cropDim(v.Dim, rz, rx, ry)
	if err != nil {
		return nil, err
	}
	out := NewGray(dim)
	for z := 0; z < dim.Z; z++ {
		for x := 0; x < dim.X; x++ {
			src := v.Index(z+rz, x+rx, ry)
			dst := out.Index(z, x, 0)
			copy(out.Data[dst:dst+dim.Y], v.Data[src:src+dim.Y])
		}
	}
	return out, nil
}

// SliceImage renders one z-slice as an 8-bit grayscale image, with x as
// the image row and y as the image column.
func (v *Gray) SliceImage(z int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, v.Dim.Y, v.Dim.X))
	for x := 0; x < v.Dim.X; x++ {
		row := v.Index(z, x, 0)
		copy(img.Pix[x*img.Stride:x*img.Stride+v.Dim.Y], v.Data[row:row+v.Dim.Y])
	}
	return img
}

// RGB is a 3D volume with three 8-bit channels per voxel, stored
// interleaved: index (z, x, y) covers bytes [3*i : 3*i+3].
type RGB struct {
	Dim  models.Dim
	Data []uint8
}

// NewRGB allocates a zeroed RGB volume of the given shape.
func NewRGB(dim models.Dim) *RGB {
	return &RGB{Dim: dim, Data: make([]uint8, 3*dim.Count())}
}

// Index returns the flat byte offset of the first channel of (z, x, y).
func (v *RGB) Index(z, x, y int) int {
	return 3 * (z*v.Dim.X*v.Dim.Y + x*v.Dim.Y + y)
}

// At returns the (r, g, b) triple at (z, x, y).
func (v *RGB) At(z, x, y int) (r, g, b uint8) {
	i := v.Index(z, x, y)
	return v.Data[i], v.Data[i+1], v.Data[i+2]
}

// SetChannel writes one channel (0, 1 or 2) of the voxel at (z, x, y).
func (v *RGB) SetChannel(z, x, y, channel int, value uint8) {
	v.Data[v.Index(z, x, y)+channel] = value
}

// SliceImage renders one z-slice as an opaque RGBA image.
func (v *RGB) SliceImage(z int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, v.Dim.Y, v.Dim.X))
	for x := 0; x < v.Dim.X; x++ {
		for y := 0; y < v.Dim.Y; y++ {
			src := v.Index(z, x, y)
			dst := img.PixOffset(y, x)
			img.Pix[dst] = v.Data[src]
			img.Pix[dst+1] = v.Data[src+1]
			img.Pix[dst+2] = v.Data[src+2]
			img.Pix[dst+3] = 0xff
		}
	}
	return img
}

// cropDim validates a symmetric border crop and returns the interior
// shape.
func cropDim(dim models.Dim, rz, rx, ry int) (models.Dim, error) {
	if rz < 0 || rx < 0 || ry < 0 {
		return models.Dim{}, fmt.Errorf("negative crop radii (%d, %d, %d)", rz, rx, ry)
	}
	out := models.Dim{Z: dim.Z - 2*rz, X: dim.X - 2*rx, Y: dim.Y - 2*ry}
	if !out.Positive() {
		return models.Dim{}, fmt.Errorf(
			"volume %dx%dx%d too small to crop %d, %d, %d voxels from each end (interior would be %dx%dx%d)",
			dim.Z, dim.X, dim.Y, rz, rx, ry, out.Z, out.X, out.Y)
	}
	return out, nil
}
