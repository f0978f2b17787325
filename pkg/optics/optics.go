// Package optics models the geometric side of the simulated optical
// system: how large the point-spread-function kernel is on the sampled
// grid, how much of a volume survives a valid-mode convolution, and how
// a volume is rescaled from the acquisition grid onto the detector
// grid. The photophysical side of the simulation (convolution kernel
// shape, noise) lives outside this package.
package optics

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"simexm/internal/models"
	"simexm/pkg/volume"
)

// psfNormalization is the physical half-extent, in nanometers, that the
// optics unit uses to size its convolution kernel on any grid.
const psfNormalization = 1000.0

// Params is the named optical parameter set, forwarded verbatim from
// configuration to the rescale primitive. Fields not used by scaling
// are carried for the downstream photophysics collaborators.
type Params struct {
	// PixelSize is the physical size of a detector pixel in nm.
	PixelSize float64 `yaml:"pixelSize"`

	// ObjectiveFactor is the objective magnification; the sample-plane
	// pixel pitch is PixelSize / ObjectiveFactor.
	ObjectiveFactor float64 `yaml:"objectiveFactor"`

	// FocalPlaneDepth is the axial sampling pitch in nm.
	FocalPlaneDepth float64 `yaml:"focalPlaneDepth"`

	// NumericalAperture of the objective.
	NumericalAperture float64 `yaml:"numericalAperture"`

	// RefractoryIndex of the immersion medium.
	RefractoryIndex float64 `yaml:"refractoryIndex"`
}

// DefaultParams returns the confocal defaults of the reference
// instrument.
func DefaultParams() Params {
	return Params{
		PixelSize:         6500,
		ObjectiveFactor:   40.0,
		FocalPlaneDepth:   500,
		NumericalAperture: 1.15,
		RefractoryIndex:   1.33,
	}
}

// Validate rejects parameter values the rescale primitive cannot work
// with.
func (p Params) Validate() error {
	if p.PixelSize <= 0 || p.ObjectiveFactor <= 0 || p.FocalPlaneDepth <= 0 {
		return fmt.Errorf(
			"optics parameters must be positive: pixelSize=%g objectiveFactor=%g focalPlaneDepth=%g",
			p.PixelSize, p.ObjectiveFactor, p.FocalPlaneDepth)
	}
	return nil
}

// Interpolation selects the resampling mode of the rescale primitive.
type Interpolation int

const (
	// Nearest preserves discrete values; the only mode valid for
	// label volumes.
	Nearest Interpolation = iota

	// Bilinear blends neighboring samples; intensity volumes only.
	Bilinear
)

// KernelRadii returns the per-axis half-extent of the point-spread
// kernel on a grid with the given pre-expansion pitch, expanded by
// factor: half = ceil(1000 / (pitch * factor)). The kernel width on an
// axis is 2*half - 1, always odd and centered.
func KernelRadii(voxel models.VoxelSize, factor float64) (models.Dim, error) {
	if factor <= 0 {
		return models.Dim{}, fmt.Errorf("expansion factor must be positive, got %g", factor)
	}
	pitch := voxel.Scaled(factor)
	if pitch.Z <= 0 || pitch.X <= 0 || pitch.Y <= 0 {
		return models.Dim{}, fmt.Errorf("voxel pitch must be positive, got (%g, %g, %g)",
			voxel.Z, voxel.X, voxel.Y)
	}
	return models.Dim{
		Z: int(math.Ceil(psfNormalization / pitch.Z)),
		X: int(math.Ceil(psfNormalization / pitch.X)),
		Y: int(math.Ceil(psfNormalization / pitch.Y)),
	}, nil
}

// KernelWidths returns the odd kernel widths corresponding to the given
// radii.
func KernelWidths(radii models.Dim) models.Dim {
	return models.Dim{Z: 2*radii.Z - 1, X: 2*radii.X - 1, Y: 2*radii.Y - 1}
}

// ValidInterior returns the shape left after a valid-mode convolution
// with the given kernel radii: half-1 voxels are lost from both ends of
// every axis. Shapes too small for the kernel are rejected with the
// offending dimensions.
func ValidInterior(dim models.Dim, radii models.Dim) (models.Dim, error) {
	widths := KernelWidths(radii)
	out := models.Dim{
		Z: dim.Z - (widths.Z - 1),
		X: dim.X - (widths.X - 1),
		Y: dim.Y - (widths.Y - 1),
	}
	if !out.Positive() {
		return models.Dim{}, fmt.Errorf(
			"volume %dx%dx%d too small for PSF kernel %dx%dx%d (valid interior would be %dx%dx%d)",
			dim.Z, dim.X, dim.Y, widths.Z, widths.X, widths.Y, out.Z, out.X, out.Y)
	}
	return out, nil
}

// OutputDim returns the detector-grid shape of a volume acquired at the
// given pre-expansion pitch and expansion factor: the z axis is
// resampled to the focal plane pitch and the lateral axes to the
// sample-plane pixel pitch.
func OutputDim(dim models.Dim, voxel models.VoxelSize, factor float64, p Params) (models.Dim, error) {
	if err := p.Validate(); err != nil {
		return models.Dim{}, err
	}
	if factor <= 0 {
		return models.Dim{}, fmt.Errorf("expansion factor must be positive, got %g", factor)
	}
	pitch := voxel.Scaled(factor)
	lateral := p.PixelSize / p.ObjectiveFactor
	out := models.Dim{
		Z: int(math.Round(float64(dim.Z) * pitch.Z / p.FocalPlaneDepth)),
		X: int(math.Round(float64(dim.X) * pitch.X / lateral)),
		Y: int(math.Round(float64(dim.Y) * pitch.Y / lateral)),
	}
	if !out.Positive() {
		return models.Dim{}, fmt.Errorf(
			"volume %dx%dx%d rescales to empty detector grid %dx%dx%d",
			dim.Z, dim.X, dim.Y, out.Z, out.X, out.Y)
	}
	return out, nil
}

// Scale resamples a label volume from its acquisition grid onto the
// detector grid. Only nearest-neighbor interpolation is accepted:
// labels are discrete identities and any blending mode would invent
// values absent from the input.
func Scale(v *volume.Labels, voxel models.VoxelSize, mode Interpolation, factor float64, p Params) (*volume.Labels, error) {
	if mode != Nearest {
		return nil, fmt.Errorf("label volumes must be rescaled with nearest interpolation")
	}
	target, err := OutputDim(v.Dim, voxel, factor, p)
	if err != nil {
		return nil, err
	}
	return scaleLabelsTo(v, target), nil
}

// ScaleIntensity resamples an 8-bit intensity volume onto the detector
// grid, with nearest or bilinear interpolation within each slice plane
// and nearest slice selection along z.
func ScaleIntensity(v *volume.Gray, voxel models.VoxelSize, mode Interpolation, factor float64, p Params) (*volume.Gray, error) {
	target, err := OutputDim(v.Dim, voxel, factor, p)
	if err != nil {
		return nil, err
	}
	return ScaleIntensityTo(v, target, mode)
}

// ScaleIntensityTo resamples an intensity volume to an explicit target
// shape; used when ground truth and simulation must land on the exact
// same grid regardless of rounding.
func ScaleIntensityTo(v *volume.Gray, target models.Dim, mode Interpolation) (*volume.Gray, error) {
	if !target.Positive() {
		return nil, fmt.Errorf("target shape %dx%dx%d is empty", target.Z, target.X, target.Y)
	}
	var scaler draw.Scaler
	switch mode {
	case Nearest:
		scaler = draw.NearestNeighbor
	case Bilinear:
		scaler = draw.BiLinear
	default:
		return nil, fmt.Errorf("unknown interpolation mode %d", mode)
	}

	out := volume.NewGray(target)
	rect := image.Rect(0, 0, target.Y, target.X)
	for z := 0; z < target.Z; z++ {
		src := v.SliceImage(nearestIndex(z, target.Z, v.Dim.Z))
		dst := image.NewGray(rect)
		scaler.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
		for x := 0; x < target.X; x++ {
			row := out.Index(z, x, 0)
			copy(out.Data[row:row+target.Y], dst.Pix[x*dst.Stride:x*dst.Stride+target.Y])
		}
	}
	return out, nil
}

// scaleLabelsTo nearest-neighbor resamples a label volume to the target
// shape. Every output voxel copies one input voxel, so the output label
// set is always a subset of the input label set.
func scaleLabelsTo(v *volume.Labels, target models.Dim) *volume.Labels {
	out := volume.NewLabels(target)
	for z := 0; z < target.Z; z++ {
		sz := nearestIndex(z, target.Z, v.Dim.Z)
		for x := 0; x < target.X; x++ {
			sx := nearestIndex(x, target.X, v.Dim.X)
			for y := 0; y < target.Y; y++ {
				out.Set(z, x, y, v.At(sz, sx, nearestIndex(y, target.Y, v.Dim.Y)))
			}
		}
	}
	return out
}

// nearestIndex maps output coordinate i on an axis of extent out to the
// nearest source coordinate on an axis of extent in, sampling at voxel
// centers.
func nearestIndex(i, out, in int) int {
	src := int((float64(i) + 0.5) * float64(in) / float64(out))
	if src >= in {
		src = in - 1
	}
	return src
}
