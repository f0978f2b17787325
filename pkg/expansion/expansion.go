// Package expansion models the physical expansion step: the tissue is
// scaled up by a linear factor before imaging, which multiplies the
// voxel count of a volume while keeping the acquisition pitch fixed.
package expansion

import (
	"fmt"

	"simexm/internal/models"
	"simexm/pkg/volume"
)

// Params holds the expansion parameters. Factor is the linear physical
// scale-up applied to the tissue; the protocol default is 20.
type Params struct {
	Factor int `yaml:"factor"`
}

// Validate rejects a non-positive expansion factor.
func (p Params) Validate() error {
	if p.Factor <= 0 {
		return fmt.Errorf("expansion factor must be positive, got %d", p.Factor)
	}
	return nil
}

// ExpandedDim returns the shape of a volume after expansion by the
// given factor.
func ExpandedDim(dim models.Dim, factor int) models.Dim {
	return models.Dim{Z: dim.Z * factor, X: dim.X * factor, Y: dim.Y * factor}
}

// Expand upsamples an intensity volume by the integer expansion factor,
// replicating every voxel factor times along each axis. The result is
// factor cubed larger than the input, so callers expanding full stacks
// should size their inputs accordingly.
func Expand(v *volume.Gray, factor int) (*volume.Gray, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("expansion factor must be positive, got %d", factor)
	}
	out := volume.NewGray(ExpandedDim(v.Dim, factor))
	for z := 0; z < out.Dim.Z; z++ {
		for x := 0; x < out.Dim.X; x++ {
			for y := 0; y < out.Dim.Y; y++ {
				out.Set(z, x, y, v.At(z/factor, x/factor, y/factor))
			}
		}
	}
	return out, nil
}
