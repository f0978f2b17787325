package models

// Voxel addresses a single cell of a 3D grid.
// Coordinates are stored in (z, x, y) order, matching the slice-major
// layout of the original microscopy stacks: z selects the slice, x the
// row within the slice and y the column.
type Voxel struct {
	Z, X, Y int32
}

// Dim describes the shape of a voxel grid in (z, x, y) order.
type Dim struct {
	// Z is the number of slices in the stack
	Z int

	// X is the number of rows per slice
	X int

	// Y is the number of columns per slice
	Y int
}

// Count returns the total number of voxels in a grid of this shape.
func (d Dim) Count() int {
	return d.Z * d.X * d.Y
}

// Positive reports whether every axis has at least one voxel.
func (d Dim) Positive() bool {
	return d.Z > 0 && d.X > 0 && d.Y > 0
}

// Contains reports whether the voxel lies inside a grid of this shape.
func (d Dim) Contains(v Voxel) bool {
	return v.Z >= 0 && int(v.Z) < d.Z &&
		v.X >= 0 && int(v.X) < d.X &&
		v.Y >= 0 && int(v.Y) < d.Y
}

// VoxelSize is the physical pitch of a voxel in nanometers, per axis,
// in (z, x, y) order. Microscopy stacks are typically anisotropic, with
// a much coarser pitch along z than within a slice.
type VoxelSize struct {
	Z, X, Y float64
}

// Scaled returns the pitch multiplied by a linear scale factor on every
// axis, e.g. the post-expansion pitch of an expanded sample.
func (s VoxelSize) Scaled(factor float64) VoxelSize {
	return VoxelSize{Z: s.Z * factor, X: s.X * factor, Y: s.Y * factor}
}
