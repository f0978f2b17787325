// Package output persists simulation and ground-truth volumes. Volumes
// are written through a closed set of format sinks (multi-page TIFF,
// animated GIF, or a PNG image sequence), composited into RGB stacks by
// the channel compositor, and reconstructed from the voxel projection
// by the ground-truth assembler.
package output

import (
	"fmt"
	"image"
	"path/filepath"

	"simexm/pkg/volume"
)

// Format selects the on-disk representation of a volume. It is a
// closed enumeration: dispatch is by exhaustive switch, and an
// unsupported value is rejected before any volume is allocated.
type Format int

const (
	// FormatTIFF writes one multi-page TIFF file per volume.
	FormatTIFF Format = iota

	// FormatGIF writes one animated GIF per volume, 0.5 s per frame.
	FormatGIF

	// FormatImageSequence writes one PNG per z-slice, zero-padded to
	// the slice-count digit width.
	FormatImageSequence
)

// ParseFormat maps a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "tiff":
		return FormatTIFF, nil
	case "gif":
		return FormatGIF, nil
	case "image sequence":
		return FormatImageSequence, nil
	}
	return 0, fmt.Errorf("unsupported output format %q (want tiff, gif or image sequence)", s)
}

func (f Format) String() string {
	switch f {
	case FormatTIFF:
		return "tiff"
	case FormatGIF:
		return "gif"
	case FormatImageSequence:
		return "image sequence"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// validate rejects out-of-range values, which can only come from a
// caller bypassing ParseFormat.
func (f Format) validate() error {
	switch f {
	case FormatTIFF, FormatGIF, FormatImageSequence:
		return nil
	}
	return fmt.Errorf("unsupported output format %d", int(f))
}

// stack is the page sequence a sink consumes.
type stack interface {
	depth() int

	// page renders slice z for the display formats (GIF, PNG).
	page(z int) image.Image

	// pixels returns the raw little-endian page bytes for TIFF.
	pixels(z int) []byte

	samplesPerPixel() int
	bitsPerSample() int
	width() int
	height() int
}

func (f Format) write(s stack, dir, name string) error {
	switch f {
	case FormatTIFF:
		return writeTIFF(s, filepath.Join(dir, name+".tiff"))
	case FormatGIF:
		return writeGIF(s, filepath.Join(dir, name+".gif"))
	case FormatImageSequence:
		return writeSequence(s, dir, name)
	}
	return f.validate()
}

// Write persists an 8-bit single-channel volume as <dir>/<name> in the
// given format.
func Write(f Format, v *volume.Gray, dir, name string) error {
	if err := f.validate(); err != nil {
		return err
	}
	return f.write(grayStack{v}, dir, name)
}

// WriteRGB persists an 8-bit three-channel volume.
func WriteRGB(f Format, v *volume.RGB, dir, name string) error {
	if err := f.validate(); err != nil {
		return err
	}
	return f.write(rgbStack{v}, dir, name)
}

// WriteLabels persists an integer label volume. TIFF keeps the native
// 32-bit labels. GIF and PNG containers cannot carry 32 bits per
// sample, so for those the labels are first re-ranked densely in
// ascending order (smallest label becomes 1); distinct identity is
// preserved as long as the container depth allows.
func WriteLabels(f Format, v *volume.Labels, dir, name string) error {
	if err := f.validate(); err != nil {
		return err
	}
	if f == FormatTIFF {
		return f.write(labelStack{v: v}, dir, name)
	}
	return f.write(newRankedStack(v), dir, name)
}

// grayStack adapts a Gray volume: its data is already laid out one
// contiguous page per slice.
type grayStack struct {
	v *volume.Gray
}

func (s grayStack) depth() int           { return s.v.Dim.Z }
func (s grayStack) width() int           { return s.v.Dim.Y }
func (s grayStack) height() int          { return s.v.Dim.X }
func (s grayStack) samplesPerPixel() int { return 1 }
func (s grayStack) bitsPerSample() int   { return 8 }
func (s grayStack) page(z int) image.Image {
	return s.v.SliceImage(z)
}
func (s grayStack) pixels(z int) []byte {
	n := s.v.Dim.X * s.v.Dim.Y
	return s.v.Data[z*n : (z+1)*n]
}

// rgbStack adapts an RGB volume; pages are interleaved RGB bytes.
type rgbStack struct {
	v *volume.RGB
}

func (s rgbStack) depth() int           { return s.v.Dim.Z }
func (s rgbStack) width() int           { return s.v.Dim.Y }
func (s rgbStack) height() int          { return s.v.Dim.X }
func (s rgbStack) samplesPerPixel() int { return 3 }
func (s rgbStack) bitsPerSample() int   { return 8 }
func (s rgbStack) page(z int) image.Image {
	return s.v.SliceImage(z)
}
func (s rgbStack) pixels(z int) []byte {
	n := 3 * s.v.Dim.X * s.v.Dim.Y
	return s.v.Data[z*n : (z+1)*n]
}

// labelStack adapts a label volume for TIFF: native 32-bit pages.
type labelStack struct {
	v *volume.Labels
}

func (s labelStack) depth() int           { return s.v.Dim.Z }
func (s labelStack) width() int           { return s.v.Dim.Y }
func (s labelStack) height() int          { return s.v.Dim.X }
func (s labelStack) samplesPerPixel() int { return 1 }
func (s labelStack) bitsPerSample() int   { return 32 }
func (s labelStack) page(z int) image.Image {
	// TIFF never renders pages; the ranked stack covers the display
	// formats.
	panic("labelStack does not render display pages")
}
func (s labelStack) pixels(z int) []byte {
	n := s.v.Dim.X * s.v.Dim.Y
	out := make([]byte, 4*n)
	for i, label := range s.v.Data[z*n : (z+1)*n] {
		out[4*i] = byte(label)
		out[4*i+1] = byte(label >> 8)
		out[4*i+2] = byte(label >> 16)
		out[4*i+3] = byte(label >> 24)
	}
	return out
}

// rankedStack renders a label volume through a dense rank mapping into
// 16-bit grayscale pages.
type rankedStack struct {
	v     *volume.Labels
	ranks map[uint32]uint16
}

func newRankedStack(v *volume.Labels) rankedStack {
	ranks := make(map[uint32]uint16)
	for i, label := range v.Distinct() {
		ranks[label] = uint16(i + 1)
	}
	return rankedStack{v: v, ranks: ranks}
}

func (s rankedStack) depth() int           { return s.v.Dim.Z }
func (s rankedStack) width() int           { return s.v.Dim.Y }
func (s rankedStack) height() int          { return s.v.Dim.X }
func (s rankedStack) samplesPerPixel() int { return 1 }
func (s rankedStack) bitsPerSample() int   { return 16 }
func (s rankedStack) page(z int) image.Image {
	img := image.NewGray16(image.Rect(0, 0, s.v.Dim.Y, s.v.Dim.X))
	for x := 0; x < s.v.Dim.X; x++ {
		for y := 0; y < s.v.Dim.Y; y++ {
			rank := s.ranks[s.v.At(z, x, y)]
			off := img.PixOffset(y, x)
			img.Pix[off] = byte(rank >> 8)
			img.Pix[off+1] = byte(rank)
		}
	}
	return img
}
func (s rankedStack) pixels(z int) []byte {
	n := s.v.Dim.X * s.v.Dim.Y
	out := make([]byte, 2*n)
	for i, label := range s.v.Data[z*n : (z+1)*n] {
		rank := s.ranks[label]
		out[2*i] = byte(rank)
		out[2*i+1] = byte(rank >> 8)
	}
	return out
}
