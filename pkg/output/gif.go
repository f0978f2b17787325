package output

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
)

// gifFrameDelay is 0.5 s per z-slice, in hundredths of a second.
const gifFrameDelay = 50

// writeGIF writes the stack as one looping animated GIF with a frame
// per z-slice, quantized to the Plan9 palette with Floyd-Steinberg
// dithering.
func writeGIF(s stack, dest string) error {
	depth := s.depth()
	if depth == 0 {
		return fmt.Errorf("cannot write empty volume to %s", dest)
	}

	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, depth),
		Delay:     make([]int, 0, depth),
		LoopCount: 0,
	}
	for z := 0; z < depth; z++ {
		frame := s.page(z)
		paletted := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, frame.Bounds(), frame, image.Point{})
		out.Image = append(out.Image, paletted)
		out.Delay = append(out.Delay, gifFrameDelay)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create GIF file: %w", err)
	}
	if err := gif.EncodeAll(f, out); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode GIF: %w", err)
	}
	return f.Close()
}
