package output

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
)

// writeSequence writes the stack as one PNG per z-slice, named
// <name>_<index>.png with the index zero-padded to the slice-count
// digit width so the files sort in slice order.
func writeSequence(s stack, dir, name string) error {
	depth := s.depth()
	if depth == 0 {
		return fmt.Errorf("cannot write empty volume to %s", filepath.Join(dir, name))
	}

	width := len(strconv.Itoa(depth))
	for z := 0; z < depth; z++ {
		dest := filepath.Join(dir, fmt.Sprintf("%s_%0*d.png", name, width, z))
		if err := writePNG(s, z, dest); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(s stack, z int, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create slice file: %w", err)
	}
	if err := png.Encode(f, s.page(z)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode slice %d: %w", z, err)
	}
	return f.Close()
}
