package output

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// Baseline TIFF tags and field types used by the writer.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagSampleFormat    = 339

	typeShort = 3
	typeLong  = 4

	photometricMinIsBlack = 1
	photometricRGB        = 2
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

// writeTIFF writes the stack as a little-endian uncompressed TIFF with
// one full-height strip per page and one IFD per page chained after the
// pixel data. golang.org/x/image/tiff only encodes single-image files,
// so the multi-page layout is emitted directly.
func writeTIFF(s stack, dest string) error {
	depth := s.depth()
	if depth == 0 {
		return fmt.Errorf("cannot write empty volume to %s", dest)
	}

	spp := s.samplesPerPixel()
	bits := s.bitsPerSample()
	pageSize := s.width() * s.height() * spp * bits / 8

	photometric := photometricMinIsBlack
	if spp == 3 {
		photometric = photometricRGB
	}

	// BitsPerSample needs an out-of-line value array for RGB pages;
	// 32-bit label pages carry an explicit unsigned SampleFormat.
	extraSize := 0
	if spp == 3 {
		extraSize = 2 * spp
	}
	entryCount := 9
	if bits == 32 {
		entryCount = 10
	}
	ifdSize := 2 + entryCount*12 + 4 + extraSize

	dataStart := 8
	ifdStart := dataStart + depth*pageSize
	ifdOffset := func(page int) int { return ifdStart + page*ifdSize }

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create TIFF file: %w", err)
	}
	w := bufio.NewWriter(f)

	// Header: little-endian magic and the offset of the first IFD.
	binary.Write(w, binary.LittleEndian, [2]byte{'I', 'I'})
	binary.Write(w, binary.LittleEndian, uint16(42))
	binary.Write(w, binary.LittleEndian, uint32(ifdStart))

	for z := 0; z < depth; z++ {
		if _, err := w.Write(s.pixels(z)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write page %d: %w", z, err)
		}
	}

	for z := 0; z < depth; z++ {
		entries := []ifdEntry{
			{tagImageWidth, typeLong, 1, uint32(s.width())},
			{tagImageLength, typeLong, 1, uint32(s.height())},
			{tagBitsPerSample, typeShort, uint32(spp), uint32(bits)},
			{tagCompression, typeShort, 1, 1},
			{tagPhotometric, typeShort, 1, uint32(photometric)},
			{tagStripOffsets, typeLong, 1, uint32(dataStart + z*pageSize)},
			{tagSamplesPerPixel, typeShort, 1, uint32(spp)},
			{tagRowsPerStrip, typeLong, 1, uint32(s.height())},
			{tagStripByteCounts, typeLong, 1, uint32(pageSize)},
		}
		if spp == 3 {
			entries[2].value = uint32(ifdOffset(z) + 2 + entryCount*12 + 4)
		}
		if bits == 32 {
			entries = append(entries, ifdEntry{tagSampleFormat, typeShort, 1, 1})
		}

		binary.Write(w, binary.LittleEndian, uint16(len(entries)))
		for _, e := range entries {
			binary.Write(w, binary.LittleEndian, e.tag)
			binary.Write(w, binary.LittleEndian, e.typ)
			binary.Write(w, binary.LittleEndian, e.count)
			if e.typ == typeShort && e.count == 1 {
				binary.Write(w, binary.LittleEndian, uint16(e.value))
				binary.Write(w, binary.LittleEndian, uint16(0))
			} else {
				binary.Write(w, binary.LittleEndian, e.value)
			}
		}

		next := uint32(0)
		if z < depth-1 {
			next = uint32(ifdOffset(z + 1))
		}
		binary.Write(w, binary.LittleEndian, next)

		if spp == 3 {
			for i := 0; i < spp; i++ {
				binary.Write(w, binary.LittleEndian, uint16(bits))
			}
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush TIFF file: %w", err)
	}
	return f.Close()
}
