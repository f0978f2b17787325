package output

import (
	"fmt"
	"os"
	"path/filepath"

	"simexm/pkg/volume"
)

// Mode selects whether multiple volumes share one output (merged) or
// each gets its own (splitted). It applies both to simulation channels
// and to ground-truth cells.
type Mode int

const (
	Merged Mode = iota
	Splitted
)

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "merged":
		return Merged, nil
	case "splitted":
		return Splitted, nil
	}
	return 0, fmt.Errorf("unsupported mode %q (want merged or splitted)", s)
}

func (m Mode) String() string {
	switch m {
	case Merged:
		return "merged"
	case Splitted:
		return "splitted"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) validate() error {
	switch m {
	case Merged, Splitted:
		return nil
	}
	return fmt.Errorf("unsupported mode %d", int(m))
}

// Merge groups an ordered sequence of single-channel volumes into
// consecutive RGB triples. The final group is right-padded with
// zero-valued channels of the first volume's shape until the count is
// a multiple of 3. Input order is preserved; grouping never reorders
// by content.
func Merge(volumes []*volume.Gray) ([]*volume.RGB, error) {
	if len(volumes) == 0 {
		return nil, nil
	}
	dim := volumes[0].Dim
	for i, v := range volumes {
		if v.Dim != dim {
			return nil, fmt.Errorf("channel %d has shape %dx%dx%d, want %dx%dx%d",
				i, v.Dim.Z, v.Dim.X, v.Dim.Y, dim.Z, dim.X, dim.Y)
		}
	}

	groups := (len(volumes) + 2) / 3
	out := make([]*volume.RGB, 0, groups)
	for g := 0; g < groups; g++ {
		rgb := volume.NewRGB(dim)
		for c := 0; c < 3; c++ {
			idx := 3*g + c
			if idx >= len(volumes) {
				// Missing channels stay zero.
				continue
			}
			src := volumes[idx].Data
			for i, v := range src {
				rgb.Data[3*i+c] = v
			}
		}
		out = append(out, rgb)
	}
	return out, nil
}

// SaveSimulation persists the simulated channel volumes under
// <path>/<name>/simulation/. In merged mode channels are composited
// into RGB triples named channels_<i><i+1><i+2>; in splitted mode each
// channel is written independently as channel_<i>.
func SaveSimulation(volumes []*volume.Gray, path, name string, channels Mode, format Format) error {
	if err := format.validate(); err != nil {
		return err
	}
	if err := channels.validate(); err != nil {
		return err
	}

	dest := filepath.Join(path, name, "simulation")
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create simulation directory: %w", err)
	}

	if channels == Merged {
		groups, err := Merge(volumes)
		if err != nil {
			return err
		}
		for g, rgb := range groups {
			i := 3 * g
			stackName := fmt.Sprintf("channels_%d%d%d", i, i+1, i+2)
			if err := WriteRGB(format, rgb, dest, stackName); err != nil {
				return fmt.Errorf("failed to save %s: %w", stackName, err)
			}
		}
		return nil
	}

	for i, v := range volumes {
		stackName := fmt.Sprintf("channel_%d", i)
		if err := Write(format, v, dest, stackName); err != nil {
			return fmt.Errorf("failed to save %s: %w", stackName, err)
		}
	}
	return nil
}
