// Package config provides configuration loading and management for simexm.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"simexm/internal/models"
	"simexm/pkg/expansion"
	"simexm/pkg/optics"
)

// Config represents the simulation configuration loaded from YAML
type Config struct {
	// Volume parameters
	Volume struct {
		// VoxelDim is the physical size of one ground-truth voxel in
		// nanometers, per axis.
		VoxelDim struct {
			Z float64 `yaml:"z"`
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
		} `yaml:"voxelDim"`
	} `yaml:"volume"`

	// Expansion parameters
	Expansion expansion.Params `yaml:"expansion"`

	// Optics parameters
	Optics optics.Params `yaml:"optics"`

	// Labeling parameters
	Labeling struct {
		// Region selects which cell region the stain binds to.
		Region string `yaml:"region"`

		// Fluorophores are assigned to cells round-robin.
		Fluorophores []string `yaml:"fluorophores"`

		// Density is the fraction of cells that take up the stain.
		Density float64 `yaml:"density"`

		// MembraneOnly restricts the stain to membrane voxels.
		MembraneOnly bool `yaml:"membraneOnly"`

		// Seed makes cell sampling reproducible.
		Seed int64 `yaml:"seed"`
	} `yaml:"labeling"`

	// Output parameters
	Output struct {
		// Format is one of tiff, gif or "image sequence".
		Format string `yaml:"format"`

		// SimChannels is merged or splitted for the simulated signal.
		SimChannels string `yaml:"simChannels"`

		// GtCells is merged or splitted for the ground truth.
		GtCells string `yaml:"gtCells"`

		// GtRegion selects which region the ground truth records.
		GtRegion string `yaml:"gtRegion"`

		// GtMembraneOnly restricts the ground truth to membranes.
		GtMembraneOnly bool `yaml:"gtMembraneOnly"`

		// Workers bounds how many channels are assembled in parallel
		Workers int `yaml:"workers"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Anisotropic voxels: coarse z sectioning, fine lateral sampling.
	cfg.Volume.VoxelDim.Z = 40
	cfg.Volume.VoxelDim.X = 8
	cfg.Volume.VoxelDim.Y = 8

	cfg.Expansion.Factor = 20
	cfg.Optics = optics.DefaultParams()

	cfg.Labeling.Region = "full"
	cfg.Labeling.Fluorophores = []string{"alexa488"}
	cfg.Labeling.Density = 1.0
	cfg.Labeling.MembraneOnly = false
	cfg.Labeling.Seed = 42

	cfg.Output.Format = "tiff"
	cfg.Output.SimChannels = "merged"
	cfg.Output.GtCells = "merged"
	cfg.Output.GtRegion = "full"
	cfg.Output.GtMembraneOnly = false
	cfg.Output.Workers = runtime.NumCPU()

	return cfg
}

// VoxelSize returns the configured voxel pitch as a models.VoxelSize.
func (c *Config) VoxelSize() models.VoxelSize {
	return models.VoxelSize{
		Z: c.Volume.VoxelDim.Z,
		X: c.Volume.VoxelDim.X,
		Y: c.Volume.VoxelDim.Y,
	}
}

// Validate checks the parts of the configuration that the packages
// downstream cannot check for themselves.
func (c *Config) Validate() error {
	if c.Volume.VoxelDim.Z <= 0 || c.Volume.VoxelDim.X <= 0 || c.Volume.VoxelDim.Y <= 0 {
		return fmt.Errorf("voxel dimensions must be positive, got (%v, %v, %v)",
			c.Volume.VoxelDim.Z, c.Volume.VoxelDim.X, c.Volume.VoxelDim.Y)
	}
	if err := c.Expansion.Validate(); err != nil {
		return err
	}
	if len(c.Labeling.Fluorophores) == 0 {
		return fmt.Errorf("at least one fluorophore is required")
	}
	if c.Labeling.Density <= 0 || c.Labeling.Density > 1 {
		return fmt.Errorf("labeling density must be in (0, 1], got %v", c.Labeling.Density)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
