package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"simexm/pkg/config"
	"simexm/pkg/dataset"
	"simexm/pkg/expansion"
	"simexm/pkg/labeling"
	"simexm/pkg/optics"
	"simexm/pkg/output"
	"simexm/pkg/validation"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing ground truth label slices (numbered PNGs)")
	configPath := flag.String("config", "simexm.yaml", "YAML configuration file (defaults are used if absent)")
	outputDir := flag.String("output", ".", "Directory to write results under")
	runName := flag.String("name", "simexm", "Run name, used as the output subdirectory")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the config path and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	simMode, err := output.ParseMode(cfg.Output.SimChannels)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	gtMode, err := output.ParseMode(cfg.Output.GtCells)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("SIMEXM - EXPANSION MICROSCOPY SIMULATION")
	fmt.Println("================================")

	voxel := cfg.VoxelSize()
	startTime := time.Now()

	// Step 1: Load the ground truth anatomy
	fmt.Println("Step 1: Loading ground truth stack...")
	stack, err := dataset.LoadLabelStack(*inputDir)
	if err != nil {
		log.Fatalf("Failed to load ground truth stack: %v", err)
	}
	ds := dataset.New(voxel)
	if err := ds.LoadFromLabelStack(stack); err != nil {
		log.Fatalf("Failed to build dataset: %v", err)
	}
	dim := ds.Dim()
	fmt.Printf("Loaded %d cells from a %dx%dx%d volume\n", len(ds.CellIDs()), dim.Z, dim.X, dim.Y)

	// Step 2: Label cells with fluorophores
	fmt.Println("Step 2: Labeling cells...")
	unit := labeling.NewUnit(ds, cfg.Labeling.Seed)
	err = unit.LabelCells(labeling.Pass{
		RegionType:   cfg.Labeling.Region,
		Fluorophores: cfg.Labeling.Fluorophores,
		Density:      cfg.Labeling.Density,
		MembraneOnly: cfg.Labeling.MembraneOnly,
	})
	if err != nil {
		log.Fatalf("Labeling failed: %v", err)
	}
	for fluor, ids := range unit.LabeledCells() {
		fmt.Printf("  %s: %d cells\n", fluor, len(ids))
	}

	// Step 3: Simulate the expanded, imaged signal channels
	fmt.Println("Step 3: Simulating signal channels...")
	radii, err := optics.KernelRadii(voxel, float64(cfg.Expansion.Factor))
	if err != nil {
		log.Fatalf("Optics setup failed: %v", err)
	}
	interior, err := optics.ValidInterior(dim, radii)
	if err != nil {
		log.Fatalf("Volume too small for the optical kernel: %v", err)
	}
	target, err := optics.OutputDim(interior, voxel, float64(cfg.Expansion.Factor), cfg.Optics)
	if err != nil {
		log.Fatalf("Optics setup failed: %v", err)
	}
	fmt.Printf("Detector grid: %dx%dx%d\n", target.Z, target.X, target.Y)

	masks, err := unit.LabeledVolumes(dim)
	if err != nil {
		log.Fatalf("Failed to render labeled volumes: %v", err)
	}
	for i, mask := range masks {
		cropped, err := mask.CropBorder(radii.Z-1, radii.X-1, radii.Y-1)
		if err != nil {
			log.Fatalf("Failed to crop channel %d: %v", i, err)
		}
		expanded, err := expansion.Expand(cropped, cfg.Expansion.Factor)
		if err != nil {
			log.Fatalf("Failed to expand channel %d: %v", i, err)
		}
		masks[i], err = optics.ScaleIntensityTo(expanded, target, optics.Bilinear)
		if err != nil {
			log.Fatalf("Failed to image channel %d: %v", i, err)
		}
	}
	if err := output.SaveSimulation(masks, *outputDir, *runName, simMode, format); err != nil {
		log.Fatalf("Failed to save simulation: %v", err)
	}

	// Step 4: Assemble and save the ground truth
	fmt.Println("Step 4: Saving ground truth...")
	proj, err := unit.GroundTruth(cfg.Output.GtMembraneOnly)
	if err != nil {
		log.Fatalf("Failed to project ground truth: %v", err)
	}
	gt := &output.GroundTruth{
		Projection:   proj,
		LabeledCells: unit.LabeledCells(),
		VolumeDim:    dim,
		VoxelDim:     voxel,
		Expansion:    cfg.Expansion,
		Optics:       cfg.Optics,
		Workers:      cfg.Output.Workers,
	}
	if err := gt.Save(*outputDir, *runName, gtMode, cfg.Output.GtRegion, format); err != nil {
		log.Fatalf("Failed to save ground truth: %v", err)
	}

	// Step 5: Score the simulated signal against the ground truth
	fmt.Println("Step 5: Validating simulation against ground truth...")
	for i, fluor := range unit.FluorsUsed() {
		channel, err := gt.Channel(fluor, cfg.Output.GtRegion)
		if err != nil {
			log.Fatalf("Failed to assemble %s ground truth: %v", fluor, err)
		}
		metrics, err := validation.Compare(channel, masks[i])
		if err != nil {
			log.Fatalf("Validation failed for %s: %v", fluor, err)
		}
		fmt.Printf("  %s: %s\n", fluor, metrics)
	}

	fmt.Printf("\nSimulation completed successfully in %.2f seconds!\n", time.Since(startTime).Seconds())
	fmt.Printf("Results saved under: %s/%s\n", *outputDir, *runName)
}
