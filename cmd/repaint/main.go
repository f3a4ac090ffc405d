package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bagtoad/repaint/internal/caption"
	"github.com/bagtoad/repaint/internal/catalog"
	"github.com/bagtoad/repaint/internal/inpaint"
	"github.com/bagtoad/repaint/internal/repaint"
	"github.com/bagtoad/repaint/internal/writer"
	"github.com/spf13/cobra"
)

// catalogSeed fixes background sampling for reproducible runs.
const catalogSeed = 0

type options struct {
	srcDir        string
	bkgDirs       []string
	dest          string
	annDir        string
	guidanceScale float64
	numSteps      int
	strength      float64
	modelName     string
	resolution    int
	batchSize     int
	blurSize      int
	objects       []string
	maxBkgScenes  int
	noiseBkg      bool
	apiURL        string
}

func main() {
	var o options

	rootCmd := &cobra.Command{
		Use:   "repaint",
		Short: "Generate synthetic training images by repainting backgrounds with diffusion inpainting",
		Long: `repaint composites foreground-object cutouts onto sampled background
scenes and sends each composite, together with a soft inverted mask, to a
diffusion inpainting service so that lighting, shadows, and edges blend
naturally. Generated images are written as PNGs and recorded in a CSV
annotation manifest.

Each foreground sample in --src-dir must have a companion mask in the same
directory, named by substituting "img" with "mask" in the file name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}

	rootCmd.Flags().StringVar(&o.srcDir, "src-dir", "", "directory holding foreground samples and their masks")
	rootCmd.Flags().StringSliceVar(&o.bkgDirs, "bkg-dir", nil, "background scene directory (repeatable)")
	rootCmd.Flags().StringVar(&o.dest, "dest", "gen_samples", "root directory for generated images")
	rootCmd.Flags().StringVar(&o.annDir, "ann-dir", "gen_annotations", "annotation subdirectory under the destination")
	rootCmd.Flags().Float64VarP(&o.guidanceScale, "guidance-scale", "g", 6.0, "classifier-free guidance scale")
	rootCmd.Flags().IntVar(&o.numSteps, "num-steps", 60, "number of inference steps")
	rootCmd.Flags().Float64Var(&o.strength, "strength", 0.9, "repainting strength in [0,1]")
	rootCmd.Flags().StringVar(&o.modelName, "inpaint-model", "sd-xl-1.0", "inpainting model preset (sd-1.5 or sd-xl-1.0)")
	rootCmd.Flags().IntVar(&o.resolution, "resolution", 1024, "output resolution (height and width)")
	rootCmd.Flags().IntVar(&o.batchSize, "batch-size", 1, "images generated per inpainting call")
	rootCmd.Flags().IntVar(&o.blurSize, "blur-size", 5, "box-blur radius applied to masks (0 disables)")
	rootCmd.Flags().StringSliceVar(&o.objects, "objects", nil, "manually designated object names (reserved)")
	rootCmd.Flags().IntVar(&o.maxBkgScenes, "max-bkg-scenes", 2, "maximum background scenes sampled per category")
	rootCmd.Flags().BoolVar(&o.noiseBkg, "noise-bkg", false, "use synthetic uniform noise backgrounds")
	rootCmd.Flags().StringVar(&o.apiURL, "api-url", "http://127.0.0.1:7860", "base URL of the diffusion inpainting service")
	rootCmd.MarkFlagRequired("src-dir")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(o options) error {
	info, err := os.Stat(o.srcDir)
	if err != nil {
		return fmt.Errorf("cannot access source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", o.srcDir)
	}

	outDirName := filepath.Base(filepath.Clean(o.srcDir)) + "_repaint"
	destDir := filepath.Join(o.dest, outDirName)
	annDir := filepath.Join(destDir, o.annDir)
	manifestName := outDirName + "_ann.csv"

	fmt.Printf("Scanning backgrounds in %d directories...\n", len(o.bkgDirs))
	cat, err := catalog.Build(o.bkgDirs, o.maxBkgScenes, catalogSeed)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d background categories\n", len(cat))

	// Every catalog category must resolve to a caption phrase before any
	// inpainting call is made.
	if err := caption.Validate(cat.Categories()); err != nil {
		return err
	}

	preset, err := inpaint.ResolvePreset(o.modelName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := inpaint.NewClient(o.apiURL, preset)
	fmt.Printf("Loading inpainting model %s...\n", preset.Model)
	if err := client.Warmup(ctx); err != nil {
		return err
	}

	w, err := writer.New(destDir, annDir, manifestName)
	if err != nil {
		return err
	}

	runner := repaint.NewRunner(repaint.Config{
		SrcDir:        o.srcDir,
		Resolution:    o.resolution,
		BlurSize:      o.blurSize,
		BatchSize:     o.batchSize,
		GuidanceScale: o.guidanceScale,
		Steps:         o.numSteps,
		Strength:      o.strength,
		NoiseBkg:      o.noiseBkg,
		Objects:       o.objects,
	}, cat, client, w, os.Stdout)

	_, err = runner.Run(ctx)
	return err
}
