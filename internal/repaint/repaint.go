// Package repaint drives the generation run: for every foreground sample,
// every background category, and every sampled scene, it composites, calls
// the inpainting service, and persists the outputs.
package repaint

import (
	"context"
	"fmt"
	"image"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/bagtoad/repaint/internal/caption"
	"github.com/bagtoad/repaint/internal/catalog"
	"github.com/bagtoad/repaint/internal/composite"
	"github.com/bagtoad/repaint/internal/inpaint"
	"github.com/bagtoad/repaint/internal/report"
	"github.com/bagtoad/repaint/internal/writer"
)

// noiseSeed fixes the generator behind synthetic noise backgrounds so runs
// are reproducible end to end.
const noiseSeed = 0

// Config holds the knobs of one generation run.
type Config struct {
	SrcDir        string
	Resolution    int
	BlurSize      int
	BatchSize     int
	GuidanceScale float64
	Steps         int
	Strength      float64
	NoiseBkg      bool
	// Objects optionally names the foreground objects by hand. It is
	// reserved for annotation tooling and not consumed by compositing.
	Objects []string
}

// Runner executes the run loop strictly sequentially: no concurrency, no
// retries, any failure aborts the run.
type Runner struct {
	cfg       Config
	catalog   catalog.Catalog
	inpainter inpaint.Inpainter
	out       *writer.Writer
	progress  io.Writer
	rng       *rand.Rand
}

// NewRunner wires a run loop from its collaborators. progress receives
// human-readable run output; pass io.Discard to silence it.
func NewRunner(cfg Config, cat catalog.Catalog, inp inpaint.Inpainter, out *writer.Writer, progress io.Writer) *Runner {
	return &Runner{
		cfg:       cfg,
		catalog:   cat,
		inpainter: inp,
		out:       out,
		progress:  progress,
		rng:       rand.New(rand.NewSource(noiseSeed)),
	}
}

// ListForegrounds returns the sorted foreground sample file names in
// srcDir: regular files whose name contains "img".
func ListForegrounds(srcDir string) ([]string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read source directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if strings.Contains(entry.Name(), "img") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no foreground samples found in %s", srcDir)
	}
	return names, nil
}

// MaskPath derives the companion mask path for a foreground image by
// substituting "img" with "mask" in the file name. Every foreground must
// have a mask at the derived path.
func MaskPath(imgPath string) string {
	dir, base := filepath.Split(imgPath)
	return filepath.Join(dir, strings.Replace(base, "img", "mask", 1))
}

// Run processes every (foreground × category × scene) triple and returns
// the number of images generated. The per-foreground output counter starts
// at 1 and spans all of that foreground's backgrounds.
func (r *Runner) Run(ctx context.Context) (int, error) {
	foregrounds, err := ListForegrounds(r.cfg.SrcDir)
	if err != nil {
		return 0, err
	}

	report.Banner(r.progress, "Step 3: Background Repainting")

	negPrompt := caption.NegativePrompt()
	categories := r.catalog.Categories()
	total := 0

	for idx, fgName := range foregrounds {
		imgPath := filepath.Join(r.cfg.SrcDir, fgName)
		maskPath := MaskPath(imgPath)
		if _, err := os.Stat(maskPath); err != nil {
			return total, fmt.Errorf("mask not found for %s (expected %s): %w", fgName, maskPath, err)
		}
		stem := strings.TrimSuffix(fgName, filepath.Ext(fgName))

		cnt := 0
		for _, category := range categories {
			phrase, err := caption.Phrase(category)
			if err != nil {
				return total, err
			}
			capt := caption.Caption(phrase)

			for _, bkgFile := range r.catalog[category] {
				bkg, bkgLabel, err := r.loadBackground(bkgFile)
				if err != nil {
					return total, err
				}

				// Reload the foreground and mask for every pair
				// since compositing mutates the mask values.
				fg, err := composite.LoadRGB(imgPath)
				if err != nil {
					return total, fmt.Errorf("cannot load foreground %s: %w", fgName, err)
				}
				mask, err := composite.LoadRGB(maskPath)
				if err != nil {
					return total, fmt.Errorf("cannot load mask for %s: %w", fgName, err)
				}

				merged := composite.Compose(fg, mask, bkg, composite.Options{
					Resolution: r.cfg.Resolution,
					BlurSize:   r.cfg.BlurSize,
				})

				report.Pair(r.progress, idx, len(foregrounds), fgName, bkgLabel, phrase, capt)

				images, err := r.inpainter.Inpaint(ctx, merged.Image, merged.Mask, inpaint.Params{
					Prompt:         capt,
					NegativePrompt: negPrompt,
					GuidanceScale:  r.cfg.GuidanceScale,
					Steps:          r.cfg.Steps,
					Strength:       r.cfg.Strength,
					BatchSize:      r.cfg.BatchSize,
				})
				if err != nil {
					return total, fmt.Errorf("inpainting failed for %s on %s: %w", fgName, bkgLabel, err)
				}

				for _, out := range images {
					cnt++
					name := writer.ImageName(stem, cnt, capt)
					if err := r.out.WriteImage(out, name); err != nil {
						return total, err
					}
					if err := r.out.Append(name, phrase); err != nil {
						return total, err
					}
					total++
				}
			}
		}
	}

	report.Summary(r.progress, total, r.out.ManifestPath())
	return total, nil
}

// loadBackground returns the background image for one pair: either the
// Gaussian-smoothed scene photo, or synthetic noise (which skips the
// smoothing pass) when the noise option is active.
func (r *Runner) loadBackground(bkgFile string) (*image.NRGBA, string, error) {
	if r.cfg.NoiseBkg {
		return composite.Noise(r.rng, r.cfg.Resolution, r.cfg.Resolution), "Noise", nil
	}
	bkg, err := composite.LoadRGB(bkgFile)
	if err != nil {
		return nil, "", fmt.Errorf("cannot load background %s: %w", bkgFile, err)
	}
	label := strings.TrimSuffix(filepath.Base(bkgFile), filepath.Ext(bkgFile))
	return composite.Smooth(bkg), label, nil
}
