// Package writer persists generated images and the CSV annotation manifest.
package writer

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
)

// manifestHeader is the fixed three-column header of the annotation file.
var manifestHeader = []string{"directory", "image_name", "background_prompt"}

// Writer persists generated PNGs under a destination directory and appends
// one manifest row per image. It is the run's only writer; every manifest
// row is written with its own open/append/close cycle.
type Writer struct {
	destDir string
	annPath string
}

// New creates the destination and annotation directories and starts a fresh
// manifest. An existing manifest for the same output folder is removed and
// recreated with only the header.
func New(destDir, annDir, manifestName string) (*Writer, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}
	if err := os.MkdirAll(annDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create annotation directory: %w", err)
	}

	annPath := filepath.Join(annDir, manifestName)
	if _, err := os.Stat(annPath); err == nil {
		log.Printf("Removing existing manifest %s, a new one will be created", annPath)
		if err := os.Remove(annPath); err != nil {
			return nil, fmt.Errorf("cannot remove existing manifest: %w", err)
		}
	}

	f, err := os.Create(annPath)
	if err != nil {
		return nil, fmt.Errorf("cannot create manifest: %w", err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(manifestHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot write manifest header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot write manifest header: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("cannot write manifest header: %w", err)
	}

	return &Writer{destDir: destDir, annPath: annPath}, nil
}

// DestDir returns the directory generated images are written to.
func (w *Writer) DestDir() string {
	return w.destDir
}

// ManifestPath returns the path of the annotation CSV.
func (w *Writer) ManifestPath() string {
	return w.annPath
}

// WriteImage encodes img as PNG under the destination directory.
func (w *Writer) WriteImage(img image.Image, name string) error {
	f, err := os.Create(filepath.Join(w.destDir, name))
	if err != nil {
		return fmt.Errorf("cannot create output image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("cannot encode output image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot write output image: %w", err)
	}
	return nil
}

// Append writes one manifest row for a generated image. The manifest is
// opened in append mode for every row.
func (w *Writer) Append(imageName, phrase string) error {
	f, err := os.OpenFile(w.annPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot open manifest: %w", err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write([]string{w.destDir, imageName, phrase}); err != nil {
		f.Close()
		return fmt.Errorf("cannot append manifest row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("cannot append manifest row: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot append manifest row: %w", err)
	}
	return nil
}

// ImageName builds the output file name for a generated image. The counter
// is per foreground sample and starts at 1.
func ImageName(stem string, counter int, caption string) string {
	return fmt.Sprintf("%s_repaint-id_%06d+%s.png", stem, counter, caption)
}
