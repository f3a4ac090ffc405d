// Package catalog builds the background scene catalog: a mapping from
// background category (folder name) to a sampled set of image files.
package catalog

import (
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SupportedExtensions contains the set of background image extensions we
// accept, matched case-insensitively.
var SupportedExtensions = map[string]bool{
	".rgb":  true,
	".gif":  true,
	".pbm":  true,
	".pgm":  true,
	".ppm":  true,
	".tiff": true,
	".rast": true,
	".xbm":  true,
	".jpeg": true,
	".jpg":  true,
	".bmp":  true,
	".png":  true,
	".webp": true,
	".ext":  true,
}

// Catalog maps a background category name to the absolute paths of its
// sampled scene images. It is built once per run and read-only afterwards.
type Catalog map[string][]string

// Build walks each root directory and records, for every directory holding
// at least one image file, up to maxPerCategory files drawn without
// replacement by a generator seeded with seed. The category key is the
// directory's base name; if the same name appears under more than one root,
// the later root wins.
//
// Sampling is deterministic for a fixed directory tree and seed: directories
// are visited in lexical order and file listings are sorted before drawing.
func Build(roots []string, maxPerCategory int, seed int64) (Catalog, error) {
	rng := rand.New(rand.NewSource(seed))
	cat := Catalog{}

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			files, err := listImages(path)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return nil // no empty categories
			}
			cat[filepath.Base(path)] = sample(rng, files, maxPerCategory)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot scan background directory %s: %w", root, err)
		}
	}

	return cat, nil
}

// Categories returns the catalog's category names in sorted order so that
// runs iterate backgrounds deterministically.
func (c Catalog) Categories() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// listImages returns the sorted image file paths directly inside dir.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if SupportedExtensions[ext] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// sample draws up to n files without replacement.
func sample(rng *rand.Rand, files []string, n int) []string {
	if n > len(files) {
		n = len(files)
	}
	picked := make([]string, 0, n)
	for _, idx := range rng.Perm(len(files))[:n] {
		picked = append(picked, files[idx])
	}
	return picked
}
