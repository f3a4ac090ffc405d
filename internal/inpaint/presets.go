// Package inpaint talks to the external diffusion inpainting service that
// repaints composited images.
package inpaint

import (
	"fmt"
	"sort"
	"strings"
)

// Pipeline kinds understood by the inpainting service.
const (
	PipelineStableDiffusion = "stable-diffusion-inpaint"
	PipelineAuto            = "auto-inpaint"
)

// Preset binds a model selector name to a pipeline kind, a base model
// identifier, and an optional refiner model identifier. Presets are
// resolved once at startup and never branched on per-iteration.
type Preset struct {
	Name     string
	Pipeline string
	Model    string
	Refiner  string
}

// HasRefiner reports whether the preset runs a second refinement pass.
func (p Preset) HasRefiner() bool {
	return p.Refiner != ""
}

var presets = map[string]Preset{
	"sd-1.5": {
		Name:     "sd-1.5",
		Pipeline: PipelineStableDiffusion,
		Model:    "runwayml/stable-diffusion-inpainting",
	},
	"sd-xl-1.0": {
		Name:     "sd-xl-1.0",
		Pipeline: PipelineAuto,
		Model:    "diffusers/stable-diffusion-xl-1.0-inpainting-0.1",
		Refiner:  "stabilityai/stable-diffusion-xl-refiner-1.0",
	},
}

// ResolvePreset looks up an inpainting model preset by name.
func ResolvePreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown inpainting model %q (valid choices: %s)",
			name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames returns the valid preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
