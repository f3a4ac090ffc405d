// Package caption maps background categories to location phrases and builds
// the prompts passed to the inpainting model.
package caption

import (
	"fmt"
	"strings"
)

// template is the fixed caption format; the placeholder receives a
// prepositional location phrase such as "in a garden".
const template = "a realistic photo of %s"

// negativeTerms lists the qualities the inpainting model is steered away
// from. It is deduplicated before use.
const negativeTerms = "semi-realistic, cgi, 3d, render, sketch, cartoon, drawing, anime, text, close up, cropped, out of frame, worst quality, low quality, jpeg artifacts, ugly, duplicate, morbid, mutilated, extra fingers, mutated hands, poorly drawn hands, poorly drawn face, mutation, deformed, blurry, dehydrated, bad anatomy, bad proportions, extra limbs, cloned face, disfigured, gross proportions, malformed limbs, missing arms, missing legs, extra arms, extra legs, fused fingers, too many fingers, long neck, mixture"

// phrases maps a background category (the name of the folder the scene
// images live in) to a short phrase describing the location.
var phrases = map[string]string{
	"garden":           "in a garden",
	"garden_lake":      "in a garden with the lake",
	"room":             "in a room",
	"farm":             "on the farm",
	"grass":            "on the grass",
	"galaxy":           "in the galaxy",
	"office":           "in the office",
	"forest":           "in the forest",
	"beach":            "on the beach",
	"museum":           "in the museum",
	"nationalpark":     "in the national park",
	"sand":             "on the sand",
	"sky":              "in the sky",
	"park":             "at the park",
	"airport":          "at the airport",
	"mountain":         "over the mountain",
	"sea":              "on the sea",
	"harbor":           "in the harbor",
	"field":            "in the field",
	"countryside":      "in the countryside",
	"bedroom":          "in the bedroom",
	"living-room":      "in the living room",
	"playroom":         "in the playroom",
	"kitchen":          "in the kitchen",
	"savannah":         "on the savannah",
	"zoo":              "at the zoo",
	"safari":           "in the safari",
	"circus":           "at the circus",
	"pasture":          "at the pasture",
	"meadow":           "on the meadow",
	"ocean":            "in the ocean",
	"coral-reef":       "on the coral reef",
	"aquarium":         "in the aquarium",
	"underwater-cave":  "in the underwater cave",
	"medieval-village": "in the medieval village",
	"sidewalk":         "on the sidewalk",
	"playground":       "at the playground",
	"clothing-store":   "in the clothing store",
	"closet":           "in the closet",
	"laboratory":       "in the laboratory",
	"jungle":           "in the jungle",
	"city":             "in the city",
	"desert":           "in the desert",
	"oasis":            "in the oasis",
	"pond":             "in the pond",
	"gym":              "in the gym",
	"grasslands":       "on the grasslands",
	"gallery":          "in the gallery",
	"cafe":             "in the cafe",
}

// Phrase returns the location phrase for a background category.
func Phrase(category string) (string, error) {
	p, ok := phrases[category]
	if !ok {
		return "", fmt.Errorf("unknown background category %q: no caption phrase defined", category)
	}
	return p, nil
}

// Validate checks that every category has a phrase. It is called after the
// background catalog is built and before any inpainting so that a missing
// entry aborts the run up front rather than mid-batch.
func Validate(categories []string) error {
	for _, c := range categories {
		if _, err := Phrase(c); err != nil {
			return err
		}
	}
	return nil
}

// Caption formats the repainting prompt for a location phrase.
func Caption(phrase string) string {
	return fmt.Sprintf(template, phrase)
}

// NegativePrompt returns the deduplicated negative prompt. The order of
// terms follows their first appearance; the set of terms is fixed.
func NegativePrompt() string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range strings.Split(negativeTerms, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return strings.Join(terms, ",")
}
