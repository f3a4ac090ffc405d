// This program generates sample inputs for manual runs and the integration
// test: a foreground cutout with its mask, plus background scenes grouped
// by category folders.
//
//go:build ignore

package main

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
)

func main() {
	src := filepath.Join("testdata", "src")
	garden := filepath.Join("testdata", "backgrounds", "garden")
	beach := filepath.Join("testdata", "backgrounds", "beach")
	for _, dir := range []string{src, garden, beach} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			panic(err)
		}
	}

	// A red object centered on black, and its binary mask.
	generateCutout(filepath.Join(src, "img_0001.png"), filepath.Join(src, "mask_0001.png"))

	// Green garden scenes.
	generateScene(filepath.Join(garden, "scene1.png"), color.NRGBA{60, 140, 60, 255})
	generateScene(filepath.Join(garden, "scene2.png"), color.NRGBA{80, 160, 70, 255})

	// A sandy beach scene, JPEG to cover a second extension.
	generateSceneJPEG(filepath.Join(beach, "scene1.jpg"), color.NRGBA{220, 200, 150, 255})

	// A non-image file that catalog scanning must skip.
	os.WriteFile(filepath.Join("testdata", "backgrounds", "readme.txt"), []byte("background scenes for tests\n"), 0644)
}

func generateCutout(imgPath, maskPath string) {
	const size = 64
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	mask := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			inObject := x >= 16 && x < 48 && y >= 16 && y < 48
			if inObject {
				img.Set(x, y, color.NRGBA{200, 40, 40, 255})
				mask.Set(x, y, color.NRGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.NRGBA{0, 0, 0, 255})
				mask.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	savePNG(imgPath, img)
	savePNG(maskPath, mask)
}

func generateScene(path string, c color.NRGBA) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			// Slight gradient so resizing and blurring have texture
			// to work on.
			img.Set(x, y, color.NRGBA{c.R, c.G + uint8(y/4), c.B, 255})
		}
	}
	savePNG(path, img)
}

func generateSceneJPEG(path string, c color.NRGBA) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
}

func savePNG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		panic(err)
	}
}
