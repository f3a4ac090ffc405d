// Package composite merges a foreground cutout, its mask, and a background
// scene into the pre-repaint image and the soft inverted mask fed to the
// inpainting model.
package composite

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// backgroundBlurSigma is the fixed Gaussian radius applied to real
// background scenes before compositing, to soften harsh photo edges.
const backgroundBlurSigma = 1.0

// Options controls compositing for one (foreground, background) pair.
type Options struct {
	// Resolution is the output width and height in pixels.
	Resolution int
	// BlurSize is the box-blur radius applied to the mask before
	// inversion; values below 1 leave the mask untouched.
	BlurSize int
}

// Result holds the composite image and the mask to pass to inpainting.
// The mask is soft and inverted: zero marks foreground pixels to preserve,
// high values mark the repaintable background region.
type Result struct {
	Image *image.NRGBA
	Mask  *image.NRGBA
}

// LoadRGB decodes the image at path and returns it as opaque NRGBA.
func LoadRGB(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode image %s: %w", path, err)
	}
	return ToRGB(img), nil
}

// ToRGB converts any image to NRGBA with full alpha, the working format for
// all compositing math.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Smooth applies the fixed Gaussian pre-blur used on real background
// scenes. Synthetic noise backgrounds skip this step.
func Smooth(img *image.NRGBA) *image.NRGBA {
	return imaging.Blur(img, backgroundBlurSigma)
}

// Noise returns a w×h opaque image of uniform random RGB values in [0,255),
// used when the noise-background option is active.
func Noise(rng *rand.Rand, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(255))
		img.Pix[i+1] = uint8(rng.Intn(255))
		img.Pix[i+2] = uint8(rng.Intn(255))
		img.Pix[i+3] = 0xff
	}
	return img
}

// Compose builds the pre-repaint image for one (foreground, background)
// pair. The mask is box-blurred and intensity-stretched into a soft mask
// (when BlurSize >= 1), inverted so that foreground pixels become the
// preserve region, and everything is resized to the target resolution.
// The output image keeps the original foreground pixels intact and fills
// all other pixels with the background.
func Compose(fg, mask, bkg *image.NRGBA, opts Options) Result {
	if opts.BlurSize >= 1 {
		mask = RescaleIntensity(BoxBlur(mask, opts.BlurSize), 127.5, 255)
	}
	mask = Invert(mask)

	size := opts.Resolution
	fg = imaging.Resize(fg, size, size, imaging.NearestNeighbor)
	mask = imaging.Resize(mask, size, size, imaging.NearestNeighbor)
	bkg = imaging.Resize(bkg, size, size, imaging.NearestNeighbor)

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			// Mask out the foreground region of the background,
			// then take the per-channel maximum. Where the mask is
			// zero the masked background is zero, so the original
			// foreground pixel survives exactly.
			masked := float64(bkg.Pix[i+c]) * float64(mask.Pix[i+c]) / 255
			if f := float64(fg.Pix[i+c]); masked > f {
				out.Pix[i+c] = uint8(masked)
			} else {
				out.Pix[i+c] = fg.Pix[i+c]
			}
		}
		out.Pix[i+3] = 0xff
	}

	return Result{Image: out, Mask: mask}
}

// BoxBlur applies a box blur of the given radius to the RGB channels, with
// edge pixels extended past the borders. The kernel side is 2*radius+1.
func BoxBlur(src *image.NRGBA, radius int) *image.NRGBA {
	if radius < 1 {
		return src
	}
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	window := float64(2*radius + 1)

	// Horizontal pass.
	tmp := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [3]float64
			for dx := -radius; dx <= radius; dx++ {
				sx := clampInt(x+dx, 0, w-1)
				o := y*src.Stride + sx*4
				sum[0] += float64(src.Pix[o])
				sum[1] += float64(src.Pix[o+1])
				sum[2] += float64(src.Pix[o+2])
			}
			o := y*tmp.Stride + x*4
			tmp.Pix[o] = uint8(math.Round(sum[0] / window))
			tmp.Pix[o+1] = uint8(math.Round(sum[1] / window))
			tmp.Pix[o+2] = uint8(math.Round(sum[2] / window))
			tmp.Pix[o+3] = 0xff
		}
	}

	// Vertical pass.
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [3]float64
			for dy := -radius; dy <= radius; dy++ {
				sy := clampInt(y+dy, 0, h-1)
				o := sy*tmp.Stride + x*4
				sum[0] += float64(tmp.Pix[o])
				sum[1] += float64(tmp.Pix[o+1])
				sum[2] += float64(tmp.Pix[o+2])
			}
			o := y*dst.Stride + x*4
			dst.Pix[o] = uint8(math.Round(sum[0] / window))
			dst.Pix[o+1] = uint8(math.Round(sum[1] / window))
			dst.Pix[o+2] = uint8(math.Round(sum[2] / window))
			dst.Pix[o+3] = 0xff
		}
	}

	return dst
}

// RescaleIntensity linearly stretches the RGB channels so the input range
// [lo, hi] maps onto [0, 255]. Values at or below lo clip to 0 and values
// at or above hi clip to 255. With lo=127.5 this widens a binary-ish mask's
// blurred boundary into a soft edge.
func RescaleIntensity(src *image.NRGBA, lo, hi float64) *image.NRGBA {
	scale := 255 / (hi - lo)
	dst := image.NewNRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := (float64(src.Pix[i+c]) - lo) * scale
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			dst.Pix[i+c] = uint8(v)
		}
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// Invert flips every RGB channel value (255 - v). Inverting the source mask
// turns its white foreground region into the zero preserve region.
func Invert(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i] = 255 - src.Pix[i]
		dst.Pix[i+1] = 255 - src.Pix[i+1]
		dst.Pix[i+2] = 255 - src.Pix[i+2]
		dst.Pix[i+3] = 0xff
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
