package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"

	"github.com/bagtoad/repaint/internal/composite"
)

// refinerDenoisingStart is the fraction of the denoising trajectory already
// covered by the base pass; the refiner only runs the final portion.
const refinerDenoisingStart = 0.75

// Params holds the numeric controls and prompts for one inpainting call.
type Params struct {
	Prompt         string
	NegativePrompt string
	GuidanceScale  float64
	Steps          int
	Strength       float64
	BatchSize      int
}

// Inpainter produces repainted images from a composite image and mask.
// Implementations may be long-running and blocking; any error is fatal for
// the current pair, with no retry.
type Inpainter interface {
	Inpaint(ctx context.Context, img, mask *image.NRGBA, p Params) ([]*image.NRGBA, error)
}

// Client calls a diffusion inpainting service over HTTP. The service loads
// the preset's weights once and holds them for the duration of the run.
type Client struct {
	baseURL    string
	preset     Preset
	httpClient *http.Client
}

// NewClient returns a client for the service at baseURL using the given
// model preset. The HTTP client carries no timeout: generation is a
// long-running synchronous call, bounded only by the caller's context.
func NewClient(baseURL string, preset Preset) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL:    baseURL,
		preset:     preset,
		httpClient: &http.Client{},
	}
}

// inpaintRequest is the wire format of one inpainting call.
type inpaintRequest struct {
	Pipeline       string   `json:"pipeline"`
	Model          string   `json:"model"`
	Prompt         []string `json:"prompt"`
	NegativePrompt []string `json:"negative_prompt"`
	InitImages     []string `json:"init_images"`
	MaskImage      string   `json:"mask_image"`
	GuidanceScale  float64  `json:"guidance_scale"`
	Steps          int      `json:"num_inference_steps"`
	Strength       float64  `json:"strength"`
	DenoisingStart float64  `json:"denoising_start,omitempty"`
}

// inpaintResponse carries the generated images as base64 PNG data.
type inpaintResponse struct {
	Images []string `json:"images"`
}

// Warmup checks the service is reachable and ready before the run loop
// starts, so a misconfigured endpoint fails up front.
func (c *Client) Warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inpainting service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inpainting service not ready: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Inpaint repaints the composite image, returning one output per batch
// element. When the preset defines a refiner, a second pass runs with the
// first pass's outputs as its image input and the same mask and prompts;
// the refiner outputs replace the base outputs.
func (c *Client) Inpaint(ctx context.Context, img, mask *image.NRGBA, p Params) ([]*image.NRGBA, error) {
	encodedMask, err := encodePNG(mask)
	if err != nil {
		return nil, err
	}
	encodedImage, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	req := inpaintRequest{
		Pipeline:       c.preset.Pipeline,
		Model:          c.preset.Model,
		Prompt:         repeat(p.Prompt, p.BatchSize),
		NegativePrompt: repeat(p.NegativePrompt, p.BatchSize),
		InitImages:     []string{encodedImage},
		MaskImage:      encodedMask,
		GuidanceScale:  p.GuidanceScale,
		Steps:          p.Steps,
		Strength:       p.Strength,
	}
	images, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.preset.HasRefiner() {
		req.Model = c.preset.Refiner
		req.InitImages = images
		req.DenoisingStart = refinerDenoisingStart
		images, err = c.post(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("refiner pass failed: %w", err)
		}
	}

	decoded := make([]*image.NRGBA, 0, len(images))
	for _, data := range images {
		out, err := decodePNG(data)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, out)
	}
	return decoded, nil
}

// post sends one inpainting request and returns the raw base64 images.
func (c *Client) post(ctx context.Context, req inpaintRequest) ([]string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("cannot encode inpainting request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/inpaint", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inpainting request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inpainting service returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out inpaintResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("cannot decode inpainting response: %w", err)
	}
	if len(out.Images) == 0 {
		return nil, fmt.Errorf("inpainting service returned no images")
	}
	return out.Images, nil
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func encodePNG(img *image.NRGBA) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("cannot encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodePNG(data string) (*image.NRGBA, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode image data: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("cannot decode generated image: %w", err)
	}
	return composite.ToRGB(img), nil
}
