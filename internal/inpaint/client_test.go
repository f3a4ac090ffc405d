package inpaint

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
)

// solid returns a small opaque image filled with one RGB value.
func solid(r, g, b uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = 0xff
	}
	return img
}

// respond writes an inpaintResponse holding n copies of img.
func respond(t *testing.T, w http.ResponseWriter, img *image.NRGBA, n int) {
	t.Helper()
	data, err := encodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	images := make([]string, n)
	for i := range images {
		images[i] = data
	}
	if err := json.NewEncoder(w).Encode(inpaintResponse{Images: images}); err != nil {
		t.Fatal(err)
	}
}

func TestClientInpaint(t *testing.T) {
	preset, err := ResolvePreset("sd-1.5")
	if err != nil {
		t.Fatal(err)
	}

	var got inpaintRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/inpaint" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		respond(t, w, solid(200, 0, 0), 2)
	}))
	defer server.Close()

	client := NewClient(server.URL, preset)
	images, err := client.Inpaint(context.Background(), solid(1, 2, 3), solid(255, 255, 255), Params{
		Prompt:         "a realistic photo of in a garden",
		NegativePrompt: "blurry",
		GuidanceScale:  6.0,
		Steps:          60,
		Strength:       0.9,
		BatchSize:      2,
	})
	if err != nil {
		t.Fatalf("Inpaint failed: %v", err)
	}

	if got.Model != preset.Model {
		t.Errorf("request model = %q, want %q", got.Model, preset.Model)
	}
	if got.Pipeline != PipelineStableDiffusion {
		t.Errorf("request pipeline = %q, want %q", got.Pipeline, PipelineStableDiffusion)
	}
	if len(got.Prompt) != 2 || got.Prompt[0] != got.Prompt[1] {
		t.Errorf("prompt should repeat batch-size times, got %v", got.Prompt)
	}
	if len(got.NegativePrompt) != 2 {
		t.Errorf("negative prompt should repeat batch-size times, got %v", got.NegativePrompt)
	}
	if got.GuidanceScale != 6.0 || got.Steps != 60 || got.Strength != 0.9 {
		t.Errorf("numeric controls not forwarded: %+v", got)
	}
	if got.DenoisingStart != 0 {
		t.Errorf("base pass should not set denoising_start, got %v", got.DenoisingStart)
	}
	if got.MaskImage == "" || len(got.InitImages) != 1 {
		t.Error("request should carry one init image and the mask")
	}

	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	if images[0].Pix[0] != 200 {
		t.Errorf("decoded image pixel = %d, want 200", images[0].Pix[0])
	}
}

func TestClientInpaintWithRefiner(t *testing.T) {
	preset, err := ResolvePreset("sd-xl-1.0")
	if err != nil {
		t.Fatal(err)
	}

	var requests []inpaintRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req inpaintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		requests = append(requests, req)
		if req.Model == preset.Refiner {
			respond(t, w, solid(0, 200, 0), len(req.InitImages))
		} else {
			respond(t, w, solid(200, 0, 0), 2)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, preset)
	images, err := client.Inpaint(context.Background(), solid(1, 2, 3), solid(255, 255, 255), Params{
		Prompt:    "a realistic photo of on the beach",
		BatchSize: 2,
		Strength:  0.9,
	})
	if err != nil {
		t.Fatalf("Inpaint failed: %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("expected base + refiner calls, got %d", len(requests))
	}

	base, refine := requests[0], requests[1]
	if base.Model != preset.Model {
		t.Errorf("base pass model = %q, want %q", base.Model, preset.Model)
	}
	if refine.Model != preset.Refiner {
		t.Errorf("refiner pass model = %q, want %q", refine.Model, preset.Refiner)
	}
	if refine.DenoisingStart != refinerDenoisingStart {
		t.Errorf("refiner denoising_start = %v, want %v", refine.DenoisingStart, refinerDenoisingStart)
	}
	if len(refine.InitImages) != 2 {
		t.Errorf("refiner should receive the base pass outputs, got %d images", len(refine.InitImages))
	}
	if refine.MaskImage != base.MaskImage {
		t.Error("refiner should reuse the same mask")
	}

	// Refiner outputs replace the base outputs, they do not append.
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	if images[0].Pix[1] != 200 {
		t.Errorf("expected refined image, got pixel %v", images[0].Pix[:3])
	}
}

func TestClientInpaintServerError(t *testing.T) {
	preset, _ := ResolvePreset("sd-1.5")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, preset)
	_, err := client.Inpaint(context.Background(), solid(0, 0, 0), solid(255, 255, 255), Params{BatchSize: 1})
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestClientInpaintEmptyResponse(t *testing.T) {
	preset, _ := ResolvePreset("sd-1.5")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inpaintResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, preset)
	_, err := client.Inpaint(context.Background(), solid(0, 0, 0), solid(255, 255, 255), Params{BatchSize: 1})
	if err == nil {
		t.Fatal("expected error for empty image list")
	}
}

func TestWarmup(t *testing.T) {
	preset, _ := ResolvePreset("sd-1.5")

	ready := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/readyz" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ready.Close()

	if err := NewClient(ready.URL, preset).Warmup(context.Background()); err != nil {
		t.Errorf("Warmup failed against ready service: %v", err)
	}

	notReady := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer notReady.Close()

	if err := NewClient(notReady.URL, preset).Warmup(context.Background()); err == nil {
		t.Error("expected error against unready service")
	}
}
