package domain

import (
	"fmt"
	"strings"
)

// JobParams is the tagged parameter union handed to the external operation
// client. Each job kind has exactly one variant, so provider dispatch can be
// checked exhaustively instead of duck-typing raw maps.
//
// Large binary inputs are excluded from JSON serialization; the persisted
// request payload keeps prompts and knobs, not image bytes.
type JobParams interface {
	Kind() JobKind
	// Summary returns the human-readable request description stored on the
	// job record.
	Summary() string
}

// VideoParams drives a text-to-video generation.
type VideoParams struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	Seed           int    `json:"seed,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

func (p VideoParams) Kind() JobKind   { return JobKindVideoGenerate }
func (p VideoParams) Summary() string { return p.Prompt }

// ImageVideoParams drives an image-to-video generation. ImageData carries
// the uploaded reference frame.
type ImageVideoParams struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	Seed           int    `json:"seed,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	ImageData      []byte `json:"-"`
	ImageMIME      string `json:"image_mime,omitempty"`
}

func (p ImageVideoParams) Kind() JobKind   { return JobKindImageVideo }
func (p ImageVideoParams) Summary() string { return p.Prompt }

// ImageParams drives a standalone image generation.
type ImageParams struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Seed           int    `json:"seed,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
}

func (p ImageParams) Kind() JobKind   { return JobKindImageGenerate }
func (p ImageParams) Summary() string { return p.Prompt }

// SegmentationParams drives an image segmentation request.
type SegmentationParams struct {
	Mode      string `json:"mode"`
	Prompt    string `json:"prompt,omitempty"`
	ImageData []byte `json:"-"`
	ImageMIME string `json:"image_mime,omitempty"`
}

func (p SegmentationParams) Kind() JobKind { return JobKindSegmentation }

func (p SegmentationParams) Summary() string {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Sprintf("Segmentation (%s)", p.Mode)
	}
	return fmt.Sprintf("Segmentation (%s): %s", p.Mode, p.Prompt)
}

// TryOnParams drives a virtual try-on request. Either inline bytes or
// remote URIs may identify the person and product images.
type TryOnParams struct {
	Prompt          string `json:"prompt,omitempty"`
	PersonImage     []byte `json:"-"`
	ProductImage    []byte `json:"-"`
	MaskImage       []byte `json:"-"`
	PersonImageURI  string `json:"person_image_uri,omitempty"`
	ProductImageURI string `json:"product_image_uri,omitempty"`
	SampleCount     int    `json:"sample_count,omitempty"`
	BaseSteps       int    `json:"base_steps,omitempty"`
	Seed            int    `json:"seed,omitempty"`
}

func (p TryOnParams) Kind() JobKind { return JobKindVirtualTryOn }

func (p TryOnParams) Summary() string {
	if strings.TrimSpace(p.Prompt) == "" {
		return "Virtual try-on"
	}
	return "Virtual try-on: " + p.Prompt
}

// RecontextParams drives a product recontextualization request.
type RecontextParams struct {
	Prompt             string   `json:"prompt,omitempty"`
	ProductDescription string   `json:"product_description,omitempty"`
	Images             [][]byte `json:"-"`
	ImageURIs          []string `json:"image_uris,omitempty"`
	SampleCount        int      `json:"sample_count,omitempty"`
	BaseSteps          int      `json:"base_steps,omitempty"`
	AspectRatio        string   `json:"aspect_ratio,omitempty"`
	Seed               int      `json:"seed,omitempty"`
}

func (p RecontextParams) Kind() JobKind { return JobKindProductRecontext }

func (p RecontextParams) Summary() string {
	if strings.TrimSpace(p.Prompt) == "" {
		return "Product recontext"
	}
	return "Product recontext: " + p.Prompt
}

// VideoEditParams drives a masked or advanced video edit.
type VideoEditParams struct {
	Prompt          string `json:"prompt"`
	VideoURI        string `json:"video_uri,omitempty"`
	MaskURI         string `json:"mask_uri,omitempty"`
	MaskMIME        string `json:"mask_mime,omitempty"`
	MaskMode        string `json:"mask_mode,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	SampleCount     int    `json:"sample_count,omitempty"`
}

func (p VideoEditParams) Kind() JobKind   { return JobKindVideoEdit }
func (p VideoEditParams) Summary() string { return p.Prompt }

// VideoEditAdvancedParams drives a camera-controlled video edit seeded from
// any mix of an inline first frame, a source video and a last frame.
type VideoEditAdvancedParams struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	EnhancePrompt   bool   `json:"enhance_prompt,omitempty"`
	CameraControl   string `json:"camera_control,omitempty"`
	ImageURI        string `json:"image_uri,omitempty"`
	VideoURI        string `json:"video_uri,omitempty"`
	LastFrameURI    string `json:"last_frame_uri,omitempty"`
	ImageData       []byte `json:"-"`
	ImageMIME       string `json:"image_mime,omitempty"`
	LastFrameData   []byte `json:"-"`
	LastFrameMIME   string `json:"last_frame_mime,omitempty"`
}

func (p VideoEditAdvancedParams) Kind() JobKind   { return JobKindVideoEditAdv }
func (p VideoEditAdvancedParams) Summary() string { return p.Prompt }

// ImageEditParams drives a mask-based or mask-free image edit. EditMode
// defaults to the mask-free mode when empty.
type ImageEditParams struct {
	Prompt        string `json:"prompt"`
	EditMode      string `json:"edit_mode,omitempty"`
	MaskMode      string `json:"mask_mode,omitempty"`
	OriginalImage []byte `json:"-"`
	OriginalMIME  string `json:"original_mime,omitempty"`
	MaskImage     []byte `json:"-"`
	MaskMIME      string `json:"mask_mime,omitempty"`
}

func (p ImageEditParams) Kind() JobKind { return JobKindImageEdit }

func (p ImageEditParams) Summary() string {
	if strings.TrimSpace(p.Prompt) == "" {
		return "Image edit"
	}
	return "Image edit: " + p.Prompt
}
