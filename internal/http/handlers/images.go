package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/domain"
)

type imageGenerateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Seed           int    `json:"seed,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
}

// ImagesGenerate dispatches a standalone image generation.
func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	var req imageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	id, err := a.Dispatcher.Dispatch(r.Context(), domain.ImageParams{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Seed:           req.Seed,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

// ImagesSegment dispatches an image segmentation from a multipart upload.
func (a *App) ImagesSegment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	imageData, imageMIME, err := readFilePart(r, "image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	id, err := a.Dispatcher.Dispatch(r.Context(), domain.SegmentationParams{
		Mode:      orForm(r, "mode", "foreground"),
		Prompt:    r.FormValue("prompt"),
		ImageData: imageData,
		ImageMIME: imageMIME,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

// ImagesEdit dispatches a mask-based or mask-free image edit from a
// multipart upload. Without a mask the edit runs in the mask-free mode.
func (a *App) ImagesEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	prompt := r.FormValue("prompt")
	if strings.TrimSpace(prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	original, originalMIME, err := readFilePart(r, "original_image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "original_image file is required")
		return
	}
	params := domain.ImageEditParams{
		Prompt:        prompt,
		EditMode:      r.FormValue("edit_mode"),
		MaskMode:      r.FormValue("mask_mode"),
		OriginalImage: original,
		OriginalMIME:  originalMIME,
	}
	if data, mime, err := readFilePart(r, "mask_image"); err == nil {
		params.MaskImage = data
		params.MaskMIME = mime
	}
	id, err := a.Dispatcher.Dispatch(r.Context(), params)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

// VirtualTryOn dispatches a try-on request. Person and product images may be
// uploaded inline or referenced by URI.
func (a *App) VirtualTryOn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	params := domain.TryOnParams{
		Prompt:          r.FormValue("prompt"),
		PersonImageURI:  r.FormValue("person_image_uri"),
		ProductImageURI: r.FormValue("product_image_uri"),
		SampleCount:     formInt(r, "sample_count"),
		BaseSteps:       formInt(r, "base_steps"),
		Seed:            formInt(r, "seed"),
	}
	if data, _, err := readFilePart(r, "person_image"); err == nil {
		params.PersonImage = data
	}
	if data, _, err := readFilePart(r, "product_image"); err == nil {
		params.ProductImage = data
	}
	if data, _, err := readFilePart(r, "mask_image"); err == nil {
		params.MaskImage = data
	}
	if len(params.PersonImage) == 0 && params.PersonImageURI == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "person image is required")
		return
	}
	if len(params.ProductImage) == 0 && params.ProductImageURI == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "product image is required")
		return
	}
	id, err := a.Dispatcher.Dispatch(r.Context(), params)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

// ProductRecontext dispatches a product recontextualization request.
func (a *App) ProductRecontext(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	params := domain.RecontextParams{
		Prompt:             r.FormValue("prompt"),
		ProductDescription: r.FormValue("product_description"),
		ImageURIs:          splitNonEmpty(r.FormValue("image_uris")),
		SampleCount:        formInt(r, "sample_count"),
		BaseSteps:          formInt(r, "base_steps"),
		AspectRatio:        r.FormValue("aspect_ratio"),
		Seed:               formInt(r, "seed"),
	}
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["images"] {
			file, err := header.Open()
			if err != nil {
				continue
			}
			data, readErr := readAllLimited(file)
			file.Close()
			if readErr == nil && len(data) > 0 {
				params.Images = append(params.Images, data)
			}
		}
	}
	if len(params.Images) == 0 && len(params.ImageURIs) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one product image is required")
		return
	}
	id, err := a.Dispatcher.Dispatch(r.Context(), params)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

func orForm(r *http.Request, field, fallback string) string {
	if v := strings.TrimSpace(r.FormValue(field)); v != "" {
		return v
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
