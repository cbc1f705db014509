package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"server/internal/domain"
)

const maxUploadBytes = 32 << 20

type videoGenerateRequest struct {
	Prompts        []string `json:"prompts"`
	Model          string   `json:"model,omitempty"`
	Seed           int      `json:"seed,omitempty"`
	AspectRatio    string   `json:"aspect_ratio,omitempty"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
}

// VideosGenerate dispatches one independent job per prompt and returns the
// operation ids immediately.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Prompts) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one prompt is required")
		return
	}
	batch := make([]domain.JobParams, 0, len(req.Prompts))
	for _, prompt := range req.Prompts {
		if strings.TrimSpace(prompt) == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "prompts must not be empty")
			return
		}
		batch = append(batch, domain.VideoParams{
			Prompt:         prompt,
			Model:          req.Model,
			Seed:           req.Seed,
			AspectRatio:    req.AspectRatio,
			NegativePrompt: req.NegativePrompt,
		})
	}
	ids, err := a.Dispatcher.DispatchBatch(r.Context(), batch)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_ids": ids})
}

// VideosGenerateFromImage dispatches an image-to-video job from a multipart
// upload.
func (a *App) VideosGenerateFromImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	prompt := r.FormValue("prompt")
	if strings.TrimSpace(prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	imageData, imageMIME, err := readFilePart(r, "image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}

	id, err := a.Dispatcher.Dispatch(r.Context(), domain.ImageVideoParams{
		Prompt:         prompt,
		Model:          r.FormValue("model"),
		Seed:           formInt(r, "seed"),
		AspectRatio:    r.FormValue("aspect_ratio"),
		NegativePrompt: r.FormValue("negative_prompt"),
		ImageData:      imageData,
		ImageMIME:      imageMIME,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

type videoEditRequest struct {
	Prompt          string `json:"prompt"`
	VideoURI        string `json:"video_uri"`
	MaskURI         string `json:"mask_uri,omitempty"`
	MaskMIME        string `json:"mask_mime,omitempty"`
	MaskMode        string `json:"mask_mode,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	SampleCount     int    `json:"sample_count,omitempty"`
}

// VideosEdit dispatches a masked video edit referencing already uploaded
// media.
func (a *App) VideosEdit(w http.ResponseWriter, r *http.Request) {
	var req videoEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if strings.TrimSpace(req.VideoURI) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "video_uri is required")
		return
	}
	id, err := a.Dispatcher.Dispatch(r.Context(), domain.VideoEditParams{
		Prompt:          req.Prompt,
		VideoURI:        req.VideoURI,
		MaskURI:         req.MaskURI,
		MaskMIME:        req.MaskMIME,
		MaskMode:        req.MaskMode,
		AspectRatio:     req.AspectRatio,
		DurationSeconds: req.DurationSeconds,
		SampleCount:     req.SampleCount,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

// VideosEditAdvanced dispatches a camera-controlled edit seeded from any mix
// of uploaded frames and referenced media. At least one visual input is
// required.
func (a *App) VideosEditAdvanced(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	prompt := r.FormValue("prompt")
	if strings.TrimSpace(prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	params := domain.VideoEditAdvancedParams{
		Prompt:          prompt,
		AspectRatio:     r.FormValue("aspect_ratio"),
		DurationSeconds: formInt(r, "duration"),
		EnhancePrompt:   r.FormValue("enhance_prompt") == "true",
		CameraControl:   r.FormValue("camera_control"),
		ImageURI:        r.FormValue("image_gcs"),
		VideoURI:        r.FormValue("video_gcs"),
		LastFrameURI:    r.FormValue("last_frame_gcs"),
	}
	if data, mime, err := readFilePart(r, "image_file"); err == nil {
		params.ImageData = data
		params.ImageMIME = mime
	}
	if data, mime, err := readFilePart(r, "last_frame_file"); err == nil {
		params.LastFrameData = data
		params.LastFrameMIME = mime
	}
	if len(params.ImageData) == 0 && len(params.LastFrameData) == 0 &&
		params.ImageURI == "" && params.VideoURI == "" && params.LastFrameURI == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one image or video input is required")
		return
	}
	id, err := a.Dispatcher.Dispatch(r.Context(), params)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"operation_id": id})
}

// readFilePart loads one uploaded file into memory and reports its declared
// content type.
func readFilePart(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := readAllLimited(file)
	if err != nil {
		return nil, "", err
	}
	mime := header.Header.Get("Content-Type")
	return data, mime, nil
}

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxUploadBytes))
}

func formInt(r *http.Request, field string) int {
	n, err := strconv.Atoi(r.FormValue(field))
	if err != nil {
		return 0
	}
	return n
}
