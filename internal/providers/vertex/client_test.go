package vertex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"server/internal/domain"
	"server/internal/jobs"
	"server/internal/prompts"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{
		ProjectID:   "proj",
		Location:    "us-central1",
		BaseURL:     srv.URL,
		AccessToken: "token",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return body
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{Location: "us-central1"}); err == nil {
		t.Fatal("missing project id must be rejected")
	}
	if _, err := NewClient(Options{ProjectID: "proj"}); err == nil {
		t.Fatal("missing location must be rejected")
	}
}

func TestSubmitVideoStartsLongRunningOperation(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"name": "projects/proj/locations/us-central1/publishers/google/models/veo-3.0-generate-preview/operations/op-abc",
		})
	}))

	handle, err := client.Submit(context.Background(), domain.VideoParams{Prompt: "a sunrise", AspectRatio: "16:9"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.HasSuffix(handle.Name, "/operations/op-abc") {
		t.Fatalf("handle name = %q", handle.Name)
	}
	if handle.Immediate != nil {
		t.Fatal("long-running submit must not resolve immediately")
	}
	if !strings.HasSuffix(gotPath, "models/veo-3.0-generate-preview:predictLongRunning") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	instances, ok := gotBody["instances"].([]any)
	if !ok || len(instances) != 1 {
		t.Fatalf("instances = %v", gotBody["instances"])
	}
	first, _ := instances[0].(map[string]any)
	if first["prompt"] != "a sunrise" {
		t.Fatalf("instance prompt = %v", first["prompt"])
	}
}

func TestSubmitRejectionWrapsSubmissionError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"prompt blocked"}}`, http.StatusBadRequest)
	}))

	_, err := client.Submit(context.Background(), domain.VideoParams{Prompt: "bad"})
	var subErr *jobs.SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("err = %v, want status in message", err)
	}
}

func TestSubmitPredictResolvesImmediately(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":predict") {
			t.Errorf("path = %q, want :predict endpoint", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{{
				"bytesBase64Encoded": base64.StdEncoding.EncodeToString(png),
				"mimeType":           "image/png",
			}},
		})
	}))

	handle, err := client.Submit(context.Background(), domain.ImageParams{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.Immediate == nil || !handle.Immediate.Done {
		t.Fatalf("handle = %+v, want immediate done", handle)
	}

	status, err := client.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Artifact == nil || string(status.Artifact.Data) != string(png) {
		t.Fatalf("artifact = %+v", status.Artifact)
	}
	if status.Artifact.MIME != "image/png" {
		t.Fatalf("mime = %q", status.Artifact.MIME)
	}
}

func TestPollPendingThenDone(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":fetchPredictOperation") {
			t.Errorf("path = %q, want :fetchPredictOperation endpoint", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["operationName"] == "" {
			t.Error("poll request missing operationName")
		}
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(map[string]any{"done": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"done": true,
			"response": map[string]any{
				"videos": []map[string]any{{
					"bytesBase64Encoded": base64.StdEncoding.EncodeToString([]byte("mp4")),
					"mimeType":           "video/mp4",
				}},
			},
		})
	}))

	handle := jobs.Handle{Name: "projects/proj/locations/us-central1/publishers/google/models/veo-3.0-generate-preview/operations/op-abc"}
	status, err := client.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Done {
		t.Fatal("first poll must report pending")
	}

	status, err = client.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !status.Done || status.Artifact == nil || string(status.Artifact.Data) != "mp4" {
		t.Fatalf("status = %+v", status)
	}
}

func TestPollReportsOperationError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"done":  true,
			"error": map[string]any{"code": 8, "message": "quota exceeded"},
		})
	}))

	handle := jobs.Handle{Name: "projects/proj/locations/us-central1/publishers/google/models/veo-3.0-generate-preview/operations/op-abc"}
	status, err := client.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Err == nil || status.Err.Code != 8 || status.Err.Message != "quota exceeded" {
		t.Fatalf("status = %+v", status)
	}
}

func TestPollRejectsMalformedOperationName(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if _, err := client.Poll(context.Background(), jobs.Handle{Name: "not-an-operation"}); err == nil {
		t.Fatal("malformed operation name must fail")
	}
}

func TestImageEditSubmitPacksReferenceImages(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{{
				"bytesBase64Encoded": base64.StdEncoding.EncodeToString([]byte("img")),
				"mimeType":           "image/png",
			}},
		})
	}))

	handle, err := client.Submit(context.Background(), domain.ImageEditParams{
		Prompt:        "replace the sky",
		EditMode:      "EDIT_MODE_BGSWAP",
		MaskMode:      "MASK_MODE_BACKGROUND",
		OriginalImage: []byte("original"),
		MaskImage:     []byte("mask"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.Immediate == nil || !handle.Immediate.Done {
		t.Fatalf("handle = %+v, want immediate done", handle)
	}
	if !strings.HasSuffix(gotPath, ":predict") {
		t.Fatalf("path = %q, want :predict endpoint", gotPath)
	}
	params, _ := gotBody["parameters"].(map[string]any)
	if params["editMode"] != "EDIT_MODE_BGSWAP" {
		t.Fatalf("editMode = %v", params["editMode"])
	}
	instances, _ := gotBody["instances"].([]any)
	first, _ := instances[0].(map[string]any)
	refs, _ := first["referenceImages"].([]any)
	if len(refs) != 2 {
		t.Fatalf("referenceImages = %v", first["referenceImages"])
	}
	raw, _ := refs[0].(map[string]any)
	if raw["referenceType"] != "REFERENCE_TYPE_RAW" {
		t.Fatalf("first reference = %v", raw)
	}
	mask, _ := refs[1].(map[string]any)
	if mask["referenceType"] != "REFERENCE_TYPE_MASK" {
		t.Fatalf("second reference = %v", mask)
	}
	maskCfg, _ := mask["maskImageConfig"].(map[string]any)
	if maskCfg["maskMode"] != "MASK_MODE_BACKGROUND" {
		t.Fatalf("maskImageConfig = %v", mask["maskImageConfig"])
	}
}

func TestImageEditDefaultsToMaskFreeMode(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{{
				"bytesBase64Encoded": base64.StdEncoding.EncodeToString([]byte("img")),
				"mimeType":           "image/png",
			}},
		})
	}))

	if _, err := client.Submit(context.Background(), domain.ImageEditParams{
		Prompt:        "brighten the photo",
		OriginalImage: []byte("original"),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	params, _ := gotBody["parameters"].(map[string]any)
	if params["editMode"] != "EDIT_MODE_DEFAULT" {
		t.Fatalf("editMode = %v", params["editMode"])
	}
	instances, _ := gotBody["instances"].([]any)
	first, _ := instances[0].(map[string]any)
	refs, _ := first["referenceImages"].([]any)
	if len(refs) != 1 {
		t.Fatalf("mask-free edit must carry only the raw reference: %v", first["referenceImages"])
	}
}

func TestVideoEditAdvancedSubmitPacksMediaAndCameraControl(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":predictLongRunning") {
			t.Errorf("path = %q, want :predictLongRunning endpoint", r.URL.Path)
		}
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"name": "projects/proj/locations/us-central1/publishers/google/models/veo-3.0-generate-preview/operations/op-adv",
		})
	}))

	handle, err := client.Submit(context.Background(), domain.VideoEditAdvancedParams{
		Prompt:        "pan across the skyline",
		VideoURI:      "gs://bucket/clip.mp4",
		LastFrameURI:  "gs://bucket/last.png",
		CameraControl: "PAN_LEFT",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.Immediate != nil {
		t.Fatal("advanced edit must go through the poll loop")
	}
	instances, _ := gotBody["instances"].([]any)
	first, _ := instances[0].(map[string]any)
	video, _ := first["video"].(map[string]any)
	if video["gcsUri"] != "gs://bucket/clip.mp4" {
		t.Fatalf("video = %v", first["video"])
	}
	lastFrame, _ := first["lastFrame"].(map[string]any)
	if lastFrame["gcsUri"] != "gs://bucket/last.png" {
		t.Fatalf("lastFrame = %v", first["lastFrame"])
	}
	if first["cameraControl"] != "PAN_LEFT" {
		t.Fatalf("cameraControl = %v", first["cameraControl"])
	}
	params, _ := gotBody["parameters"].(map[string]any)
	if params["durationSeconds"] != float64(8) {
		t.Fatalf("durationSeconds = %v, want default 8", params["durationSeconds"])
	}
}

func TestGenerateTextReturnsFirstCandidate(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "  a refined prompt  "}},
				},
			}},
		})
	}))

	out, err := client.GenerateText(context.Background(), prompts.TextRequest{
		Content:   "compose a prompt",
		ImageData: []byte{0x89},
		ImageMIME: "image/png",
	})
	if err != nil {
		t.Fatalf("generate text: %v", err)
	}
	if out != "a refined prompt" {
		t.Fatalf("out = %q", out)
	}
	if !strings.HasSuffix(gotPath, "models/gemini-2.5-flash:generateContent") {
		t.Fatalf("path = %q", gotPath)
	}
	contents, _ := gotBody["contents"].([]any)
	first, _ := contents[0].(map[string]any)
	parts, _ := first["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("parts = %v", first["parts"])
	}
	textPart, _ := parts[0].(map[string]any)
	if textPart["text"] != "compose a prompt" {
		t.Fatalf("text part = %v", parts[0])
	}
	imagePart, _ := parts[1].(map[string]any)
	if imagePart["inlineData"] == nil {
		t.Fatalf("image part = %v", parts[1])
	}
}

func TestGenerateTextRejectsEmptyCandidates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []map[string]any{}})
	}))

	if _, err := client.GenerateText(context.Background(), prompts.TextRequest{Content: "compose"}); err == nil {
		t.Fatal("empty candidate list must fail")
	}
}

func TestTryOnSubmitPacksPersonAndProduct(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "virtual-try-on-001") {
			t.Errorf("path = %q, want try-on model", r.URL.Path)
		}
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{{
				"bytesBase64Encoded": base64.StdEncoding.EncodeToString([]byte("img")),
				"mimeType":           "image/png",
			}},
		})
	}))

	_, err := client.Submit(context.Background(), domain.TryOnParams{
		PersonImage:  []byte("person"),
		ProductImage: []byte("product"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	instances, _ := gotBody["instances"].([]any)
	if len(instances) != 1 {
		t.Fatalf("instances = %v", gotBody["instances"])
	}
	first, _ := instances[0].(map[string]any)
	if first["personImage"] == nil {
		t.Fatal("instance missing personImage")
	}
	if first["productImages"] == nil {
		t.Fatal("instance missing productImages")
	}
}
