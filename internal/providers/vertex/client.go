package vertex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/jobs"
	"server/internal/prompts"
)

const (
	defaultBaseURL = "https://us-central1-aiplatform.googleapis.com/v1"

	defaultVideoModel     = "veo-3.0-generate-preview"
	defaultImageModel     = "imagen-3.0-capability-001"
	defaultTryOnModel     = "virtual-try-on-001"
	defaultRecontextModel = "imagen-product-recontext-001"
	defaultSegmentModel   = "image-segmentation-001"
	defaultTextModel      = "gemini-2.5-flash"
)

// Options configures the Vertex client.
type Options struct {
	ProjectID   string
	Location    string
	BaseURL     string
	AccessToken string
	VideoModel  string
	ImageModel  string
	TextModel   string
	HTTPClient  *http.Client
	Logger      *zerolog.Logger
}

// Client talks to the Vertex prediction API. Video kinds go through the
// long-running predictLongRunning/fetchPredictOperation pair; image kinds
// use the synchronous predict endpoint and resolve at submit time.
type Client struct {
	projectID   string
	location    string
	baseURL     string
	accessToken string
	videoModel  string
	imageModel  string
	textModel   string
	httpClient  *http.Client
	logger      *zerolog.Logger
}

// NewClient validates options and builds a client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.ProjectID) == "" {
		return nil, fmt.Errorf("vertex: project id is required")
	}
	if strings.TrimSpace(opts.Location) == "" {
		return nil, fmt.Errorf("vertex: location is required")
	}
	c := &Client{
		projectID:   opts.ProjectID,
		location:    opts.Location,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		accessToken: opts.AccessToken,
		videoModel:  opts.VideoModel,
		imageModel:  opts.ImageModel,
		textModel:   opts.TextModel,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.videoModel == "" {
		c.videoModel = defaultVideoModel
	}
	if c.imageModel == "" {
		c.imageModel = defaultImageModel
	}
	if c.textModel == "" {
		c.textModel = defaultTextModel
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return c, nil
}

// Submit starts the operation described by params. Rejections surface as
// jobs.SubmissionError.
func (c *Client) Submit(ctx context.Context, params domain.JobParams) (jobs.Handle, error) {
	switch p := params.(type) {
	case domain.VideoParams:
		return c.submitLongRunning(ctx, c.modelOr(p.Model), videoInstances(p), videoParameters(p.AspectRatio, p.Seed, p.NegativePrompt, 0))
	case domain.ImageVideoParams:
		return c.submitLongRunning(ctx, c.modelOr(p.Model), imageVideoInstances(p), videoParameters(p.AspectRatio, p.Seed, p.NegativePrompt, 0))
	case domain.VideoEditParams:
		return c.submitLongRunning(ctx, c.videoModel, videoEditInstances(p), videoParameters(p.AspectRatio, 0, "", p.DurationSeconds))
	case domain.VideoEditAdvancedParams:
		return c.submitLongRunning(ctx, c.videoModel, videoEditAdvancedInstances(p), videoEditAdvancedParameters(p))
	case domain.ImageEditParams:
		return c.submitPredict(ctx, c.imageModel, imageEditInstances(p), map[string]any{
			"editMode":    orDefault(p.EditMode, "EDIT_MODE_DEFAULT"),
			"sampleCount": 1,
		})
	case domain.ImageParams:
		return c.submitPredict(ctx, c.imageModel, imageInstances(p), map[string]any{
			"sampleCount": 1,
			"aspectRatio": orDefault(p.AspectRatio, "1:1"),
			"seed":        p.Seed,
		})
	case domain.SegmentationParams:
		return c.submitPredict(ctx, defaultSegmentModel, segmentationInstances(p), map[string]any{
			"mode": orDefault(p.Mode, "foreground"),
		})
	case domain.TryOnParams:
		return c.submitPredict(ctx, defaultTryOnModel, tryOnInstances(p), map[string]any{
			"sampleCount": orDefaultInt(p.SampleCount, 1),
			"baseSteps":   p.BaseSteps,
			"seed":        p.Seed,
		})
	case domain.RecontextParams:
		return c.submitPredict(ctx, defaultRecontextModel, recontextInstances(p), map[string]any{
			"sampleCount": orDefaultInt(p.SampleCount, 1),
			"baseSteps":   p.BaseSteps,
			"aspectRatio": orDefault(p.AspectRatio, "1:1"),
			"seed":        p.Seed,
		})
	default:
		return jobs.Handle{}, &jobs.SubmissionError{Cause: fmt.Errorf("unsupported job kind %q", params.Kind())}
	}
}

// Poll reports the state of a submitted operation. Operations resolved at
// submit time answer from the handle without a remote round trip.
func (c *Client) Poll(ctx context.Context, h jobs.Handle) (jobs.PollStatus, error) {
	if h.Immediate != nil {
		return *h.Immediate, nil
	}

	modelPath, ok := strings.CutSuffix(h.Name, "/operations/"+operationID(h.Name))
	if !ok || modelPath == "" {
		return jobs.PollStatus{}, fmt.Errorf("vertex: malformed operation name %q", h.Name)
	}
	url := fmt.Sprintf("%s/%s:fetchPredictOperation", c.baseURL, modelPath)

	var out operationResponse
	if err := c.post(ctx, url, map[string]any{"operationName": h.Name}, &out); err != nil {
		return jobs.PollStatus{}, err
	}
	if !out.Done {
		return jobs.PollStatus{}, nil
	}
	if out.Error != nil {
		return jobs.PollStatus{
			Done: true,
			Err:  &jobs.OperationError{Code: out.Error.Code, Message: out.Error.Message},
		}, nil
	}
	artifact, err := artifactFromResponse(out.Response)
	if err != nil {
		return jobs.PollStatus{}, err
	}
	return jobs.PollStatus{Done: true, Artifact: artifact}, nil
}

func (c *Client) submitLongRunning(ctx context.Context, model string, instances []map[string]any, parameters map[string]any) (jobs.Handle, error) {
	url := fmt.Sprintf("%s/%s:predictLongRunning", c.baseURL, c.modelPath(model))
	var out struct {
		Name string `json:"name"`
	}
	if err := c.post(ctx, url, map[string]any{"instances": instances, "parameters": parameters}, &out); err != nil {
		return jobs.Handle{}, &jobs.SubmissionError{Cause: err}
	}
	if out.Name == "" {
		return jobs.Handle{}, &jobs.SubmissionError{Cause: fmt.Errorf("no operation name in response")}
	}
	if c.logger != nil {
		c.logger.Info().Str("operation", out.Name).Str("model", model).Msg("vertex: operation started")
	}
	return jobs.Handle{Name: out.Name}, nil
}

// submitPredict performs a synchronous prediction and packs the outcome into
// the handle so the poll loop observes an already-done operation.
func (c *Client) submitPredict(ctx context.Context, model string, instances []map[string]any, parameters map[string]any) (jobs.Handle, error) {
	url := fmt.Sprintf("%s/%s:predict", c.baseURL, c.modelPath(model))
	var out struct {
		Predictions []prediction `json:"predictions"`
	}
	if err := c.post(ctx, url, map[string]any{"instances": instances, "parameters": parameters}, &out); err != nil {
		return jobs.Handle{}, &jobs.SubmissionError{Cause: err}
	}
	if len(out.Predictions) == 0 {
		return jobs.Handle{}, &jobs.SubmissionError{Cause: fmt.Errorf("no predictions in response")}
	}
	artifact, err := artifactFromPrediction(out.Predictions[0])
	if err != nil {
		return jobs.Handle{}, &jobs.SubmissionError{Cause: err}
	}
	return jobs.Handle{
		Name:      fmt.Sprintf("%s/inline/%d", c.modelPath(model), time.Now().UnixMilli()),
		Immediate: &jobs.PollStatus{Done: true, Artifact: artifact},
	}, nil
}

func (c *Client) post(ctx context.Context, url string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 512<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateBody(payload))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) modelPath(model string) string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", c.projectID, c.location, model)
}

func (c *Client) modelOr(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.videoModel
}

type operationResponse struct {
	Done  bool `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response *operationResult `json:"response"`
}

type operationResult struct {
	Videos      []prediction `json:"videos"`
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	GcsURI             string `json:"gcsUri"`
	URL                string `json:"url"`
	MimeType           string `json:"mimeType"`
}

func artifactFromResponse(res *operationResult) (*jobs.Artifact, error) {
	if res == nil {
		return nil, fmt.Errorf("operation finished in an unknown state")
	}
	preds := res.Videos
	if len(preds) == 0 {
		preds = res.Predictions
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("no media in operation response")
	}
	return artifactFromPrediction(preds[0])
}

func artifactFromPrediction(p prediction) (*jobs.Artifact, error) {
	mime := p.MimeType
	if mime == "" {
		mime = "video/mp4"
	}
	if p.BytesBase64Encoded != "" {
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, fmt.Errorf("decode media bytes: %w", err)
		}
		return &jobs.Artifact{Data: data, MIME: mime}, nil
	}
	if p.URL != "" {
		return &jobs.Artifact{URL: p.URL, MIME: mime}, nil
	}
	if p.GcsURI != "" {
		return &jobs.Artifact{URL: p.GcsURI, MIME: mime}, nil
	}
	return nil, fmt.Errorf("prediction carried neither inline bytes nor a reference")
}

func operationID(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func orDefaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

var _ jobs.Client = (*Client)(nil)
var _ prompts.TextGenerator = (*Client)(nil)
