package synthetic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"time"

	"server/internal/domain"
	"server/internal/jobs"
	"server/internal/prompts"
)

// Client fabricates deterministic artifacts locally. It stands in for the
// real service when no access token is configured, which keeps development
// and CI environments fully operational.
type Client struct {
	// PollsUntilDone controls how many poll rounds a long-running kind
	// reports pending before resolving.
	PollsUntilDone int

	mu  sync.Mutex
	seq int
	ops map[string]*operation
}

type operation struct {
	remaining int
	artifact  *jobs.Artifact
}

// NewClient builds a synthetic client that resolves after two polls.
func NewClient() *Client {
	return &Client{PollsUntilDone: 2, ops: map[string]*operation{}}
}

// Submit registers a fake operation. Image-like kinds resolve at submit
// time, video kinds go through the poll loop.
func (c *Client) Submit(ctx context.Context, params domain.JobParams) (jobs.Handle, error) {
	if err := ctx.Err(); err != nil {
		return jobs.Handle{}, &jobs.SubmissionError{Cause: err}
	}
	artifact, err := c.fabricate(params)
	if err != nil {
		return jobs.Handle{}, &jobs.SubmissionError{Cause: err}
	}

	switch params.Kind() {
	case domain.JobKindVideoGenerate, domain.JobKindImageVideo, domain.JobKindVideoEdit, domain.JobKindVideoEditAdv:
		c.mu.Lock()
		c.seq++
		name := fmt.Sprintf("synthetic/operations/%d_%d", time.Now().UnixMilli(), c.seq)
		c.ops[name] = &operation{remaining: c.PollsUntilDone, artifact: artifact}
		c.mu.Unlock()
		return jobs.Handle{Name: name}, nil
	default:
		return jobs.Handle{
			Name:      fmt.Sprintf("synthetic/inline/%d", time.Now().UnixMilli()),
			Immediate: &jobs.PollStatus{Done: true, Artifact: artifact},
		}, nil
	}
}

// Poll counts down the registered operation and then reports it done.
func (c *Client) Poll(ctx context.Context, h jobs.Handle) (jobs.PollStatus, error) {
	if err := ctx.Err(); err != nil {
		return jobs.PollStatus{}, err
	}
	if h.Immediate != nil {
		return *h.Immediate, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.ops[h.Name]
	if !ok {
		return jobs.PollStatus{}, fmt.Errorf("synthetic: unknown operation %q", h.Name)
	}
	if op.remaining > 0 {
		op.remaining--
		return jobs.PollStatus{}, nil
	}
	delete(c.ops, h.Name)
	return jobs.PollStatus{Done: true, Artifact: op.artifact}, nil
}

// GenerateText fabricates a deterministic prompt from the request digest so
// the prompt-assist endpoints work without a configured model.
func (c *Client) GenerateText(ctx context.Context, req prompts.TextRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(req.Content))
	return fmt.Sprintf("SYNTHETIC-PROMPT:%x", digest[:8]), nil
}

func (c *Client) fabricate(params domain.JobParams) (*jobs.Artifact, error) {
	seedText := string(params.Kind()) + "|" + params.Summary()
	digest := sha256.Sum256([]byte(seedText))

	switch params.Kind() {
	case domain.JobKindVideoGenerate, domain.JobKindImageVideo, domain.JobKindVideoEdit, domain.JobKindVideoEditAdv:
		// Not playable, but stable and non-empty so downstream plumbing is
		// exercised end to end.
		payload := append([]byte("SYNTHETIC-MP4:"), digest[:]...)
		return &jobs.Artifact{Data: payload, MIME: "video/mp4"}, nil
	default:
		data, err := renderPlaceholderPNG(digest)
		if err != nil {
			return nil, err
		}
		return &jobs.Artifact{Data: data, MIME: "image/png"}, nil
	}
}

// renderPlaceholderPNG produces a small solid-color image derived from the
// request digest.
func renderPlaceholderPNG(digest [32]byte) ([]byte, error) {
	const size = 64
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill := color.RGBA{R: digest[0], G: digest[1], B: digest[2], A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

var _ jobs.Client = (*Client)(nil)
var _ prompts.TextGenerator = (*Client)(nil)
