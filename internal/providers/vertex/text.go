package vertex

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"server/internal/prompts"
)

// GenerateText runs a synchronous generateContent call against the text
// model and returns the first candidate's text.
func (c *Client) GenerateText(ctx context.Context, req prompts.TextRequest) (string, error) {
	parts := []map[string]any{{"text": req.Content}}
	if len(req.ImageData) > 0 {
		parts = append(parts, map[string]any{
			"inlineData": map[string]any{
				"mimeType": orDefault(req.ImageMIME, "image/png"),
				"data":     base64.StdEncoding.EncodeToString(req.ImageData),
			},
		})
	}
	body := map[string]any{
		"contents": []map[string]any{{"role": "user", "parts": parts}},
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.modelPath(c.textModel))
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := c.post(ctx, url, body, &out); err != nil {
		return "", err
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return strings.TrimSpace(part.Text), nil
			}
		}
	}
	return "", fmt.Errorf("no text in model response")
}
