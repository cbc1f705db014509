package vertex

import (
	"encoding/base64"

	"server/internal/domain"
)

// Instance builders translate the tagged parameter variants into the wire
// shapes the prediction endpoints expect.

func videoInstances(p domain.VideoParams) []map[string]any {
	return []map[string]any{{"prompt": p.Prompt}}
}

func imageVideoInstances(p domain.ImageVideoParams) []map[string]any {
	inst := map[string]any{"prompt": p.Prompt}
	if len(p.ImageData) > 0 {
		inst["image"] = inlineImage(p.ImageData, p.ImageMIME)
	}
	return []map[string]any{inst}
}

func videoEditInstances(p domain.VideoEditParams) []map[string]any {
	inst := map[string]any{"prompt": p.Prompt}
	if p.VideoURI != "" {
		inst["video"] = map[string]any{"gcsUri": p.VideoURI}
	}
	if p.MaskURI != "" {
		mask := map[string]any{"gcsUri": p.MaskURI}
		if p.MaskMIME != "" {
			mask["mimeType"] = p.MaskMIME
		}
		if p.MaskMode != "" {
			mask["maskMode"] = p.MaskMode
		}
		inst["mask"] = mask
	}
	return []map[string]any{inst}
}

func videoEditAdvancedInstances(p domain.VideoEditAdvancedParams) []map[string]any {
	inst := map[string]any{"prompt": p.Prompt}
	if len(p.ImageData) > 0 {
		inst["image"] = inlineImage(p.ImageData, p.ImageMIME)
	} else if p.ImageURI != "" {
		inst["image"] = map[string]any{"gcsUri": p.ImageURI}
	}
	if p.VideoURI != "" {
		inst["video"] = map[string]any{"gcsUri": p.VideoURI}
	}
	if len(p.LastFrameData) > 0 {
		inst["lastFrame"] = inlineImage(p.LastFrameData, p.LastFrameMIME)
	} else if p.LastFrameURI != "" {
		inst["lastFrame"] = map[string]any{"gcsUri": p.LastFrameURI}
	}
	if p.CameraControl != "" {
		inst["cameraControl"] = p.CameraControl
	}
	return []map[string]any{inst}
}

func videoEditAdvancedParameters(p domain.VideoEditAdvancedParams) map[string]any {
	duration := p.DurationSeconds
	if duration <= 0 {
		duration = 8
	}
	return map[string]any{
		"aspectRatio":     orDefault(p.AspectRatio, "16:9"),
		"enhancePrompt":   p.EnhancePrompt,
		"durationSeconds": duration,
	}
}

func imageEditInstances(p domain.ImageEditParams) []map[string]any {
	refs := []map[string]any{{
		"referenceType":  "REFERENCE_TYPE_RAW",
		"referenceId":    1,
		"referenceImage": inlineImage(p.OriginalImage, p.OriginalMIME),
	}}
	if len(p.MaskImage) > 0 {
		refs = append(refs, map[string]any{
			"referenceType":  "REFERENCE_TYPE_MASK",
			"referenceId":    2,
			"referenceImage": inlineImage(p.MaskImage, p.MaskMIME),
			"maskImageConfig": map[string]any{
				"maskMode": orDefault(p.MaskMode, "MASK_MODE_USER_PROVIDED"),
			},
		})
	} else if p.MaskMode != "" {
		refs = append(refs, map[string]any{
			"referenceType": "REFERENCE_TYPE_MASK",
			"referenceId":   2,
			"maskImageConfig": map[string]any{
				"maskMode": p.MaskMode,
			},
		})
	}
	return []map[string]any{{"prompt": p.Prompt, "referenceImages": refs}}
}

func imageInstances(p domain.ImageParams) []map[string]any {
	inst := map[string]any{"prompt": p.Prompt}
	if p.NegativePrompt != "" {
		inst["negativePrompt"] = p.NegativePrompt
	}
	return []map[string]any{inst}
}

func segmentationInstances(p domain.SegmentationParams) []map[string]any {
	inst := map[string]any{"image": inlineImage(p.ImageData, p.ImageMIME)}
	if p.Prompt != "" {
		inst["prompt"] = p.Prompt
	}
	return []map[string]any{inst}
}

func tryOnInstances(p domain.TryOnParams) []map[string]any {
	inst := map[string]any{}
	if len(p.PersonImage) > 0 {
		inst["personImage"] = map[string]any{"image": inlineImage(p.PersonImage, "")}
	} else if p.PersonImageURI != "" {
		inst["personImage"] = map[string]any{"image": map[string]any{"gcsUri": p.PersonImageURI}}
	}
	if len(p.ProductImage) > 0 {
		inst["productImages"] = []map[string]any{{"image": inlineImage(p.ProductImage, "")}}
	} else if p.ProductImageURI != "" {
		inst["productImages"] = []map[string]any{{"image": map[string]any{"gcsUri": p.ProductImageURI}}}
	}
	if len(p.MaskImage) > 0 {
		inst["maskImage"] = map[string]any{"image": inlineImage(p.MaskImage, "")}
	}
	if p.Prompt != "" {
		inst["prompt"] = p.Prompt
	}
	return []map[string]any{inst}
}

func recontextInstances(p domain.RecontextParams) []map[string]any {
	images := make([]map[string]any, 0, len(p.Images)+len(p.ImageURIs))
	for _, data := range p.Images {
		images = append(images, map[string]any{"image": inlineImage(data, "")})
	}
	for _, uri := range p.ImageURIs {
		images = append(images, map[string]any{"image": map[string]any{"gcsUri": uri}})
	}
	inst := map[string]any{"productImages": images}
	if p.Prompt != "" {
		inst["prompt"] = p.Prompt
	}
	if p.ProductDescription != "" {
		inst["productDescription"] = p.ProductDescription
	}
	return []map[string]any{inst}
}

func videoParameters(aspectRatio string, seed int, negativePrompt string, durationSeconds int) map[string]any {
	params := map[string]any{
		"aspectRatio":      orDefault(aspectRatio, "16:9"),
		"sampleCount":      1,
		"resolution":       "1080p",
		"personGeneration": "allow_all",
		"includeRaiReason": true,
	}
	if seed != 0 {
		params["seed"] = seed
	}
	if negativePrompt != "" {
		params["negativePrompt"] = negativePrompt
	}
	if durationSeconds > 0 {
		params["durationSeconds"] = durationSeconds
	}
	return params
}

func inlineImage(data []byte, mime string) map[string]any {
	img := map[string]any{"bytesBase64Encoded": base64.StdEncoding.EncodeToString(data)}
	if mime != "" {
		img["mimeType"] = mime
	}
	return img
}
