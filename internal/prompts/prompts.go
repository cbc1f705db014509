package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

const refineInstructionTemplate = "Refine the following video prompt based on the instruction. Output only the new prompt.\n\nInstruction: %s"

// TextRequest carries one composed generation request. Content is the full
// instruction text; an optional inline image gives the model visual context.
type TextRequest struct {
	Content   string
	ImageData []byte
	ImageMIME string
}

// TextGenerator produces free-form text from a composed request. The vertex
// and synthetic clients both implement it.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// Service builds video prompts with a text model. The generator is resolved
// per call so a settings swap takes effect without restarting.
type Service struct {
	source func() TextGenerator
	logger zerolog.Logger
}

// NewService wires a prompt service over a generator source.
func NewService(source func() TextGenerator, logger zerolog.Logger) *Service {
	return &Service{source: source, logger: logger}
}

// Generate composes a final video prompt from the user's idea and the
// selected instruction set. An optional reference image is passed through to
// the model.
func (s *Service) Generate(ctx context.Context, userPrompt, systemInstructions string, imageData []byte, imageMIME string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" || strings.TrimSpace(systemInstructions) == "" {
		return "", domain.ErrInvalidPrompt
	}
	return s.generate(ctx, TextRequest{
		Content:   composeContent(systemInstructions, userPrompt),
		ImageData: imageData,
		ImageMIME: imageMIME,
	})
}

// Refine rewrites an existing prompt according to a free-form instruction.
func (s *Service) Refine(ctx context.Context, currentPrompt, refineInstruction string) (string, error) {
	if strings.TrimSpace(currentPrompt) == "" || strings.TrimSpace(refineInstruction) == "" {
		return "", domain.ErrInvalidPrompt
	}
	instructions := fmt.Sprintf(refineInstructionTemplate, refineInstruction)
	return s.generate(ctx, TextRequest{Content: composeContent(instructions, currentPrompt)})
}

func (s *Service) generate(ctx context.Context, req TextRequest) (string, error) {
	gen := s.source()
	if gen == nil {
		return "", fmt.Errorf("%w: active client does not support text generation", domain.ErrProviderFailure)
	}
	text, err := gen.GenerateText(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("prompts: text generation failed")
		return "", fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return text, nil
}

func composeContent(systemInstructions, userPrompt string) string {
	return fmt.Sprintf("%s\n\nUser Prompt: %s\n\nGenerate the final prompt in a valid JSON format.", systemInstructions, userPrompt)
}
