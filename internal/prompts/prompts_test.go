package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type stubGenerator struct {
	last TextRequest
	text string
	err  error
}

func (s *stubGenerator) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	s.last = req
	return s.text, s.err
}

func newTestService(gen TextGenerator) *Service {
	return NewService(func() TextGenerator { return gen }, zerolog.Nop())
}

func TestGenerateComposesContent(t *testing.T) {
	gen := &stubGenerator{text: "a slow dolly shot of a heist"}
	svc := newTestService(gen)

	out, err := svc.Generate(context.Background(), "a heist scene", "write cinematic prompts", []byte{0x89}, "image/png")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "a slow dolly shot of a heist" {
		t.Fatalf("out = %q", out)
	}
	if !strings.HasPrefix(gen.last.Content, "write cinematic prompts\n\nUser Prompt: a heist scene") {
		t.Fatalf("content = %q", gen.last.Content)
	}
	if !strings.HasSuffix(gen.last.Content, "Generate the final prompt in a valid JSON format.") {
		t.Fatalf("content = %q", gen.last.Content)
	}
	if len(gen.last.ImageData) == 0 || gen.last.ImageMIME != "image/png" {
		t.Fatalf("image not forwarded: %+v", gen.last)
	}
}

func TestGenerateValidation(t *testing.T) {
	svc := newTestService(&stubGenerator{})
	cases := []struct{ userPrompt, instructions string }{
		{"", "instructions"},
		{"prompt", ""},
		{"  ", "instructions"},
	}
	for i, tc := range cases {
		if _, err := svc.Generate(context.Background(), tc.userPrompt, tc.instructions, nil, ""); !errors.Is(err, domain.ErrInvalidPrompt) {
			t.Fatalf("case %d: expected ErrInvalidPrompt, got %v", i, err)
		}
	}
}

func TestRefineEmbedsInstruction(t *testing.T) {
	gen := &stubGenerator{text: "a heist scene in the rain"}
	svc := newTestService(gen)

	out, err := svc.Refine(context.Background(), "a heist scene", "make it rain")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if out != "a heist scene in the rain" {
		t.Fatalf("out = %q", out)
	}
	if !strings.Contains(gen.last.Content, "Output only the new prompt.") {
		t.Fatalf("content = %q", gen.last.Content)
	}
	if !strings.Contains(gen.last.Content, "Instruction: make it rain") {
		t.Fatalf("content = %q", gen.last.Content)
	}
	if !strings.Contains(gen.last.Content, "User Prompt: a heist scene") {
		t.Fatalf("content = %q", gen.last.Content)
	}
}

func TestRefineValidation(t *testing.T) {
	svc := newTestService(&stubGenerator{})
	if _, err := svc.Refine(context.Background(), "a heist scene", "  "); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got %v", err)
	}
}

func TestGeneratorErrorWrapsProviderFailure(t *testing.T) {
	svc := newTestService(&stubGenerator{err: errors.New("quota exceeded")})
	_, err := svc.Generate(context.Background(), "a heist scene", "instructions", nil, "")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("cause not carried: %v", err)
	}
}

func TestMissingGeneratorIsProviderFailure(t *testing.T) {
	svc := newTestService(nil)
	if _, err := svc.Refine(context.Background(), "a heist scene", "make it rain"); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}
