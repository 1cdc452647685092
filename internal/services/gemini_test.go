package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestExtractText_ConcatenatesTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Хан-Уул дүүргийн үнэ "),
				genai.Text("тогтвортой байна."),
			}}},
		},
	}

	got := extractText(resp)
	if got != "Хан-Уул дүүргийн үнэ тогтвортой байна." {
		t.Fatalf("expected concatenated text, got %q", got)
	}
}

func TestExtractText_SkipsNonTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Blob{MIMEType: "image/png", Data: []byte{1}},
				genai.Text("зөвхөн текст"),
			}}},
		},
	}

	got := extractText(resp)
	if got != "зөвхөн текст" {
		t.Fatalf("expected only text parts, got %q", got)
	}
}

func TestExtractText_EmptyResponse(t *testing.T) {
	if got := extractText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
