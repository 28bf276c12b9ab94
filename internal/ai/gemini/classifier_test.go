package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/interview-caller/internal/candidates"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestClassifierClassify(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		minConf    float64
		wantStatus candidates.Status
		wantSlot   string
	}{
		{
			name:       "accepted",
			response:   `{"outcome": "ACCEPTED", "confidence": 0.9, "final_slot": null, "reason": "said yes"}`,
			wantStatus: candidates.StatusConfirmed,
		},
		{
			name:       "fenced lowercase outcome",
			response:   "```json\n{\"outcome\": \"accepted\", \"confidence\": \"0.7\"}\n```",
			wantStatus: candidates.StatusConfirmed,
		},
		{
			name:       "confident decline",
			response:   `{"outcome": "REJECTED", "confidence": 0.95}`,
			wantStatus: candidates.StatusDeclined,
		},
		{
			name:       "weak decline stays pending",
			response:   `{"outcome": "REJECTED", "confidence": 0.6}`,
			wantStatus: candidates.StatusPending,
		},
		{
			name:       "below minimum confidence",
			response:   `{"outcome": "ACCEPTED", "confidence": 0.4}`,
			minConf:    0.5,
			wantStatus: candidates.StatusPending,
		},
		{
			name:       "undetermined",
			response:   `{"outcome": "UNDETERMINED", "confidence": 1}`,
			wantStatus: candidates.StatusPending,
		},
		{
			name:       "rescheduled structured slot",
			response:   `{"outcome": "RESCHEDULED", "confidence": 0.9, "final_slot": {"date": "2024-12-13", "time": "10:00 AM", "day_of_week": "Friday"}}`,
			wantStatus: candidates.StatusRescheduled,
			wantSlot:   "Friday, the 13th of December at 10:00 A.M.",
		},
		{
			name:       "rescheduled spoken slot",
			response:   `{"outcome": "RESCHEDULED", "confidence": 0.9, "final_slot": "Monday, the 16th of December at 2:00 P.M."}`,
			wantStatus: candidates.StatusRescheduled,
			wantSlot:   "Monday, the 16th of December at 2:00 P.M.",
		},
		{
			name:       "rescheduled without slot",
			response:   `{"outcome": "RESCHEDULED", "confidence": 0.9}`,
			wantStatus: candidates.StatusRescheduled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubGenerator{response: tt.response}
			classifier := NewClassifier(stub, nil, tt.minConf, 0)

			verdict, err := classifier.Classify(context.Background(), "Agent: Can you attend? Candidate: ...")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if verdict.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", verdict.Status, tt.wantStatus)
			}

			got := ""
			if verdict.Slot != nil {
				got = verdict.Slot.Datetime
			}
			if got != tt.wantSlot {
				t.Fatalf("slot = %q, want %q", got, tt.wantSlot)
			}
		})
	}
}

func TestClassifierPromptContainsTranscript(t *testing.T) {
	stub := &stubGenerator{response: `{"outcome": "ACCEPTED", "confidence": 1}`}
	classifier := NewClassifier(stub, nil, 0, 0)

	if _, err := classifier.Classify(context.Background(), "Candidate: yes, see you Thursday"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stub.lastPrompt, "Candidate: yes, see you Thursday") {
		t.Fatalf("prompt does not contain transcript: %q", stub.lastPrompt)
	}
	if strings.Contains(stub.lastPrompt, "{{TRANSCRIPT}}") {
		t.Fatalf("placeholder left in prompt")
	}
}

func TestClassifierErrors(t *testing.T) {
	tests := []struct {
		name string
		stub *stubGenerator
	}{
		{"generator error", &stubGenerator{err: errors.New("quota")}},
		{"not json", &stubGenerator{response: "I think they accepted"}},
		{"unknown outcome", &stubGenerator{response: `{"outcome": "MAYBE"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := NewClassifier(tt.stub, nil, 0, 0).Classify(context.Background(), "hello")
			if err == nil {
				t.Fatalf("expected error")
			}
			if verdict.Status != candidates.StatusPending {
				t.Fatalf("expected pending on error, got %s", verdict.Status)
			}
		})
	}
}

func TestClassifierSkipsEmptyTranscript(t *testing.T) {
	stub := &stubGenerator{response: `{"outcome": "ACCEPTED", "confidence": 1}`}

	verdict, err := NewClassifier(stub, nil, 0, 0).Classify(context.Background(), "   ")
	if err != nil || verdict.Status != candidates.StatusPending {
		t.Fatalf("unexpected verdict %+v, %v", verdict, err)
	}
	if stub.lastPrompt != "" {
		t.Fatalf("generator must not be called for an empty transcript")
	}
}

func TestClassifierLogsThresholdWithModel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	stub := &stubGenerator{response: `{"outcome": "REJECTED", "confidence": 0.5}`}

	if _, err := NewClassifier(stub, zap.New(core), 0, 0).Classify(context.Background(), "no thanks"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("set outcome to pending by confidence threshold").All()
	if len(entries) != 1 {
		t.Fatalf("expected threshold log entry, got %v", logs.All())
	}
	if entries[0].ContextMap()["ai_model"] != "stub-model" {
		t.Fatalf("expected model field, got %v", entries[0].ContextMap())
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: " first "}, nil, {Text: ""}}}},
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "second"}}}},
		},
	}

	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first\nsecond" {
		t.Fatalf("unexpected text %q", got)
	}

	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatalf("expected error for empty response")
	}
}

func TestGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), " ", ""); err == nil {
		t.Fatalf("expected error for empty api key")
	}

	var g *Generator
	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error for nil generator")
	}
}
