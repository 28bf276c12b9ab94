package outcome

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/interview-caller/internal/candidates"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubClassifier struct {
	name    string
	verdict Classification
	err     error
	panics  bool
	calls   int
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Classify(_ context.Context, _ string) (Classification, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.verdict, s.err
}

func thursdaySlot() map[string]any {
	return map[string]any{"date": "2024-12-12", "time": "10:00 AM", "day_of_week": "Thursday"}
}

func TestResolveScenarioAAccepted(t *testing.T) {
	r := NewResolver(zap.NewNop())

	res := r.Resolve(context.Background(), map[string]any{
		"extracted_data": map[string]any{
			"call_outcome":  "ACCEPTED",
			"original_slot": thursdaySlot(),
			"final_slot":    thursdaySlot(),
			"notes":         "ok",
		},
	}, "")

	if res.Status != candidates.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", res.Status)
	}
	if res.Source != SourceExtraction || res.Notes != "ok" {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if res.UpdatedInterview == nil || res.UpdatedInterview.Datetime != "Thursday, the 12th of December at 10:00 A.M." {
		t.Fatalf("expected final slot converted for consistency, got %+v", res.UpdatedInterview)
	}
}

func TestResolveScenarioBRescheduled(t *testing.T) {
	r := NewResolver(zap.NewNop())

	res := r.Resolve(context.Background(), map[string]any{
		"extracted_data": map[string]any{
			"call_outcome":  "RESCHEDULED",
			"original_slot": thursdaySlot(),
			"final_slot":    map[string]any{"date": "2024-12-15", "time": "02:00 PM", "day_of_week": "Sunday"},
		},
	}, "I can't make Thursday")

	if res.Status != candidates.StatusRescheduled {
		t.Fatalf("expected rescheduled, got %s", res.Status)
	}
	if res.UpdatedInterview == nil || res.UpdatedInterview.Datetime != "Sunday, the 15th of December at 2:00 P.M." {
		t.Fatalf("unexpected updated interview %+v", res.UpdatedInterview)
	}
}

func TestResolveRejected(t *testing.T) {
	r := NewResolver(zap.NewNop())

	res := r.Resolve(context.Background(), map[string]any{
		"extracted_data": map[string]any{"call_outcome": "rejected", "final_slot": nil},
	}, "yes sure, the time works")

	if res.Status != candidates.StatusDeclined || res.UpdatedInterview != nil {
		t.Fatalf("expected declined without interview, got %+v", res)
	}
}

func TestResolveExtractionAsJSONString(t *testing.T) {
	r := NewResolver(zap.NewNop())

	res := r.Resolve(context.Background(), map[string]any{
		"extracted_data": `{"call_outcome":"ACCEPTED","final_slot":null}`,
	}, "")

	if res.Status != candidates.StatusConfirmed || res.UpdatedInterview != nil {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveUnknownCallOutcomeFallsThrough(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	r := NewResolver(zap.New(core))

	res := r.Resolve(context.Background(), map[string]any{
		"extracted_data": map[string]any{"call_outcome": "MAYBE", "user_interested": true},
	}, "")

	if res.Status != candidates.StatusConfirmed || res.Source != SourceLegacy {
		t.Fatalf("expected legacy decision after unknown call_outcome, got %+v", res)
	}
	if observed.FilterMessage("unknown call outcome ignored").Len() != 1 {
		t.Fatalf("expected warning for unknown call outcome")
	}
}

func TestResolveLegacyFields(t *testing.T) {
	cases := []struct {
		name     string
		data     map[string]any
		want     candidates.Status
		wantSlot string
	}{
		{name: "explicit status", data: map[string]any{"status": "Declined"}, want: candidates.StatusDeclined},
		{name: "non decision status ignored", data: map[string]any{"status": "calling", "user_interested": "true"}, want: candidates.StatusConfirmed},
		{name: "user interested", data: map[string]any{"user_interested": true}, want: candidates.StatusConfirmed},
		{name: "user not interested", data: map[string]any{"user_interested": false}, want: candidates.StatusDeclined},
		{
			name:     "callback beats not interested",
			data:     map[string]any{"user_interested": false, "callback_user": true, "new_slot": "Monday, the 15th of December at 2:00 P.M."},
			want:     candidates.StatusRescheduled,
			wantSlot: "Monday, the 15th of December at 2:00 P.M.",
		},
		{
			name:     "structured preferred slot",
			data:     map[string]any{"callback_user": "1", "preferred_slot": map[string]any{"date": "2024-12-16", "time": "11:00 AM"}},
			want:     candidates.StatusRescheduled,
			wantSlot: "Monday, the 16th of December at 11:00 A.M.",
		},
		{
			name:     "display shaped slot",
			data:     map[string]any{"status": "rescheduled", "rescheduled_slot": map[string]any{"day": "Friday", "date": "Friday, the 13th of December", "time": "9:00 A.M.", "datetime": "Friday, the 13th of December at 9:00 A.M."}},
			want:     candidates.StatusRescheduled,
			wantSlot: "Friday, the 13th of December at 9:00 A.M.",
		},
		{
			name: "rescheduled without slot",
			data: map[string]any{"callback_user": true, "new_slot": "sometime next week"},
			want: candidates.StatusRescheduled,
		},
	}

	r := NewResolver(zap.NewNop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), map[string]any{"extracted_data": tc.data}, "")
			if res.Status != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, res.Status)
			}
			if tc.wantSlot == "" {
				if res.UpdatedInterview != nil {
					t.Fatalf("expected no interview, got %+v", res.UpdatedInterview)
				}
				return
			}
			if res.UpdatedInterview == nil || res.UpdatedInterview.Datetime != tc.wantSlot {
				t.Fatalf("expected slot %q, got %+v", tc.wantSlot, res.UpdatedInterview)
			}
		})
	}
}

func TestResolveTranscriptFallbackFromDetails(t *testing.T) {
	r := NewResolver(zap.NewNop())

	res := r.Resolve(context.Background(), map[string]any{
		"conversation_transcript": "user: Yes, I confirm the interview time.",
	}, "")
	if res.Status != candidates.StatusConfirmed || res.Source != "regex" {
		t.Fatalf("expected regex confirmation, got %+v", res)
	}
}

func TestResolveNothingIsPending(t *testing.T) {
	r := NewResolver(zap.NewNop())

	for _, details := range []map[string]any{nil, {}, {"extracted_data": map[string]any{}}, {"extracted_data": 42}} {
		res := r.Resolve(context.Background(), details, "")
		if res.Status != candidates.StatusPending || res.Source != SourceNone {
			t.Fatalf("expected pending for %v, got %+v", details, res)
		}
	}
}

func TestResolveClassifierChain(t *testing.T) {
	failing := &stubClassifier{name: "failing", err: errors.New("quota exceeded")}
	panicking := &stubClassifier{name: "panicking", panics: true}
	undecided := &stubClassifier{name: "undecided", verdict: Classification{Status: candidates.StatusPending}}
	deciding := &stubClassifier{name: "deciding", verdict: Classification{Status: candidates.StatusDeclined, Confidence: 0.9, Reason: "said no"}}
	never := &stubClassifier{name: "never", verdict: Classification{Status: candidates.StatusConfirmed}}

	core, observed := observer.New(zapcore.WarnLevel)
	r := NewResolver(zap.New(core), failing, panicking, undecided, deciding, never)

	res := r.Resolve(context.Background(), nil, "some transcript")
	if res.Status != candidates.StatusDeclined || res.Source != "deciding" || res.Notes != "said no" {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if never.calls != 0 {
		t.Fatalf("classifiers after the first decision must not run")
	}
	if observed.FilterMessage("transcript classifier failed").Len() != 2 {
		t.Fatalf("expected failures to be logged, got %d entries", observed.Len())
	}
}

func TestResolveExtractionBeatsTranscript(t *testing.T) {
	stub := &stubClassifier{name: "stub", verdict: Classification{Status: candidates.StatusDeclined}}
	r := NewResolver(zap.NewNop(), stub)

	res := r.Resolve(context.Background(), map[string]any{
		"extracted_data": map[string]any{"call_outcome": "ACCEPTED"},
	}, "not interested")

	if res.Status != candidates.StatusConfirmed {
		t.Fatalf("expected extraction to win, got %s", res.Status)
	}
	if stub.calls != 0 {
		t.Fatalf("transcript classifiers must not run when extraction decides")
	}
}
