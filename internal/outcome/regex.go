package outcome

import (
	"context"
	"regexp"

	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/slot"
)

const weekdays = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`
const months = `january|february|march|april|may|june|july|august|september|october|november|december`

var (
	confirmPatterns = compileAll(
		`\b(confirmed|confirm|confirmation)\b`,
		`\b(yes|yeah|sure|okay|ok|alright|sounds good|that works|perfect)\b.*\b(interview|slot|time)\b`,
		`\b(i will|i'll|i can)\b.*\b(attend|come|be there)\b`,
		`\b(see you|looking forward|thank you)\b.*\b(confirmation|confirm)\b`,
	)

	declinePatterns = compileAll(
		`\b(declined|decline|not interested|no longer interested)\b`,
		`\b(i don't want|i do not want)\b.*\b(interview|position|job)\b`,
		`\b(remove|withdraw|not pursuing)\b.*\b(application|position)\b`,
		`\b(no thank you|no thanks)\b.*\b(not interested|not pursuing)\b`,
	)

	reschedulePatterns = compileAll(
		`\b(rescheduled|reschedule|change|different|another)\b.*\b(time|slot|date|day)\b`,
		`\b(`+weekdays+`)\b.*\b\d{1,2}(?:st|nd|rd|th)?\b.*\b(`+months+`)\b`,
		`\b(new|different|another)\b.*\b(slot|time|date)\b`,
		`\b(change|switch|move)\b.*\b(to|for)\b.*\b(`+weekdays+`)\b`,
	)

	// Any of these means the decline language is not the candidate's own decision.
	wrongPersonPatterns = compileAll(
		`\b(wrong number|wrong person|you have the wrong|not the person you)\b`,
		`\b(i'm|i am|this is) actually\b`,
		`\b(no one|nobody) (by|named|called) that\b`,
		`\b(trying to reach|looking for) someone else\b`,
		`\b(he|she|they)('s| is| are) not (here|available|home)\b`,
	)

	hesitationPatterns = compileAll(
		`\b(not sure|i don't know|i do not know|let me think|think about it|need to check)\b`,
		`\b(maybe|perhaps|possibly)\b`,
		`\b(call (me )?back|not a good time|can't talk|busy right now)\b`,
	)

	affirmativePattern = regexp.MustCompile(`(?i)\b(yes|sure|okay|alright|perfect|great|thank you)\b`)
	negationPattern    = regexp.MustCompile(`(?i)\b(no|not|never|can't|cannot|won't|don't)\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

func score(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// RegexClassifier scores a transcript against confirmation, decline and
// reschedule language. A call where the speaker is the wrong person or
// hesitates is never declined, and never confirmed on filler words alone.
type RegexClassifier struct{}

func NewRegexClassifier() *RegexClassifier {
	return &RegexClassifier{}
}

func (RegexClassifier) Name() string { return "regex" }

func (RegexClassifier) Classify(_ context.Context, transcript string) (Classification, error) {
	confirmed := score(confirmPatterns, transcript)
	declined := score(declinePatterns, transcript)
	rescheduled := score(reschedulePatterns, transcript)

	wrongPerson := score(wrongPersonPatterns, transcript) > 0
	hesitant := score(hesitationPatterns, transcript) > 0
	if wrongPerson || hesitant {
		declined = 0
	}

	best := max(confirmed, declined, rescheduled)
	switch {
	case best == 0 && wrongPerson:
		return Classification{Status: candidates.StatusPending, Reason: "wrong person"}, nil
	case best == 0 && hesitant:
		return Classification{Status: candidates.StatusPending, Reason: "candidate hesitated"}, nil
	case best == 0 && negationPattern.MatchString(transcript):
		return Classification{Status: candidates.StatusPending, Reason: "negative language without a decision"}, nil
	case best == 0:
		if affirmativePattern.MatchString(transcript) {
			return Classification{
				Status:     candidates.StatusConfirmed,
				Confidence: 0.25,
				Reason:     "generic affirmative language",
			}, nil
		}
		return Classification{Status: candidates.StatusPending, Reason: "no decision language"}, nil

	// Ties go to the outcome that keeps the candidate in the pipeline.
	case rescheduled == best:
		return Classification{
			Status:     candidates.StatusRescheduled,
			Confidence: confidence(rescheduled, len(reschedulePatterns)),
			Slot:       slot.ParseText(transcript),
			Reason:     "reschedule language",
		}, nil
	case confirmed == best:
		return Classification{
			Status:     candidates.StatusConfirmed,
			Confidence: confidence(confirmed, len(confirmPatterns)),
			Reason:     "confirmation language",
		}, nil
	default:
		return Classification{
			Status:     candidates.StatusDeclined,
			Confidence: confidence(declined, len(declinePatterns)),
			Reason:     "decline language",
		}, nil
	}
}

func confidence(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
