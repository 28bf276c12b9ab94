package outcome

import (
	"context"

	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/slot"
)

// Classification is a transcript-only verdict.
type Classification struct {
	Status     candidates.Status
	Confidence float64
	// Slot is the new interview for rescheduled verdicts when the transcript names one.
	Slot   *slot.Display
	Reason string
}

// Classifier decides a call outcome from transcript text alone. Implementations
// report an undecided transcript as StatusPending, not as an error.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, transcript string) (Classification, error)
}
