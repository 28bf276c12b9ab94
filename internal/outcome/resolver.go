// Package outcome turns call execution details and transcripts into a
// candidate status decision.
package outcome

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/logger"
	"github.com/spigell/interview-caller/internal/slot"
	"github.com/spigell/interview-caller/internal/utils"
	"go.uber.org/zap"
)

const (
	SourceExtraction = "extraction"
	SourceLegacy     = "legacy"
	SourceNone       = "none"

	transcriptPreviewLen = 200
)

// Resolution is the decision for one call. Status pending means no decision yet.
type Resolution struct {
	Status           candidates.Status
	UpdatedInterview *slot.Display
	Source           string
	Notes            string
	Confidence       float64
}

type Resolver struct {
	classifiers []Classifier
	logger      *zap.Logger
}

// NewResolver builds a resolver whose transcript fallback tries classifiers in
// order. With none given the regex classifier is used.
func NewResolver(log *zap.Logger, classifiers ...Classifier) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if len(classifiers) == 0 {
		classifiers = []Classifier{NewRegexClassifier()}
	}
	return &Resolver{classifiers: classifiers, logger: log}
}

// Resolve decides the outcome. Structured extraction wins over legacy fields,
// which win over the transcript; the first source with a decision is used.
// It never fails: anything undecidable is pending.
func (r *Resolver) Resolve(ctx context.Context, details map[string]any, transcript string) Resolution {
	if strings.TrimSpace(transcript) == "" {
		transcript = transcriptFrom(details)
	}

	data, err := decodeExtracted(details["extracted_data"])
	if err != nil {
		r.logger.Warn("extracted data partially decoded", zap.Error(err))
	}

	if data != nil {
		if res, ok := r.fromCallOutcome(data); ok {
			return res
		}
		if res, ok := r.fromLegacy(data); ok {
			return res
		}
	}

	if strings.TrimSpace(transcript) != "" {
		if res, ok := r.fromTranscript(ctx, transcript); ok {
			return res
		}
	}

	return Resolution{Status: candidates.StatusPending, Source: SourceNone}
}

func (r *Resolver) fromCallOutcome(data *ExtractedData) (Resolution, bool) {
	res := Resolution{Source: SourceExtraction, Notes: data.Notes, Confidence: 1}

	switch strings.ToUpper(strings.TrimSpace(data.CallOutcome)) {
	case "ACCEPTED":
		res.Status = candidates.StatusConfirmed
		res.UpdatedInterview = slot.ToDisplay(data.FinalSlot)
	case "REJECTED":
		res.Status = candidates.StatusDeclined
	case "RESCHEDULED":
		res.Status = candidates.StatusRescheduled
		res.UpdatedInterview = slot.ToDisplay(data.FinalSlot)
		if res.UpdatedInterview == nil {
			r.logger.Warn("rescheduled outcome without usable final slot", zap.Any("final_slot", data.FinalSlot))
		}
	case "":
		return Resolution{}, false
	default:
		r.logger.Warn("unknown call outcome ignored", zap.String("call_outcome", data.CallOutcome))
		return Resolution{}, false
	}

	r.logger.Debug("outcome from structured extraction",
		zap.String("call_outcome", data.CallOutcome),
		zap.String("status", string(res.Status)),
		zap.String("notes", data.Notes),
	)
	return res, true
}

func (r *Resolver) fromLegacy(data *ExtractedData) (Resolution, bool) {
	res := Resolution{Source: SourceLegacy, Notes: data.Notes, Confidence: 1}

	if status, ok := candidates.ParseStatus(data.Status); ok && isDecision(status) {
		res.Status = status
	} else if data.CallbackUser != nil && *data.CallbackUser {
		// checked before user_interested: a callback request is never a decline.
		res.Status = candidates.StatusRescheduled
	} else if data.UserInterested != nil {
		res.Status = candidates.StatusDeclined
		if *data.UserInterested {
			res.Status = candidates.StatusConfirmed
		}
	} else {
		return Resolution{}, false
	}

	if res.Status == candidates.StatusRescheduled {
		res.UpdatedInterview = data.legacySlot()
	}

	r.logger.Debug("outcome from legacy extraction fields", zap.String("status", string(res.Status)))
	return res, true
}

func (r *Resolver) fromTranscript(ctx context.Context, transcript string) (Resolution, bool) {
	for _, c := range r.classifiers {
		log := r.logger.With(zap.String(logger.FieldClassifier, c.Name()))

		verdict, err := classify(ctx, c, transcript)
		if err != nil {
			log.Warn("transcript classifier failed", zap.Error(err))
			continue
		}

		log.Debug("transcript classified",
			zap.String("status", string(verdict.Status)),
			zap.Float64("confidence", verdict.Confidence),
			zap.String("transcript_preview", utils.TruncateForLog(transcript, transcriptPreviewLen)),
		)

		if verdict.Status == "" || verdict.Status == candidates.StatusPending {
			continue
		}

		res := Resolution{
			Status:     verdict.Status,
			Source:     c.Name(),
			Notes:      verdict.Reason,
			Confidence: verdict.Confidence,
		}
		if verdict.Status == candidates.StatusRescheduled {
			res.UpdatedInterview = verdict.Slot
		}
		return res, true
	}

	return Resolution{}, false
}

// classify shields the resolver from a misbehaving classifier.
func classify(ctx context.Context, c Classifier, transcript string) (verdict Classification, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("classifier %s panicked: %v", c.Name(), p)
		}
	}()
	return c.Classify(ctx, transcript)
}

func isDecision(s candidates.Status) bool {
	switch s {
	case candidates.StatusConfirmed, candidates.StatusDeclined, candidates.StatusRescheduled, candidates.StatusNoAnswer:
		return true
	}
	return false
}

func transcriptFrom(details map[string]any) string {
	for _, key := range []string{"transcript", "conversation_transcript"} {
		if s, ok := details[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
