// Package webhook ingests provider call callbacks: it identifies the execution,
// finds the candidate, archives the delivery and applies the call outcome.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/executions"
	"github.com/spigell/interview-caller/internal/logger"
	"github.com/spigell/interview-caller/internal/outcome"
	"go.uber.org/zap"
)

var (
	// ErrUnidentified means no execution id could be extracted from the payload.
	ErrUnidentified = errors.New("execution_id not found in payload")
	// ErrUnmapped means the execution could not be tied to a candidate.
	ErrUnmapped = errors.New("could not determine candidate for this execution")
	// ErrNotArchived is returned by Replay for an unknown execution.
	ErrNotArchived = errors.New("no archived webhook for this execution")
)

const DefaultInterimTranscriptMin = 50

type Stage string

const (
	StageUnidentified Stage = "unidentified"
	StageUnmapped     Stage = "unmapped"
	StageMapped       Stage = "mapped"
	StageResolved     Stage = "resolved"
	StageApplied      Stage = "applied"
)

type statusClass int

const (
	classInProgress statusClass = iota
	classTerminal
	classNoAnswer
	classFailed
)

var statusClasses = map[string]statusClass{
	"completed": classTerminal,
	"ended":     classTerminal,
	"stopped":   classTerminal,
	"finished":  classTerminal,

	"no_answer": classNoAnswer,
	"no-answer": classNoAnswer,
	"no answer": classNoAnswer,

	"failed":       classFailed,
	"error":        classFailed,
	"cancelled":    classFailed,
	"canceled":     classFailed,
	"cut":          classFailed,
	"terminated":   classFailed,
	"hung_up":      classFailed,
	"disconnected": classFailed,
	"busy":         classFailed,
	"rejected":     classFailed,
}

// CandidateStore is the part of candidates.Store the dispatcher needs.
type CandidateStore interface {
	Get(id int) (*candidates.Candidate, error)
	FindByPhone(phone string) (*candidates.Candidate, error)
	ApplyOutcome(id int, status candidates.Status, updated *candidates.Interview) error
}

// MappingStore is the part of executions.Store the dispatcher needs.
type MappingStore interface {
	Get(executionID string) (*executions.Mapping, error)
	Put(executionID string, candidateID int, phone string) error
}

type OutcomeResolver interface {
	Resolve(ctx context.Context, details map[string]any, transcript string) outcome.Resolution
}

// Result describes how far a delivery got.
type Result struct {
	Stage       Stage
	ExecutionID string
	CandidateID int
	// MappedBy is "mapping" or "phone".
	MappedBy string
	// CallStatus is the provider status, lower-cased.
	CallStatus string
	// Status is the candidate status written, empty when nothing was written.
	Status        candidates.Status
	Resolution    *outcome.Resolution
	ExtractedData any
	// Reference identifies a stored unidentified delivery.
	Reference string
}

type Config struct {
	// InterimTranscriptMin is the transcript length, in characters, above which
	// an in-progress delivery is resolved anyway.
	InterimTranscriptMin int
}

type Dispatcher struct {
	candidates   CandidateStore
	mappings     MappingStore
	archive      *ArchiveStore
	unidentified *UnidentifiedStore
	resolver     OutcomeResolver
	cfg          Config
	logger       *zap.Logger
}

func NewDispatcher(
	cands CandidateStore,
	mappings MappingStore,
	archive *ArchiveStore,
	unidentified *UnidentifiedStore,
	resolver OutcomeResolver,
	cfg Config,
	log *zap.Logger,
) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.InterimTranscriptMin <= 0 {
		cfg.InterimTranscriptMin = DefaultInterimTranscriptMin
	}
	return &Dispatcher{
		candidates:   cands,
		mappings:     mappings,
		archive:      archive,
		unidentified: unidentified,
		resolver:     resolver,
		cfg:          cfg,
		logger:       log,
	}
}

// Handle processes one delivery. The payload is archived before any candidate
// is touched, including deliveries that cannot be mapped. Re-delivering the
// same payload converges on the same state.
func (d *Dispatcher) Handle(ctx context.Context, p Payload) (*Result, error) {
	res := &Result{
		ExecutionID:   p.ExecutionID(),
		CallStatus:    p.Status(),
		ExtractedData: p.ExtractedData(),
	}

	if res.ExecutionID == "" {
		res.Stage = StageUnidentified
		ref, err := d.unidentified.Save(p)
		if err != nil {
			d.logger.Error("failed to keep unidentified webhook", zap.Error(err))
		}
		res.Reference = ref
		d.logger.Warn("webhook without execution id rejected", zap.String("reference", ref))
		return res, ErrUnidentified
	}

	log := logger.WithExecution(d.logger, res.ExecutionID, 0, res.CallStatus)
	log.Info("webhook received")

	candidateID, mappedBy, err := d.identifyCandidate(p, res.ExecutionID, log)
	if err != nil || candidateID == 0 {
		res.Stage = StageUnmapped
		if _, archiveErr := d.archive.Save(res.ExecutionID, nil, p); archiveErr != nil {
			log.Error("failed to archive unmapped webhook", zap.Error(archiveErr))
			if err == nil {
				err = archiveErr
			}
		}
		if err != nil {
			return res, err
		}
		log.Warn("no candidate for execution, payload archived")
		return res, ErrUnmapped
	}

	res.Stage = StageMapped
	res.CandidateID = candidateID
	res.MappedBy = mappedBy
	log = log.With(zap.Int(logger.FieldCandidateID, candidateID))

	if _, err := d.archive.Save(res.ExecutionID, &candidateID, p); err != nil {
		return res, err
	}

	switch statusClasses[res.CallStatus] {
	case classTerminal:
		resolution := d.resolver.Resolve(ctx, p.Details(), p.Transcript())
		res.Stage = StageResolved
		res.Resolution = &resolution
		d.warnOnSlotMismatch(candidateID, resolution, log)
		return d.apply(res, resolution.Status, resolution.UpdatedInterview, log)

	case classNoAnswer:
		return d.apply(res, candidates.StatusNoAnswer, nil, log)

	case classFailed:
		return d.apply(res, candidates.StatusPending, nil, log)

	default:
		transcript := p.Transcript()
		if utf8.RuneCountInString(transcript) <= d.cfg.InterimTranscriptMin {
			log.Debug("call in progress, nothing to apply")
			return res, nil
		}

		resolution := d.resolver.Resolve(ctx, p.Details(), transcript)
		res.Stage = StageResolved
		res.Resolution = &resolution
		if resolution.Status == candidates.StatusPending {
			log.Debug("interim transcript undecided")
			return res, nil
		}
		log.Info("decision found in interim transcript", zap.String("source", resolution.Source))
		return d.apply(res, resolution.Status, resolution.UpdatedInterview, log)
	}
}

// Replay runs an archived delivery through Handle again. The archive entry is
// refreshed like any other delivery.
func (d *Dispatcher) Replay(ctx context.Context, executionID string) (*Result, error) {
	entry, err := d.archive.Get(executionID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.Payload == nil {
		return nil, fmt.Errorf("%s: %w", executionID, ErrNotArchived)
	}

	d.logger.Info("replaying archived webhook", zap.String(logger.FieldExecutionID, executionID))
	return d.Handle(ctx, entry.Payload)
}

// identifyCandidate returns 0 when no candidate matches.
func (d *Dispatcher) identifyCandidate(p Payload, executionID string, log *zap.Logger) (int, string, error) {
	mapping, err := d.mappings.Get(executionID)
	if err != nil {
		return 0, "", err
	}
	if mapping != nil {
		return mapping.CandidateID, "mapping", nil
	}

	phone := p.RecipientPhone()
	if phone == "" {
		return 0, "", nil
	}

	c, err := d.candidates.FindByPhone(phone)
	if errors.Is(err, candidates.ErrNotFound) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}

	if err := d.mappings.Put(executionID, c.ID, phone); err != nil {
		log.Warn("failed to store late execution mapping", zap.Error(err))
	}
	log.Info("candidate matched by phone", zap.Int(logger.FieldCandidateID, c.ID))
	return c.ID, "phone", nil
}

func (d *Dispatcher) apply(res *Result, status candidates.Status, updated *candidates.Interview, log *zap.Logger) (*Result, error) {
	if err := d.candidates.ApplyOutcome(res.CandidateID, status, updated); err != nil {
		return res, err
	}
	res.Stage = StageApplied
	res.Status = status
	log.Info("call outcome applied", zap.String("status", string(status)))
	return res, nil
}

// warnOnSlotMismatch flags a confirmation whose slot differs from the one on file.
func (d *Dispatcher) warnOnSlotMismatch(candidateID int, r outcome.Resolution, log *zap.Logger) {
	if r.Status != candidates.StatusConfirmed || r.UpdatedInterview == nil {
		return
	}
	c, err := d.candidates.Get(candidateID)
	if err != nil {
		return
	}
	if c.ScheduledInterview.Datetime != r.UpdatedInterview.Datetime {
		log.Warn("confirmed slot differs from scheduled interview",
			zap.String("scheduled", c.ScheduledInterview.Datetime),
			zap.String("confirmed", r.UpdatedInterview.Datetime),
		)
	}
}
