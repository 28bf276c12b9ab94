// Package calls places interview confirmation calls and checks on them.
package calls

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/logger"
	"github.com/spigell/interview-caller/internal/webhook"
	"go.uber.org/zap"
)

// CallRequest is what a Dialer needs to start a call.
type CallRequest struct {
	Phone            string
	Name             string
	Position         string
	InterviewDate    string
	InterviewTime    string
	AlternativeSlots []string
}

type Dialer interface {
	PlaceCall(ctx context.Context, req CallRequest) (string, error)
}

type ExecutionFetcher interface {
	GetExecution(ctx context.Context, executionID string) (map[string]any, error)
}

type CandidateStore interface {
	Get(id int) (*candidates.Candidate, error)
	AlternativeSlots(id int) ([]string, error)
	ApplyOutcome(id int, status candidates.Status, updated *candidates.Interview) error
}

type MappingStore interface {
	Put(executionID string, candidateID int, phone string) error
}

type Handler interface {
	Handle(ctx context.Context, p webhook.Payload) (*webhook.Result, error)
}

// Request asks for a call to a stored candidate. Empty fields are taken from
// the candidate record.
type Request struct {
	CandidateID   int    `json:"candidateId"`
	Phone         string `json:"phone"`
	Name          string `json:"name"`
	InterviewDate string `json:"interviewDate"`
	InterviewTime string `json:"interviewTime"`
}

type Placement struct {
	ExecutionID      string   `json:"executionId"`
	CandidateID      int      `json:"candidateId"`
	AlternativeSlots []string `json:"alternativeSlots"`
}

type Placer struct {
	candidates CandidateStore
	mappings   MappingStore
	dialer     Dialer
	logger     *zap.Logger
}

func NewPlacer(cands CandidateStore, mappings MappingStore, dialer Dialer, log *zap.Logger) *Placer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Placer{candidates: cands, mappings: mappings, dialer: dialer, logger: log}
}

// Place dials the candidate, records the execution mapping and marks the
// candidate as calling. A failed mapping write is logged; the webhook phone
// fallback still links the call later.
func (p *Placer) Place(ctx context.Context, req Request) (*Placement, error) {
	if req.CandidateID <= 0 {
		return nil, &candidates.ValidationError{Field: "candidate_id", Message: "Missing required field: candidate_id"}
	}

	c, err := p.candidates.Get(req.CandidateID)
	if err != nil {
		return nil, err
	}
	callReq := CallRequest{
		Phone:         firstNonEmpty(req.Phone, c.Phone),
		Name:          firstNonEmpty(req.Name, c.Name),
		Position:      c.Position,
		InterviewDate: firstNonEmpty(req.InterviewDate, c.ScheduledInterview.Date),
		InterviewTime: firstNonEmpty(req.InterviewTime, c.ScheduledInterview.Time),
	}
	for _, f := range []struct{ name, value string }{
		{"phone", callReq.Phone},
		{"interview_date", callReq.InterviewDate},
		{"interview_time", callReq.InterviewTime},
	} {
		if f.value == "" {
			return nil, &candidates.ValidationError{Field: f.name, Message: "Missing required field: " + f.name}
		}
	}

	log := logger.WithFields(p.logger, zap.Int(logger.FieldCandidateID, c.ID))

	alternatives, err := p.candidates.AlternativeSlots(c.ID)
	if err != nil {
		return nil, fmt.Errorf("computing alternative slots: %w", err)
	}
	callReq.AlternativeSlots = alternatives

	executionID, err := p.dialer.PlaceCall(ctx, callReq)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String(logger.FieldExecutionID, executionID))

	if err := p.mappings.Put(executionID, c.ID, callReq.Phone); err != nil {
		log.Error("failed to store execution mapping", zap.Error(err))
	}
	if err := p.candidates.ApplyOutcome(c.ID, candidates.StatusCalling, nil); err != nil {
		log.Error("failed to mark candidate as calling", zap.Error(err))
	}

	log.Info("call started", zap.Int("alternative_slots", len(alternatives)))
	return &Placement{ExecutionID: executionID, CandidateID: c.ID, AlternativeSlots: alternatives}, nil
}

// Checker pulls execution details from the provider and feeds them through the
// webhook pipeline, for calls whose webhook never arrived.
type Checker struct {
	fetcher ExecutionFetcher
	handler Handler
	logger  *zap.Logger
}

func NewChecker(fetcher ExecutionFetcher, handler Handler, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{fetcher: fetcher, handler: handler, logger: log}
}

func (c *Checker) Check(ctx context.Context, executionID string) (*webhook.Result, error) {
	executionID = strings.TrimSpace(executionID)
	details, err := c.fetcher.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	p := webhook.Payload(details)
	if p.ExecutionID() == "" {
		p["id"] = executionID
	}

	res, err := c.handler.Handle(ctx, p)
	if err != nil {
		return res, err
	}
	c.logger.Info("execution checked",
		logger.ExecutionFields(executionID, res.CandidateID, res.CallStatus)...,
	)
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
