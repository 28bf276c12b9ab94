package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/logger"
	"github.com/spigell/interview-caller/internal/outcome"
	"github.com/spigell/interview-caller/internal/slot"
	"github.com/spigell/interview-caller/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Classifier asks Gemini to read a call transcript.
type Classifier struct {
	generator     contentGenerator
	minConfidence float64
	logger        *zap.Logger
	maxLogLen     int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	// declines below this confidence are not trusted.
	declineConfidence = 0.8
)

var outcomes = map[string]candidates.Status{
	"ACCEPTED":     candidates.StatusConfirmed,
	"REJECTED":     candidates.StatusDeclined,
	"RESCHEDULED":  candidates.StatusRescheduled,
	"UNDETERMINED": candidates.StatusPending,
}

func NewClassifier(generator contentGenerator, logger *zap.Logger, minConfidence float64, maxLogLength int) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Classifier{
		generator:     generator,
		minConfidence: minConfidence,
		logger:        logger,
		maxLogLen:     maxLogLength,
	}
}

func (c *Classifier) Name() string {
	return "gemini"
}

func (c *Classifier) Classify(ctx context.Context, transcript string) (outcome.Classification, error) {
	pending := outcome.Classification{Status: candidates.StatusPending}
	if strings.TrimSpace(transcript) == "" {
		return pending, nil
	}

	log := c.logger.With(zap.String(logger.FieldModel, c.generator.Model()))
	prompt := buildPrompt(transcript)

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(transcript, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return pending, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	verdict, err := parseResponse(raw)
	if err != nil {
		return pending, err
	}

	if verdict.Status == candidates.StatusPending {
		return verdict, nil
	}

	threshold := c.minConfidence
	if verdict.Status == candidates.StatusDeclined && threshold < declineConfidence {
		threshold = declineConfidence
	}
	if verdict.Confidence < threshold {
		log.Debug("set outcome to pending by confidence threshold",
			zap.String("outcome", string(verdict.Status)),
			zap.Float64("confidence", verdict.Confidence),
			zap.Float64("threshold", threshold),
		)
		return outcome.Classification{Status: candidates.StatusPending, Confidence: verdict.Confidence, Reason: verdict.Reason}, nil
	}

	return verdict, nil
}

func buildPrompt(transcript string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Transcript:\n{{TRANSCRIPT}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{TRANSCRIPT}}", strings.TrimSpace(transcript))
}

func parseResponse(raw string) (outcome.Classification, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return outcome.Classification{Status: candidates.StatusPending}, fmt.Errorf("parse gemini response: %w", err)
	}

	name := strings.ToUpper(coerceString(data["outcome"]))
	status, ok := outcomes[name]
	if !ok {
		return outcome.Classification{Status: candidates.StatusPending}, fmt.Errorf("parse gemini response: unknown outcome %q", name)
	}

	confidence := coerceFloat(data["confidence"])
	if math.IsNaN(confidence) {
		confidence = 0
	}

	verdict := outcome.Classification{
		Status:     status,
		Confidence: math.Max(0, math.Min(1, confidence)),
		Reason:     coerceString(data["reason"]),
	}

	if status == candidates.StatusRescheduled {
		newSlot, err := finalSlot(data["final_slot"])
		if err != nil {
			return outcome.Classification{Status: candidates.StatusPending}, err
		}
		verdict.Slot = newSlot
	}

	return verdict, nil
}

// finalSlot accepts spoken text, a display slot with datetime, or a
// structured YYYY-MM-DD slot.
func finalSlot(v any) (*slot.Display, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return slot.ParseText(val), nil
	case map[string]any:
		if dt := coerceString(val["datetime"]); dt != "" {
			var d slot.Display
			if err := mapstructure.WeakDecode(val, &d); err != nil {
				return nil, fmt.Errorf("decode final_slot: %w", err)
			}
			return &d, nil
		}
		var s slot.Structured
		if err := mapstructure.WeakDecode(val, &s); err != nil {
			return nil, fmt.Errorf("decode final_slot: %w", err)
		}
		return slot.ToDisplay(&s), nil
	default:
		return nil, errors.New("decode final_slot: unexpected type")
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
