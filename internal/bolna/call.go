package bolna

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spigell/interview-caller/internal/calls"
	"github.com/spigell/interview-caller/internal/logger"
	"github.com/spigell/interview-caller/internal/slot"
	"go.uber.org/zap"
)

type originalSlot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	DayOfWeek string `json:"day_of_week"`
}

// newOriginalSlot sends the interview in the extraction schema form
// (YYYY-MM-DD, "2:00 PM"). Dates that do not parse are passed through as is.
func newOriginalSlot(date, clock string) originalSlot {
	s := originalSlot{Date: date, Time: clock, DayOfWeek: dayOfWeek(date)}
	if st := slot.ToStructured(&slot.Display{Day: s.DayOfWeek, Date: date, Time: clock}); st != nil {
		s.Date, s.Time = st.Date, st.Time
	}
	return s
}

// userData fills the agent prompt variables.
type userData struct {
	CandidateName     string       `json:"candidate_name"`
	InterviewDate     string       `json:"interview_date"`
	InterviewTime     string       `json:"interview_time"`
	InterviewDatetime string       `json:"interview_datetime"`
	Name              string       `json:"name"`
	Date              string       `json:"date"`
	Time              string       `json:"time"`
	Position          string       `json:"position,omitempty"`
	OriginalSlot      originalSlot `json:"original_slot"`
	AlternativeSlots  []string     `json:"alternative_slots,omitempty"`
}

type callRequest struct {
	AgentID              string   `json:"agent_id"`
	RecipientPhoneNumber string   `json:"recipient_phone_number"`
	FromPhoneNumber      string   `json:"from_phone_number,omitempty"`
	UserData             userData `json:"user_data"`
}

type callResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// PlaceCall asks the agent to dial the candidate and returns the execution id.
func (c *Client) PlaceCall(ctx context.Context, req calls.CallRequest) (string, error) {
	if strings.TrimSpace(c.agentID) == "" {
		return "", errors.New("bolna agent id is not configured")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return "", errors.New("recipient phone number is required")
	}

	datetime := fmt.Sprintf("%s at %s", req.InterviewDate, req.InterviewTime)
	body := callRequest{
		AgentID:              c.agentID,
		RecipientPhoneNumber: req.Phone,
		FromPhoneNumber:      c.callerID,
		UserData: userData{
			CandidateName:     req.Name,
			InterviewDate:     req.InterviewDate,
			InterviewTime:     req.InterviewTime,
			InterviewDatetime: datetime,
			Name:              req.Name,
			Date:              req.InterviewDate,
			Time:              req.InterviewTime,
			Position:          req.Position,
			OriginalSlot:      newOriginalSlot(req.InterviewDate, req.InterviewTime),
			AlternativeSlots: req.AlternativeSlots,
		},
	}

	var resp callResponse
	if err := c.postJSON(ctx, "/call", body, &resp); err != nil {
		return "", fmt.Errorf("placing call: %w", err)
	}

	executionID := strings.TrimSpace(resp.ExecutionID)
	if executionID == "" {
		return "", fmt.Errorf("placing call: response without execution_id (%s)", resp.Message)
	}

	c.logger.Info("call placed",
		zap.String(logger.FieldExecutionID, executionID),
		zap.String("status", resp.Status),
	)
	return executionID, nil
}

// GetExecution fetches one execution. List and {"data": ...} envelopes are
// unwrapped to their first element.
func (c *Client) GetExecution(ctx context.Context, executionID string) (map[string]any, error) {
	executionID = strings.TrimSpace(executionID)
	if executionID == "" {
		return nil, errors.New("execution id is required")
	}

	var raw any
	if err := c.getJSON(ctx, "/execution/"+url.PathEscape(executionID), &raw); err != nil {
		return nil, fmt.Errorf("fetching execution %s: %w", executionID, err)
	}

	details := unwrapExecution(raw)
	if details == nil {
		return nil, fmt.Errorf("fetching execution %s: unexpected response shape", executionID)
	}
	return details, nil
}

func unwrapExecution(raw any) map[string]any {
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return nil
		}
		return unwrapExecution(v[0])
	case map[string]any:
		if data, ok := v["data"]; ok {
			switch inner := data.(type) {
			case []any, map[string]any:
				return unwrapExecution(inner)
			}
		}
		return v
	default:
		return nil
	}
}

// dayOfWeek takes "Thursday, the 12th of December" to "Thursday".
func dayOfWeek(date string) string {
	date = strings.TrimSpace(date)
	if i := strings.Index(date, ","); i >= 0 {
		return strings.TrimSpace(date[:i])
	}
	if fields := strings.Fields(date); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
