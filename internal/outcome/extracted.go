package outcome

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/interview-caller/internal/slot"
)

// ExtractedData is the structured extraction the voice agent fills in during a
// call. The call_outcome family is the current schema; status, user_interested,
// callback_user and the *_slot keys come from older agent versions.
type ExtractedData struct {
	CallOutcome  string           `mapstructure:"call_outcome"`
	OriginalSlot *slot.Structured `mapstructure:"original_slot"`
	FinalSlot    *slot.Structured `mapstructure:"final_slot"`
	Notes        string           `mapstructure:"notes"`

	Status           string `mapstructure:"status"`
	UserInterested   *bool  `mapstructure:"user_interested"`
	CallbackUser     *bool  `mapstructure:"callback_user"`
	NewSlot          any    `mapstructure:"new_slot"`
	RescheduledSlot  any    `mapstructure:"rescheduled_slot"`
	NewInterviewSlot any    `mapstructure:"new_interview_slot"`
	PreferredSlot    any    `mapstructure:"preferred_slot"`
}

// decodeExtracted accepts a JSON object or a string holding one. Fields that do
// not decode are left empty; the error reports them.
func decodeExtracted(raw any) (*ExtractedData, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, err
		}
		raw = m
	}

	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, nil
	}

	var data ExtractedData
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &data,
	})
	if err != nil {
		return nil, err
	}

	return &data, dec.Decode(m)
}

// legacySlot returns the first populated replacement slot among the legacy keys.
func (d *ExtractedData) legacySlot() *slot.Display {
	for _, v := range []any{d.NewSlot, d.RescheduledSlot, d.NewInterviewSlot, d.PreferredSlot} {
		if isEmpty(v) {
			continue
		}
		return slotFromAny(v)
	}
	return nil
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// slotFromAny reads free text, a display-shaped object or a structured object.
func slotFromAny(v any) *slot.Display {
	switch val := v.(type) {
	case string:
		return slot.ParseText(val)
	case map[string]any:
		if _, ok := val["datetime"]; ok {
			var d slot.Display
			if err := mapstructure.WeakDecode(val, &d); err == nil && strings.TrimSpace(d.Datetime) != "" {
				return &d
			}
		}
		var s slot.Structured
		if err := mapstructure.WeakDecode(val, &s); err != nil {
			return nil
		}
		return slot.ToDisplay(&s)
	default:
		return nil
	}
}
