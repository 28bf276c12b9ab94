package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Payload is one inbound provider delivery. Numbers are kept as json.Number so
// the archived copy matches what the provider sent.
type Payload map[string]any

// Decode reads a JSON object.
func Decode(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding webhook payload: %w", err)
	}
	if p == nil {
		return nil, errors.New("webhook payload must be a JSON object")
	}
	return p, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(data []byte) (Payload, error) {
	return Decode(bytes.NewReader(data))
}

// Extractor reads one value out of a payload. ok is false when the value is
// absent or empty.
type Extractor func(Payload) (value any, ok bool)

// Field follows path through nested objects.
func Field(path ...string) Extractor {
	return func(p Payload) (any, bool) {
		var current any = map[string]any(p)
		for _, key := range path {
			m, ok := asMap(current)
			if !ok {
				return nil, false
			}
			current, ok = m[key]
			if !ok {
				return nil, false
			}
		}
		if isBlank(current) {
			return nil, false
		}
		return current, true
	}
}

// First returns the value of the first extractor that finds one.
func First(p Payload, extractors ...Extractor) (any, bool) {
	for _, extract := range extractors {
		if v, ok := extract(p); ok {
			return v, true
		}
	}
	return nil, false
}

// Alias lists, in lookup order. The provider has sent both a flat shape (id,
// user_number) and one nesting everything under data.
var (
	ExecutionIDFields = []Extractor{
		Field("id"),
		Field("execution_id"),
		Field("executionId"),
		Field("data", "id"),
		Field("data", "execution_id"),
		Field("data", "executionId"),
	}

	StatusFields = []Extractor{
		Field("status"),
		Field("data", "status"),
	}

	TranscriptFields = []Extractor{
		Field("transcript"),
		Field("conversation_transcript"),
		Field("data", "transcript"),
		Field("data", "conversation_transcript"),
	}

	ExtractedDataFields = []Extractor{
		Field("extracted_data"),
		Field("data", "extracted_data"),
	}

	RecipientPhoneFields = []Extractor{
		Field("user_number"),
		Field("recipient_phone_number"),
		Field("phone_number"),
		Field("phone"),
		Field("telephony_data", "to_number"),
		Field("data", "user_number"),
		Field("data", "recipient_phone_number"),
		Field("data", "phone_number"),
		Field("data", "phone"),
		Field("data", "telephony_data", "to_number"),
	}

	agentPhoneFields = []Extractor{
		Field("agent_number"),
		Field("agent_phone_number"),
		Field("telephony_data", "from_number"),
		Field("data", "agent_number"),
		Field("data", "agent_phone_number"),
		Field("data", "telephony_data", "from_number"),
	}
)

// ExecutionID returns the provider execution id or "".
func (p Payload) ExecutionID() string {
	v, _ := First(p, ExecutionIDFields...)
	return stringOf(v)
}

// Status returns the trimmed, lower-cased call status or "".
func (p Payload) Status() string {
	v, _ := First(p, StatusFields...)
	return strings.ToLower(strings.TrimSpace(stringOf(v)))
}

// Transcript returns the transcript text. Structured transcripts (lists of
// turns) are returned as their JSON encoding.
func (p Payload) Transcript() string {
	v, ok := First(p, TranscriptFields...)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// ExtractedData returns the raw extraction object, or nil.
func (p Payload) ExtractedData() any {
	v, _ := First(p, ExtractedDataFields...)
	return v
}

func (p Payload) RecipientPhone() string {
	v, _ := First(p, RecipientPhoneFields...)
	return stringOf(v)
}

func (p Payload) AgentPhone() string {
	v, _ := First(p, agentPhoneFields...)
	return stringOf(v)
}

// Details is the input of the outcome resolver.
func (p Payload) Details() map[string]any {
	details := map[string]any{}
	if v := p.ExtractedData(); v != nil {
		details["extracted_data"] = v
	}
	if t := p.Transcript(); t != "" {
		details["transcript"] = t
	}
	return details
}

// lookup returns the first non-blank value of key at the root or under data.
func (p Payload) lookup(key string) any {
	v, _ := First(p, Field(key), Field("data", key))
	return v
}

func (p Payload) telephony() map[string]any {
	v, _ := First(p, Field("telephony_data"), Field("data", "telephony_data"))
	m, _ := asMap(v)
	return m
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Payload:
		return m, true
	default:
		return nil, false
	}
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

func stringOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
