package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spigell/interview-caller/internal/jsonfile"
)

const (
	ArchiveFileName = "webhook_data.json"

	indexKey         = "all_webhooks"
	receivedAtLayout = "2006-01-02 15:04:05"
	unknownStatus    = "unknown"
)

var now = time.Now

// Entry is the archived copy of the latest delivery for one execution, with
// the fields people look for most lifted out of the payload.
type Entry struct {
	ExecutionID string  `json:"execution_id"`
	CandidateID *int    `json:"candidate_id"`
	Timestamp   string  `json:"timestamp"`
	ReceivedAt  string  `json:"received_at"`
	Payload     Payload `json:"payload"`

	Status               string `json:"status"`
	Transcript           string `json:"transcript"`
	Summary              string `json:"summary"`
	ExtractedData        any    `json:"extracted_data"`
	RecipientPhoneNumber string `json:"recipient_phone_number,omitempty"`
	AgentPhoneNumber     string `json:"agent_phone_number,omitempty"`
	TelephonyData        any    `json:"telephony_data,omitempty"`
	RecordingURL         string `json:"recording_url,omitempty"`
	ConversationDuration any    `json:"conversation_duration,omitempty"`
	TotalCost            any    `json:"total_cost,omitempty"`
	CostBreakdown        any    `json:"cost_breakdown,omitempty"`
	AgentID              string `json:"agent_id,omitempty"`
	BatchID              string `json:"batch_id,omitempty"`
	ErrorMessage         string `json:"error_message,omitempty"`
	Provider             string `json:"provider,omitempty"`
}

// IndexEntry points at an archived execution from the chronological index.
type IndexEntry struct {
	ExecutionID string `json:"execution_id"`
	CandidateID *int   `json:"candidate_id"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
}

// Archive is webhook_data.json: entries keyed by execution id next to the
// all_webhooks index, most recent first.
type Archive struct {
	Entries map[string]*Entry
	Index   []IndexEntry
}

func (a Archive) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Entries)+1)
	for id, e := range a.Entries {
		out[id] = e
	}
	index := a.Index
	if index == nil {
		index = []IndexEntry{}
	}
	out[indexKey] = index
	return json.Marshal(out)
}

func (a *Archive) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Entries = make(map[string]*Entry, len(raw))
	a.Index = nil
	for key, value := range raw {
		if key == indexKey {
			if err := decodeNumbers(value, &a.Index); err != nil {
				return fmt.Errorf("%s: %w", indexKey, err)
			}
			continue
		}
		var e Entry
		if err := decodeNumbers(value, &e); err != nil {
			return fmt.Errorf("entry %s: %w", key, err)
		}
		a.Entries[key] = &e
	}
	return nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// ArchiveStore persists every identified delivery, one entry per execution.
type ArchiveStore struct {
	doc *jsonfile.Document[Archive]
}

func NewArchiveStore(path string) *ArchiveStore {
	return &ArchiveStore{doc: jsonfile.New[Archive](path)}
}

// Save upserts the entry for executionID and moves it to the top of the index.
// A nil candidateID means the delivery could not be matched to a candidate.
func (s *ArchiveStore) Save(executionID string, candidateID *int, p Payload) (*Entry, error) {
	if executionID == "" || executionID == indexKey {
		return nil, fmt.Errorf("cannot archive webhook under execution id %q", executionID)
	}
	entry := newEntry(executionID, candidateID, p)

	err := s.doc.Update(func(a *Archive) error {
		if a.Entries == nil {
			a.Entries = make(map[string]*Entry)
		}
		a.Entries[executionID] = entry

		index := make([]IndexEntry, 0, len(a.Index)+1)
		index = append(index, IndexEntry{
			ExecutionID: executionID,
			CandidateID: candidateID,
			Timestamp:   entry.Timestamp,
			Status:      entry.Status,
		})
		for _, ie := range a.Index {
			if ie.ExecutionID == executionID {
				continue
			}
			index = append(index, ie)
		}
		a.Index = index
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archiving webhook: %w", err)
	}

	return entry, nil
}

// Get returns nil without error for an unknown execution.
func (s *ArchiveStore) Get(executionID string) (*Entry, error) {
	a, err := s.doc.Load()
	if err != nil {
		return nil, fmt.Errorf("loading webhook archive: %w", err)
	}
	return a.Entries[executionID], nil
}

// Index returns the chronological index, most recent first.
func (s *ArchiveStore) Index() ([]IndexEntry, error) {
	a, err := s.doc.Load()
	if err != nil {
		return nil, fmt.Errorf("loading webhook archive: %w", err)
	}
	if a.Index == nil {
		return []IndexEntry{}, nil
	}
	return a.Index, nil
}

// List returns archived entries in index order. Entries missing from the index
// follow, sorted by execution id.
func (s *ArchiveStore) List() ([]*Entry, error) {
	a, err := s.doc.Load()
	if err != nil {
		return nil, fmt.Errorf("loading webhook archive: %w", err)
	}

	seen := make(map[string]bool, len(a.Index))
	entries := make([]*Entry, 0, len(a.Entries))
	for _, ie := range a.Index {
		if e, ok := a.Entries[ie.ExecutionID]; ok && !seen[ie.ExecutionID] {
			entries = append(entries, e)
			seen[ie.ExecutionID] = true
		}
	}

	var rest []string
	for id := range a.Entries {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		entries = append(entries, a.Entries[id])
	}

	return entries, nil
}

func newEntry(executionID string, candidateID *int, p Payload) *Entry {
	t := now()

	status := stringOf(p.lookup("status"))
	if status == "" {
		status = unknownStatus
	}

	telephony := p.telephony()

	recording := stringOf(telephony["recording_url"])
	if recording == "" {
		recording = stringOf(p.lookup("recording_url"))
	}

	duration := p.lookup("conversation_duration")
	if duration == nil && telephony != nil && !isBlank(telephony["duration"]) {
		duration = telephony["duration"]
	}

	provider := stringOf(p.lookup("provider"))
	if provider == "" {
		provider = stringOf(telephony["provider"])
	}

	var telephonyData any
	if telephony != nil {
		telephonyData = telephony
	}

	return &Entry{
		ExecutionID: executionID,
		CandidateID: candidateID,
		Timestamp:   t.Format(time.RFC3339Nano),
		ReceivedAt:  t.Format(receivedAtLayout),
		Payload:     p,

		Status:               status,
		Transcript:           p.Transcript(),
		Summary:              stringOf(p.lookup("summary")),
		ExtractedData:        p.ExtractedData(),
		RecipientPhoneNumber: p.RecipientPhone(),
		AgentPhoneNumber:     p.AgentPhone(),
		TelephonyData:        telephonyData,
		RecordingURL:         recording,
		ConversationDuration: duration,
		TotalCost:            p.lookup("total_cost"),
		CostBreakdown:        p.lookup("cost_breakdown"),
		AgentID:              stringOf(p.lookup("agent_id")),
		BatchID:              stringOf(p.lookup("batch_id")),
		ErrorMessage:         stringOf(p.lookup("error_message")),
		Provider:             provider,
	}
}
