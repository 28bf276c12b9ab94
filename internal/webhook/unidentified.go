package webhook

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/interview-caller/internal/jsonfile"
)

const (
	UnidentifiedFileName = "unidentified_webhooks.json"

	defaultUnidentifiedLimit = 200
)

// UnidentifiedEntry is a delivery without any execution id.
type UnidentifiedEntry struct {
	Reference  string  `json:"reference"`
	ReceivedAt string  `json:"received_at"`
	Payload    Payload `json:"payload"`
}

// UnidentifiedStore keeps the most recent unidentified deliveries, newest first.
type UnidentifiedStore struct {
	doc   *jsonfile.Document[[]UnidentifiedEntry]
	limit int
}

func NewUnidentifiedStore(path string, limit int) *UnidentifiedStore {
	if limit <= 0 {
		limit = defaultUnidentifiedLimit
	}
	return &UnidentifiedStore{
		doc:   jsonfile.New[[]UnidentifiedEntry](path),
		limit: limit,
	}
}

// Save stores p and returns the reference it was stored under.
func (s *UnidentifiedStore) Save(p Payload) (string, error) {
	entry := UnidentifiedEntry{
		Reference:  uuid.NewString(),
		ReceivedAt: now().Format(time.RFC3339Nano),
		Payload:    p,
	}

	err := s.doc.Update(func(entries *[]UnidentifiedEntry) error {
		kept := append([]UnidentifiedEntry{entry}, *entries...)
		if len(kept) > s.limit {
			kept = kept[:s.limit]
		}
		*entries = kept
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("saving unidentified webhook: %w", err)
	}

	return entry.Reference, nil
}

func (s *UnidentifiedStore) List() ([]UnidentifiedEntry, error) {
	entries, err := s.doc.Load()
	if err != nil {
		return nil, fmt.Errorf("loading unidentified webhooks: %w", err)
	}
	if entries == nil {
		return []UnidentifiedEntry{}, nil
	}
	return entries, nil
}
