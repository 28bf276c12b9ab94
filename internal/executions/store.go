// Package executions maps provider execution ids to the candidates they dialed.
package executions

import (
	"fmt"
	"strings"
	"time"

	"github.com/spigell/interview-caller/internal/jsonfile"
	"github.com/spigell/interview-caller/internal/logger"
	"go.uber.org/zap"
)

const (
	FileName = "execution_mapping.json"

	createdAtLayout = "2006-01-02 15:04:05"
)

var now = time.Now

type Mapping struct {
	CandidateID int    `json:"candidate_id"`
	Phone       string `json:"phone"`
	CreatedAt   string `json:"created_at"`
}

// Store keeps execution_mapping.json. Entries are only ever added.
type Store struct {
	doc    *jsonfile.Document[map[string]Mapping]
	logger *zap.Logger
}

func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		doc:    jsonfile.New[map[string]Mapping](path),
		logger: log,
	}
}

// Put records that executionID dialed candidateID at phone. An existing entry
// for the same execution is replaced.
func (s *Store) Put(executionID string, candidateID int, phone string) error {
	executionID = strings.TrimSpace(executionID)
	if executionID == "" {
		return fmt.Errorf("execution id is required")
	}

	err := s.doc.Update(func(m *map[string]Mapping) error {
		if *m == nil {
			*m = make(map[string]Mapping)
		}
		(*m)[executionID] = Mapping{
			CandidateID: candidateID,
			Phone:       phone,
			CreatedAt:   now().Format(createdAtLayout),
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving execution mapping: %w", err)
	}

	s.logger.Debug("execution mapped", logger.ExecutionFields(executionID, candidateID, "")...)
	return nil
}

// Get returns nil without error when executionID is unknown.
func (s *Store) Get(executionID string) (*Mapping, error) {
	m, err := s.doc.Load()
	if err != nil {
		return nil, fmt.Errorf("loading execution mapping: %w", err)
	}

	mapping, ok := m[strings.TrimSpace(executionID)]
	if !ok {
		return nil, nil
	}
	return &mapping, nil
}

func (s *Store) Count() (int, error) {
	m, err := s.doc.Load()
	if err != nil {
		return 0, fmt.Errorf("loading execution mapping: %w", err)
	}
	return len(m), nil
}
