// Package candidates owns every mutation of candidates.json.
package candidates

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/spigell/interview-caller/internal/jsonfile"
	"github.com/spigell/interview-caller/internal/logger"
	"go.uber.org/zap"
)

const (
	// FileName is the document name inside the data directory.
	FileName = "candidates.json"

	applicationDateLayout = "2006-01-02"
	fallbackSlotCount     = 3
	minPhoneSuffixDigits  = 10
)

var today = func() string { return time.Now().Format(applicationDateLayout) }

// Store reads and mutates the candidates document. Every call re-reads the file;
// mutations run under the document lock.
type Store struct {
	doc    *jsonfile.Document[Document]
	logger *zap.Logger
}

func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		doc:    jsonfile.New[Document](path),
		logger: log,
	}
}

// Snapshot returns the whole document as currently stored.
func (s *Store) Snapshot() (Document, error) {
	doc, err := s.doc.Load()
	if err != nil {
		return Document{}, fmt.Errorf("loading candidates: %w", err)
	}
	doc.normalize()
	return doc, nil
}

func (s *Store) List() ([]Candidate, error) {
	doc, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return doc.Candidates, nil
}

func (s *Store) Get(id int) (*Candidate, error) {
	doc, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	c := doc.find(id)
	if c == nil {
		return nil, fmt.Errorf("candidate %d: %w", id, ErrNotFound)
	}
	found := *c
	return &found, nil
}

// FindByPhone matches on digits only, so "+1 (555) 010-0000" equals "15550100000".
// A number with a country code also matches the same number stored without one
// as long as at least ten trailing digits agree.
func (s *Store) FindByPhone(phone string) (*Candidate, error) {
	want := digits(phone)
	if want == "" {
		return nil, ErrNotFound
	}

	doc, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	for _, c := range doc.Candidates {
		if phonesMatch(want, digits(c.Phone)) {
			found := c
			return &found, nil
		}
	}

	return nil, fmt.Errorf("candidate with phone %s: %w", phone, ErrNotFound)
}

// Add stores a new pending candidate and returns its id (max existing id + 1).
func (s *Store) Add(d Draft) (int, error) {
	if err := d.validate(); err != nil {
		return 0, err
	}

	var id int
	err := s.update(func(doc *Document) error {
		if invalid := doc.invalidSlots(d.ReschedulingSlots); len(invalid) > 0 {
			return &ValidationError{Field: "reschedulingSlots", InvalidSlots: invalid}
		}

		for _, c := range doc.Candidates {
			if c.ID > id {
				id = c.ID
			}
		}
		id++

		applicationDate := strings.TrimSpace(d.ApplicationDate)
		if applicationDate == "" {
			applicationDate = today()
		}

		slots := d.ReschedulingSlots
		if slots == nil {
			slots = []int{}
		}

		doc.Candidates = append(doc.Candidates, Candidate{
			ID:                 id,
			Name:               strings.TrimSpace(d.Name),
			Phone:              strings.TrimSpace(d.Phone),
			Email:              strings.TrimSpace(d.Email),
			Position:           strings.TrimSpace(d.Position),
			Status:             StatusPending,
			ScheduledInterview: completeInterview(*d.ScheduledInterview),
			ReschedulingSlots:  slots,
			ApplicationDate:    applicationDate,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("candidate added", zap.Int(logger.FieldCandidateID, id), zap.String("name", d.Name))
	return id, nil
}

func (s *Store) Delete(id int) error {
	err := s.update(func(doc *Document) error {
		kept := doc.Candidates[:0]
		found := false
		for _, c := range doc.Candidates {
			if c.ID == id {
				found = true
				continue
			}
			kept = append(kept, c)
		}
		if !found {
			return fmt.Errorf("candidate %d: %w", id, ErrNotFound)
		}
		doc.Candidates = kept
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("candidate deleted", zap.Int(logger.FieldCandidateID, id))
	return nil
}

// SetReschedulingSlots replaces the slot ids a candidate may be offered.
// Every id must exist in availableSlots.
func (s *Store) SetReschedulingSlots(id int, slotIDs []int) error {
	if slotIDs == nil {
		slotIDs = []int{}
	}

	return s.update(func(doc *Document) error {
		c := doc.find(id)
		if c == nil {
			return fmt.Errorf("candidate %d: %w", id, ErrNotFound)
		}
		if invalid := doc.invalidSlots(slotIDs); len(invalid) > 0 {
			return &ValidationError{Field: "reschedulingSlots", InvalidSlots: invalid}
		}
		c.ReschedulingSlots = slotIDs
		return nil
	})
}

// ApplyOutcome always overwrites the status. For rescheduled outcomes with a new
// interview the current interview is remembered in originalInterview unless one
// is already stored, then replaced; empty fields of updated keep their current value.
func (s *Store) ApplyOutcome(id int, status Status, updated *Interview) error {
	var previous Status
	err := s.update(func(doc *Document) error {
		c := doc.find(id)
		if c == nil {
			return fmt.Errorf("candidate %d: %w", id, ErrNotFound)
		}

		previous = c.Status
		c.Status = status

		if status == StatusRescheduled && updated != nil {
			if c.OriginalInterview == nil {
				original := c.ScheduledInterview
				c.OriginalInterview = &original
			}
			c.ScheduledInterview = mergeInterview(c.ScheduledInterview, updated)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int(logger.FieldCandidateID, id),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	}
	if status == StatusRescheduled && updated != nil {
		fields = append(fields, zap.String("interview", updated.Datetime))
	}
	s.logger.Info("candidate status updated", fields...)
	return nil
}

// ResetToPending sets the status to pending. With restore the original
// interview, if any, becomes the scheduled one again and is cleared.
func (s *Store) ResetToPending(id int, restore bool) error {
	err := s.update(func(doc *Document) error {
		c := doc.find(id)
		if c == nil {
			return fmt.Errorf("candidate %d: %w", id, ErrNotFound)
		}
		resetCandidate(c, restore)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("candidate reset to pending", zap.Int(logger.FieldCandidateID, id), zap.Bool("restore", restore))
	return nil
}

// ResetAllToPending resets, with restore, every candidate not already pending
// and returns how many were touched.
func (s *Store) ResetAllToPending() (int, error) {
	count := 0
	err := s.update(func(doc *Document) error {
		for i := range doc.Candidates {
			c := &doc.Candidates[i]
			if c.Status == StatusPending {
				continue
			}
			resetCandidate(c, true)
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("candidates reset to pending", zap.Int("count", count))
	return count, nil
}

// AlternativeSlots lists the datetimes a candidate may be offered instead of the
// scheduled one: its own rescheduling slots when set, otherwise the first three
// other global slots.
func (s *Store) AlternativeSlots(id int) ([]string, error) {
	doc, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	c := doc.find(id)
	if c == nil {
		return nil, fmt.Errorf("candidate %d: %w", id, ErrNotFound)
	}
	current := c.ScheduledInterview.Datetime

	alternatives := []string{}
	if len(c.ReschedulingSlots) > 0 {
		byID := make(map[int]string, len(doc.AvailableSlots))
		for _, s := range doc.AvailableSlots {
			byID[s.ID] = s.Datetime
		}
		for _, slotID := range c.ReschedulingSlots {
			dt, ok := byID[slotID]
			if !ok || dt == current {
				continue
			}
			alternatives = append(alternatives, dt)
		}
		return alternatives, nil
	}

	for _, s := range doc.AvailableSlots {
		if s.Datetime == current {
			continue
		}
		alternatives = append(alternatives, s.Datetime)
		if len(alternatives) == fallbackSlotCount {
			break
		}
	}
	return alternatives, nil
}

func (s *Store) update(fn func(*Document) error) error {
	err := s.doc.Update(func(doc *Document) error {
		doc.normalize()
		return fn(doc)
	})
	if jsonfile.IsStorage(err) {
		return fmt.Errorf("updating candidates: %w", err)
	}
	return err
}

func resetCandidate(c *Candidate, restore bool) {
	c.Status = StatusPending
	if restore && c.OriginalInterview != nil {
		c.ScheduledInterview = *c.OriginalInterview
		c.OriginalInterview = nil
	}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func phonesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) >= minPhoneSuffixDigits && strings.HasSuffix(long, short)
}
