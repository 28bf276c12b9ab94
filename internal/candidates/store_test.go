package candidates

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spigell/interview-caller/internal/jsonfile"
	"go.uber.org/zap"
)

func thursday() Interview {
	return Interview{
		Day:      "Thursday",
		Date:     "Thursday, the 12th of December",
		Time:     "10:00 A.M.",
		Datetime: "Thursday, the 12th of December at 10:00 A.M.",
	}
}

func sunday() *Interview {
	return &Interview{
		Day:      "Sunday",
		Date:     "Sunday, the 15th of December",
		Time:     "2:00 P.M.",
		Datetime: "Sunday, the 15th of December at 2:00 P.M.",
	}
}

func monday() *Interview {
	return &Interview{
		Day:      "Monday",
		Date:     "Monday, the 16th of December",
		Time:     "11:00 A.M.",
		Datetime: "Monday, the 16th of December at 11:00 A.M.",
	}
}

func writeDocument(t *testing.T, doc Document) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), FileName)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func newFixtureStore(t *testing.T) *Store {
	t.Helper()

	doc := Document{
		Candidates: []Candidate{
			{ID: 1, Name: "Ada", Phone: "+1 (555) 010-0001", Email: "ada@example.com", Position: "Engineer", Status: StatusCalling, ScheduledInterview: thursday()},
			{ID: 3, Name: "Grace", Phone: "5550100003", Email: "grace@example.com", Position: "Engineer", Status: StatusPending, ScheduledInterview: thursday(), ReschedulingSlots: []int{2}},
		},
		AvailableSlots: []AvailableSlot{
			{ID: 1, Datetime: thursday().Datetime},
			{ID: 2, Datetime: sunday().Datetime},
			{ID: 3, Datetime: monday().Datetime},
			{ID: 4, Datetime: "Tuesday, the 17th of December at 9:00 A.M."},
			{ID: 5, Datetime: "Wednesday, the 18th of December at 9:00 A.M."},
		},
	}

	return NewStore(writeDocument(t, doc), zap.NewNop())
}

func mustGet(t *testing.T, s *Store, id int) *Candidate {
	t.Helper()
	c, err := s.Get(id)
	if err != nil {
		t.Fatalf("get %d: %v", id, err)
	}
	return c
}

func TestGetNotFound(t *testing.T) {
	s := newFixtureStore(t)

	_, err := s.Get(42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorageErrorIsDistinctFromNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStore(path, nil)

	_, err := s.Get(1)
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("storage failure reported as not found: %v", err)
	}
	if !jsonfile.IsStorage(err) {
		t.Fatalf("expected storage error, got %T: %v", err, err)
	}

	if err := s.ApplyOutcome(1, StatusConfirmed, nil); !jsonfile.IsStorage(err) {
		t.Fatalf("expected storage error from mutation, got %v", err)
	}
}

func TestAdd(t *testing.T) {
	original := today
	today = func() string { return "2024-12-01" }
	t.Cleanup(func() { today = original })

	s := newFixtureStore(t)

	id, err := s.Add(Draft{
		Name:               "Linus",
		Phone:              "5550100009",
		Email:              "linus@example.com",
		Position:           "Kernel",
		ScheduledInterview: &Interview{Day: "Monday", Date: "Monday, the 16th of December", Time: "11:00 A.M."},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != 4 {
		t.Fatalf("expected id max+1 = 4, got %d", id)
	}

	c := mustGet(t, s, id)
	if c.Status != StatusPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}
	if c.ApplicationDate != "2024-12-01" {
		t.Fatalf("expected default application date, got %q", c.ApplicationDate)
	}
	if c.ScheduledInterview.Datetime != "Monday, the 16th of December at 11:00 A.M." {
		t.Fatalf("expected datetime to be completed, got %q", c.ScheduledInterview.Datetime)
	}
	if c.ReschedulingSlots == nil || len(c.ReschedulingSlots) != 0 {
		t.Fatalf("expected empty rescheduling slots, got %#v", c.ReschedulingSlots)
	}
}

func TestAddDerivesInterviewDay(t *testing.T) {
	s := newFixtureStore(t)

	cases := []struct {
		name      string
		interview Interview
		day       string
	}{
		{"from date", Interview{Date: "Tuesday, the 17th of December", Time: "9:00 A.M."}, "Tuesday"},
		{"explicit day wins", Interview{Day: "Wednesday", Date: "Tuesday, the 17th of December", Time: "9:00 A.M."}, "Wednesday"},
		{"date without comma", Interview{Date: "tomorrow", Time: "9:00 A.M."}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			iv := tc.interview
			id, err := s.Add(Draft{
				Name:               "Grace",
				Phone:              "5550100010",
				Email:              "grace@example.com",
				Position:           "Compilers",
				ScheduledInterview: &iv,
			})
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			if got := mustGet(t, s, id).ScheduledInterview.Day; got != tc.day {
				t.Fatalf("expected day %q, got %q", tc.day, got)
			}
		})
	}
}

func TestAddValidation(t *testing.T) {
	s := newFixtureStore(t)

	valid := Draft{
		Name:               "Linus",
		Phone:              "5550100009",
		Email:              "linus@example.com",
		Position:           "Kernel",
		ScheduledInterview: &Interview{Datetime: "Monday, the 16th of December at 11:00 A.M."},
	}

	cases := []struct {
		name   string
		mutate func(d *Draft)
		field  string
	}{
		{name: "name", mutate: func(d *Draft) { d.Name = " " }, field: "name"},
		{name: "phone", mutate: func(d *Draft) { d.Phone = "" }, field: "phone"},
		{name: "email", mutate: func(d *Draft) { d.Email = "" }, field: "email"},
		{name: "position", mutate: func(d *Draft) { d.Position = "" }, field: "position"},
		{name: "interview", mutate: func(d *Draft) { d.ScheduledInterview = nil }, field: "scheduledInterview"},
		{name: "slots", mutate: func(d *Draft) { d.ReschedulingSlots = []int{2, 99} }, field: "reschedulingSlots"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)

			_, err := s.Add(d)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, ve.Field)
			}
		})
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("invalid drafts must not be stored, got %d candidates", len(list))
	}
}

func TestDelete(t *testing.T) {
	s := newFixtureStore(t)

	if err := s.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted candidate to be gone, got %v", err)
	}
	if err := s.Delete(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	mustGet(t, s, 3)
}

func TestSetReschedulingSlots(t *testing.T) {
	s := newFixtureStore(t)

	if err := s.SetReschedulingSlots(1, []int{3, 4}); err != nil {
		t.Fatalf("set slots: %v", err)
	}
	if got := mustGet(t, s, 1).ReschedulingSlots; len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected slots %v", got)
	}

	err := s.SetReschedulingSlots(1, []int{4, 7, 8})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ve.InvalidSlots) != 2 || ve.InvalidSlots[0] != 7 || ve.InvalidSlots[1] != 8 {
		t.Fatalf("expected offending ids [7 8], got %v", ve.InvalidSlots)
	}
	if got := mustGet(t, s, 1).ReschedulingSlots; len(got) != 2 || got[0] != 3 {
		t.Fatalf("rejected update must not be stored, got %v", got)
	}

	if err := s.SetReschedulingSlots(42, []int{1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyOutcomeNonRescheduleLeavesInterview(t *testing.T) {
	s := newFixtureStore(t)

	if err := s.ApplyOutcome(1, StatusConfirmed, sunday()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	c := mustGet(t, s, 1)
	if c.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", c.Status)
	}
	if c.ScheduledInterview != thursday() || c.OriginalInterview != nil {
		t.Fatalf("confirmed outcome must not touch interview: %+v", c)
	}

	if err := s.ApplyOutcome(42, StatusConfirmed, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPreserveOnce(t *testing.T) {
	s := newFixtureStore(t)

	if err := s.ApplyOutcome(1, StatusRescheduled, sunday()); err != nil {
		t.Fatalf("first reschedule: %v", err)
	}
	if err := s.ApplyOutcome(1, StatusRescheduled, monday()); err != nil {
		t.Fatalf("second reschedule: %v", err)
	}

	c := mustGet(t, s, 1)
	if c.OriginalInterview == nil || *c.OriginalInterview != thursday() {
		t.Fatalf("expected original to stay the first interview, got %+v", c.OriginalInterview)
	}
	if c.ScheduledInterview != *monday() {
		t.Fatalf("expected latest interview scheduled, got %+v", c.ScheduledInterview)
	}
}

func TestApplyOutcomePartialInterviewKeepsCurrentFields(t *testing.T) {
	s := newFixtureStore(t)

	if err := s.ApplyOutcome(1, StatusRescheduled, &Interview{Time: "3:00 P.M."}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	c := mustGet(t, s, 1)
	if c.ScheduledInterview.Day != "Thursday" || c.ScheduledInterview.Time != "3:00 P.M." {
		t.Fatalf("unexpected merge result %+v", c.ScheduledInterview)
	}
	if c.ScheduledInterview.Datetime != "Thursday, the 12th of December at 3:00 P.M." {
		t.Fatalf("expected datetime rebuilt from merged fields, got %q", c.ScheduledInterview.Datetime)
	}
}

func TestResetToPending(t *testing.T) {
	s := newFixtureStore(t)

	if err := s.ApplyOutcome(1, StatusRescheduled, sunday()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := s.ResetToPending(1, false); err != nil {
		t.Fatalf("status-only reset: %v", err)
	}
	c := mustGet(t, s, 1)
	if c.Status != StatusPending || c.ScheduledInterview != *sunday() || c.OriginalInterview == nil {
		t.Fatalf("status-only reset must keep interviews: %+v", c)
	}

	if err := s.ResetToPending(1, true); err != nil {
		t.Fatalf("restore reset: %v", err)
	}
	c = mustGet(t, s, 1)
	if c.ScheduledInterview != thursday() || c.OriginalInterview != nil {
		t.Fatalf("expected original restored and cleared: %+v", c)
	}

	if err := s.ResetToPending(42, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetAllToPending(t *testing.T) {
	s := newFixtureStore(t)

	if err := s.ApplyOutcome(1, StatusRescheduled, sunday()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	count, err := s.ResetAllToPending()
	if err != nil {
		t.Fatalf("reset all: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 candidate touched, got %d", count)
	}

	c := mustGet(t, s, 1)
	if c.Status != StatusPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}
	if c.ScheduledInterview != thursday() {
		t.Fatalf("expected original interview restored, got %+v", c.ScheduledInterview)
	}
	if c.OriginalInterview != nil {
		t.Fatalf("expected original interview removed")
	}

	count, err = s.ResetAllToPending()
	if err != nil || count != 0 {
		t.Fatalf("second reset should touch nothing, got %d, %v", count, err)
	}
}

func TestFindByPhone(t *testing.T) {
	s := newFixtureStore(t)

	cases := map[string]int{
		"+15550100001":   1,
		"555-010-0001":   1,
		"+91 5550100003": 3,
	}
	for phone, want := range cases {
		c, err := s.FindByPhone(phone)
		if err != nil {
			t.Fatalf("FindByPhone(%q): %v", phone, err)
		}
		if c.ID != want {
			t.Fatalf("FindByPhone(%q) = %d, want %d", phone, c.ID, want)
		}
	}

	for _, phone := range []string{"", "0001", "+15550100002"} {
		if _, err := s.FindByPhone(phone); !errors.Is(err, ErrNotFound) {
			t.Fatalf("FindByPhone(%q): expected ErrNotFound, got %v", phone, err)
		}
	}
}

func TestAlternativeSlots(t *testing.T) {
	s := newFixtureStore(t)

	// candidate-specific slots
	got, err := s.AlternativeSlots(3)
	if err != nil {
		t.Fatalf("alternative slots: %v", err)
	}
	if len(got) != 1 || got[0] != sunday().Datetime {
		t.Fatalf("unexpected candidate slots %v", got)
	}

	// fallback: first three global slots other than the current one
	got, err = s.AlternativeSlots(1)
	if err != nil {
		t.Fatalf("alternative slots: %v", err)
	}
	want := []string{sunday().Datetime, monday().Datetime, "Tuesday, the 17th of December at 9:00 A.M."}
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: got %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := s.AlternativeSlots(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	s := newFixtureStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := 1
			if i%2 == 0 {
				id = 3
			}
			if err := s.SetReschedulingSlots(id, []int{1 + i%5}); err != nil {
				t.Errorf("set slots: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Add(Draft{
				Name: "N", Phone: "1", Email: "e", Position: "p",
				ScheduledInterview: &Interview{Datetime: "x"},
			}); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	list, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 12 {
		t.Fatalf("expected 12 candidates after concurrent adds, got %d", len(list))
	}
	seen := map[int]bool{}
	for _, c := range list {
		if seen[c.ID] {
			t.Fatalf("duplicate id %d", c.ID)
		}
		seen[c.ID] = true
	}
}
