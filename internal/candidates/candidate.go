package candidates

import (
	"strings"

	"github.com/spigell/interview-caller/internal/slot"
)

// Status is the lifecycle state of a candidate.
type Status string

const (
	StatusPending     Status = "pending"
	StatusCalling     Status = "calling"
	StatusConfirmed   Status = "confirmed"
	StatusDeclined    Status = "declined"
	StatusRescheduled Status = "rescheduled"
	StatusNoAnswer    Status = "no_answer"
)

var statuses = []Status{
	StatusPending,
	StatusCalling,
	StatusConfirmed,
	StatusDeclined,
	StatusRescheduled,
	StatusNoAnswer,
}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, status := range statuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// Interview is the display form of an interview slot.
type Interview = slot.Display

type Candidate struct {
	ID                 int        `json:"id"`
	Name               string     `json:"name"`
	Phone              string     `json:"phone"`
	Email              string     `json:"email"`
	Position           string     `json:"position"`
	Status             Status     `json:"status"`
	ScheduledInterview Interview  `json:"scheduledInterview"`
	OriginalInterview  *Interview `json:"originalInterview,omitempty"`
	ReschedulingSlots  []int      `json:"reschedulingSlots"`
	ApplicationDate    string     `json:"applicationDate"`
}

type AvailableSlot struct {
	ID       int    `json:"id"`
	Datetime string `json:"datetime"`
}

// Document is the on-disk shape of candidates.json.
type Document struct {
	Candidates     []Candidate     `json:"candidates"`
	AvailableSlots []AvailableSlot `json:"availableSlots"`
}

func (d *Document) find(id int) *Candidate {
	for i := range d.Candidates {
		if d.Candidates[i].ID == id {
			return &d.Candidates[i]
		}
	}
	return nil
}

func (d *Document) normalize() {
	if d.Candidates == nil {
		d.Candidates = []Candidate{}
	}
	if d.AvailableSlots == nil {
		d.AvailableSlots = []AvailableSlot{}
	}
	for i := range d.Candidates {
		if d.Candidates[i].ReschedulingSlots == nil {
			d.Candidates[i].ReschedulingSlots = []int{}
		}
	}
}

func (d *Document) invalidSlots(ids []int) []int {
	known := make(map[int]struct{}, len(d.AvailableSlots))
	for _, s := range d.AvailableSlots {
		known[s.ID] = struct{}{}
	}

	var invalid []int
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	return invalid
}

// Draft is the input of Add.
type Draft struct {
	Name               string     `json:"name"`
	Phone              string     `json:"phone"`
	Email              string     `json:"email"`
	Position           string     `json:"position"`
	ScheduledInterview *Interview `json:"scheduledInterview"`
	ReschedulingSlots  []int      `json:"reschedulingSlots"`
	ApplicationDate    string     `json:"applicationDate"`
}

func (d Draft) validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", d.Name},
		{"phone", d.Phone},
		{"email", d.Email},
		{"position", d.Position},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return missingField(r.field)
		}
	}

	iv := d.ScheduledInterview
	if iv == nil || (strings.TrimSpace(iv.Datetime) == "" && (strings.TrimSpace(iv.Date) == "" || strings.TrimSpace(iv.Time) == "")) {
		return missingField("scheduledInterview")
	}

	return nil
}

// mergeInterview overlays the non-empty fields of update on current.
func mergeInterview(current Interview, update *Interview) Interview {
	merged := current
	if update == nil {
		return merged
	}

	if v := strings.TrimSpace(update.Day); v != "" {
		merged.Day = v
	}
	if v := strings.TrimSpace(update.Date); v != "" {
		merged.Date = v
	}
	if v := strings.TrimSpace(update.Time); v != "" {
		merged.Time = v
	}
	if v := strings.TrimSpace(update.Datetime); v != "" {
		merged.Datetime = v
	} else if merged.Date != "" && merged.Time != "" {
		merged.Datetime = merged.Date + " at " + merged.Time
	}

	return merged
}

// completeInterview fills the derived fields: Day from the text before the
// first comma of Date ("Monday, the 16th of December"), Datetime from Date
// and Time.
func completeInterview(iv Interview) Interview {
	if strings.TrimSpace(iv.Day) == "" {
		if day, _, ok := strings.Cut(iv.Date, ","); ok {
			iv.Day = strings.TrimSpace(day)
		}
	}
	if strings.TrimSpace(iv.Datetime) == "" && iv.Date != "" && iv.Time != "" {
		iv.Datetime = iv.Date + " at " + iv.Time
	}
	return iv
}
