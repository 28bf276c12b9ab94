// Package slot converts interview slots between the structured form produced by
// call extraction ({date: YYYY-MM-DD, time: "H:MM AM", day_of_week}) and the
// display form stored on candidates ("Thursday, the 12th of December at 10:00 A.M.").
//
// Times are wall-clock strings without an offset. No timezone conversion happens here.
package slot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// now is replaced in tests to pin the year used by the reverse conversion.
var now = time.Now

// Structured is the machine form of a slot.
type Structured struct {
	Date      string `json:"date" mapstructure:"date"`
	Time      string `json:"time" mapstructure:"time"`
	DayOfWeek string `json:"day_of_week" mapstructure:"day_of_week"`
}

// Display is the human form stored as a candidate interview.
type Display struct {
	Day      string `json:"day"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Datetime string `json:"datetime"`
}

var (
	clockRe     = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp])\.?\s*[Mm]\.?$`)
	dayMonthRe  = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?\s+of\s+([a-z]+)(?:,?\s+(\d{4}))?`)
	mentionRe   = regexp.MustCompile(`(?i)(monday|tuesday|wednesday|thursday|friday|saturday|sunday)[,\s]+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+of\s+([a-z]+)[,\s]+at\s+(\d{1,2}):(\d{2})\s*(a\.m\.|p\.m\.|am|pm)`)
	monthByName = map[string]time.Month{}
)

func init() {
	for m := time.January; m <= time.December; m++ {
		monthByName[strings.ToLower(m.String())] = m
	}
}

// ToDisplay converts a structured slot. It returns nil when date or time is
// missing or the date is not a valid YYYY-MM-DD value.
func ToDisplay(s *Structured) *Display {
	if s == nil {
		return nil
	}

	dateStr := strings.TrimSpace(s.Date)
	timeStr := strings.TrimSpace(s.Time)
	if dateStr == "" || timeStr == "" {
		return nil
	}

	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil
	}

	day := strings.TrimSpace(s.DayOfWeek)
	if day == "" {
		day = date.Weekday().String()
	}

	return Compose(day, date.Day(), date.Month().String(), timeStr)
}

// ToStructured converts a display slot back. The day of month and month are
// read from Date, falling back to Datetime. The year is taken from the text
// when present and defaults to the current year otherwise.
func ToStructured(d *Display) *Structured {
	if d == nil {
		return nil
	}

	var match []string
	for _, candidate := range []string{d.Date, d.Datetime} {
		if match = dayMonthRe.FindStringSubmatch(candidate); match != nil {
			break
		}
	}
	if match == nil {
		return nil
	}

	dayNum, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	month, ok := monthByName[strings.ToLower(match[2])]
	if !ok {
		return nil
	}

	year := now().Year()
	if match[3] != "" {
		if y, err := strconv.Atoi(match[3]); err == nil {
			year = y
		}
	}

	date := time.Date(year, month, dayNum, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31st of February); reject instead.
	if date.Day() != dayNum || date.Month() != month {
		return nil
	}

	return &Structured{
		Date:      date.Format(dateLayout),
		Time:      structuredClock(d.Time),
		DayOfWeek: strings.TrimSpace(d.Day),
	}
}

// Compose builds a display slot from its parts.
func Compose(day string, dayOfMonth int, month, clock string) *Display {
	day = strings.TrimSpace(day)
	date := fmt.Sprintf("%s, the %s of %s", day, Ordinal(dayOfMonth), month)
	clock = displayClock(clock)

	return &Display{
		Day:      day,
		Date:     date,
		Time:     clock,
		Datetime: fmt.Sprintf("%s at %s", date, clock),
	}
}

// ParseText extracts a slot from free text such as
// "Monday, the 15th of December at 2:00 P.M.". When the text mentions several
// slots the last one wins, since that is where a conversation settles.
// It returns nil when no complete mention is found.
func ParseText(text string) *Display {
	matches := mentionRe.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]

		dayNum, err := strconv.Atoi(m[2])
		if err != nil || dayNum < 1 || dayNum > 31 {
			continue
		}
		month, ok := monthByName[strings.ToLower(m[3])]
		if !ok {
			continue
		}

		day := titleCase(m[1])
		clock := fmt.Sprintf("%s:%s %s", m[4], m[5], m[6])
		return Compose(day, dayNum, month.String(), clock)
	}

	return nil
}

// Ordinal renders n with its English suffix: 1st, 2nd, 3rd, 4th, 11th, 21st.
func Ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// displayClock turns "02:00 PM" into "2:00 P.M.". Unrecognized values only get
// the AM/PM token substitution.
func displayClock(clock string) string {
	clock = strings.TrimSpace(clock)
	m := clockRe.FindStringSubmatch(clock)
	if m == nil {
		clock = strings.ReplaceAll(clock, "AM", "A.M.")
		return strings.ReplaceAll(clock, "PM", "P.M.")
	}

	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%d:%s %s.M.", hour, m[2], strings.ToUpper(m[3]))
}

// structuredClock turns "2:00 P.M." into "2:00 PM".
func structuredClock(clock string) string {
	clock = strings.TrimSpace(clock)
	m := clockRe.FindStringSubmatch(clock)
	if m == nil {
		clock = strings.ReplaceAll(clock, "A.M.", "AM")
		return strings.ReplaceAll(clock, "P.M.", "PM")
	}

	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%d:%s %sM", hour, m[2], strings.ToUpper(m[3]))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}
