package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used for activity dates
const DateLayout = "2006-01-02"

// Submission is a user-reported volunteer activity awaiting scoring.
// The scorer trusts HoursLogged; intake layers must reject non-positive values.
type Submission struct {
	ID                string  `json:"id,omitempty" yaml:"id,omitempty"`
	UserID            string  `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	ActivityType      string  `json:"activity_type" yaml:"activity_type"`
	HoursLogged       float64 `json:"hours_logged" yaml:"hours_logged"`
	LocationName      string  `json:"location_name,omitempty" yaml:"location_name,omitempty"`
	LocationCountry   string  `json:"location_country,omitempty" yaml:"location_country,omitempty"`
	LocationContinent string  `json:"location_continent,omitempty" yaml:"location_continent,omitempty"`
	ActivityDate      string  `json:"activity_date,omitempty" yaml:"activity_date,omitempty"` // YYYY-MM-DD, defaults to today
	Reflection        string  `json:"reflection" yaml:"reflection"`
	PhotoSubmitted    bool    `json:"photo_submitted" yaml:"photo_submitted"`
}

// ActivityCategories is the fixed set of categories offered at intake
var ActivityCategories = []string{
	"education",
	"food",
	"health",
	"mental health",
	"environment",
	"community",
	"animals",
	"elderly",
	"youth",
	"emergency",
	"science",
	"general",
}

// IsKnownCategory reports whether category is one of ActivityCategories
func IsKnownCategory(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, known := range ActivityCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ResolveDate returns the activity date string, substituting now's date when empty
func (s Submission) ResolveDate(now time.Time) string {
	if strings.TrimSpace(s.ActivityDate) == "" {
		return now.Format(DateLayout)
	}
	return strings.TrimSpace(s.ActivityDate)
}

// ParseActivityDate parses a YYYY-MM-DD or RFC 3339 date
func ParseActivityDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ErrInvalidSubmission is wrapped by Validate failures
var ErrInvalidSubmission = errors.New("invalid submission")

// Validate applies the intake checks the scorer relies on: positive finite
// hours and, when present, a parseable activity date.
func (s Submission) Validate() error {
	if math.IsNaN(s.HoursLogged) || math.IsInf(s.HoursLogged, 0) || s.HoursLogged <= 0 {
		return fmt.Errorf("%w: hours_logged must be positive, got %v", ErrInvalidSubmission, s.HoursLogged)
	}
	if d := strings.TrimSpace(s.ActivityDate); d != "" {
		if _, ok := ParseActivityDate(d); !ok {
			return fmt.Errorf("%w: activity_date %q is not YYYY-MM-DD", ErrInvalidSubmission, d)
		}
	}
	return nil
}
