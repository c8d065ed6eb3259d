// Package bonus holds the calendar-month awareness bonus table.
// Rules inform the scoring prompt; nothing here enforces a bonus.
package bonus

import (
	"fmt"
	"strings"
	"time"
)

// Rule is the awareness bonus for one calendar month
type Rule struct {
	Month      int      `json:"month" yaml:"month"`
	Categories []string `json:"categories" yaml:"categories"`
	Note       string   `json:"note" yaml:"note"`
}

// Describe renders the rule the way it is handed to the scoring model
func (r Rule) Describe() string {
	return fmt.Sprintf("%d: %s (categories: %s)", r.Month, r.Note, strings.Join(r.Categories, ", "))
}

// Table maps calendar months to rules
type Table struct {
	rules map[int]Rule
}

// NewTable builds a table from rules. A later rule for the same month wins.
func NewTable(rules []Rule) *Table {
	t := &Table{rules: make(map[int]Rule, len(rules))}
	for _, r := range rules {
		t.rules[r.Month] = r
	}
	return t
}

// Lookup returns the rule for month (1-12)
func (t *Table) Lookup(month int) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	r, ok := t.rules[month]
	return r, ok
}

// Rules returns all rules ordered by month
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, 0, len(t.rules))
	for m := 1; m <= 12; m++ {
		if r, ok := t.rules[m]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ActiveForDate returns the rule for date's calendar month
func (t *Table) ActiveForDate(date time.Time) (Rule, bool) {
	return t.Lookup(int(date.Month()))
}

// CategoryMatches reports whether category overlaps the active rule's categories.
// Matching is case-insensitive substring containment in either direction, so
// "Mental Health" matches a rule listing "mental health" or "health".
func (t *Table) CategoryMatches(category string, date time.Time) bool {
	rule, ok := t.ActiveForDate(date)
	if !ok {
		return false
	}
	cat := normalize(category)
	if cat == "" {
		return false
	}
	for _, c := range rule.Categories {
		rc := normalize(c)
		if rc == "" {
			continue
		}
		if strings.Contains(cat, rc) || strings.Contains(rc, cat) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Default is the shipped table: one rule for each month
var Default = NewTable([]Rule{
	{Month: 1, Categories: []string{"community", "education"}, Note: "New Year — Community & Education focus"},
	{Month: 2, Categories: []string{"health", "community"}, Note: "Black History Month — Health & Community impact"},
	{Month: 3, Categories: []string{"women", "environment"}, Note: "Women's History — Empowerment & Environment"},
	{Month: 4, Categories: []string{"environment", "education"}, Note: "Earth Month — Environment & Climate"},
	{Month: 5, Categories: []string{"mental health", "elderly", "community"}, Note: "Mental Health Awareness — Elder care & Community"},
	{Month: 6, Categories: []string{"environment", "community"}, Note: "Pride — Community & Inclusion"},
	{Month: 7, Categories: []string{"education", "youth"}, Note: "Youth & Education focus"},
	{Month: 8, Categories: []string{"community", "education"}, Note: "Back to School — Education impact"},
	{Month: 9, Categories: []string{"food", "hunger", "community"}, Note: "Hunger Action Month — Food security"},
	{Month: 10, Categories: []string{"mental health", "health"}, Note: "Mental Health Awareness Month"},
	{Month: 11, Categories: []string{"hunger", "food", "community"}, Note: "November — Hunger & Food security focus"},
	{Month: 12, Categories: []string{"community", "food", "elderly"}, Note: "Holiday season — Community warmth"},
})

// ActiveForDate looks date up in the Default table
func ActiveForDate(date time.Time) (Rule, bool) {
	return Default.ActiveForDate(date)
}

// CategoryMatches checks category against the Default table
func CategoryMatches(category string, date time.Time) bool {
	return Default.CategoryMatches(category, date)
}
