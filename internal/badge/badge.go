// Package badge derives volunteer levels from accumulated impact points
// and awards milestone badges from a user's scored history.
package badge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/xpnc/internal/model"
)

// MaxLevel is the highest reachable level
const MaxLevel = 10

// LevelTitles names each level
var LevelTitles = map[int]string{
	1:  "Spark",
	2:  "Seeker",
	3:  "Helper",
	4:  "Impact Wanderer",
	5:  "Change Maker",
	6:  "World Builder",
	7:  "Altruist",
	8:  "Legend",
	9:  "Guardian",
	10: "Eternal",
}

// XPThresholds holds the cumulative XP needed for each level; level N needs XPThresholds[N]
var XPThresholds = []int{0, 100, 300, 600, 900, 1500, 2500, 4000, 6500, 10000, 15000}

// LevelFromXP returns the level reached with xp points
func LevelFromXP(xp int) int {
	level := 1
	for i := len(XPThresholds) - 1; i >= 1; i-- {
		if xp >= XPThresholds[i] {
			level = i
			break
		}
	}
	return min(level, MaxLevel)
}

// LevelProgress describes how far a user is into their current level
type LevelProgress struct {
	Level    int    `json:"level"`
	Title    string `json:"title"`
	XP       int    `json:"xp"`
	Current  int    `json:"current"`        // threshold of the current level
	Next     int    `json:"next,omitempty"` // threshold of the next level, 0 at max level
	Progress int    `json:"progress"`
	Needed   int    `json:"needed"`
	IsMax    bool   `json:"is_max"`
}

// Progress computes level progress for xp
func Progress(xp int) LevelProgress {
	level := LevelFromXP(xp)
	p := LevelProgress{
		Level:   level,
		Title:   LevelTitles[level],
		XP:      xp,
		Current: XPThresholds[level],
		IsMax:   level >= MaxLevel,
	}
	if level+1 < len(XPThresholds) {
		p.Next = XPThresholds[level+1]
		p.Needed = p.Next - p.Current
	}
	if p.Needed == 0 {
		p.Needed = 1
	}

	if p.IsMax {
		p.Progress = p.Needed
	} else {
		p.Progress = min(max(0, xp-p.Current), p.Needed)
	}
	return p
}

// Badge is a milestone a user can earn once
type Badge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`

	check func(h history) bool
	hint  func(h history) string
}

// Hint returns what is still missing to earn b, or "" once the history qualifies
func (b Badge) Hint(subs []model.ScoredSubmission) string {
	h := newHistory(subs)
	if b.check(h) {
		return ""
	}
	return b.hint(h)
}

// Earned reports whether subs qualify for b
func (b Badge) Earned(subs []model.ScoredSubmission) bool {
	return b.check(newHistory(subs))
}

// All lists every badge in award order
var All = []Badge{
	{
		ID: "first_step", Name: "First Step", Icon: "👣",
		check: func(h history) bool { return len(h.approved) >= 1 },
		hint:  func(history) string { return "Complete your first volunteer submission" },
	},
	{
		ID: "global_citizen", Name: "Global Citizen", Icon: "🌍",
		check: func(h history) bool { return h.distinct(countryOf) >= 3 },
		hint: func(h history) string {
			need := 3 - h.distinct(countryOf)
			return fmt.Sprintf("Volunteer in %d more %s", need, plural(need, "country", "countries"))
		},
	},
	{
		ID: "marathon_heart", Name: "Marathon Heart", Icon: "❤️",
		check: func(h history) bool { return h.approvedHours() >= 50 },
		hint: func(h history) string {
			return fmt.Sprintf("%s more hours to go", formatHours(50-h.approvedHours()))
		},
	},
	{
		ID: "continent_hopper", Name: "Continent Hopper", Icon: "✈️",
		check: func(h history) bool { return h.distinct(continentOf) >= 3 },
		hint: func(h history) string {
			need := 3 - h.distinct(continentOf)
			return fmt.Sprintf("Volunteer on %d more %s", need, plural(need, "continent", "continents"))
		},
	},
	{
		ID: "mentor", Name: "Mentor", Icon: "📖",
		check: func(h history) bool { return h.approvedOfType("education") >= 5 },
		hint: func(h history) string {
			return fmt.Sprintf("%d more education submissions", 5-h.approvedOfType("education"))
		},
	},
	{
		ID: "hunger_fighter", Name: "Hunger Fighter", Icon: "🌾",
		check: func(h history) bool { return h.approvedOfType("food") >= 3 },
		hint: func(h history) string {
			return fmt.Sprintf("%d more food distribution submissions", 3-h.approvedOfType("food"))
		},
	},
	{
		ID: "rare_soul", Name: "Rare Soul", Icon: "💎",
		check: func(h history) bool { return h.hasRareBonus() },
		hint:  func(history) string { return "Earn a Rare Critical Need bonus on a submission" },
	},
	{
		ID: "consistent", Name: "Consistent", Icon: "📅",
		check: func(h history) bool { return h.consecutiveMonths(3) },
		hint:  func(history) string { return "Submit in 3 consecutive months" },
	},
	{
		ID: "deep_impact", Name: "Deep Impact", Icon: "⚡",
		check: func(h history) bool { return h.maxFinalScore() >= 400 },
		hint: func(h history) string {
			return fmt.Sprintf("Score %d more points on a submission", 400-h.maxFinalScore())
		},
	},
}

// Lookup finds a badge by ID
func Lookup(id string) (Badge, bool) {
	for _, b := range All {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Evaluate returns the badges subs qualify for that are not already in earned
func Evaluate(subs []model.ScoredSubmission, earned map[string]bool) []Badge {
	h := newHistory(subs)
	var awarded []Badge
	for _, b := range All {
		if earned[b.ID] {
			continue
		}
		if b.check(h) {
			awarded = append(awarded, b)
		}
	}
	return awarded
}

// history indexes a user's submissions for badge checks.
// Only rare_soul and deep_impact look beyond approved submissions.
type history struct {
	all      []model.ScoredSubmission
	approved []model.ScoredSubmission
}

func newHistory(subs []model.ScoredSubmission) history {
	h := history{all: subs}
	for _, s := range subs {
		if s.Status == model.StatusApproved {
			h.approved = append(h.approved, s)
		}
	}
	return h
}

func countryOf(s model.ScoredSubmission) string   { return s.Submission.LocationCountry }
func continentOf(s model.ScoredSubmission) string { return s.Submission.LocationContinent }

func (h history) distinct(field func(model.ScoredSubmission) string) int {
	seen := make(map[string]struct{})
	for _, s := range h.approved {
		if v := strings.TrimSpace(field(s)); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func (h history) approvedHours() float64 {
	var total float64
	for _, s := range h.approved {
		total += s.Submission.HoursLogged
	}
	return total
}

func (h history) approvedOfType(category string) int {
	n := 0
	for _, s := range h.approved {
		if strings.EqualFold(strings.TrimSpace(s.Submission.ActivityType), category) {
			n++
		}
	}
	return n
}

func (h history) hasRareBonus() bool {
	for _, s := range h.all {
		for _, b := range s.Score.BonusesApplied {
			name := strings.ToLower(b.Name)
			if strings.Contains(name, "rare") || strings.Contains(name, "critical") {
				return true
			}
		}
	}
	return false
}

func (h history) maxFinalScore() int {
	best := 0
	for _, s := range h.all {
		best = max(best, s.Score.FinalScore)
	}
	return best
}

// consecutiveMonths reports whether approved activity spans n consecutive
// calendar months. The activity date wins over the creation time.
func (h history) consecutiveMonths(n int) bool {
	seen := make(map[int]struct{})
	for _, s := range h.approved {
		if m, ok := monthIndex(s); ok {
			seen[m] = struct{}{}
		}
	}

	months := make([]int, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Ints(months)

	run := 1
	for i := 1; i < len(months); i++ {
		if months[i]-months[i-1] == 1 {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return n <= 1 && len(months) > 0
}

// monthIndex numbers months continuously so adjacent months differ by one
func monthIndex(s model.ScoredSubmission) (int, bool) {
	if t, ok := model.ParseActivityDate(s.Submission.ActivityDate); ok {
		return t.Year()*12 + int(t.Month()) - 1, true
	}
	if !s.CreatedAt.IsZero() {
		t := s.CreatedAt.UTC()
		return t.Year()*12 + int(t.Month()) - 1, true
	}
	return 0, false
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formatHours(h float64) string {
	if h == float64(int(h)) {
		return fmt.Sprintf("%d", int(h))
	}
	return fmt.Sprintf("%.1f", h)
}
